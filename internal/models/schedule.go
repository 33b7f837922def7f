package models

import (
	"fmt"
	"strings"
	"time"
)

// OperatingYear is the year every schedule date is projected onto. The sheet
// only carries month and day, so dates across a year boundary resolve to the
// wrong year.
const OperatingYear = 2025

// CivilDate is a calendar date without a time zone.
type CivilDate struct {
	Year  int
	Month time.Month
	Day   int
}

// DateOf returns the civil date of t in t's location.
func DateOf(t time.Time) CivilDate {
	y, m, d := t.Date()
	return CivilDate{Year: y, Month: m, Day: d}
}

// ParseCivilDate parses a YYYY-MM-DD string.
func ParseCivilDate(s string) (CivilDate, error) {
	t, err := time.Parse("2006-01-02", strings.TrimSpace(s))
	if err != nil {
		return CivilDate{}, err
	}
	return DateOf(t), nil
}

// String formats the date as YYYY-MM-DD.
func (d CivilDate) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

// MarshalText implements encoding.TextMarshaler.
func (d CivilDate) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *CivilDate) UnmarshalText(data []byte) error {
	parsed, err := ParseCivilDate(string(data))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Period is one of the fixed class slots of the day.
type Period int

const (
	NoPeriod Period = iota
	Period1
	Period2
	Period3
	Period4
)

// Label returns the slot label used by the sheet, e.g. "1限".
func (p Period) Label() string {
	if p <= NoPeriod {
		return ""
	}
	return fmt.Sprintf("%d限", int(p))
}

// String implements fmt.Stringer.
func (p Period) String() string {
	if p <= NoPeriod {
		return "none"
	}
	return p.Label()
}

// BookingState is the reservation status entered for a room/period pair.
type BookingState int

const (
	BookingUnknown BookingState = iota
	BookingReserved
	BookingNotReserved
)

const (
	ReservedMark    = "○"
	NotReservedMark = "×"
)

// ParseBookingState maps raw cell text onto a booking state.
func ParseBookingState(raw string) BookingState {
	switch strings.TrimSpace(raw) {
	case ReservedMark:
		return BookingReserved
	case NotReservedMark:
		return BookingNotReserved
	default:
		return BookingUnknown
	}
}

// String implements fmt.Stringer.
func (b BookingState) String() string {
	switch b {
	case BookingReserved:
		return "reserved"
	case BookingNotReserved:
		return "not_reserved"
	default:
		return "unknown"
	}
}

// ScheduleEntry is one booking slot decoded from the reservation grid.
type ScheduleEntry struct {
	Date    CivilDate `json:"date"`
	Period  Period    `json:"period"`
	Booking string    `json:"booking"`
}

// FindBooking returns the entry for date and period, if any.
func FindBooking(entries []ScheduleEntry, date CivilDate, period Period) (ScheduleEntry, bool) {
	if period == NoPeriod {
		return ScheduleEntry{}, false
	}
	for _, entry := range entries {
		if entry.Date == date && entry.Period == period {
			return entry, true
		}
	}
	return ScheduleEntry{}, false
}

// EntriesOn returns the entries scheduled on date, in grid order.
func EntriesOn(entries []ScheduleEntry, date CivilDate) []ScheduleEntry {
	result := make([]ScheduleEntry, 0)
	for _, entry := range entries {
		if entry.Date == date {
			result = append(result, entry)
		}
	}
	return result
}
