package export

import (
	"strconv"

	"github.com/noah-isme/room-usage-monitor/internal/models"
)

// Column keys produced by ScheduleDataset.
const (
	ColumnDate     = "date"
	ColumnPeriod   = "period"
	ColumnPeriodNo = "period_no"
	ColumnBooking  = "booking"
	ColumnState    = "state"
)

// ScheduleCSVHeaders keeps the raw sheet marks.
var ScheduleCSVHeaders = []string{ColumnDate, ColumnPeriod, ColumnBooking, ColumnState}

// SchedulePDFHeaders avoids the CJK period label and the booking marks,
// which the core PDF fonts cannot draw.
var SchedulePDFHeaders = []string{ColumnDate, ColumnPeriodNo, ColumnState}

// ScheduleDataset flattens schedule entries into a Dataset with the given
// headers. Every column key is populated regardless of headers.
func ScheduleDataset(entries []models.ScheduleEntry, headers []string) Dataset {
	rows := make([]map[string]string, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, map[string]string{
			ColumnDate:     e.Date.String(),
			ColumnPeriod:   e.Period.Label(),
			ColumnPeriodNo: strconv.Itoa(int(e.Period)),
			ColumnBooking:  e.Booking,
			ColumnState:    models.ParseBookingState(e.Booking).String(),
		})
	}
	return Dataset{Headers: headers, Rows: rows}
}
