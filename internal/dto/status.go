package dto

import "github.com/noah-isme/room-usage-monitor/internal/models"

// ScheduleEntryResponse is one period of the tracked room on a date.
type ScheduleEntryResponse struct {
	Period  int    `json:"period"`
	Label   string `json:"label"`
	Booking string `json:"booking"`
	State   string `json:"state"`
}

// ScheduleResponse lists the parsed bookings for one date.
type ScheduleResponse struct {
	Room    string                  `json:"room"`
	Date    models.CivilDate        `json:"date"`
	Entries []ScheduleEntryResponse `json:"entries"`
}

// NewScheduleResponse maps schedule entries to their API shape.
func NewScheduleResponse(room string, date models.CivilDate, entries []models.ScheduleEntry) ScheduleResponse {
	out := ScheduleResponse{Room: room, Date: date, Entries: make([]ScheduleEntryResponse, 0, len(entries))}
	for _, e := range entries {
		out.Entries = append(out.Entries, ScheduleEntryResponse{
			Period:  int(e.Period),
			Label:   e.Period.Label(),
			Booking: e.Booking,
			State:   models.ParseBookingState(e.Booking).String(),
		})
	}
	return out
}
