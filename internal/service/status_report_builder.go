package service

import (
	"strconv"
	"strings"
	"time"

	"github.com/noah-isme/room-usage-monitor/internal/models"
)

// StatusReportInput gathers everything one tick decided.
type StatusReportInput struct {
	Status  models.UsageStatus
	Entry   *models.ScheduleEntry
	Reading models.SensorReading
	Period  models.Period
	Now     time.Time
}

// BuildStatusReport formats the tick outcome, substituting sentinels for
// missing values. Now must already be in the reporting location.
func BuildStatusReport(in StatusReportInput) models.StatusReport {
	report := models.StatusReport{
		StatusText:    string(in.Status),
		BookingStatus: models.NoDataText,
		CO2Value:      models.NoDataText,
		CurrentPeriod: models.OutsideHoursText,
		LastUpdated:   in.Now.Format(models.LastUpdatedLayout),
	}

	if in.Entry != nil && strings.TrimSpace(in.Entry.Booking) != "" {
		report.BookingStatus = in.Entry.Booking
	}
	if avg, ok := in.Reading.Value(); ok {
		report.CO2Value = strconv.FormatFloat(avg, 'f', 1, 64)
	}
	if in.Period != models.NoPeriod {
		report.CurrentPeriod = in.Period.Label()
	}

	return report
}
