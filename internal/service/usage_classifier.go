package service

import "github.com/noah-isme/room-usage-monitor/internal/models"

// UsageClassifierConfig tunes the CO2 thresholds of the decision table.
type UsageClassifierConfig struct {
	HighPPM float64
	LowPPM  float64
	// FlagUnauthorized enables the "possible unauthorized use" verdict for an
	// unreserved room with a high reading. Off by default.
	FlagUnauthorized bool
}

// UsageClassifier fuses a booking state with a sensor reading.
type UsageClassifier struct {
	cfg UsageClassifierConfig
}

// NewUsageClassifier constructs a classifier, defaulting to 1000/600 ppm.
func NewUsageClassifier(cfg UsageClassifierConfig) *UsageClassifier {
	if cfg.HighPPM <= 0 {
		cfg.HighPPM = 1000
	}
	if cfg.LowPPM <= 0 {
		cfg.LowPPM = 600
	}
	return &UsageClassifier{cfg: cfg}
}

// Classify evaluates the rules in order; the first match wins. A reserved
// room reading between the two thresholds falls through to VacantOrUnused.
func (c *UsageClassifier) Classify(booking models.BookingState, reading models.SensorReading) models.UsageStatus {
	avg, present := reading.Value()
	high := present && avg > c.cfg.HighPPM

	switch {
	case booking == models.BookingReserved && high:
		return models.StatusNormalUse
	case c.cfg.FlagUnauthorized && booking == models.BookingNotReserved && high:
		return models.StatusPossibleUnauthorizedUse
	case booking == models.BookingReserved && (!present || avg < c.cfg.LowPPM):
		return models.StatusPossibleNoShow
	default:
		return models.StatusVacantOrUnused
	}
}
