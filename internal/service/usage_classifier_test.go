package service

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/room-usage-monitor/internal/models"
)

func ppm(v float64) models.SensorReading {
	return models.SensorReading{Present: true, Average: v, WindowSeconds: 3600, Samples: 1}
}

func TestUsageClassifier(t *testing.T) {
	none := models.NoReading(3600)
	tests := []struct {
		name    string
		booking models.BookingState
		reading models.SensorReading
		want    models.UsageStatus
	}{
		{"reserved and busy", models.BookingReserved, ppm(1500), models.StatusNormalUse},
		{"reserved without data", models.BookingReserved, none, models.StatusPossibleNoShow},
		{"reserved and empty", models.BookingReserved, ppm(300), models.StatusPossibleNoShow},
		{"reserved in between", models.BookingReserved, ppm(800), models.StatusVacantOrUnused},
		{"reserved at high threshold", models.BookingReserved, ppm(1000), models.StatusVacantOrUnused},
		{"reserved at low threshold", models.BookingReserved, ppm(600), models.StatusVacantOrUnused},
		{"not reserved and busy", models.BookingNotReserved, ppm(1500), models.StatusVacantOrUnused},
		{"unknown without data", models.BookingUnknown, none, models.StatusVacantOrUnused},
		{"unknown and busy", models.BookingUnknown, ppm(1500), models.StatusVacantOrUnused},
	}

	classifier := NewUsageClassifier(UsageClassifierConfig{})
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, classifier.Classify(tt.booking, tt.reading))
		})
	}
}

func TestUsageClassifierUnauthorizedFlag(t *testing.T) {
	classifier := NewUsageClassifier(UsageClassifierConfig{FlagUnauthorized: true})

	assert.Equal(t, models.StatusPossibleUnauthorizedUse, classifier.Classify(models.BookingNotReserved, ppm(1500)))
	assert.Equal(t, models.StatusVacantOrUnused, classifier.Classify(models.BookingNotReserved, ppm(900)))
	assert.Equal(t, models.StatusVacantOrUnused, classifier.Classify(models.BookingUnknown, ppm(1500)))
	assert.Equal(t, models.StatusNormalUse, classifier.Classify(models.BookingReserved, ppm(1500)))
}

func TestUsageClassifierCustomThresholds(t *testing.T) {
	classifier := NewUsageClassifier(UsageClassifierConfig{HighPPM: 800, LowPPM: 400})

	assert.Equal(t, models.StatusNormalUse, classifier.Classify(models.BookingReserved, ppm(900)))
	assert.Equal(t, models.StatusVacantOrUnused, classifier.Classify(models.BookingReserved, ppm(500)))
	assert.Equal(t, models.StatusPossibleNoShow, classifier.Classify(models.BookingReserved, ppm(399)))
}
