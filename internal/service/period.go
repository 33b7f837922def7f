package service

import "github.com/noah-isme/room-usage-monitor/internal/models"

type periodWindow struct {
	period    models.Period
	startHour int
	endHour   int
}

// periodTable lists the half-open [start, end) hour window of each period.
var periodTable = []periodWindow{
	{period: models.Period1, startHour: 8, endHour: 10},
	{period: models.Period2, startHour: 10, endHour: 12},
	{period: models.Period3, startHour: 13, endHour: 15},
	{period: models.Period4, startHour: 15, endHour: 17},
}

// ResolvePeriod maps a wall-clock hour to its class period, or NoPeriod.
func ResolvePeriod(hour int) models.Period {
	for _, w := range periodTable {
		if hour >= w.startHour && hour < w.endHour {
			return w.period
		}
	}
	return models.NoPeriod
}
