package models

import (
	"bytes"
	"encoding/json"
)

// SensorReading is the averaged CO2 concentration over a trailing window.
// Present is false when the feed failed or yielded no valid samples.
type SensorReading struct {
	Present       bool    `json:"present"`
	Average       float64 `json:"average"`
	WindowSeconds int     `json:"window_seconds"`
	Samples       int     `json:"samples"`
}

// NoReading is the absent reading for the given window.
func NoReading(windowSeconds int) SensorReading {
	return SensorReading{WindowSeconds: windowSeconds}
}

// Value returns the average and whether it is present.
func (r SensorReading) Value() (float64, bool) {
	return r.Average, r.Present
}

// UsageStatus is the fused verdict for the tracked room.
type UsageStatus string

const (
	StatusNormalUse               UsageStatus = "✅ 正常利用中"
	StatusPossibleUnauthorizedUse UsageStatus = "⚠️ 不正利用の可能性あり"
	StatusPossibleNoShow          UsageStatus = "⚠️ 無断キャンセルの可能性"
	StatusVacantOrUnused          UsageStatus = "🟢 空室または利用無し"
)

// Code returns a stable ASCII identifier for the status.
func (s UsageStatus) Code() string {
	switch s {
	case StatusNormalUse:
		return "normal_use"
	case StatusPossibleUnauthorizedUse:
		return "possible_unauthorized_use"
	case StatusPossibleNoShow:
		return "possible_no_show"
	case StatusVacantOrUnused:
		return "vacant_or_unused"
	default:
		return "unknown"
	}
}

// Sentinels used in place of missing values in a published report.
const (
	NoDataText       = "データなし"
	OutsideHoursText = "授業時間外"
)

// LastUpdatedLayout formats StatusReport.LastUpdated.
const LastUpdatedLayout = "2006-01-02 15:04:05"

// StatusReport is the record published every tick.
type StatusReport struct {
	StatusText    string `json:"status_text"`
	BookingStatus string `json:"booking_status"`
	CO2Value      string `json:"co2_value"`
	CurrentPeriod string `json:"current_period"`
	LastUpdated   string `json:"last_updated"`
}

// JSON renders the report as indented UTF-8 JSON.
func (r StatusReport) JSON() ([]byte, error) {
	buf := &bytes.Buffer{}
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(r); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
