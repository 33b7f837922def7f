package service

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/room-usage-monitor/internal/models"
)

// Column layout of the CO2 feed.
const (
	sensorRoomColumn  = 1
	sensorValueColumn = 3
	sensorMinFields   = 7
)

// Sensor fetch outcomes reported to metrics.
const (
	sensorOutcomeOK        = "ok"
	sensorOutcomeNoSamples = "no_samples"
	sensorOutcomeError     = "error"
)

// SensorServiceConfig configures the CSV feed endpoint.
type SensorServiceConfig struct {
	BaseURL         string
	FeedID          string
	SubscriptionKey string
	RoomName        string
	Window          time.Duration
	Timeout         time.Duration
}

// SensorService averages the tracked room's CO2 samples over a trailing window.
type SensorService struct {
	cfg     SensorServiceConfig
	client  *http.Client
	metrics *MetricsService
	logger  *zap.Logger
}

// NewSensorService constructs a SensorService. A nil client gets one with the
// configured timeout.
func NewSensorService(cfg SensorServiceConfig, client *http.Client, metrics *MetricsService, logger *zap.Logger) *SensorService {
	if cfg.Window <= 0 {
		cfg.Window = time.Hour
	}
	if client == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SensorService{cfg: cfg, client: client, metrics: metrics, logger: logger}
}

// Average fetches the window ending at now and returns the mean of the valid
// samples. Failures are reported as an absent reading, never as an error.
func (s *SensorService) Average(ctx context.Context, now time.Time) models.SensorReading {
	windowSeconds := int(s.cfg.Window / time.Second)

	body, err := s.fetch(ctx, now.Add(-s.cfg.Window))
	if err != nil {
		s.logger.Warn("sensor fetch failed", zap.Error(err))
		reading := models.NoReading(windowSeconds)
		s.metrics.ObserveSensor(sensorOutcomeError, reading)
		return reading
	}
	defer body.Close() //nolint:errcheck

	reading, err := averageSamples(body, s.cfg.RoomName, windowSeconds)
	if err != nil {
		s.logger.Warn("sensor feed read failed", zap.Error(err))
		s.metrics.ObserveSensor(sensorOutcomeError, reading)
		return reading
	}
	outcome := sensorOutcomeOK
	if !reading.Present {
		outcome = sensorOutcomeNoSamples
	}
	s.metrics.ObserveSensor(outcome, reading)
	return reading
}

func (s *SensorService) fetch(ctx context.Context, start time.Time) (io.ReadCloser, error) {
	endpoint, err := url.Parse(s.cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse sensor url: %w", err)
	}
	q := endpoint.Query()
	q.Set("id", s.cfg.FeedID)
	q.Set("subscription-key", s.cfg.SubscriptionKey)
	q.Set("startDate", strconv.FormatInt(start.Unix(), 10))
	endpoint.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("build sensor request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sensor request: %w", err)
	}
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 512))
		_ = resp.Body.Close()
		return nil, fmt.Errorf("sensor feed returned status %d", resp.StatusCode)
	}
	return resp.Body, nil
}

// averageSamples reads the CSV feed, keeping rows for room whose value column
// is a finite number. Rows the CSV reader rejects are skipped; any other read
// error discards the partial window and yields NoReading with the error.
func averageSamples(r io.Reader, room string, windowSeconds int) (models.SensorReading, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	var sum float64
	var count int
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var parseErr *csv.ParseError
			if errors.As(err, &parseErr) {
				continue
			}
			return models.NoReading(windowSeconds), fmt.Errorf("read sensor feed: %w", err)
		}
		value, ok := sampleValue(record, room)
		if !ok {
			continue
		}
		sum += value
		count++
	}

	if count == 0 {
		return models.NoReading(windowSeconds), nil
	}
	return models.SensorReading{
		Present:       true,
		Average:       sum / float64(count),
		WindowSeconds: windowSeconds,
		Samples:       count,
	}, nil
}

func sampleValue(record []string, room string) (float64, bool) {
	if len(record) < sensorMinFields || record[sensorRoomColumn] != room {
		return 0, false
	}
	value, err := strconv.ParseFloat(strings.TrimSpace(record[sensorValueColumn]), 64)
	if err != nil || math.IsNaN(value) || math.IsInf(value, 0) {
		return 0, false
	}
	return value, true
}
