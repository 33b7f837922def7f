package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/room-usage-monitor/internal/models"
	appErrors "github.com/noah-isme/room-usage-monitor/pkg/errors"
	"github.com/noah-isme/room-usage-monitor/pkg/jobs"
)

// GridSource supplies the first worksheet of the reservation spreadsheet.
type GridSource interface {
	FetchGrid(ctx context.Context) (models.Grid, error)
}

type sensorReader interface {
	Average(ctx context.Context, now time.Time) models.SensorReading
}

type reportPublisher interface {
	Publish(ctx context.Context, report models.StatusReport) error
}

// ScheduleSnapshot is the cached outcome of one grid parse.
type ScheduleSnapshot struct {
	FetchedAt time.Time              `json:"fetched_at"`
	Entries   []models.ScheduleEntry `json:"entries"`
}

// MonitorServiceConfig tunes the cycle.
type MonitorServiceConfig struct {
	RoomID      string
	Location    *time.Location
	ScheduleTTL time.Duration
	SnapshotTTL time.Duration
}

// MonitorService runs one classification cycle end to end.
type MonitorService struct {
	source     GridSource
	parser     *GridParser
	sensor     sensorReader
	classifier *UsageClassifier
	publisher  reportPublisher
	cache      *CacheService
	metrics    *MetricsService
	logger     *zap.Logger
	now        func() time.Time
	cfg        MonitorServiceConfig
}

// MonitorServiceParams groups constructor dependencies.
type MonitorServiceParams struct {
	Source     GridSource
	Parser     *GridParser
	Sensor     sensorReader
	Classifier *UsageClassifier
	Publisher  reportPublisher
	Cache      *CacheService
	Metrics    *MetricsService
	Logger     *zap.Logger
	Config     MonitorServiceConfig
}

// NewMonitorService constructs a MonitorService with sane defaults.
func NewMonitorService(params MonitorServiceParams) *MonitorService {
	cfg := params.Config
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	if cfg.SnapshotTTL <= 0 {
		cfg.SnapshotTTL = 24 * time.Hour
	}
	logger := params.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	parser := params.Parser
	if parser == nil {
		parser = NewGridParser(GridParserConfig{RoomID: cfg.RoomID}, logger)
	}
	classifier := params.Classifier
	if classifier == nil {
		classifier = NewUsageClassifier(UsageClassifierConfig{})
	}
	return &MonitorService{
		source:     params.Source,
		parser:     parser,
		sensor:     params.Sensor,
		classifier: classifier,
		publisher:  params.Publisher,
		cache:      params.Cache,
		metrics:    params.Metrics,
		logger:     logger,
		now:        time.Now,
		cfg:        cfg,
	}
}

// RunCycle resolves the period, looks up today's booking, reads the sensor,
// classifies and publishes. Only a failure to obtain the schedule fails the
// cycle; publish failures are logged and counted.
func (s *MonitorService) RunCycle(ctx context.Context) (*models.StatusReport, error) {
	start := time.Now()
	report, err := s.runCycle(ctx)
	s.metrics.ObserveCycle(err, time.Since(start))
	return report, err
}

func (s *MonitorService) runCycle(ctx context.Context) (*models.StatusReport, error) {
	logger := s.cycleLogger(ctx)
	now := s.now().In(s.cfg.Location)
	period := ResolvePeriod(now.Hour())

	entries, err := s.Schedule(ctx)
	if err != nil {
		return nil, err
	}

	var entry *models.ScheduleEntry
	if found, ok := models.FindBooking(entries, models.DateOf(now), period); ok {
		entry = &found
	}
	booking := models.BookingUnknown
	if entry != nil {
		booking = models.ParseBookingState(entry.Booking)
	}

	reading := s.sensor.Average(ctx, now)
	status := s.classifier.Classify(booking, reading)
	s.metrics.ObserveStatus(status)

	report := BuildStatusReport(StatusReportInput{
		Status:  status,
		Entry:   entry,
		Reading: reading,
		Period:  period,
		Now:     now,
	})

	logger.Info("cycle classified",
		zap.String("period", period.String()),
		zap.String("booking", booking.String()),
		zap.Bool("co2_present", reading.Present),
		zap.Float64("co2", reading.Average),
		zap.Int("co2_samples", reading.Samples),
		zap.String("status", status.Code()),
	)

	if s.publisher != nil {
		if err := s.publisher.Publish(ctx, report); err != nil {
			logger.Warn("status report not fully published", zap.Error(err))
		}
	}
	_ = s.cache.Set(ctx, s.latestReportKey(), report, s.cfg.SnapshotTTL)

	return &report, nil
}

// Schedule returns the parsed reservation grid, reusing a cached parse while
// it is younger than ScheduleTTL.
func (s *MonitorService) Schedule(ctx context.Context) ([]models.ScheduleEntry, error) {
	if s.cfg.ScheduleTTL > 0 {
		var snapshot ScheduleSnapshot
		hit, err := s.cache.Get(ctx, s.scheduleKey(), &snapshot)
		if err == nil && hit && s.now().Sub(snapshot.FetchedAt) < s.cfg.ScheduleTTL {
			return snapshot.Entries, nil
		}
	}

	if s.source == nil {
		return nil, appErrors.Clone(appErrors.ErrInternal, "no schedule source configured")
	}
	grid, err := s.source.FetchGrid(ctx)
	if err != nil {
		return nil, appErrors.WrapAs(err, appErrors.ErrUpstream, "failed to fetch schedule grid")
	}
	entries := s.parser.Parse(grid)
	s.cycleLogger(ctx).Debug("schedule parsed", zap.Int("rows", len(grid)), zap.Int("entries", len(entries)))

	snapshot := ScheduleSnapshot{FetchedAt: s.now(), Entries: entries}
	_ = s.cache.Set(ctx, s.scheduleKey(), snapshot, s.cfg.SnapshotTTL)
	return entries, nil
}

// RefreshSchedule drops any cached parse and fetches the grid again.
func (s *MonitorService) RefreshSchedule(ctx context.Context) ([]models.ScheduleEntry, error) {
	if err := s.cache.Invalidate(ctx, s.scheduleKey()); err != nil {
		return nil, appErrors.WrapAs(err, appErrors.ErrInternal, "failed to drop cached schedule")
	}
	return s.Schedule(ctx)
}

// LatestReport returns the most recently generated report.
func (s *MonitorService) LatestReport(ctx context.Context) (*models.StatusReport, error) {
	var report models.StatusReport
	hit, err := s.cache.Get(ctx, s.latestReportKey(), &report)
	if err != nil {
		return nil, appErrors.WrapAs(err, appErrors.ErrInternal, "failed to load status report")
	}
	if !hit {
		return nil, appErrors.ErrNoReport
	}
	return &report, nil
}

// ScheduleOn returns the last parsed entries for date without touching the
// spreadsheet.
func (s *MonitorService) ScheduleOn(ctx context.Context, date models.CivilDate) ([]models.ScheduleEntry, error) {
	var snapshot ScheduleSnapshot
	hit, err := s.cache.Get(ctx, s.scheduleKey(), &snapshot)
	if err != nil {
		return nil, appErrors.WrapAs(err, appErrors.ErrInternal, "failed to load schedule")
	}
	if !hit {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "schedule has not been fetched yet")
	}
	return models.EntriesOn(snapshot.Entries, date), nil
}

// Today returns the current civil date in the reporting location.
func (s *MonitorService) Today() models.CivilDate {
	return models.DateOf(s.now().In(s.cfg.Location))
}

// cycleLogger tags log lines with the ticker's cycle id when one is set.
func (s *MonitorService) cycleLogger(ctx context.Context) *zap.Logger {
	if id := jobs.CycleID(ctx); id != "" {
		return s.logger.With(zap.String("cycle_id", id))
	}
	return s.logger
}

func (s *MonitorService) latestReportKey() string {
	return fmt.Sprintf(cacheKeyLatestReport, s.cfg.RoomID)
}

func (s *MonitorService) scheduleKey() string {
	return fmt.Sprintf(cacheKeySchedule, s.cfg.RoomID)
}
