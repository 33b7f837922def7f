package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/noah-isme/room-usage-monitor/internal/models"
)

// StatusPublisher persists or transmits a rendered status report.
type StatusPublisher interface {
	Name() string
	Publish(ctx context.Context, report models.StatusReport, payload []byte) error
}

// PublishService fans a report out to every configured publisher. One
// publisher failing does not stop the others.
type PublishService struct {
	publishers []StatusPublisher
	metrics    *MetricsService
	logger     *zap.Logger
}

// NewPublishService constructs the fan-out.
func NewPublishService(publishers []StatusPublisher, metrics *MetricsService, logger *zap.Logger) *PublishService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PublishService{publishers: publishers, metrics: metrics, logger: logger}
}

// Publish renders the report once and hands it to each publisher. The
// returned error joins every publisher failure.
func (s *PublishService) Publish(ctx context.Context, report models.StatusReport) error {
	payload, err := report.JSON()
	if err != nil {
		return fmt.Errorf("render status report: %w", err)
	}

	var errs []error
	for _, p := range s.publishers {
		err := p.Publish(ctx, report, payload)
		s.metrics.ObservePublish(p.Name(), err)
		if err != nil {
			s.logger.Error("status publish failed", zap.String("publisher", p.Name()), zap.Error(err))
			errs = append(errs, fmt.Errorf("%s: %w", p.Name(), err))
			continue
		}
		s.logger.Info("status published", zap.String("publisher", p.Name()), zap.Int("bytes", len(payload)))
	}
	return errors.Join(errs...)
}
