package jobs

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type cycleIDKey struct{}

// Handler executes one cycle.
type Handler func(context.Context) error

// TickerConfig configures loop behaviour.
type TickerConfig struct {
	Interval time.Duration
	Logger   *zap.Logger
}

// Ticker runs a handler immediately and then again Interval after each run
// completes. Runs never overlap.
type Ticker struct {
	name     string
	handler  Handler
	interval time.Duration
	logger   *zap.Logger
	after    func(time.Duration) <-chan time.Time
}

// NewTicker builds a ticker for the provided handler.
func NewTicker(name string, handler Handler, cfg TickerConfig) *Ticker {
	if cfg.Interval <= 0 {
		cfg.Interval = 10 * time.Minute
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Ticker{
		name:     name,
		handler:  handler,
		interval: cfg.Interval,
		logger:   cfg.Logger,
		after:    time.After,
	}
}

// Run blocks until ctx is cancelled. Handler errors and panics are logged
// and the loop continues.
func (t *Ticker) Run(ctx context.Context) {
	t.logger.Sugar().Infow("ticker started", "ticker", t.name, "interval", t.interval.String())
	for {
		t.runOnce(ctx)
		select {
		case <-ctx.Done():
			t.logger.Sugar().Infow("ticker stopped", "ticker", t.name)
			return
		case <-t.after(t.interval):
		}
	}
}

func (t *Ticker) runOnce(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	cycleID := uuid.NewString()
	logger := t.logger.With(zap.String("ticker", t.name), zap.String("cycle_id", cycleID))
	start := time.Now()

	err := t.safeCall(WithCycleID(ctx, cycleID))
	elapsed := time.Since(start)
	if err != nil {
		logger.Error("cycle failed", zap.Duration("duration", elapsed), zap.Error(err))
		return
	}
	logger.Info("cycle completed", zap.Duration("duration", elapsed))
}

func (t *Ticker) safeCall(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v\n%s", r, debug.Stack())
		}
	}()
	return t.handler(ctx)
}

// WithCycleID stores the cycle identifier on the context.
func WithCycleID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, cycleIDKey{}, id)
}

// CycleID returns the identifier of the running cycle, if any.
func CycleID(ctx context.Context) string {
	if v, ok := ctx.Value(cycleIDKey{}).(string); ok {
		return v
	}
	return ""
}
