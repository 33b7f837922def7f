package jobs

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTickerRunsImmediatelyAndSurvivesFailures(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var mu sync.Mutex
	var ids []string
	calls := 0
	handler := func(ctx context.Context) error {
		mu.Lock()
		defer mu.Unlock()
		calls++
		ids = append(ids, CycleID(ctx))
		switch calls {
		case 1:
			return errors.New("sheet unavailable")
		case 2:
			panic("boom")
		case 3:
			cancel()
		}
		return nil
	}

	ticks := make(chan time.Time)
	ticker := NewTicker("test", handler, TickerConfig{Interval: time.Hour})
	ticker.after = func(time.Duration) <-chan time.Time { return ticks }

	done := make(chan struct{})
	go func() {
		ticker.Run(ctx)
		close(done)
	}()

	ticks <- time.Now()
	ticks <- time.Now()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("ticker did not stop after cancellation")
	}

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 3, calls)
	require.Len(t, ids, 3)
	assert.NotEmpty(t, ids[0])
	assert.NotEqual(t, ids[0], ids[1])
}

func TestTickerDoesNotRunWhenAlreadyCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	ticker := NewTicker("test", func(context.Context) error {
		calls++
		return nil
	}, TickerConfig{})
	ticker.Run(ctx)

	assert.Zero(t, calls)
	assert.Equal(t, 10*time.Minute, ticker.interval)
}

func TestCycleIDMissing(t *testing.T) {
	assert.Empty(t, CycleID(context.Background()))
}
