package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"path"
	"sync"
	"time"

	appErrors "github.com/noah-isme/room-usage-monitor/pkg/errors"
)

type memoryItem struct {
	payload   []byte
	expiresAt time.Time
}

// MemoryCacheRepository is the in-process stand-in for Redis when no cache
// server is configured. Values are JSON encoded so callers see the same
// round-trip behaviour as with Redis.
type MemoryCacheRepository struct {
	mu    sync.RWMutex
	items map[string]memoryItem
	now   func() time.Time
}

// NewMemoryCacheRepository constructs an empty in-memory cache.
func NewMemoryCacheRepository() *MemoryCacheRepository {
	return &MemoryCacheRepository{items: make(map[string]memoryItem), now: time.Now}
}

// Get unmarshals a live entry into dest.
func (r *MemoryCacheRepository) Get(_ context.Context, key string, dest interface{}) error {
	r.mu.RLock()
	item, ok := r.items[key]
	r.mu.RUnlock()
	if !ok || (!item.expiresAt.IsZero() && r.now().After(item.expiresAt)) {
		return appErrors.ErrCacheMiss
	}
	if err := json.Unmarshal(item.payload, dest); err != nil {
		return fmt.Errorf("unmarshal cache value for %s: %w", key, err)
	}
	return nil
}

// Set stores value until ttl elapses; a non-positive ttl never expires.
func (r *MemoryCacheRepository) Set(_ context.Context, key string, value interface{}, ttl time.Duration) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal cache value for %s: %w", key, err)
	}
	item := memoryItem{payload: payload}
	if ttl > 0 {
		item.expiresAt = r.now().Add(ttl)
	}
	r.mu.Lock()
	r.items[key] = item
	r.mu.Unlock()
	return nil
}

// DeleteByPattern removes keys matching a glob pattern.
func (r *MemoryCacheRepository) DeleteByPattern(_ context.Context, pattern string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for key := range r.items {
		matched, err := path.Match(pattern, key)
		if err != nil {
			return fmt.Errorf("match pattern %s: %w", pattern, err)
		}
		if matched {
			delete(r.items, key)
		}
	}
	return nil
}
