package cache

import (
	"context"
	"sync"
	"time"

	"github.com/joefazee/settlement/internal/clock"
)

type entry[V any] struct {
	value     V
	expiresAt time.Time
}

func (e entry[V]) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && !now.Before(e.expiresAt)
}

// MemoryCache keeps entries in process. Expiry is read from the supplied
// clock, so tests can drive it with a manual clock.
type MemoryCache[V any] struct {
	mu    sync.RWMutex
	items map[string]entry[V]
	clock clock.Clock
	quit  chan struct{}
	once  sync.Once
}

// NewMemoryCache returns an empty cache. A nil clock reads the wall clock.
func NewMemoryCache[V any](clk clock.Clock) *MemoryCache[V] {
	if clk == nil {
		clk = clock.System{}
	}
	return &MemoryCache[V]{
		items: make(map[string]entry[V]),
		clock: clk,
		quit:  make(chan struct{}),
	}
}

// StartJanitor purges expired entries every interval until Close.
func (mc *MemoryCache[V]) StartJanitor(interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				mc.Purge()
			case <-mc.quit:
				return
			}
		}
	}()
}

// Close stops the janitor. It is safe to call more than once.
func (mc *MemoryCache[V]) Close() error {
	mc.once.Do(func() { close(mc.quit) })
	return nil
}

// Purge drops every expired entry and reports how many were removed.
func (mc *MemoryCache[V]) Purge() int {
	now := mc.clock.Now()
	mc.mu.Lock()
	defer mc.mu.Unlock()
	n := 0
	for k, e := range mc.items {
		if e.expired(now) {
			delete(mc.items, k)
			n++
		}
	}
	return n
}

// Len counts live entries.
func (mc *MemoryCache[V]) Len() int {
	now := mc.clock.Now()
	mc.mu.RLock()
	defer mc.mu.RUnlock()
	n := 0
	for _, e := range mc.items {
		if !e.expired(now) {
			n++
		}
	}
	return n
}

func (mc *MemoryCache[V]) Get(_ context.Context, key string) (V, error) {
	var zero V
	mc.mu.RLock()
	e, ok := mc.items[key]
	mc.mu.RUnlock()
	if !ok || e.expired(mc.clock.Now()) {
		return zero, ErrCacheMiss
	}
	return e.value, nil
}

func (mc *MemoryCache[V]) Set(_ context.Context, key string, value V, ttl time.Duration) error {
	e := entry[V]{value: value}
	if ttl > 0 {
		e.expiresAt = mc.clock.Now().Add(ttl)
	}
	mc.mu.Lock()
	mc.items[key] = e
	mc.mu.Unlock()
	return nil
}

func (mc *MemoryCache[V]) Delete(_ context.Context, key string) error {
	mc.mu.Lock()
	delete(mc.items, key)
	mc.mu.Unlock()
	return nil
}
