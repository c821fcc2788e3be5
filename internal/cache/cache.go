package cache

import (
	"context"
	"errors"
	"time"
)

const (
	RedisBackend  = "redis"
	MemoryBackend = "memory"
)

var ErrCacheMiss = errors.New("cache: key not found")

// Cache is a typed key/value store with per-entry expiry. It backs the
// read models (platform stats, oracle prices) and never holds state the
// engine needs for correctness.
type Cache[V any] interface {
	// Get returns the value or ErrCacheMiss.
	Get(ctx context.Context, key string) (V, error)
	// Set stores value under key. A zero ttl keeps the entry until deleted.
	Set(ctx context.Context, key string, value V, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// Close releases the backend behind c when it holds any resources.
func Close[V any](c Cache[V]) error {
	if closer, ok := c.(interface{ Close() error }); ok {
		return closer.Close()
	}
	return nil
}

var (
	_ Cache[int] = (*MemoryCache[int])(nil)
	_ Cache[int] = (*RedisCache[int])(nil)
	_ Cache[int] = (*MockCache[int])(nil)
)
