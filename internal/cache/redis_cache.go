package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisCache stores JSON encoded values under a shared key prefix so
// several engine processes can share one read cache.
type RedisCache[V any] struct {
	client    *redis.Client
	prefix    string
	opTimeout time.Duration
}

// NewRedisCache connects lazily; the first command dials.
func NewRedisCache[V any](c *Config) *RedisCache[V] {
	timeout := c.OpTimeout
	if timeout <= 0 {
		timeout = 50 * time.Millisecond
	}
	return &RedisCache[V]{
		client: redis.NewClient(&redis.Options{
			Addr:            c.RedisAddr,
			Password:        c.RedisPassword,
			DB:              c.RedisDB,
			PoolSize:        20,
			MinIdleConns:    2,
			MaxRetries:      2,
			MinRetryBackoff: 8 * time.Millisecond,
			MaxRetryBackoff: 512 * time.Millisecond,
		}),
		prefix:    c.Prefix,
		opTimeout: timeout,
	}
}

func (r *RedisCache[V]) Close() error {
	return r.client.Close()
}

func (r *RedisCache[V]) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, r.opTimeout)
	defer cancel()
	return r.client.Ping(ctx).Err()
}

func (r *RedisCache[V]) Get(ctx context.Context, key string) (V, error) {
	var val V
	ctx, cancel := context.WithTimeout(ctx, r.opTimeout)
	defer cancel()

	data, err := r.client.Get(ctx, r.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return val, ErrCacheMiss
	}
	if err != nil {
		return val, fmt.Errorf("cache get %s: %w", key, err)
	}
	if err := json.Unmarshal(data, &val); err != nil {
		return val, fmt.Errorf("cache decode %s: %w", key, err)
	}
	return val, nil
}

func (r *RedisCache[V]) Set(ctx context.Context, key string, value V, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("cache encode %s: %w", key, err)
	}
	if ttl < 0 {
		ttl = 0
	}
	ctx, cancel := context.WithTimeout(ctx, r.opTimeout)
	defer cancel()
	return r.client.Set(ctx, r.prefix+key, data, ttl).Err()
}

func (r *RedisCache[V]) Delete(ctx context.Context, key string) error {
	ctx, cancel := context.WithTimeout(ctx, r.opTimeout)
	defer cancel()
	return r.client.Del(ctx, r.prefix+key).Err()
}
