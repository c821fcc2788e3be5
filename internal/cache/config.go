package cache

import (
	"errors"
	"fmt"
	"time"
)

var ErrUnknownBackend = errors.New("cache: unknown backend")

// Config selects and tunes the cache backend shared by the read models.
type Config struct {
	Backend       string        `env:"CACHE_BACKEND" env-default:"memory"`
	RedisAddr     string        `env:"REDIS_ADDR" env-default:"localhost:6379"`
	RedisPassword string        `env:"REDIS_PASSWORD"`
	RedisDB       int           `env:"REDIS_DB" env-default:"0"`
	Prefix        string        `env:"CACHE_KEY_PREFIX" env-default:"settlement:"`
	OpTimeout     time.Duration `env:"CACHE_OP_TIMEOUT" env-default:"50ms"`
	JanitorEvery  time.Duration `env:"CACHE_JANITOR_INTERVAL" env-default:"1m"`
}

// Validate checks the backend selection.
func (c *Config) Validate() error {
	switch c.Backend {
	case MemoryBackend:
		return nil
	case RedisBackend:
		if c.RedisAddr == "" {
			return fmt.Errorf("%w: redis address required", ErrUnknownBackend)
		}
		return nil
	}
	return fmt.Errorf("%w: %q", ErrUnknownBackend, c.Backend)
}

// New builds a cache for V from the config.
func New[V any](c *Config) (Cache[V], error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	if c.Backend == RedisBackend {
		return NewRedisCache[V](c), nil
	}
	mc := NewMemoryCache[V](nil)
	if c.JanitorEvery > 0 {
		mc.StartJanitor(c.JanitorEvery)
	}
	return mc, nil
}
