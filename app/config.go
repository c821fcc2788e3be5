package app

import (
	"fmt"
	"strings"
	"time"

	"github.com/joefazee/settlement/app/archive"
	"github.com/joefazee/settlement/app/database"
	"github.com/joefazee/settlement/app/ledger"
	"github.com/joefazee/settlement/app/markets"
	"github.com/joefazee/settlement/app/recovery"
	"github.com/joefazee/settlement/app/registry"
	"github.com/joefazee/settlement/app/reporting"
	"github.com/joefazee/settlement/internal/cache"
	"github.com/joefazee/settlement/internal/events"
	"github.com/joefazee/settlement/internal/logger"
	"github.com/joefazee/settlement/internal/nexus"
	"github.com/joefazee/settlement/internal/oracle"
)

type Config struct {
	DB database.Config

	AppHost string `env:"APP_HOST" env-default:"localhost"`
	AppPort string `env:"APP_PORT" env-default:"8080"`
	Env     string `env:"APP_ENV" env-default:"development"`

	// Store selects the persistence backend: postgres or memory.
	Store string `env:"STORE_BACKEND" env-default:"postgres"`

	SymmetricKey    string           `env:"TOKEN_SYMMETRIC_KEY"`
	Admins          []string         `env:"ADMINS" env-separator:","`
	RateLimitRPS    float64          `env:"RATE_LIMIT_RPS" env-default:"20"`
	RateLimitBurst  int              `env:"RATE_LIMIT_BURST" env-default:"40"`
	ShutdownTimeout time.Duration    `env:"SHUTDOWN_TIMEOUT" env-default:"10s"`
	CorsOrigins     []string         `env:"CORS_ORIGINS" env-separator:","`
	Budgets         map[string]int64 `env:"OPERATION_BUDGETS" env-separator:","`

	Log       logger.Config
	Cache     cache.Config
	Oracle    oracle.Config
	NATS      events.NATSConfig
	Markets   markets.Config
	Ledger    ledger.Config
	Registry  registry.Config
	Recovery  recovery.Config
	Reporting reporting.Config
	Archive   archive.Config
}

const (
	StorePostgres = "postgres"
	StoreMemory   = "memory"
)

// Validate checks the process settings and every module config.
func (c *Config) Validate() error {
	if c.Store != StorePostgres && c.Store != StoreMemory {
		return fmt.Errorf("unknown store backend %q", c.Store)
	}
	if len(c.SymmetricKey) != 32 {
		return fmt.Errorf("TOKEN_SYMMETRIC_KEY must be exactly 32 characters")
	}

	validators := []struct {
		name string
		v    interface{ Validate() error }
	}{
		{"cache", &c.Cache},
		{"markets", &c.Markets},
		{"ledger", &c.Ledger},
		{"registry", &c.Registry},
		{"recovery", &c.Recovery},
		{"reporting", &c.Reporting},
		{"archive", &c.Archive},
	}
	if c.Store == StorePostgres {
		validators = append(validators, struct {
			name string
			v    interface{ Validate() error }
		}{"database", &c.DB})
	}
	for _, check := range validators {
		if err := check.v.Validate(); err != nil {
			return fmt.Errorf("invalid %s configuration: %w", check.name, err)
		}
	}
	return nil
}

// Addr is the HTTP listen address.
func (c *Config) Addr() string {
	return c.AppHost + ":" + c.AppPort
}

// IsProduction reports whether the process runs in production.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Env, "production")
}

// DefaultConfig returns a config for the in-memory store with every
// module on its defaults. The token key still has to be set.
func DefaultConfig() *Config {
	return &Config{
		AppHost:         "localhost",
		AppPort:         "8080",
		Env:             "development",
		Store:           StoreMemory,
		RateLimitRPS:    20,
		RateLimitBurst:  40,
		ShutdownTimeout: 10 * time.Second,
		Log:             logger.Config{Level: "info"},
		Cache:           cache.Config{Backend: cache.MemoryBackend, Prefix: "settlement:", OpTimeout: 50 * time.Millisecond, JanitorEvery: time.Minute},
		Oracle:          oracle.Config{Provider: "feeds", Timeout: 5 * time.Second, CacheTTL: 10 * time.Second},
		Markets:         *markets.GetDefaultConfig(),
		Ledger:          *ledger.GetDefaultConfig(),
		Registry:        *registry.GetDefaultConfig(),
		Recovery:        *recovery.GetDefaultConfig(),
		Reporting:       *reporting.GetDefaultConfig(),
		Archive:         *archive.GetDefaultConfig(),
	}
}

// LoadConfig loads the application configuration from environment variables or a config file.
func LoadConfig() (*Config, error) {
	c := &Config{}
	err := nexus.NewLoader().Load(c)
	return c, err
}
