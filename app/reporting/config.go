package reporting

import (
	"time"

	"github.com/joefazee/settlement/models"
)

// Config represents the configuration for the read-only reports
type Config struct {
	MaxPageSize int           `env:"REPORTING_MAX_PAGE_SIZE" env-default:"30"`
	StatsTTL    time.Duration `env:"REPORTING_STATS_TTL" env-default:"15s"`
}

// Validate validates the reporting configuration
func (c *Config) Validate() error {
	checks := []struct {
		ok  bool
		err error
	}{
		{c.MaxPageSize > 0, models.ErrInvalidPageSize},
		{c.StatsTTL >= 0, models.ErrInvalidInput},
	}
	for _, check := range checks {
		if !check.ok {
			return check.err
		}
	}
	return nil
}

// GetDefaultConfig returns the default configuration
func GetDefaultConfig() *Config {
	return &Config{
		MaxPageSize: 30,
		StatsTTL:    15 * time.Second,
	}
}
