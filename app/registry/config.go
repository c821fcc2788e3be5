package registry

import "github.com/joefazee/settlement/models"

// Config represents the configuration for the identifier generator
type Config struct {
	Prefix      string `env:"MARKET_ID_PREFIX" env-default:"mkt"`
	MaxCounter  int64  `env:"MARKET_ID_MAX_COUNTER" env-default:"999999"`
	MaxRetries  int    `env:"MARKET_ID_MAX_RETRIES" env-default:"10"`
	MaxPageSize int    `env:"REGISTRY_MAX_PAGE_SIZE" env-default:"30"`
}

// Validate validates the registry configuration
func (c *Config) Validate() error {
	checks := []struct {
		ok  bool
		err error
	}{
		{c.Prefix != "" && len(c.Prefix) <= 8, models.ErrInvalidInput},
		{c.MaxCounter > 0 && c.MaxCounter <= 999999, models.ErrInvalidInput},
		{c.MaxRetries > 0, models.ErrInvalidInput},
		{c.MaxPageSize > 0, models.ErrInvalidPageSize},
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
		Prefix:      "mkt",
		MaxCounter:  999999,
		MaxRetries:  10,
		MaxPageSize: 30,
	}
}
