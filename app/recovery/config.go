package recovery

import "github.com/joefazee/settlement/models"

// Config represents the configuration for the recovery validator
type Config struct {
	MaxRefundUsers int `env:"RECOVERY_MAX_REFUND_USERS" env-default:"100"`
}

// Validate validates the recovery configuration
func (c *Config) Validate() error {
	if c.MaxRefundUsers <= 0 {
		return models.ErrInvalidInput
	}
	return nil
}

// GetDefaultConfig returns the default configuration
func GetDefaultConfig() *Config {
	return &Config{MaxRefundUsers: 100}
}
