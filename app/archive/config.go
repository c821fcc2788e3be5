package archive

import (
	"strings"

	"github.com/joefazee/settlement/internal/blob"
	"github.com/joefazee/settlement/models"
)

// Config represents the configuration for the market archive
type Config struct {
	MaxPageSize  int    `env:"ARCHIVE_MAX_PAGE_SIZE" env-default:"30"`
	ExportPrefix string `env:"ARCHIVE_EXPORT_PREFIX" env-default:"archive"`
	// ExportBatch bounds how many entries one store query returns while exporting.
	ExportBatch int `env:"ARCHIVE_EXPORT_BATCH" env-default:"200"`
	S3          blob.S3Config
}

// Validate validates the archive configuration
func (c *Config) Validate() error {
	checks := []struct {
		ok  bool
		err error
	}{
		{c.MaxPageSize > 0, models.ErrInvalidPageSize},
		{c.ExportBatch > 0, models.ErrInvalidInput},
		{strings.Trim(c.ExportPrefix, "/ ") != "", models.ErrInvalidInput},
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
		MaxPageSize:  30,
		ExportPrefix: "archive",
		ExportBatch:  200,
		S3:           blob.S3Config{Region: "us-east-1"},
	}
}
