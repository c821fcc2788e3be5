package oracle

import (
	"time"

	"github.com/joefazee/settlement/internal/cache"
	"github.com/joefazee/settlement/internal/events"
	"github.com/joefazee/settlement/internal/logger"
)

// Config describes the HTTP price provider wired at startup.
type Config struct {
	Provider   string        `env:"ORACLE_PROVIDER" env-default:"feeds"`
	PrimaryURL string        `env:"ORACLE_PRIMARY_URL"`
	BackupURL  string        `env:"ORACLE_BACKUP_URL"`
	Timeout    time.Duration `env:"ORACLE_TIMEOUT" env-default:"5s"`
	CacheTTL   time.Duration `env:"ORACLE_CACHE_TTL" env-default:"10s"`
}

// Build assembles the registry: primary HTTP source, optional backup behind
// a fallback, optional cache in front.
func Build(cfg *Config, c cache.Cache[string], sink events.Sink, observer Observer, l logger.Logger) *Registry {
	reg := NewRegistry()
	if cfg.PrimaryURL == "" {
		return reg
	}

	var source PriceSource = NewHTTPSource(cfg.Provider+"-primary", cfg.PrimaryURL, cfg.Timeout)
	var backup PriceSource
	if cfg.BackupURL != "" {
		backup = NewHTTPSource(cfg.Provider+"-backup", cfg.BackupURL, cfg.Timeout)
	}
	source = NewFallbackSource(cfg.Provider, source, backup, sink, observer, l)
	if c != nil && cfg.CacheTTL > 0 {
		source = NewCachedSource(source, c, cfg.CacheTTL)
	}
	reg.Register(cfg.Provider, source)
	return reg
}
