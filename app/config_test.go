package app

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joefazee/settlement/models"
)

const key = "0123456789abcdef0123456789abcdef"

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"defaults with a key", func(c *Config) {}, ""},
		{"short key", func(c *Config) { c.SymmetricKey = "short" }, "TOKEN_SYMMETRIC_KEY"},
		{"unknown store", func(c *Config) { c.Store = "sqlite" }, "unknown store backend"},
		{"postgres needs credentials", func(c *Config) { c.Store = StorePostgres }, "invalid database configuration"},
		{"module config is checked", func(c *Config) { c.Reporting.MaxPageSize = 0 }, "invalid reporting configuration"},
		{"bad cache backend", func(c *Config) { c.Cache.Backend = "memcached" }, "invalid cache configuration"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := DefaultConfig()
			c.SymmetricKey = key
			tt.mutate(c)
			err := c.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}

	c := DefaultConfig()
	c.SymmetricKey = key
	c.Store = StorePostgres
	assert.ErrorIs(t, c.Validate(), models.ErrDatabaseCredentialNotConfigured)
}

func TestLoadConfig_FromEnvironment(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("TOKEN_SYMMETRIC_KEY", key)
	t.Setenv("STORE_BACKEND", "memory")
	t.Setenv("APP_PORT", "9090")
	t.Setenv("ADMINS", "ops,root")
	t.Setenv("PLATFORM_FEE_BPS", "0")
	t.Setenv("OPERATION_BUDGETS", "stake:50,claim:20")
	t.Setenv("REPORTING_STATS_TTL", "1m")

	c, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "localhost:9090", c.Addr())
	assert.Equal(t, []string{"ops", "root"}, c.Admins)
	assert.Equal(t, int64(0), c.Markets.FeeBps)
	assert.Equal(t, map[string]int64{"stake": 50, "claim": 20}, c.Budgets)
	assert.Equal(t, time.Minute, c.Reporting.StatsTTL)
	assert.Equal(t, "USDC", c.Ledger.Asset)
	assert.False(t, c.IsProduction())
}

func TestLoadConfig_RejectsInvalid(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("TOKEN_SYMMETRIC_KEY", key)
	t.Setenv("STORE_BACKEND", "postgres")
	t.Setenv("DB_HOST", "")

	_, err := LoadConfig()
	assert.ErrorIs(t, err, models.ErrDatabaseCredentialNotConfigured)
}
