package markets

import (
	"time"

	"github.com/joefazee/settlement/models"
)

// Config represents the configuration for the markets module
type Config struct {
	FeeBps            int64                `env:"PLATFORM_FEE_BPS" env-default:"200"`
	ClaimPeriod       time.Duration        `env:"CLAIM_PERIOD" env-default:"0s"`
	Treasury          string               `env:"TREASURY_ACCOUNT" env-default:"treasury"`
	RestakePolicy     models.RestakePolicy `env:"RESTAKE_POLICY" env-default:"overwrite"`
	MaxMarketDuration time.Duration        `env:"MAX_MARKET_DURATION" env-default:"8760h"`
	MaxOutcomes       int                  `env:"MAX_OUTCOMES" env-default:"16"`
	MaxQuestionLength int                  `env:"MAX_QUESTION_LENGTH" env-default:"512"`
	MaxTags           int                  `env:"MAX_TAGS" env-default:"10"`
}

// Validate validates the market configuration
func (c *Config) Validate() error {
	checks := []struct {
		ok  bool
		err error
	}{
		{c.FeeBps >= 0 && c.FeeBps <= 10000, models.ErrInvalidFeeBps},
		{c.ClaimPeriod >= 0, models.ErrInvalidClaimPeriod},
		{c.Treasury != "", models.ErrInvalidAccount},
		{c.RestakePolicy == models.RestakeOverwrite || c.RestakePolicy == models.RestakeReject, models.ErrInvalidRestakePolicy},
		{c.MaxMarketDuration > 0, models.ErrInvalidDuration},
		{c.MaxOutcomes >= 2, models.ErrInvalidOutcomes},
		{c.MaxQuestionLength > 0, models.ErrInvalidQuestion},
		{c.MaxTags >= 0, models.ErrInvalidInput},
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
		FeeBps:            200, // 2%
		ClaimPeriod:       0,
		Treasury:          "treasury",
		RestakePolicy:     models.RestakeOverwrite,
		MaxMarketDuration: 365 * 24 * time.Hour,
		MaxOutcomes:       16,
		MaxQuestionLength: 512,
		MaxTags:           10,
	}
}
