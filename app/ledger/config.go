package ledger

import (
	"strings"

	"github.com/joefazee/settlement/models"
)

// Config represents the configuration for the balance ledger
type Config struct {
	Asset          string               `env:"LEDGER_ASSET" env-default:"USDC"`
	CustodyAccount string               `env:"CUSTODY_ACCOUNT" env-default:"custody"`
	FundingPolicy  models.FundingPolicy `env:"FUNDING_POLICY" env-default:"wallet"`
}

// Validate validates the ledger configuration
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Asset) == "" {
		return models.ErrUnsupportedAsset
	}
	if strings.TrimSpace(c.CustodyAccount) == "" {
		return models.ErrInvalidAccount
	}
	switch c.FundingPolicy {
	case models.FundingWallet, models.FundingLedger:
	default:
		return models.ErrInvalidFundingPolicy
	}
	return nil
}

// GetDefaultConfig returns the default configuration
func GetDefaultConfig() *Config {
	return &Config{
		Asset:          "USDC",
		CustodyAccount: "custody",
		FundingPolicy:  models.FundingWallet,
	}
}
