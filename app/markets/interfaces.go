package markets

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/joefazee/settlement/models"
)

// Repository defines the slice of the store the market state machine uses
type Repository interface {
	GetMarket(ctx context.Context, id string) (*models.Market, error)
	CreateMarket(ctx context.Context, market *models.Market) error
	UpdateMarket(ctx context.Context, market *models.Market) error

	GetPosition(ctx context.Context, marketID, userID string) (*models.Position, error)
	SavePosition(ctx context.Context, position *models.Position) error
	ListPositions(ctx context.Context, marketID string) ([]models.Position, error)

	GetSettings(ctx context.Context) (*models.Settings, error)
	SaveSettings(ctx context.Context, settings *models.Settings) error
}

// Service defines the market lifecycle and settlement operations
type Service interface {
	Create(ctx context.Context, req *CreateMarketRequest) (*models.Market, error)
	Stake(ctx context.Context, user, marketID, outcome string, amount decimal.Decimal) (*models.Position, error)
	ResolveManual(ctx context.Context, marketID, outcome string) (*models.Market, error)
	ResolveOracle(ctx context.Context, marketID string) (*models.Market, error)
	Close(ctx context.Context, marketID string) (*models.Market, error)
	Cancel(ctx context.Context, marketID string) (*models.Market, error)
	Refund(ctx context.Context, user, marketID string) (*models.Position, error)
	Claim(ctx context.Context, user, marketID string) (*ClaimResult, error)
	SweepUnclaimed(ctx context.Context, marketID string, includeMarketOverride bool) (*SweepResult, error)

	// Admin updates
	UpdateMetadata(ctx context.Context, marketID, category string, tags []string) (*models.Market, error)
	UpdateOracleConfig(ctx context.Context, marketID string, cfg models.OracleConfig) (*models.Market, error)
	SetClaimPeriod(ctx context.Context, period time.Duration) (*models.Settings, error)
	SetMarketClaimPeriod(ctx context.Context, marketID string, period time.Duration) (*models.Market, error)
	SetBudget(ctx context.Context, op string, ceiling int64) (*models.Settings, error)

	// Reads
	GetMarket(ctx context.Context, marketID string) (*models.Market, error)
	GetPosition(ctx context.Context, marketID, user string) (*models.Position, error)
	PayoutMultiplier(ctx context.Context, marketID, outcome string) (decimal.Decimal, error)
	GetSettings(ctx context.Context) (*models.Settings, error)

	// Bootstrap applies persisted settings to in-process collaborators.
	Bootstrap(ctx context.Context) error
}

// PayoutEngine defines the integer settlement arithmetic
type PayoutEngine interface {
	Multiplier(total, outcomePool decimal.Decimal) (decimal.Decimal, error)
	Share(stake, total, winningPool decimal.Decimal) (decimal.Decimal, error)
	Fee(share decimal.Decimal) (decimal.Decimal, error)
	Sweep(market *models.Market, positions []models.Position) (*SweepPlan, error)
}

// SafeguardEngine defines the lifecycle preconditions of each operation
type SafeguardEngine interface {
	CheckStake(market *models.Market, outcome string, now time.Time) error
	CheckResolve(market *models.Market, now time.Time) error
	CheckClaim(market *models.Market, position *models.Position, period time.Duration, now time.Time) error
	CheckSweep(market *models.Market, period time.Duration, now time.Time) error
	CheckMetadata(market *models.Market) error
	CheckOracleUpdate(market *models.Market) error
}
