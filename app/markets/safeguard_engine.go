package markets

import (
	"fmt"
	"time"

	"github.com/joefazee/settlement/models"
)

// safeguardEngine implements the SafeguardEngine interface
type safeguardEngine struct {
	config *Config
}

// NewSafeguardEngine creates a new safeguard engine
func NewSafeguardEngine(config *Config) SafeguardEngine {
	return &safeguardEngine{
		config: config,
	}
}

// CheckStake verifies the market takes stakes on outcome at now
func (se *safeguardEngine) CheckStake(market *models.Market, outcome string, now time.Time) error {
	if !market.AcceptsStakes(now) {
		return models.ErrMarketClosed
	}
	if !market.HasOutcome(outcome) {
		return fmt.Errorf("%w: %q", models.ErrInvalidOutcome, outcome)
	}
	return nil
}

// CheckResolve verifies the market is open for resolution
func (se *safeguardEngine) CheckResolve(market *models.Market, now time.Time) error {
	if market.State.IsTerminal() {
		return models.ErrInvalidState
	}
	if !market.HasEnded(now) {
		return models.ErrMarketNotEnded
	}
	return nil
}

// CheckClaim verifies position can collect its winnings under period.
// position may be nil when the user never staked.
func (se *safeguardEngine) CheckClaim(market *models.Market, position *models.Position, period time.Duration, now time.Time) error {
	if market.State != models.MarketStateResolved {
		return models.ErrInvalidState
	}
	if position != nil && position.Claimed {
		return models.ErrAlreadyClaimed
	}
	if deadline, ok := market.ClaimDeadline(period); ok && !now.Before(deadline) {
		return models.ErrClaimPeriodExpired
	}
	if position == nil || !position.IsWinner(market.WinningOutcome) {
		return models.ErrNoWinningStake
	}
	return nil
}

// CheckSweep verifies the claim window has closed and nothing was swept yet.
// A zero period never closes.
func (se *safeguardEngine) CheckSweep(market *models.Market, period time.Duration, now time.Time) error {
	if market.State != models.MarketStateResolved {
		return models.ErrInvalidState
	}
	if market.Swept {
		return models.ErrAlreadyExecuted
	}
	deadline, ok := market.ClaimDeadline(period)
	if !ok || now.Before(deadline) {
		return models.ErrClaimPeriodNotExpired
	}
	return nil
}

// CheckMetadata verifies category and tags may still change
func (se *safeguardEngine) CheckMetadata(market *models.Market) error {
	if market.State.IsTerminal() {
		return models.ErrInvalidState
	}
	if market.HasStakes() {
		return models.ErrMetadataFrozen
	}
	return nil
}

// CheckOracleUpdate verifies the oracle config is not locked yet
func (se *safeguardEngine) CheckOracleUpdate(market *models.Market) error {
	if market.State != models.MarketStateActive || market.HasStakes() {
		return models.ErrOracleConfigLocked
	}
	return nil
}
