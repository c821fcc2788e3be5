package markets

import (
	"github.com/shopspring/decimal"

	"github.com/joefazee/settlement/models"
)

// SweepPlan is what a sweep of unclaimed winnings would move
type SweepPlan struct {
	// Users are the winners whose shares were never claimed.
	Users           []string
	UnclaimedShares decimal.Decimal
	Dust            decimal.Decimal
	Amount          decimal.Decimal
}

// payoutEngine implements the PayoutEngine interface
type payoutEngine struct {
	feeBps decimal.Decimal
}

// NewPayoutEngine creates a new payout engine
func NewPayoutEngine(config *Config) PayoutEngine {
	return &payoutEngine{feeBps: decimal.NewFromInt(config.FeeBps)}
}

// Multiplier returns total*100/outcomePool, the payout per 100 units staked
// on an outcome. An empty outcome pool has multiplier 0.
func (pe *payoutEngine) Multiplier(total, outcomePool decimal.Decimal) (decimal.Decimal, error) {
	if !outcomePool.IsPositive() {
		return decimal.Zero, nil
	}
	return models.MulDiv(total, models.PercentScale, outcomePool)
}

// Share returns the gross payout of one winning stake.
func (pe *payoutEngine) Share(stake, total, winningPool decimal.Decimal) (decimal.Decimal, error) {
	if !winningPool.IsPositive() {
		return decimal.Zero, models.ErrNoWinningStake
	}
	return models.MulDiv(stake, total, winningPool)
}

// Fee returns the platform cut of a share.
func (pe *payoutEngine) Fee(share decimal.Decimal) (decimal.Decimal, error) {
	return models.MulDiv(share, pe.feeBps, models.BpsScale)
}

// Sweep computes the unclaimed winnings plus the truncation dust of a
// resolved market. With no winning stake the whole pool is swept.
func (pe *payoutEngine) Sweep(market *models.Market, positions []models.Position) (*SweepPlan, error) {
	plan := &SweepPlan{UnclaimedShares: decimal.Zero, Dust: decimal.Zero, Amount: decimal.Zero}

	winningPool, err := models.StakeOn(positions, market.WinningOutcome)
	if err != nil {
		return nil, err
	}
	if !winningPool.IsPositive() {
		plan.Dust = market.TotalStaked
		plan.Amount = market.TotalStaked
		return plan, nil
	}

	allShares := decimal.Zero
	for i := range positions {
		p := &positions[i]
		if !p.IsWinner(market.WinningOutcome) {
			continue
		}
		share, err := pe.Share(p.Amount, market.TotalStaked, winningPool)
		if err != nil {
			return nil, err
		}
		if allShares, err = models.CheckedAdd(allShares, share); err != nil {
			return nil, err
		}
		if p.Claimed {
			continue
		}
		if plan.UnclaimedShares, err = models.CheckedAdd(plan.UnclaimedShares, share); err != nil {
			return nil, err
		}
		plan.Users = append(plan.Users, p.UserID)
	}

	if plan.Dust, err = models.CheckedSub(market.TotalStaked, allShares); err != nil {
		return nil, err
	}
	if plan.Amount, err = models.CheckedAdd(plan.UnclaimedShares, plan.Dust); err != nil {
		return nil, err
	}
	return plan, nil
}
