package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Position is a user's stake and vote on one market, plus claim bookkeeping
type Position struct {
	MarketID  string          `gorm:"type:varchar(32);primaryKey" json:"market_id"`
	UserID    string          `gorm:"type:varchar(128);primaryKey" json:"user_id"`
	Outcome   string          `gorm:"type:varchar(255);not null" json:"outcome"`
	Amount    decimal.Decimal `gorm:"type:numeric(39,0);not null;default:0" json:"amount"`
	Claimed   bool            `gorm:"not null;default:false" json:"claimed"`
	ClaimedAt *time.Time      `gorm:"type:timestamptz" json:"claimed_at,omitempty"`
	Payout    decimal.Decimal `gorm:"type:numeric(39,0);not null;default:0" json:"payout"`
	CreatedAt time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

// TableName specifies the table name for Position model
func (*Position) TableName() string {
	return "positions"
}

// MarkClaimed flips the claimed flag once. It never goes back to false.
func (p *Position) MarkClaimed(at time.Time, payout decimal.Decimal) error {
	if p.Claimed {
		return ErrAlreadyClaimed
	}
	p.Claimed = true
	p.ClaimedAt = &at
	p.Payout = payout
	return nil
}

// IsWinner reports whether the position backs the winning outcome with value.
func (p *Position) IsWinner(outcome string) bool {
	return p.Outcome == outcome && p.Amount.IsPositive()
}

// Clone returns a copy that shares no pointers with p.
func (p *Position) Clone() *Position {
	c := *p
	if p.ClaimedAt != nil {
		t := *p.ClaimedAt
		c.ClaimedAt = &t
	}
	return &c
}

// SumStakes adds the amounts of positions, overflow-checked.
func SumStakes(positions []Position) (decimal.Decimal, error) {
	total := decimal.Zero
	for i := range positions {
		var err error
		if total, err = CheckedAdd(total, positions[i].Amount); err != nil {
			return decimal.Zero, err
		}
	}
	return total, nil
}

// StakeOn sums the positions whose current vote is outcome.
func StakeOn(positions []Position, outcome string) (decimal.Decimal, error) {
	total := decimal.Zero
	for i := range positions {
		if positions[i].Outcome != outcome {
			continue
		}
		var err error
		if total, err = CheckedAdd(total, positions[i].Amount); err != nil {
			return decimal.Zero, err
		}
	}
	return total, nil
}
