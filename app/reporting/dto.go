package reporting

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/joefazee/settlement/models"
)

// MarketSummary is one row of a market listing
type MarketSummary struct {
	ID          string             `json:"id"`
	Seq         int64              `json:"seq"`
	Question    string             `json:"question"`
	State       models.MarketState `json:"state"`
	EndTime     time.Time          `json:"end_time"`
	TotalStaked decimal.Decimal    `json:"total_staked" swaggertype:"string"`
	Category    string             `json:"category,omitempty"`
}

func toSummary(m *models.Market) MarketSummary {
	return MarketSummary{
		ID:          m.ID,
		Seq:         m.Seq,
		Question:    m.Question,
		State:       m.State,
		EndTime:     m.EndTime,
		TotalStaked: m.TotalStaked,
		Category:    m.Category,
	}
}

// OutcomeSnapshot aggregates the stakes on one outcome
type OutcomeSnapshot struct {
	Outcome    string          `json:"outcome"`
	Staked     decimal.Decimal `json:"staked" swaggertype:"string"`
	Stakers    int             `json:"stakers"`
	Multiplier decimal.Decimal `json:"multiplier" swaggertype:"string"`
}

// MarketSnapshot is the aggregate view of one market
type MarketSnapshot struct {
	MarketID       string             `json:"market_id"`
	State          models.MarketState `json:"state"`
	WinningOutcome string             `json:"winning_outcome,omitempty"`
	TotalStaked    decimal.Decimal    `json:"total_staked" swaggertype:"string"`
	Outcomes       []OutcomeSnapshot  `json:"outcomes"`
	Positions      int                `json:"positions"`
	Claimed        int                `json:"claimed"`
	PaidOut        decimal.Decimal    `json:"paid_out" swaggertype:"string"`
	FeesCollected  decimal.Decimal    `json:"fees_collected" swaggertype:"string"`
	Swept          bool               `json:"swept"`
	SweptAmount    decimal.Decimal    `json:"swept_amount" swaggertype:"string"`
}

// PlatformStats sums every market
type PlatformStats struct {
	Markets       map[models.MarketState]int64 `json:"markets"`
	TotalMarkets  int64                        `json:"total_markets"`
	TotalStaked   decimal.Decimal              `json:"total_staked" swaggertype:"string"`
	PaidOut       decimal.Decimal              `json:"paid_out" swaggertype:"string"`
	FeesCollected decimal.Decimal              `json:"fees_collected" swaggertype:"string"`
	SweptAmount   decimal.Decimal              `json:"swept_amount" swaggertype:"string"`
	GeneratedAt   time.Time                    `json:"generated_at"`
}

// StateQuery binds the listing filter
type StateQuery struct {
	State  string `form:"state" binding:"required"`
	Cursor int64  `form:"cursor" binding:"gte=0"`
	Limit  int    `form:"limit" binding:"gte=0"`
}
