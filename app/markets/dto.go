package markets

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/joefazee/settlement/internal/validator"
	"github.com/joefazee/settlement/models"
)

// CreateMarketRequest represents the request to create a market
// @Description Request payload for creating a new prediction market
type CreateMarketRequest struct {
	// Question the market settles
	Question string `json:"question" binding:"required"`

	// Outcomes are the ordered, distinct labels a stake can back
	Outcomes []string `json:"outcomes" binding:"required,min=2"`

	// DurationSeconds from now until staking closes
	DurationSeconds int64 `json:"duration_seconds" binding:"required"`

	// OracleConfig enables permissionless resolution from a price feed
	OracleConfig *OracleConfigRequest `json:"oracle_config,omitempty"`

	Category string   `json:"category,omitempty"`
	Tags     []string `json:"tags,omitempty"`
}

// Duration returns the requested market duration. Non-positive or
// unrepresentable counts fail with ErrInvalidDuration.
func (r *CreateMarketRequest) Duration() (time.Duration, error) {
	if r.DurationSeconds <= 0 {
		return 0, models.ErrInvalidDuration
	}
	d, err := models.SecondsToDuration(r.DurationSeconds)
	if err != nil {
		return 0, fmt.Errorf("%w: %d seconds out of range", models.ErrInvalidDuration, r.DurationSeconds)
	}
	return d, nil
}

// Validate checks the request data.
func (r *CreateMarketRequest) Validate(v *validator.Validator) {
	v.Check(validator.NotBlank(r.Question), "question", "question is required")
	v.Check(len(r.Outcomes) >= 2, "outcomes", "at least two outcomes are required")
	v.Check(validator.NoDuplicates(r.Outcomes), "outcomes", "outcomes must be distinct")
	v.Check(r.DurationSeconds > 0, "duration_seconds", "duration must be positive")
	v.Check(r.DurationSeconds <= models.MaxDurationSeconds, "duration_seconds", "duration is out of range")
	if r.OracleConfig != nil {
		r.OracleConfig.Validate(v)
	}
}

// OracleConfigRequest represents oracle configuration
// @Description Price feed rule used to pick the winning outcome
type OracleConfigRequest struct {
	Provider     string          `json:"provider" binding:"required"`
	FeedID       string          `json:"feed_id" binding:"required"`
	Threshold    decimal.Decimal `json:"threshold" swaggertype:"string" example:"50000"`
	Comparator   string          `json:"comparator" binding:"required" example:"gte"`
	TrueOutcome  string          `json:"true_outcome,omitempty"`
	FalseOutcome string          `json:"false_outcome,omitempty"`
}

// Validate checks the request data.
func (r *OracleConfigRequest) Validate(v *validator.Validator) {
	v.Check(validator.NotBlank(r.Provider), "oracle_config.provider", "provider is required")
	v.Check(validator.NotBlank(r.FeedID), "oracle_config.feed_id", "feed id is required")
	v.Check(models.Comparator(r.Comparator).IsValid(), "oracle_config.comparator", "comparator must be one of gt, gte, lt, lte, eq")
}

// ToModel converts the request to the stored form.
func (r *OracleConfigRequest) ToModel() models.OracleConfig {
	return models.OracleConfig{
		Provider:     strings.TrimSpace(r.Provider),
		FeedID:       strings.TrimSpace(r.FeedID),
		Threshold:    r.Threshold,
		Comparator:   models.Comparator(r.Comparator),
		TrueOutcome:  r.TrueOutcome,
		FalseOutcome: r.FalseOutcome,
	}
}

// StakeRequest represents a stake on one outcome
type StakeRequest struct {
	Outcome string          `json:"outcome" binding:"required"`
	Amount  decimal.Decimal `json:"amount" swaggertype:"string" example:"100"`
}

// Validate checks the request data.
func (r *StakeRequest) Validate(v *validator.Validator) {
	v.Check(validator.NotBlank(r.Outcome), "outcome", "outcome is required")
	v.Check(validator.PositiveWhole(r.Amount), "amount", "amount must be a positive whole number")
}

// ResolveMarketRequest represents the request to resolve a market
type ResolveMarketRequest struct {
	WinningOutcome string `json:"winning_outcome" binding:"required"`
}

// UpdateMetadataRequest replaces the cosmetic fields of a market
type UpdateMetadataRequest struct {
	Category string   `json:"category"`
	Tags     []string `json:"tags"`
}

// ClaimPeriodRequest sets a claim window in seconds; 0 disables expiry
type ClaimPeriodRequest struct {
	Seconds int64 `json:"seconds" binding:"gte=0"`
}

// Period returns the requested claim window.
func (r *ClaimPeriodRequest) Period() (time.Duration, error) {
	if r.Seconds < 0 {
		return 0, models.ErrInvalidClaimPeriod
	}
	d, err := models.SecondsToDuration(r.Seconds)
	if err != nil {
		return 0, fmt.Errorf("%w: %d seconds out of range", models.ErrInvalidClaimPeriod, r.Seconds)
	}
	return d, nil
}

// BudgetRequest sets the cost ceiling of an operation; 0 removes it
type BudgetRequest struct {
	Ceiling int64 `json:"ceiling" binding:"gte=0"`
}

// SweepQuery selects whether a per-market claim window override applies
type SweepQuery struct {
	IncludeMarketOverride bool `form:"include_market_override"`
}

// ClaimResult is the outcome of a successful claim
type ClaimResult struct {
	MarketID string          `json:"market_id"`
	UserID   string          `json:"user_id"`
	Share    decimal.Decimal `json:"share" swaggertype:"string"`
	Fee      decimal.Decimal `json:"fee" swaggertype:"string"`
	Payout   decimal.Decimal `json:"payout" swaggertype:"string"`
}

// SweepResult is the outcome of a successful sweep
type SweepResult struct {
	MarketID        string          `json:"market_id"`
	Treasury        string          `json:"treasury"`
	Users           []string        `json:"users"`
	UnclaimedShares decimal.Decimal `json:"unclaimed_shares" swaggertype:"string"`
	Dust            decimal.Decimal `json:"dust" swaggertype:"string"`
	Amount          decimal.Decimal `json:"amount" swaggertype:"string"`
}

// MarketResponse is the public view of a market
type MarketResponse struct {
	ID                 string                  `json:"id"`
	Creator            string                  `json:"creator"`
	Question           string                  `json:"question"`
	Outcomes           []string                `json:"outcomes"`
	EndTime            time.Time               `json:"end_time"`
	State              models.MarketState      `json:"state"`
	TotalStaked        decimal.Decimal         `json:"total_staked" swaggertype:"string"`
	WinningOutcome     string                  `json:"winning_outcome,omitempty"`
	ResolvedAt         *time.Time              `json:"resolved_at,omitempty"`
	ResolutionSource   models.ResolutionSource `json:"resolution_source,omitempty"`
	CancelledAt        *time.Time              `json:"cancelled_at,omitempty"`
	ClaimPeriodSeconds int64                   `json:"claim_period_seconds"`
	OracleConfig       *models.OracleConfig    `json:"oracle_config,omitempty"`
	Category           string                  `json:"category,omitempty"`
	Tags               []string                `json:"tags,omitempty"`
	FeesCollected      decimal.Decimal         `json:"fees_collected" swaggertype:"string"`
	PaidOut            decimal.Decimal         `json:"paid_out" swaggertype:"string"`
	Swept              bool                    `json:"swept"`
	SweptAmount        decimal.Decimal         `json:"swept_amount" swaggertype:"string"`
}

// ToMarketResponse converts a market model to its public view
func ToMarketResponse(m *models.Market) MarketResponse {
	resp := MarketResponse{
		ID:                 m.ID,
		Creator:            m.Creator,
		Question:           m.Question,
		Outcomes:           append([]string(nil), m.Outcomes...),
		EndTime:            m.EndTime,
		State:              m.State,
		TotalStaked:        m.TotalStaked,
		WinningOutcome:     m.WinningOutcome,
		ResolvedAt:         m.ResolvedAt,
		ResolutionSource:   m.ResolutionSource,
		CancelledAt:        m.CancelledAt,
		ClaimPeriodSeconds: m.ClaimPeriodSeconds,
		Category:           m.Category,
		Tags:               append([]string(nil), m.Tags...),
		FeesCollected:      m.FeesCollected,
		PaidOut:            m.PaidOut,
		Swept:              m.Swept,
		SweptAmount:        m.SweptAmount,
	}
	if m.OracleConfig.IsSet() {
		cfg := m.OracleConfig
		resp.OracleConfig = &cfg
	}
	return resp
}

// PositionResponse is the public view of a position
type PositionResponse struct {
	MarketID  string          `json:"market_id"`
	UserID    string          `json:"user_id"`
	Outcome   string          `json:"outcome"`
	Amount    decimal.Decimal `json:"amount" swaggertype:"string"`
	Claimed   bool            `json:"claimed"`
	ClaimedAt *time.Time      `json:"claimed_at,omitempty"`
	Payout    decimal.Decimal `json:"payout" swaggertype:"string"`
}

// ToPositionResponse converts a position model to its public view
func ToPositionResponse(p *models.Position) PositionResponse {
	return PositionResponse{
		MarketID:  p.MarketID,
		UserID:    p.UserID,
		Outcome:   p.Outcome,
		Amount:    p.Amount,
		Claimed:   p.Claimed,
		ClaimedAt: p.ClaimedAt,
		Payout:    p.Payout,
	}
}

// MultiplierResponse carries the payout per 100 units staked on an outcome
type MultiplierResponse struct {
	MarketID   string          `json:"market_id"`
	Outcome    string          `json:"outcome"`
	Multiplier decimal.Decimal `json:"multiplier" swaggertype:"string" example:"300"`
}
