package models

import (
	"database/sql/driver"
	"encoding/json"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// MarketState represents the lifecycle state of a market
type MarketState string

const (
	MarketStateActive    MarketState = "active"
	MarketStateClosed    MarketState = "closed"
	MarketStateResolved  MarketState = "resolved"
	MarketStateCancelled MarketState = "cancelled"
)

// ResolutionSource records how the winning outcome was fixed
type ResolutionSource string

const (
	ResolutionManual ResolutionSource = "manual"
	ResolutionOracle ResolutionSource = "oracle"
)

var transitions = map[MarketState][]MarketState{
	MarketStateActive: {MarketStateClosed, MarketStateResolved, MarketStateCancelled},
	MarketStateClosed: {MarketStateResolved, MarketStateCancelled},
}

// IsValid reports whether s is a known state.
func (s MarketState) IsValid() bool {
	switch s {
	case MarketStateActive, MarketStateClosed, MarketStateResolved, MarketStateCancelled:
		return true
	}
	return false
}

// IsTerminal reports whether no transition leaves s.
func (s MarketState) IsTerminal() bool {
	return s == MarketStateResolved || s == MarketStateCancelled
}

// CanTransitionTo reports whether s -> next is a forward transition.
func (s MarketState) CanTransitionTo(next MarketState) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// StringList is an ordered list of labels stored as jsonb
type StringList []string

func (l StringList) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	b, err := json.Marshal([]string(l))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (l *StringList) Scan(value interface{}) error {
	if value == nil {
		*l = nil
		return nil
	}
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, (*[]string)(l))
	case string:
		return json.Unmarshal([]byte(v), (*[]string)(l))
	}
	return nil
}

// Contains reports whether label is in the list.
func (l StringList) Contains(label string) bool {
	for _, s := range l {
		if s == label {
			return true
		}
	}
	return false
}

// Market represents a prediction market and its settlement bookkeeping
type Market struct {
	ID                 string           `gorm:"type:varchar(32);primaryKey" json:"id"`
	Seq                int64            `gorm:"not null;uniqueIndex" json:"seq"`
	Creator            string           `gorm:"type:varchar(128);not null;index" json:"creator"`
	Question           string           `gorm:"type:text;not null" json:"question"`
	Outcomes           StringList       `gorm:"type:jsonb;not null" json:"outcomes"`
	EndTime            time.Time        `gorm:"type:timestamptz;not null;index" json:"end_time"`
	State              MarketState      `gorm:"type:varchar(20);not null;default:'active';index" json:"state"`
	TotalStaked        decimal.Decimal  `gorm:"type:numeric(39,0);not null;default:0" json:"total_staked"`
	WinningOutcome     string           `gorm:"type:varchar(255)" json:"winning_outcome,omitempty"`
	ResolvedAt         *time.Time       `gorm:"type:timestamptz" json:"resolved_at,omitempty"`
	ResolutionSource   ResolutionSource `gorm:"type:varchar(20)" json:"resolution_source,omitempty"`
	CancelledAt        *time.Time       `gorm:"type:timestamptz" json:"cancelled_at,omitempty"`
	ClaimPeriodSeconds int64            `gorm:"not null;default:0" json:"claim_period_seconds"`
	OracleConfig       OracleConfig     `gorm:"type:jsonb;default:'{}'" json:"oracle_config"`
	Category           string           `gorm:"type:varchar(100);index" json:"category,omitempty"`
	Tags               StringList       `gorm:"type:jsonb;default:'[]'" json:"tags,omitempty"`
	FeesCollected      decimal.Decimal  `gorm:"type:numeric(39,0);not null;default:0" json:"fees_collected"`
	PaidOut            decimal.Decimal  `gorm:"type:numeric(39,0);not null;default:0" json:"paid_out"`
	Swept              bool             `gorm:"not null;default:false" json:"swept"`
	SweptAt            *time.Time       `gorm:"type:timestamptz" json:"swept_at,omitempty"`
	SweptAmount        decimal.Decimal  `gorm:"type:numeric(39,0);not null;default:0" json:"swept_amount"`
	CreatedAt          time.Time        `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt          time.Time        `gorm:"autoUpdateTime" json:"updated_at"`
}

// TableName specifies the table name for Market model
func (*Market) TableName() string {
	return "markets"
}

// BeforeCreate sets up the model before creation
func (m *Market) BeforeCreate(_ *gorm.DB) error {
	if m.State == "" {
		m.State = MarketStateActive
	}
	return nil
}

// AcceptsStakes reports whether staking is allowed at now.
func (m *Market) AcceptsStakes(now time.Time) bool {
	return m.State == MarketStateActive && now.Before(m.EndTime)
}

// HasEnded reports whether now is at or past the end time.
func (m *Market) HasEnded(now time.Time) bool {
	return !now.Before(m.EndTime)
}

// HasOutcome reports whether outcome belongs to the market.
func (m *Market) HasOutcome(outcome string) bool {
	return m.Outcomes.Contains(outcome)
}

// HasStakes reports whether any value has been staked.
func (m *Market) HasStakes() bool {
	return m.TotalStaked.IsPositive()
}

// ClaimPeriod returns the per-market claim window override, zero when unset.
func (m *Market) ClaimPeriod() time.Duration {
	return time.Duration(m.ClaimPeriodSeconds) * time.Second
}

// EffectiveClaimPeriod picks the market override when present and allowed,
// otherwise the global period.
func (m *Market) EffectiveClaimPeriod(global time.Duration, useOverride bool) time.Duration {
	if useOverride && m.ClaimPeriodSeconds > 0 {
		return m.ClaimPeriod()
	}
	return global
}

// ClaimDeadline returns the end of the claim window. ok is false when the
// market is unresolved or the period is zero (no expiry).
func (m *Market) ClaimDeadline(period time.Duration) (deadline time.Time, ok bool) {
	if m.ResolvedAt == nil || period <= 0 {
		return time.Time{}, false
	}
	return m.ResolvedAt.Add(period), true
}

// TransitionTo moves the market forward or fails with ErrInvalidState.
func (m *Market) TransitionTo(next MarketState) error {
	if !m.State.CanTransitionTo(next) {
		return ErrInvalidState
	}
	m.State = next
	return nil
}

// Resolve fixes the winning outcome once and moves to resolved.
func (m *Market) Resolve(outcome string, source ResolutionSource, at time.Time) error {
	if !m.HasOutcome(outcome) {
		return ErrInvalidOutcome
	}
	if err := m.TransitionTo(MarketStateResolved); err != nil {
		return err
	}
	m.WinningOutcome = outcome
	m.ResolutionSource = source
	m.ResolvedAt = &at
	return nil
}

// Cancel moves the market to cancelled.
func (m *Market) Cancel(at time.Time) error {
	if err := m.TransitionTo(MarketStateCancelled); err != nil {
		return err
	}
	m.CancelledAt = &at
	return nil
}

// Validate performs structural validation on the market model
func (m *Market) Validate() error {
	if strings.TrimSpace(m.Question) == "" {
		return ErrInvalidQuestion
	}
	if err := ValidateOutcomes(m.Outcomes); err != nil {
		return err
	}
	if m.EndTime.IsZero() {
		return ErrMissingEndTime
	}
	if !m.State.IsValid() {
		return ErrInvalidState
	}
	if m.ClaimPeriodSeconds < 0 {
		return ErrInvalidClaimPeriod
	}
	return nil
}

// ValidateOutcomes requires at least two distinct, non-blank labels.
func ValidateOutcomes(outcomes []string) error {
	if len(outcomes) < 2 {
		return ErrInvalidOutcomes
	}
	seen := make(map[string]struct{}, len(outcomes))
	for _, o := range outcomes {
		if strings.TrimSpace(o) == "" {
			return ErrInvalidOutcomes
		}
		if _, dup := seen[o]; dup {
			return ErrInvalidOutcomes
		}
		seen[o] = struct{}{}
	}
	return nil
}

// Clone returns a deep copy of the market.
func (m *Market) Clone() *Market {
	c := *m
	c.Outcomes = append(StringList(nil), m.Outcomes...)
	c.Tags = append(StringList(nil), m.Tags...)
	if m.ResolvedAt != nil {
		t := *m.ResolvedAt
		c.ResolvedAt = &t
	}
	if m.CancelledAt != nil {
		t := *m.CancelledAt
		c.CancelledAt = &t
	}
	if m.SweptAt != nil {
		t := *m.SweptAt
		c.SweptAt = &t
	}
	return &c
}
