package models

import (
	"database/sql/driver"
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// RecoveryActionKind classifies an audit entry
type RecoveryActionKind string

const (
	RecoveryActionNoop          RecoveryActionKind = "noop"
	RecoveryActionRecomputed    RecoveryActionKind = "recomputed_total"
	RecoveryActionPartialRefund RecoveryActionKind = "partial_refund"
)

// RecoveryAction is one audit entry in a recovery record
type RecoveryAction struct {
	Kind      RecoveryActionKind `json:"kind"`
	Violation string             `json:"violation,omitempty"`
	Before    decimal.Decimal    `json:"before"`
	After     decimal.Decimal    `json:"after"`
	Users     []string           `json:"users,omitempty"`
	At        time.Time          `json:"at"`
}

// RecoveryActions is the jsonb audit list
type RecoveryActions []RecoveryAction

func (a RecoveryActions) Value() (driver.Value, error) {
	if a == nil {
		return "[]", nil
	}
	b, err := json.Marshal([]RecoveryAction(a))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (a *RecoveryActions) Scan(value interface{}) error {
	if value == nil {
		return nil
	}
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, (*[]RecoveryAction)(a))
	case string:
		return json.Unmarshal([]byte(v), (*[]RecoveryAction)(a))
	}
	return nil
}

// RecoveryRecord is the per-market audit trail kept by the recovery validator
type RecoveryRecord struct {
	MarketID        string          `gorm:"type:varchar(32);primaryKey" json:"market_id"`
	Checks          int64           `gorm:"not null;default:0" json:"checks"`
	Violations      int64           `gorm:"not null;default:0" json:"violations"`
	Actions         RecoveryActions `gorm:"type:jsonb;default:'[]'" json:"actions"`
	RefundTotal     decimal.Decimal `gorm:"type:numeric(39,0);not null;default:0" json:"refund_total"`
	LastRecoveredAt *time.Time      `gorm:"type:timestamptz" json:"last_recovered_at,omitempty"`
	CreatedAt       time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

// TableName specifies the table name for RecoveryRecord model
func (*RecoveryRecord) TableName() string {
	return "recovery_records"
}

// NewRecoveryRecord returns an empty record for a market.
func NewRecoveryRecord(marketID string) *RecoveryRecord {
	return &RecoveryRecord{MarketID: marketID, RefundTotal: decimal.Zero, Actions: RecoveryActions{}}
}

// Append records an action.
func (r *RecoveryRecord) Append(action RecoveryAction) {
	r.Actions = append(r.Actions, action)
}

// Clone returns a deep copy.
func (r *RecoveryRecord) Clone() *RecoveryRecord {
	c := *r
	c.Actions = make(RecoveryActions, len(r.Actions))
	for i, a := range r.Actions {
		a.Users = append([]string(nil), a.Users...)
		c.Actions[i] = a
	}
	if r.LastRecoveredAt != nil {
		t := *r.LastRecoveredAt
		c.LastRecoveredAt = &t
	}
	return &c
}
