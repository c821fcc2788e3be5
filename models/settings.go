package models

import (
	"database/sql/driver"
	"encoding/json"
	"time"
)

// SettingsID is the primary key of the single settings row
const SettingsID = 1

// Budgets maps an operation name to its cost ceiling
type Budgets map[string]int64

func (b Budgets) Value() (driver.Value, error) {
	if b == nil {
		return "{}", nil
	}
	raw, err := json.Marshal(map[string]int64(b))
	if err != nil {
		return nil, err
	}
	return string(raw), nil
}

func (b *Budgets) Scan(value interface{}) error {
	if value == nil {
		return nil
	}
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, (*map[string]int64)(b))
	case string:
		return json.Unmarshal([]byte(v), (*map[string]int64)(b))
	}
	return nil
}

// Settings holds admin-set engine values that outlive a process
type Settings struct {
	ID                 int       `gorm:"primaryKey" json:"-"`
	ClaimPeriodSeconds int64     `gorm:"not null;default:0" json:"claim_period_seconds"`
	Treasury           string    `gorm:"type:varchar(128)" json:"treasury"`
	Budgets            Budgets   `gorm:"type:jsonb;default:'{}'" json:"budgets"`
	UpdatedAt          time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// TableName specifies the table name for Settings model
func (*Settings) TableName() string {
	return "engine_settings"
}

// ClaimPeriod returns the global claim window; zero means claims never expire.
func (s *Settings) ClaimPeriod() time.Duration {
	return time.Duration(s.ClaimPeriodSeconds) * time.Second
}

// Clone returns a deep copy.
func (s *Settings) Clone() *Settings {
	c := *s
	c.Budgets = make(Budgets, len(s.Budgets))
	for k, v := range s.Budgets {
		c.Budgets[k] = v
	}
	return &c
}

// FundingPolicy selects where stakes are drawn from
type FundingPolicy string

const (
	// FundingWallet stakes by direct transfer from the user's wallet.
	FundingWallet FundingPolicy = "wallet"
	// FundingLedger stakes by debiting the user's ledger balance.
	FundingLedger FundingPolicy = "ledger"
)

// RestakePolicy decides what a stake on a different outcome does
type RestakePolicy string

const (
	// RestakeOverwrite moves the whole position to the latest outcome.
	RestakeOverwrite RestakePolicy = "overwrite"
	// RestakeReject refuses a stake on a different outcome.
	RestakeReject RestakePolicy = "reject"
)
