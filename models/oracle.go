package models

import (
	"database/sql/driver"
	"encoding/json"

	"github.com/shopspring/decimal"
)

// Comparator is the relation applied between an oracle price and the threshold
type Comparator string

const (
	ComparatorGT  Comparator = "gt"
	ComparatorGTE Comparator = "gte"
	ComparatorLT  Comparator = "lt"
	ComparatorLTE Comparator = "lte"
	ComparatorEQ  Comparator = "eq"
)

// IsValid reports whether c is a known comparator.
func (c Comparator) IsValid() bool {
	switch c {
	case ComparatorGT, ComparatorGTE, ComparatorLT, ComparatorLTE, ComparatorEQ:
		return true
	}
	return false
}

// Holds evaluates "price <c> threshold".
func (c Comparator) Holds(price, threshold decimal.Decimal) bool {
	switch c {
	case ComparatorGT:
		return price.GreaterThan(threshold)
	case ComparatorGTE:
		return price.GreaterThanOrEqual(threshold)
	case ComparatorLT:
		return price.LessThan(threshold)
	case ComparatorLTE:
		return price.LessThanOrEqual(threshold)
	case ComparatorEQ:
		return price.Equal(threshold)
	}
	return false
}

// OracleConfig represents oracle configuration for market resolution
type OracleConfig struct {
	Provider     string          `json:"provider,omitempty"`
	FeedID       string          `json:"feed_id,omitempty"`
	Threshold    decimal.Decimal `json:"threshold"`
	Comparator   Comparator      `json:"comparator,omitempty"`
	TrueOutcome  string          `json:"true_outcome,omitempty"`
	FalseOutcome string          `json:"false_outcome,omitempty"`
}

func (o OracleConfig) Value() (driver.Value, error) {
	b, err := json.Marshal(o)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (o *OracleConfig) Scan(value interface{}) error {
	if value == nil {
		return nil
	}
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, o)
	case string:
		return json.Unmarshal([]byte(v), o)
	}
	return nil
}

// IsSet reports whether an oracle provider was configured.
func (o *OracleConfig) IsSet() bool {
	return o.Provider != ""
}

// Normalize fills the default true/false outcomes from the outcome list.
func (o *OracleConfig) Normalize(outcomes []string) {
	if !o.IsSet() || len(outcomes) < 2 {
		return
	}
	if o.TrueOutcome == "" {
		o.TrueOutcome = outcomes[0]
	}
	if o.FalseOutcome == "" {
		o.FalseOutcome = outcomes[1]
	}
}

// Validate checks the config against the market outcomes. An unset config is valid.
func (o *OracleConfig) Validate(outcomes StringList) error {
	if !o.IsSet() {
		return nil
	}
	if o.FeedID == "" {
		return ErrInvalidOracle
	}
	if !o.Comparator.IsValid() {
		return ErrInvalidComparator
	}
	if !outcomes.Contains(o.TrueOutcome) || !outcomes.Contains(o.FalseOutcome) {
		return ErrInvalidOutcome
	}
	if o.TrueOutcome == o.FalseOutcome {
		return ErrInvalidOracle
	}
	return nil
}

// Decide maps an observed price to the winning outcome.
func (o *OracleConfig) Decide(price decimal.Decimal) string {
	if o.Comparator.Holds(price, o.Threshold) {
		return o.TrueOutcome
	}
	return o.FalseOutcome
}
