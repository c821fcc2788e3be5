package recovery

import (
	"github.com/shopspring/decimal"

	"github.com/joefazee/settlement/internal/validator"
	"github.com/joefazee/settlement/models"
)

// IntegrityReport is the result of an integrity check
type IntegrityReport struct {
	MarketID  string `json:"market_id"`
	Valid     bool   `json:"valid"`
	Violation string `json:"violation,omitempty"`
	// Code is the failure kind of the violation, empty when valid.
	Code string `json:"code,omitempty"`

	err error
}

// Err returns the violated invariant, nil when the market is valid.
func (r *IntegrityReport) Err() error {
	return r.err
}

func newReport(marketID string, violation error) *IntegrityReport {
	r := &IntegrityReport{MarketID: marketID, Valid: violation == nil, err: violation}
	if violation != nil {
		r.Violation = violation.Error()
		r.Code = string(models.KindOf(violation))
	}
	return r
}

// RecoverResult describes what a recovery run did
type RecoverResult struct {
	MarketID  string                 `json:"market_id"`
	Recovered bool                   `json:"recovered"`
	Violation string                 `json:"violation,omitempty"`
	Before    decimal.Decimal        `json:"before" swaggertype:"string"`
	After     decimal.Decimal        `json:"after" swaggertype:"string"`
	Record    *models.RecoveryRecord `json:"record"`
}

// RefundResult describes a partial refund
type RefundResult struct {
	MarketID string                 `json:"market_id"`
	Users    []string               `json:"users"`
	Amount   decimal.Decimal        `json:"amount" swaggertype:"string"`
	Record   *models.RecoveryRecord `json:"record"`
}

// PartialRefundRequest lists the users to refund
type PartialRefundRequest struct {
	Users []string `json:"users" binding:"required"`
}

// Validate checks the request data.
func (r *PartialRefundRequest) Validate(v *validator.Validator, max int) {
	v.Check(len(r.Users) > 0, "users", "at least one user is required")
	v.Check(len(r.Users) <= max, "users", "too many users in one refund")
	v.Check(validator.AllIdentifiers(r.Users), "users", "user ids must be non-empty and contain no spaces")
}
