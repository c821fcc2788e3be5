package ledger

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/joefazee/settlement/internal/validator"
)

// AmountRequest is the body of deposit, withdraw and wallet funding calls
type AmountRequest struct {
	Asset  string          `json:"asset"`
	Amount decimal.Decimal `json:"amount" swaggertype:"string" example:"100"`
}

// Validate checks the request data.
func (r *AmountRequest) Validate(v *validator.Validator, requireAsset bool) {
	r.Asset = strings.TrimSpace(r.Asset)
	if requireAsset {
		v.Check(r.Asset != "", "asset", "asset is required")
	}
	v.Check(validator.PositiveWhole(r.Amount), "amount", "amount must be a positive whole number")
}

// BalanceResponse is the public view of a balance
type BalanceResponse struct {
	UserID string          `json:"user_id"`
	Asset  string          `json:"asset"`
	Amount decimal.Decimal `json:"amount" swaggertype:"string"`
}

// WalletResponse is the public view of an external wallet account
type WalletResponse struct {
	ID     string          `json:"id"`
	Amount decimal.Decimal `json:"amount" swaggertype:"string"`
}
