package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Balance is a user's available funds for one asset held in custody
type Balance struct {
	UserID    string          `gorm:"type:varchar(128);primaryKey" json:"user_id"`
	Asset     string          `gorm:"type:varchar(32);primaryKey" json:"asset"`
	Amount    decimal.Decimal `gorm:"type:numeric(39,0);not null;default:0" json:"amount"`
	CreatedAt time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

// TableName specifies the table name for Balance model
func (*Balance) TableName() string {
	return "balances"
}

// NewBalance returns a zero balance for an unseen pair.
func NewBalance(userID, asset string) *Balance {
	return &Balance{UserID: userID, Asset: asset, Amount: decimal.Zero}
}

// Credit adds amount to the balance.
func (b *Balance) Credit(amount decimal.Decimal) error {
	next, err := CheckedAdd(b.Amount, amount)
	if err != nil {
		return err
	}
	b.Amount = next
	return nil
}

// Debit removes amount or fails with ErrInsufficientBalance.
func (b *Balance) Debit(amount decimal.Decimal) error {
	if b.Amount.LessThan(amount) {
		return ErrInsufficientBalance
	}
	next, err := CheckedSub(b.Amount, amount)
	if err != nil {
		return err
	}
	b.Amount = next
	return nil
}

// Account is an external wallet balance moved by the transfer capability
type Account struct {
	ID        string          `gorm:"type:varchar(128);primaryKey" json:"id"`
	Amount    decimal.Decimal `gorm:"type:numeric(39,0);not null;default:0" json:"amount"`
	CreatedAt time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

// TableName specifies the table name for Account model
func (*Account) TableName() string {
	return "accounts"
}
