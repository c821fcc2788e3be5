package ledger

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/joefazee/settlement/models"
)

// Repository is the slice of the store the balance ledger owns
type Repository interface {
	GetBalance(ctx context.Context, userID, asset string) (*models.Balance, error)
	SaveBalance(ctx context.Context, balance *models.Balance) error
}

// Service is the per-user, per-asset available balance ledger
type Service interface {
	Deposit(ctx context.Context, user, asset string, amount decimal.Decimal) (*models.Balance, error)
	Withdraw(ctx context.Context, user, asset string, amount decimal.Decimal) (*models.Balance, error)
	GetBalance(ctx context.Context, user, asset string) (*models.Balance, error)

	// FundWallet and WalletBalance are the admin view of external wallets.
	FundWallet(ctx context.Context, id string, amount decimal.Decimal) (*models.Account, error)
	WalletBalance(ctx context.Context, id string) (decimal.Decimal, error)

	// Credit and Debit adjust the configured asset without any external
	// transfer. They run inside the caller's operation.
	Credit(ctx context.Context, user string, amount decimal.Decimal) (*models.Balance, error)
	Debit(ctx context.Context, user string, amount decimal.Decimal) (*models.Balance, error)
}

// Funding moves stake value in and payout value out of custody. Its
// implementation depends on the configured funding policy.
type Funding interface {
	Policy() models.FundingPolicy
	// Collect takes a stake from user.
	Collect(ctx context.Context, user string, amount decimal.Decimal) error
	// Pay returns value to user, as a payout or a refund.
	Pay(ctx context.Context, user string, amount decimal.Decimal) error
	// PayTreasury moves fees and swept value out of custody.
	PayTreasury(ctx context.Context, treasury string, amount decimal.Decimal) error
}

// WalletFunder credits external wallets. Fund is not serialised on its own;
// callers run it inside an operation.
type WalletFunder interface {
	Fund(ctx context.Context, id string, amount decimal.Decimal) (*models.Account, error)
	Balance(ctx context.Context, id string) (decimal.Decimal, error)
}
