package ledger

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/joefazee/settlement/internal/transfer"
	"github.com/joefazee/settlement/models"
)

// NewFunding returns the Funding for the configured policy. Under the
// wallet policy every stake and payout is an external transfer; under the
// ledger policy they move the user's ledger balance and only treasury
// payments leave custody.
func NewFunding(config *Config, ledger Service, tr transfer.Transferer) Funding {
	if config == nil {
		config = GetDefaultConfig()
	}
	if config.FundingPolicy == models.FundingLedger {
		return &ledgerFunding{ledger: ledger, transfer: tr, custody: config.CustodyAccount}
	}
	return &walletFunding{transfer: tr, custody: config.CustodyAccount}
}

type walletFunding struct {
	transfer transfer.Transferer
	custody  string
}

func (f *walletFunding) Policy() models.FundingPolicy { return models.FundingWallet }

func (f *walletFunding) Collect(ctx context.Context, user string, amount decimal.Decimal) error {
	return f.transfer.Transfer(ctx, user, f.custody, amount)
}

func (f *walletFunding) Pay(ctx context.Context, user string, amount decimal.Decimal) error {
	return f.transfer.Transfer(ctx, f.custody, user, amount)
}

func (f *walletFunding) PayTreasury(ctx context.Context, treasury string, amount decimal.Decimal) error {
	return f.transfer.Transfer(ctx, f.custody, treasury, amount)
}

type ledgerFunding struct {
	ledger   Service
	transfer transfer.Transferer
	custody  string
}

func (f *ledgerFunding) Policy() models.FundingPolicy { return models.FundingLedger }

func (f *ledgerFunding) Collect(ctx context.Context, user string, amount decimal.Decimal) error {
	_, err := f.ledger.Debit(ctx, user, amount)
	return err
}

func (f *ledgerFunding) Pay(ctx context.Context, user string, amount decimal.Decimal) error {
	_, err := f.ledger.Credit(ctx, user, amount)
	return err
}

func (f *ledgerFunding) PayTreasury(ctx context.Context, treasury string, amount decimal.Decimal) error {
	return f.transfer.Transfer(ctx, f.custody, treasury, amount)
}
