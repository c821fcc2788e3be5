package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/joefazee/settlement/app/store"
	"github.com/joefazee/settlement/internal/budget"
	"github.com/joefazee/settlement/internal/clock"
	"github.com/joefazee/settlement/internal/events"
	"github.com/joefazee/settlement/internal/metrics"
	"github.com/joefazee/settlement/internal/security"
	"github.com/joefazee/settlement/internal/transfer"
	"github.com/joefazee/settlement/models"
)

// Operation names reported to the executor.
const (
	OpDeposit    = "deposit"
	OpWithdraw   = "withdraw"
	OpFundWallet = "fund_wallet"
)

type service struct {
	exec     *store.Executor
	repo     Repository
	auth     security.Authorizer
	transfer transfer.Transferer
	funder   WalletFunder
	clock    clock.Clock
	config   *Config
	metrics  *metrics.Metrics
}

// NewService creates a new balance ledger. tr must already be guarded.
// funder may be nil, in which case wallet funding is refused.
func NewService(exec *store.Executor, repo Repository, auth security.Authorizer, tr transfer.Transferer, funder WalletFunder, c clock.Clock, config *Config, m *metrics.Metrics) Service {
	if config == nil {
		config = GetDefaultConfig()
	}
	if c == nil {
		c = clock.System{}
	}
	return &service{exec: exec, repo: repo, auth: auth, transfer: tr, funder: funder, clock: c, config: config, metrics: m}
}

func (s *service) now() time.Time {
	return s.clock.Now().UTC()
}

func (s *service) checkAsset(asset string) error {
	if strings.TrimSpace(asset) != s.config.Asset {
		return fmt.Errorf("%w: %q", models.ErrUnsupportedAsset, asset)
	}
	return nil
}

func (s *service) load(ctx context.Context, user, asset string) (*models.Balance, error) {
	b, err := s.repo.GetBalance(ctx, user, asset)
	if errors.Is(err, models.ErrRecordNotFound) {
		return models.NewBalance(user, asset), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load balance: %w", err)
	}
	return b, nil
}

// Deposit moves amount from the user's wallet into custody, then credits
// the ledger.
func (s *service) Deposit(ctx context.Context, user, asset string, amount decimal.Decimal) (*models.Balance, error) {
	var out *models.Balance
	err := s.exec.Do(ctx, OpDeposit, func(ctx context.Context) error {
		if err := s.auth.RequireUser(ctx, user); err != nil {
			return err
		}
		if err := s.checkAsset(asset); err != nil {
			return err
		}
		if err := models.ValidateAmount(amount); err != nil {
			return err
		}

		if err := s.transfer.Transfer(ctx, user, s.config.CustodyAccount, amount); err != nil {
			return err
		}

		b, err := s.credit(ctx, user, amount)
		if err != nil {
			return err
		}
		out = b

		events.Emit(ctx, s.exec.Sink(), events.Event{
			Type:   events.BalanceDeposited,
			User:   user,
			Amount: amount.String(),
			Data:   map[string]string{"asset": asset, "balance": b.Amount.String()},
			At:     s.now(),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.metrics.Moved("deposit", amount)
	return out, nil
}

// Withdraw debits the ledger first, then moves amount out of custody.
func (s *service) Withdraw(ctx context.Context, user, asset string, amount decimal.Decimal) (*models.Balance, error) {
	var out *models.Balance
	err := s.exec.Do(ctx, OpWithdraw, func(ctx context.Context) error {
		if err := s.auth.RequireUser(ctx, user); err != nil {
			return err
		}
		if err := s.checkAsset(asset); err != nil {
			return err
		}
		if err := models.ValidateAmount(amount); err != nil {
			return err
		}

		b, err := s.debit(ctx, user, amount)
		if err != nil {
			return err
		}
		out = b

		if err := s.transfer.Transfer(ctx, s.config.CustodyAccount, user, amount); err != nil {
			return err
		}

		events.Emit(ctx, s.exec.Sink(), events.Event{
			Type:   events.BalanceWithdrawn,
			User:   user,
			Amount: amount.String(),
			Data:   map[string]string{"asset": asset, "balance": b.Amount.String()},
			At:     s.now(),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.metrics.Moved("withdraw", amount)
	return out, nil
}

// FundWallet credits an external wallet from outside the system, as the
// fund_wallet operation.
func (s *service) FundWallet(ctx context.Context, id string, amount decimal.Decimal) (*models.Account, error) {
	if s.funder == nil {
		return nil, fmt.Errorf("%w: wallet funding is not enabled", models.ErrInvalidAccount)
	}
	var out *models.Account
	err := s.exec.Do(ctx, OpFundWallet, func(ctx context.Context) error {
		if err := s.auth.RequireAdmin(ctx); err != nil {
			return err
		}
		acc, err := s.funder.Fund(ctx, id, amount)
		if err != nil {
			return err
		}
		budget.Charge(ctx, 1)
		out = acc

		events.Emit(ctx, s.exec.Sink(), events.Event{
			Type:   events.WalletFunded,
			User:   id,
			Amount: amount.String(),
			Data:   map[string]string{"balance": acc.Amount.String()},
			At:     s.now(),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.metrics.Moved("fund", amount)
	return out, nil
}

// WalletBalance returns the external wallet balance of id (admin).
func (s *service) WalletBalance(ctx context.Context, id string) (decimal.Decimal, error) {
	if s.funder == nil {
		return decimal.Zero, fmt.Errorf("%w: wallet funding is not enabled", models.ErrInvalidAccount)
	}
	if err := s.auth.RequireAdmin(ctx); err != nil {
		return decimal.Zero, err
	}
	return s.funder.Balance(ctx, id)
}

func (s *service) GetBalance(ctx context.Context, user, asset string) (*models.Balance, error) {
	if strings.TrimSpace(user) == "" {
		return nil, models.ErrInvalidUser
	}
	if err := s.checkAsset(asset); err != nil {
		return nil, err
	}
	return s.load(ctx, user, asset)
}

func (s *service) Credit(ctx context.Context, user string, amount decimal.Decimal) (*models.Balance, error) {
	if err := models.ValidateAmount(amount); err != nil {
		return nil, err
	}
	return s.credit(ctx, user, amount)
}

func (s *service) Debit(ctx context.Context, user string, amount decimal.Decimal) (*models.Balance, error) {
	if err := models.ValidateAmount(amount); err != nil {
		return nil, err
	}
	return s.debit(ctx, user, amount)
}

func (s *service) credit(ctx context.Context, user string, amount decimal.Decimal) (*models.Balance, error) {
	b, err := s.load(ctx, user, s.config.Asset)
	if err != nil {
		return nil, err
	}
	if err := b.Credit(amount); err != nil {
		return nil, err
	}
	budget.Charge(ctx, 1)
	if err := s.repo.SaveBalance(ctx, b); err != nil {
		return nil, fmt.Errorf("failed to save balance: %w", err)
	}
	return b, nil
}

func (s *service) debit(ctx context.Context, user string, amount decimal.Decimal) (*models.Balance, error) {
	b, err := s.load(ctx, user, s.config.Asset)
	if err != nil {
		return nil, err
	}
	if err := b.Debit(amount); err != nil {
		return nil, fmt.Errorf("%s has %s available: %w", user, b.Amount, err)
	}
	budget.Charge(ctx, 1)
	if err := s.repo.SaveBalance(ctx, b); err != nil {
		return nil, fmt.Errorf("failed to save balance: %w", err)
	}
	return b, nil
}
