package ledger

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joefazee/settlement/internal/events"
	"github.com/joefazee/settlement/internal/security"
	"github.com/joefazee/settlement/models"
	"github.com/joefazee/settlement/tests/fixtures"
)

func d(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

func newTestLedger(t *testing.T, policy models.FundingPolicy) (*fixtures.Engine, Module) {
	t.Helper()
	e := fixtures.NewEngine()
	cfg := GetDefaultConfig()
	cfg.FundingPolicy = policy
	m := Init(nil, Dependencies{
		Executor:   e.Executor,
		Repo:       e.Store,
		Authorizer: e.Authorizer,
		Transferer: e.Transferer,
		Funder:     e.Accounts,
		Clock:      e.Clock,
		Config:     cfg,
		Metrics:    e.Metrics,
	})
	return e, m
}

func TestDepositWithdraw(t *testing.T) {
	alice := fixtures.As("alice")

	t.Run("round trip restores the balance", func(t *testing.T) {
		e, m := newTestLedger(t, models.FundingWallet)
		e.Fund(t, "alice", 500)

		before, err := m.Service.GetBalance(alice, "alice", "USDC")
		require.NoError(t, err)
		assert.True(t, before.Amount.IsZero(), "unseen pair reads as zero")

		b, err := m.Service.Deposit(alice, "alice", "USDC", d(120))
		require.NoError(t, err)
		assert.True(t, b.Amount.Equal(d(120)))
		assert.True(t, e.Wallet(t, "alice").Equal(d(380)))
		assert.True(t, e.Wallet(t, "custody").Equal(d(120)))

		b, err = m.Service.Withdraw(alice, "alice", "USDC", d(120))
		require.NoError(t, err)
		assert.True(t, b.Amount.Equal(before.Amount))
		assert.True(t, e.Wallet(t, "alice").Equal(d(500)))

		deposited := e.Events.OfType(events.BalanceDeposited)
		require.Len(t, deposited, 1)
		assert.Equal(t, fixtures.Start, deposited[0].At)
		withdrawn := e.Events.OfType(events.BalanceWithdrawn)
		require.Len(t, withdrawn, 1)
		assert.Equal(t, fixtures.Start, withdrawn[0].At)
	})

	t.Run("rejections leave no trace", func(t *testing.T) {
		e, m := newTestLedger(t, models.FundingWallet)
		e.Fund(t, "alice", 100)

		tests := []struct {
			name   string
			ctx    context.Context
			asset  string
			amount decimal.Decimal
			want   error
		}{
			{"other caller", fixtures.As("mallory"), "USDC", d(10), models.ErrUnauthorized},
			{"anonymous", context.Background(), "USDC", d(10), models.ErrUnauthorized},
			{"zero", alice, "USDC", decimal.Zero, models.ErrInvalidAmount},
			{"negative", alice, "USDC", d(-1), models.ErrInvalidAmount},
			{"fraction", alice, "USDC", decimal.RequireFromString("0.5"), models.ErrInvalidAmount},
			{"other asset", alice, "ETH", d(10), models.ErrUnsupportedAsset},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				_, err := m.Service.Deposit(tt.ctx, "alice", tt.asset, tt.amount)
				assert.ErrorIs(t, err, tt.want)
				assert.Equal(t, models.KindOf(tt.want), models.KindOf(err))
			})
		}
		assert.True(t, e.Wallet(t, "alice").Equal(d(100)))
		assert.Empty(t, e.Events.Events())
	})

	t.Run("withdraw more than available", func(t *testing.T) {
		e, m := newTestLedger(t, models.FundingWallet)
		e.Fund(t, "alice", 100)
		_, err := m.Service.Deposit(alice, "alice", "USDC", d(50))
		require.NoError(t, err)

		_, err = m.Service.Withdraw(alice, "alice", "USDC", d(51))
		assert.ErrorIs(t, err, models.ErrInsufficientBalance)
		assert.Equal(t, models.KindInsufficientBalance, models.KindOf(err))
	})

	t.Run("deposit transfer failure propagates untouched", func(t *testing.T) {
		e, m := newTestLedger(t, models.FundingWallet)
		boom := errors.New("wallet offline")
		e.Wallets.FailWith(boom)

		_, err := m.Service.Deposit(alice, "alice", "USDC", d(10))
		assert.Same(t, boom, err)

		b, err := m.Service.GetBalance(alice, "alice", "USDC")
		require.NoError(t, err)
		assert.True(t, b.Amount.IsZero())
	})

	t.Run("failed withdraw transfer restores the debit", func(t *testing.T) {
		e, m := newTestLedger(t, models.FundingWallet)
		e.Fund(t, "alice", 100)
		_, err := m.Service.Deposit(alice, "alice", "USDC", d(100))
		require.NoError(t, err)

		e.Wallets.FailWith(errors.New("wallet offline"))
		_, err = m.Service.Withdraw(alice, "alice", "USDC", d(100))
		require.Error(t, err)

		b, _ := m.Service.GetBalance(alice, "alice", "USDC")
		assert.True(t, b.Amount.Equal(d(100)))
		assert.False(t, e.Guard.Locked())
	})

	t.Run("reentrant withdraw during the payout transfer", func(t *testing.T) {
		e, m := newTestLedger(t, models.FundingWallet)
		e.Fund(t, "alice", 100)
		_, err := m.Service.Deposit(alice, "alice", "USDC", d(100))
		require.NoError(t, err)

		var nested error
		e.Wallets.OnTransfer(func(ctx context.Context) error {
			_, nested = m.Service.Withdraw(ctx, "alice", "USDC", d(100))
			return nil
		})
		_, err = m.Service.Withdraw(alice, "alice", "USDC", d(100))
		require.NoError(t, err)
		assert.ErrorIs(t, nested, models.ErrReentrancyGuardActive)

		assert.True(t, e.Wallet(t, "alice").Equal(d(100)), "paid once")
		assert.False(t, e.Guard.Locked())
	})
}

func TestFundWallet(t *testing.T) {
	t.Run("admins by id or permission", func(t *testing.T) {
		e, m := newTestLedger(t, models.FundingWallet)
		e.Clock.Advance(time.Minute)
		ops := security.WithPrincipal(context.Background(), security.Principal{
			UserID:      "ops",
			Permissions: []string{security.PermissionAdmin},
		})

		acc, err := m.Service.FundWallet(fixtures.AsAdmin(), "alice", d(40))
		require.NoError(t, err)
		assert.True(t, acc.Amount.Equal(d(40)))
		_, err = m.Service.FundWallet(ops, "alice", d(2))
		require.NoError(t, err)

		amount, err := m.Service.WalletBalance(fixtures.AsAdmin(), "alice")
		require.NoError(t, err)
		assert.True(t, amount.Equal(d(42)))

		funded := e.Events.OfType(events.WalletFunded)
		require.Len(t, funded, 2)
		assert.Equal(t, "alice", funded[0].User)
		assert.Equal(t, "42", funded[1].Data["balance"])
		assert.Equal(t, fixtures.Start.Add(time.Minute), funded[0].At)
	})

	t.Run("rejections leave the wallet untouched", func(t *testing.T) {
		e, m := newTestLedger(t, models.FundingWallet)
		tests := []struct {
			name   string
			ctx    context.Context
			amount decimal.Decimal
			want   error
		}{
			{"user", fixtures.As("alice"), d(10), models.ErrUnauthorized},
			{"anonymous", context.Background(), d(10), models.ErrUnauthorized},
			{"fraction", fixtures.AsAdmin(), decimal.RequireFromString("0.5"), models.ErrInvalidAmount},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				_, err := m.Service.FundWallet(tt.ctx, "alice", tt.amount)
				assert.ErrorIs(t, err, tt.want)
			})
		}
		_, err := m.Service.WalletBalance(fixtures.As("alice"), "alice")
		assert.ErrorIs(t, err, models.ErrUnauthorized)
		assert.True(t, e.Wallet(t, "alice").IsZero())
		assert.Empty(t, e.Events.Events())
	})

	t.Run("refused inside an in-flight transfer", func(t *testing.T) {
		e, m := newTestLedger(t, models.FundingWallet)
		e.Fund(t, "alice", 100)

		var nested error
		e.Wallets.OnTransfer(func(ctx context.Context) error {
			_, nested = m.Service.FundWallet(ctx, "alice", d(50))
			return nil
		})
		_, err := m.Service.Deposit(asAlice(), "alice", "USDC", d(10))
		require.NoError(t, err)
		assert.ErrorIs(t, nested, models.ErrReentrancyGuardActive)

		assert.True(t, e.Wallet(t, "alice").Equal(d(90)))
		assert.True(t, e.Wallet(t, "custody").Equal(d(10)))
	})

	t.Run("serialised with concurrent deposits", func(t *testing.T) {
		e, m := newTestLedger(t, models.FundingWallet)
		e.Fund(t, "alice", 100)

		const rounds = 25
		var wg sync.WaitGroup
		for i := 0; i < rounds; i++ {
			wg.Add(2)
			go func() {
				defer wg.Done()
				_, err := m.Service.Deposit(asAlice(), "alice", "USDC", d(2))
				assert.NoError(t, err)
			}()
			go func() {
				defer wg.Done()
				_, err := m.Service.FundWallet(fixtures.AsAdmin(), "alice", d(1))
				assert.NoError(t, err)
			}()
		}
		wg.Wait()

		assert.True(t, e.Wallet(t, "custody").Equal(d(2*rounds)))
		assert.True(t, e.Wallet(t, "alice").Equal(d(100+rounds-2*rounds)))
		b, err := m.Service.GetBalance(asAlice(), "alice", "USDC")
		require.NoError(t, err)
		assert.True(t, b.Amount.Equal(d(2*rounds)))
	})

	t.Run("disabled without a funder", func(t *testing.T) {
		e := fixtures.NewEngine()
		m := Init(nil, Dependencies{
			Executor:   e.Executor,
			Repo:       e.Store,
			Authorizer: e.Authorizer,
			Transferer: e.Transferer,
			Metrics:    e.Metrics,
		})
		_, err := m.Service.FundWallet(fixtures.AsAdmin(), "alice", d(1))
		assert.ErrorIs(t, err, models.ErrInvalidAccount)
	})
}

func asAlice() context.Context { return fixtures.As("alice") }

func TestFunding(t *testing.T) {
	alice := fixtures.As("alice")

	t.Run("wallet policy moves external value", func(t *testing.T) {
		e, m := newTestLedger(t, models.FundingWallet)
		e.Fund(t, "alice", 50)
		assert.Equal(t, models.FundingWallet, m.Funding.Policy())

		require.NoError(t, m.Funding.Collect(context.Background(), "alice", d(30)))
		require.NoError(t, m.Funding.Pay(context.Background(), "alice", d(10)))
		require.NoError(t, m.Funding.PayTreasury(context.Background(), "treasury", d(5)))

		assert.True(t, e.Wallet(t, "alice").Equal(d(30)))
		assert.True(t, e.Wallet(t, "custody").Equal(d(15)))
		assert.True(t, e.Wallet(t, "treasury").Equal(d(5)))
	})

	t.Run("ledger policy moves available balance", func(t *testing.T) {
		e, m := newTestLedger(t, models.FundingLedger)
		e.Fund(t, "alice", 50)
		_, err := m.Service.Deposit(alice, "alice", "USDC", d(50))
		require.NoError(t, err)

		require.NoError(t, m.Funding.Collect(context.Background(), "alice", d(30)))
		b, _ := m.Service.GetBalance(alice, "alice", "USDC")
		assert.True(t, b.Amount.Equal(d(20)), "staked funds are not available")

		assert.ErrorIs(t, m.Funding.Collect(context.Background(), "alice", d(21)), models.ErrInsufficientBalance)

		require.NoError(t, m.Funding.Pay(context.Background(), "alice", d(45)))
		b, _ = m.Service.GetBalance(alice, "alice", "USDC")
		assert.True(t, b.Amount.Equal(d(65)))
		assert.True(t, e.Wallet(t, "custody").Equal(d(50)), "custody untouched by internal moves")
	})
}

func TestConfig(t *testing.T) {
	assert.NoError(t, GetDefaultConfig().Validate())

	cfg := GetDefaultConfig()
	cfg.FundingPolicy = "escrow"
	assert.ErrorIs(t, cfg.Validate(), models.ErrInvalidFundingPolicy)

	cfg = GetDefaultConfig()
	cfg.Asset = " "
	assert.ErrorIs(t, cfg.Validate(), models.ErrUnsupportedAsset)
}
