package transfer

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/joefazee/settlement/internal/guard"
	"github.com/joefazee/settlement/models"
)

// Transferer moves value between two parties. It is atomic and fails loudly:
// an error means nothing moved.
type Transferer interface {
	Transfer(ctx context.Context, from, to string, amount decimal.Decimal) error
}

// Func adapts a function to Transferer.
type Func func(ctx context.Context, from, to string, amount decimal.Decimal) error

func (f Func) Transfer(ctx context.Context, from, to string, amount decimal.Decimal) error {
	return f(ctx, from, to, amount)
}

// Guarded brackets every transfer with the engine's reentrancy guard.
type Guarded struct {
	guard *guard.Guard
	next  Transferer
}

func NewGuarded(g *guard.Guard, next Transferer) *Guarded {
	return &Guarded{guard: g, next: next}
}

func (t *Guarded) Transfer(ctx context.Context, from, to string, amount decimal.Decimal) error {
	return guard.Run(t.guard, func() error {
		return t.next.Transfer(ctx, from, to, amount)
	})
}

// AccountStore persists wallet accounts.
type AccountStore interface {
	GetAccount(ctx context.Context, id string) (*models.Account, error)
	SaveAccount(ctx context.Context, account *models.Account) error
}

// AccountLedger is an in-process transfer capability over persisted
// accounts. Inside a unit of work its writes share the caller's transaction.
type AccountLedger struct {
	store AccountStore
}

func NewAccountLedger(store AccountStore) *AccountLedger {
	return &AccountLedger{store: store}
}

func (l *AccountLedger) Transfer(ctx context.Context, from, to string, amount decimal.Decimal) error {
	if err := models.ValidateAmount(amount); err != nil {
		return err
	}
	if from == "" || to == "" {
		return models.ErrInvalidAccount
	}
	if from == to {
		return nil
	}

	src, err := l.account(ctx, from)
	if err != nil {
		return err
	}
	if src.Amount.LessThan(amount) {
		return fmt.Errorf("transfer from %s: %w", from, models.ErrInsufficientBalance)
	}
	dst, err := l.account(ctx, to)
	if err != nil {
		return err
	}

	if src.Amount, err = models.CheckedSub(src.Amount, amount); err != nil {
		return err
	}
	if dst.Amount, err = models.CheckedAdd(dst.Amount, amount); err != nil {
		return err
	}
	if err := l.store.SaveAccount(ctx, src); err != nil {
		return fmt.Errorf("failed to debit account %s: %w", from, err)
	}
	if err := l.store.SaveAccount(ctx, dst); err != nil {
		return fmt.Errorf("failed to credit account %s: %w", to, err)
	}
	return nil
}

// Fund credits an account from outside the system.
func (l *AccountLedger) Fund(ctx context.Context, id string, amount decimal.Decimal) (*models.Account, error) {
	if err := models.ValidateAmount(amount); err != nil {
		return nil, err
	}
	if id == "" {
		return nil, models.ErrInvalidAccount
	}
	acc, err := l.account(ctx, id)
	if err != nil {
		return nil, err
	}
	if acc.Amount, err = models.CheckedAdd(acc.Amount, amount); err != nil {
		return nil, err
	}
	if err := l.store.SaveAccount(ctx, acc); err != nil {
		return nil, fmt.Errorf("failed to fund account %s: %w", id, err)
	}
	return acc, nil
}

// Balance returns the account balance, zero for unknown accounts.
func (l *AccountLedger) Balance(ctx context.Context, id string) (decimal.Decimal, error) {
	acc, err := l.account(ctx, id)
	if err != nil {
		return decimal.Zero, err
	}
	return acc.Amount, nil
}

func (l *AccountLedger) account(ctx context.Context, id string) (*models.Account, error) {
	acc, err := l.store.GetAccount(ctx, id)
	if errors.Is(err, models.ErrRecordNotFound) {
		return &models.Account{ID: id, Amount: decimal.Zero}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load account %s: %w", id, err)
	}
	return acc, nil
}
