// Package fixtures wires the engine infrastructure on top of the memory
// store for package tests.
package fixtures

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/joefazee/settlement/app/store"
	"github.com/joefazee/settlement/internal/budget"
	"github.com/joefazee/settlement/internal/clock"
	"github.com/joefazee/settlement/internal/events"
	"github.com/joefazee/settlement/internal/guard"
	"github.com/joefazee/settlement/internal/logger"
	"github.com/joefazee/settlement/internal/metrics"
	"github.com/joefazee/settlement/internal/security"
	"github.com/joefazee/settlement/internal/transfer"
)

// Admin is the principal id that holds admin rights in fixtures.
const Admin = "admin"

// Start is the fixed time every fixture clock begins at.
var Start = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

// Engine bundles the shared collaborators of every module.
type Engine struct {
	Store      *store.MemoryStore
	Executor   *store.Executor
	Guard      *guard.Guard
	Clock      *clock.Manual
	Events     *events.Recorder
	Budgets    *budget.Registry
	Metrics    *metrics.Metrics
	Accounts   *transfer.AccountLedger
	Wallets    *Wallets
	Transferer transfer.Transferer
	Authorizer *security.ContextAuthorizer
	Logger     logger.Logger
}

// NewEngine returns a fresh engine with an empty memory store.
func NewEngine() *Engine {
	e := &Engine{
		Store:      store.NewMemoryStore(),
		Guard:      guard.New(),
		Clock:      clock.NewManual(Start),
		Events:     events.NewRecorder(),
		Budgets:    budget.NewRegistry(nil),
		Metrics:    metrics.New(prometheus.NewRegistry()),
		Authorizer: security.NewContextAuthorizer([]string{Admin}),
		Logger:     logger.NewNullLogger(),
	}
	e.Accounts = transfer.NewAccountLedger(e.Store)
	e.Wallets = &Wallets{accounts: e.Accounts}
	e.Transferer = transfer.NewGuarded(e.Guard, e.Wallets)
	e.Executor = store.NewExecutor(e.Store, e.Guard, e.Events, e.Budgets, e.Metrics, e.Logger)
	return e
}

// As returns ctx carrying the principal user.
func As(user string) context.Context {
	return security.WithPrincipal(context.Background(), security.Principal{UserID: user})
}

// AsAdmin returns ctx carrying the admin principal.
func AsAdmin() context.Context {
	return As(Admin)
}

// Fund credits an external wallet.
func (e *Engine) Fund(t *testing.T, id string, amount int64) {
	t.Helper()
	_, err := e.Accounts.Fund(context.Background(), id, decimal.NewFromInt(amount))
	require.NoError(t, err)
}

// Wallet returns the external wallet balance of id.
func (e *Engine) Wallet(t *testing.T, id string) decimal.Decimal {
	t.Helper()
	amount, err := e.Accounts.Balance(context.Background(), id)
	require.NoError(t, err)
	return amount
}

// Wallets is the external side of every transfer. It sits inside the
// reentrancy guard, so OnTransfer callbacks run while the guard is held.
type Wallets struct {
	accounts *transfer.AccountLedger
	fail     error
	hook     func(ctx context.Context) error
	calls    int
}

func (w *Wallets) Transfer(ctx context.Context, from, to string, amount decimal.Decimal) error {
	w.calls++
	if w.hook != nil {
		if err := w.hook(ctx); err != nil {
			return err
		}
	}
	if w.fail != nil {
		return w.fail
	}
	return w.accounts.Transfer(ctx, from, to, amount)
}

// FailWith makes every following transfer fail with err. nil restores.
func (w *Wallets) FailWith(err error) {
	w.fail = err
}

// OnTransfer runs hook inside every following transfer, before value
// moves. A hook error fails the transfer.
func (w *Wallets) OnTransfer(hook func(ctx context.Context) error) {
	w.hook = hook
}

// Calls returns how many transfers were attempted.
func (w *Wallets) Calls() int {
	return w.calls
}
