package store

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"time"

	"github.com/joefazee/settlement/internal/budget"
	"github.com/joefazee/settlement/internal/events"
	"github.com/joefazee/settlement/internal/guard"
	"github.com/joefazee/settlement/internal/logger"
	"github.com/joefazee/settlement/internal/metrics"
	"github.com/joefazee/settlement/models"
)

type opKey struct{}

// Executor serialises state-changing operations. Each top-level call runs
// in one unit of work with its own event buffer and cost tally; events are
// published only after the unit of work commits.
type Executor struct {
	mu      sync.Mutex
	store   Store
	guard   *guard.Guard
	sink    events.Sink
	meter   budget.Meter
	metrics *metrics.Metrics
	logger  logger.Logger
}

func NewExecutor(s Store, g *guard.Guard, sink events.Sink, meter budget.Meter, m *metrics.Metrics, l logger.Logger) *Executor {
	if sink == nil {
		sink = events.Discard
	}
	return &Executor{store: s, guard: g, sink: sink, meter: meter, metrics: m, logger: l}
}

func (e *Executor) Store() Store        { return e.store }
func (e *Executor) Guard() *guard.Guard { return e.guard }
func (e *Executor) Sink() events.Sink   { return e.sink }

// InOperation reports whether ctx already belongs to a running operation.
func InOperation(ctx context.Context) bool {
	_, ok := ctx.Value(opKey{}).(string)
	return ok
}

// Do runs fn as the operation op. A call made from inside another operation
// (same ctx lineage) joins it, unless a value transfer is in flight, in
// which case it fails with models.ErrReentrancyGuardActive.
func (e *Executor) Do(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	if InOperation(ctx) {
		if e.guard != nil && e.guard.Locked() {
			return models.ErrReentrancyGuardActive
		}
		return fn(ctx)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	start := time.Now()
	ctx = context.WithValue(ctx, opKey{}, op)
	ctx, buf := events.WithBuffer(ctx)
	ctx, tally := budget.WithTally(ctx)

	err := e.store.Atomic(ctx, fn)

	e.checkBudget(ctx, op, tally.Units())
	e.metrics.ObserveOperation(op, resultOf(err), time.Since(start))

	if err != nil {
		buf.Discard()
		if errors.Is(err, models.ErrReentrancyGuardActive) {
			e.metrics.GuardRejected()
		}
		return err
	}
	buf.Flush(context.WithoutCancel(ctx), e.sink)
	return nil
}

func (e *Executor) checkBudget(ctx context.Context, op string, cost int64) {
	rep := budget.Check(e.meter, op, cost)
	if !rep.Exceeded {
		return
	}
	e.metrics.BudgetOverrun(op)
	if e.logger != nil {
		e.logger.Info("operation exceeded its budget", map[string]interface{}{
			"op":      op,
			"cost":    rep.Cost,
			"ceiling": rep.Ceiling,
		})
	}
	e.sink.Publish(context.WithoutCancel(ctx), events.Event{
		Type: events.BudgetExceeded,
		Data: map[string]string{
			"op":      op,
			"cost":    strconv.FormatInt(rep.Cost, 10),
			"ceiling": strconv.FormatInt(rep.Ceiling, 10),
		},
		At: time.Now().UTC(),
	})
}

func resultOf(err error) string {
	if err == nil {
		return "ok"
	}
	return string(models.KindOf(err))
}
