package events

import (
	"context"
	"sync"
	"time"
)

// Type names a notification emitted by the engine.
type Type string

const (
	MarketCreated        Type = "market.created"
	MarketStaked         Type = "market.staked"
	MarketClosed         Type = "market.closed"
	MarketResolved       Type = "market.resolved"
	MarketCancelled      Type = "market.cancelled"
	MarketClaimed        Type = "market.claimed"
	MarketRefunded       Type = "market.refunded"
	MarketSwept          Type = "market.swept"
	MarketMetadataSet    Type = "market.metadata_updated"
	MarketOracleSet      Type = "market.oracle_updated"
	MarketClaimPeriodSet Type = "market.claim_period_updated"
	ClaimPeriodSet       Type = "settings.claim_period_updated"
	BudgetSet            Type = "settings.budget_updated"

	BalanceDeposited Type = "balance.deposited"
	BalanceWithdrawn Type = "balance.withdrawn"
	WalletFunded     Type = "wallet.funded"

	RecoveryNoop          Type = "recovery.noop"
	RecoveryRecovered     Type = "recovery.recovered"
	RecoveryPartialRefund Type = "recovery.partial_refund"

	MarketArchived  Type = "archive.archived"
	ArchiveExported Type = "archive.exported"

	OracleFallback    Type = "oracle.fallback"
	OracleUnavailable Type = "oracle.unavailable"
	BudgetExceeded    Type = "budget.exceeded"
)

// Event is a fire-and-forget notification. Amount is a decimal string so
// that consumers never see a float.
type Event struct {
	Type     Type              `json:"type"`
	MarketID string            `json:"market_id,omitempty"`
	User     string            `json:"user,omitempty"`
	Amount   string            `json:"amount,omitempty"`
	Data     map[string]string `json:"data,omitempty"`
	At       time.Time         `json:"at"`
}

// Sink receives events. Publish never fails the caller; delivery problems
// are the sink's own concern.
type Sink interface {
	Publish(ctx context.Context, event Event)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, event Event)

func (f SinkFunc) Publish(ctx context.Context, event Event) {
	f(ctx, event)
}

// Discard drops every event.
var Discard Sink = SinkFunc(func(context.Context, Event) {})

// MultiSink fans an event out to every sink in order.
type MultiSink []Sink

func (m MultiSink) Publish(ctx context.Context, event Event) {
	for _, s := range m {
		if s != nil {
			s.Publish(ctx, event)
		}
	}
}

// Buffer holds events raised inside a unit of work until it commits.
type Buffer struct {
	mu     sync.Mutex
	events []Event
}

type bufferKey struct{}

// WithBuffer attaches a fresh buffer to ctx.
func WithBuffer(ctx context.Context) (context.Context, *Buffer) {
	b := &Buffer{}
	return context.WithValue(ctx, bufferKey{}, b), b
}

// Emit queues the event on the ctx buffer when one exists, otherwise it
// publishes immediately.
func Emit(ctx context.Context, sink Sink, event Event) {
	if event.At.IsZero() {
		event.At = time.Now().UTC()
	}
	if b, ok := ctx.Value(bufferKey{}).(*Buffer); ok {
		b.mu.Lock()
		b.events = append(b.events, event)
		b.mu.Unlock()
		return
	}
	if sink != nil {
		sink.Publish(ctx, event)
	}
}

// Flush publishes the buffered events in order and empties the buffer.
func (b *Buffer) Flush(ctx context.Context, sink Sink) {
	b.mu.Lock()
	pending := b.events
	b.events = nil
	b.mu.Unlock()
	if sink == nil {
		return
	}
	for _, e := range pending {
		sink.Publish(ctx, e)
	}
}

// Discard drops the buffered events.
func (b *Buffer) Discard() {
	b.mu.Lock()
	b.events = nil
	b.mu.Unlock()
}

// Len returns the number of buffered events.
func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.events)
}
