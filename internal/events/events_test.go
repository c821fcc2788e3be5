package events

import (
	"context"
	"testing"
	"time"

	"github.com/nats-io/nats.go/jetstream"
	"github.com/stretchr/testify/assert"

	"github.com/joefazee/settlement/internal/logger"
)

func TestEmit(t *testing.T) {
	t.Run("publishes immediately without a buffer", func(t *testing.T) {
		rec := NewRecorder()
		Emit(context.Background(), rec, Event{Type: MarketCreated, MarketID: "m1"})
		events := rec.Events()
		assert.Len(t, events, 1)
		assert.False(t, events[0].At.IsZero())
	})

	t.Run("buffers until flush", func(t *testing.T) {
		rec := NewRecorder()
		ctx, buf := WithBuffer(context.Background())

		Emit(ctx, rec, Event{Type: MarketStaked})
		Emit(ctx, rec, Event{Type: MarketClaimed})
		assert.Empty(t, rec.Events())
		assert.Equal(t, 2, buf.Len())

		buf.Flush(ctx, rec)
		events := rec.Events()
		assert.Len(t, events, 2)
		assert.Equal(t, MarketStaked, events[0].Type)
		assert.Equal(t, MarketClaimed, events[1].Type)
		assert.Zero(t, buf.Len())
	})

	t.Run("discard drops pending events", func(t *testing.T) {
		rec := NewRecorder()
		ctx, buf := WithBuffer(context.Background())
		Emit(ctx, rec, Event{Type: MarketStaked})
		buf.Discard()
		buf.Flush(ctx, rec)
		assert.Empty(t, rec.Events())
	})
}

func TestMultiSink(t *testing.T) {
	a, b := NewRecorder(), NewRecorder()
	sink := MultiSink{a, nil, b, NewLogSink(logger.NewNullLogger())}
	sink.Publish(context.Background(), Event{Type: OracleFallback, Data: map[string]string{"provider": "p"}})

	assert.Len(t, a.OfType(OracleFallback), 1)
	assert.Len(t, b.OfType(OracleFallback), 1)
	assert.Empty(t, b.OfType(MarketCreated))
}

type countingCounter struct {
	published []string
	dropped   int
}

func (c *countingCounter) EventPublished(t string) { c.published = append(c.published, t) }
func (c *countingCounter) EventDropped(string)     { c.dropped++ }

func TestNATSSink(t *testing.T) {
	cfg := &NATSConfig{SubjectPrefix: "settlement.events", BufferSize: 1}
	counter := &countingCounter{}
	sink := NewNATSSink(nil, cfg, logger.NewNullLogger(), counter)

	t.Run("subject", func(t *testing.T) {
		assert.Equal(t, "settlement.events.market.claimed.m1", sink.Subject(Event{Type: MarketClaimed, MarketID: "m1"}))
		assert.Equal(t, "settlement.events.budget.exceeded", sink.Subject(Event{Type: BudgetExceeded}))
	})

	t.Run("drops when the queue is full", func(t *testing.T) {
		sink.Publish(context.Background(), Event{Type: MarketStaked})
		sink.Publish(context.Background(), Event{Type: MarketStaked})
		assert.Equal(t, 1, counter.dropped)
	})

	t.Run("run stops on cancel", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		empty := NewNATSSink(nil, cfg, logger.NewNullLogger(), nil)
		assert.ErrorIs(t, empty.Run(ctx), context.Canceled)
	})

	t.Run("shutdown drains the queue", func(t *testing.T) {
		pub := &recordingPublisher{}
		counter := &countingCounter{}
		s := NewNATSSink(pub, &NATSConfig{SubjectPrefix: "settlement.events", BufferSize: 8}, logger.NewNullLogger(), counter)
		s.Publish(context.Background(), Event{Type: MarketStaked, MarketID: "m1"})
		s.Publish(context.Background(), Event{Type: MarketClaimed, MarketID: "m1"})
		s.Publish(context.Background(), Event{Type: BudgetExceeded})

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		assert.ErrorIs(t, s.Run(ctx), context.Canceled)

		assert.Equal(t, []string{
			"settlement.events.market.staked.m1",
			"settlement.events.market.claimed.m1",
			"settlement.events.budget.exceeded",
		}, pub.subjects)
		assert.Len(t, counter.published, 3)
		assert.Zero(t, counter.dropped)
	})

	t.Run("leftovers past the drain timeout are counted", func(t *testing.T) {
		pub := &recordingPublisher{block: true}
		counter := &countingCounter{}
		s := NewNATSSink(pub, &NATSConfig{SubjectPrefix: "settlement.events", BufferSize: 8, DrainTimeout: 10 * time.Millisecond}, logger.NewNullLogger(), counter)
		for i := 0; i < 3; i++ {
			s.Publish(context.Background(), Event{Type: MarketStaked})
		}

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		assert.ErrorIs(t, s.Run(ctx), context.Canceled)

		assert.Empty(t, counter.published)
		assert.Equal(t, 3, counter.dropped)
	})
}

// recordingPublisher records subjects. With block set it waits for ctx to
// end and fails.
type recordingPublisher struct {
	block    bool
	subjects []string
}

func (p *recordingPublisher) Publish(ctx context.Context, subject string, _ []byte, _ ...jetstream.PublishOpt) (*jetstream.PubAck, error) {
	if p.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	p.subjects = append(p.subjects, subject)
	return &jetstream.PubAck{Subject: subject}, nil
}
