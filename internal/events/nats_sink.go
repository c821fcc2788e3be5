package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/joefazee/settlement/internal/logger"
)

// Counter is notified about delivery outcomes. internal/metrics implements it.
type Counter interface {
	EventPublished(eventType string)
	EventDropped(sink string)
}

// NATSConfig configures the JetStream sink.
type NATSConfig struct {
	URL           string        `env:"NATS_URL"`
	Stream        string        `env:"NATS_STREAM" env-default:"SETTLEMENT_EVENTS"`
	SubjectPrefix string        `env:"NATS_SUBJECT_PREFIX" env-default:"settlement.events"`
	BufferSize    int           `env:"NATS_BUFFER_SIZE" env-default:"1024"`
	MaxAge        time.Duration `env:"NATS_STREAM_MAX_AGE" env-default:"72h"`
	DrainTimeout  time.Duration `env:"NATS_DRAIN_TIMEOUT" env-default:"5s"`
}

// Enabled reports whether a NATS URL is configured.
func (c *NATSConfig) Enabled() bool {
	return c.URL != ""
}

// Publisher is the slice of jetstream.JetStream the sink needs.
type Publisher interface {
	Publish(ctx context.Context, subject string, data []byte, opts ...jetstream.PublishOpt) (*jetstream.PubAck, error)
}

// NATSSink publishes events to JetStream from a background loop. Publish
// only enqueues; when the queue is full the event is dropped and counted.
type NATSSink struct {
	js           Publisher
	prefix       string
	queue        chan Event
	drainTimeout time.Duration
	logger       logger.Logger
	counter      Counter
}

func NewNATSSink(js Publisher, cfg *NATSConfig, l logger.Logger, counter Counter) *NATSSink {
	size := cfg.BufferSize
	if size <= 0 {
		size = 1024
	}
	drain := cfg.DrainTimeout
	if drain <= 0 {
		drain = 5 * time.Second
	}
	return &NATSSink{
		js:           js,
		prefix:       cfg.SubjectPrefix,
		queue:        make(chan Event, size),
		drainTimeout: drain,
		logger:       l,
		counter:      counter,
	}
}

func (s *NATSSink) Publish(_ context.Context, e Event) {
	select {
	case s.queue <- e:
	default:
		s.drop(e, "event queue full, dropping event")
	}
}

// Run delivers queued events until ctx is cancelled, then drains what is
// left within the drain timeout.
func (s *NATSSink) Run(ctx context.Context) error {
	for {
		if ctx.Err() != nil {
			s.drain(context.WithoutCancel(ctx))
			return ctx.Err()
		}
		select {
		case <-ctx.Done():
		case e := <-s.queue:
			s.deliver(ctx, e)
		}
	}
}

// drain empties the queue. Events still queued once the timeout passes are
// counted as dropped.
func (s *NATSSink) drain(parent context.Context) {
	ctx, cancel := context.WithTimeout(parent, s.drainTimeout)
	defer cancel()
	for {
		select {
		case e := <-s.queue:
			if ctx.Err() != nil {
				s.drop(e, "shutdown drain timed out, dropping event")
				continue
			}
			s.deliver(ctx, e)
		default:
			return
		}
	}
}

// deliver publishes e. A failed publish loses the event, so it counts as
// dropped.
func (s *NATSSink) deliver(ctx context.Context, e Event) {
	if err := s.publish(ctx, e); err != nil {
		s.logger.Error(err, map[string]interface{}{"event": string(e.Type)})
		if s.counter != nil {
			s.counter.EventDropped("nats")
		}
		return
	}
	if s.counter != nil {
		s.counter.EventPublished(string(e.Type))
	}
}

func (s *NATSSink) drop(e Event, msg string) {
	if s.counter != nil {
		s.counter.EventDropped("nats")
	}
	s.logger.Info(msg, map[string]interface{}{
		"event": string(e.Type), "market_id": e.MarketID,
	})
}

// Subject builds settlement.events.{type}[.{market_id}].
func (s *NATSSink) Subject(e Event) string {
	subject := fmt.Sprintf("%s.%s", s.prefix, e.Type)
	if e.MarketID != "" {
		subject = fmt.Sprintf("%s.%s", subject, e.MarketID)
	}
	return subject
}

func (s *NATSSink) publish(ctx context.Context, e Event) error {
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	_, err = s.js.Publish(ctx, s.Subject(e), data)
	return err
}

// Connect dials NATS with unlimited reconnects and opens JetStream.
func Connect(cfg *NATSConfig, l logger.Logger) (*nats.Conn, jetstream.JetStream, error) {
	nc, err := nats.Connect(cfg.URL,
		nats.Name("settlement-engine"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				l.Error(err, map[string]interface{}{"component": "nats", "state": "disconnected"})
			}
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			l.Info("nats reconnected", nil)
		}),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("nats connect: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, nil, fmt.Errorf("jetstream: %w", err)
	}
	return nc, js, nil
}

// EnsureStream creates or updates the stream that captures settlement events.
func EnsureStream(ctx context.Context, js jetstream.JetStream, cfg *NATSConfig) error {
	_, err := js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:      cfg.Stream,
		Subjects:  []string{cfg.SubjectPrefix + ".>"},
		Storage:   jetstream.FileStorage,
		Retention: jetstream.LimitsPolicy,
		MaxAge:    cfg.MaxAge,
		Replicas:  1,
	})
	if err != nil {
		return fmt.Errorf("create event stream: %w", err)
	}
	return nil
}
