package events

import (
	"context"

	"github.com/joefazee/settlement/internal/logger"
)

// LogSink writes every event as a structured log line.
type LogSink struct {
	logger logger.Logger
}

func NewLogSink(l logger.Logger) *LogSink {
	return &LogSink{logger: l}
}

func (s *LogSink) Publish(_ context.Context, e Event) {
	props := map[string]interface{}{
		"event": string(e.Type),
		"at":    e.At,
	}
	if e.MarketID != "" {
		props["market_id"] = e.MarketID
	}
	if e.User != "" {
		props["user"] = e.User
	}
	if e.Amount != "" {
		props["amount"] = e.Amount
	}
	for k, v := range e.Data {
		props[k] = v
	}
	s.logger.Info("settlement event", props)
}

// Recorder keeps events in memory. Used by tests and the debug endpoint.
type Recorder struct {
	buf Buffer
}

func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) Publish(_ context.Context, e Event) {
	r.buf.mu.Lock()
	r.buf.events = append(r.buf.events, e)
	r.buf.mu.Unlock()
}

// Events returns a copy of everything recorded so far.
func (r *Recorder) Events() []Event {
	r.buf.mu.Lock()
	defer r.buf.mu.Unlock()
	return append([]Event(nil), r.buf.events...)
}

// OfType returns the recorded events of type t.
func (r *Recorder) OfType(t Type) []Event {
	var out []Event
	for _, e := range r.Events() {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}
