package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.ObserveOperation("claim", "ok", 5*time.Millisecond)
	m.ObserveOperation("claim", "ALREADY_CLAIMED", time.Millisecond)
	m.GuardRejected()
	m.OracleFellBack("primary")
	m.EventDropped("nats")
	m.BudgetOverrun("sweep")
	m.Moved("payout", decimal.NewFromInt(270))
	m.Moved("payout", decimal.Zero)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.Operations.WithLabelValues("claim", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Operations.WithLabelValues("claim", "ALREADY_CLAIMED")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.GuardRejections))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.OracleFallbacks.WithLabelValues("primary")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.EventsDropped.WithLabelValues("nats")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.BudgetExceeded.WithLabelValues("sweep")))
	assert.Equal(t, 270.0, testutil.ToFloat64(m.AmountMoved.WithLabelValues("payout")))
}

func TestNilMetrics(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveOperation("stake", "ok", time.Millisecond)
		m.GuardRejected()
		m.EventPublished("market.staked")
		m.Moved("stake", decimal.NewFromInt(1))
		m.ObserveHTTP("/healthz", "200", time.Millisecond)
	})
}
