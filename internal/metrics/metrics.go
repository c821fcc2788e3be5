package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/shopspring/decimal"
)

// Metrics holds the Prometheus collectors of the settlement engine. A nil
// *Metrics is valid and records nothing.
type Metrics struct {
	Operations        *prometheus.CounterVec
	OperationDuration *prometheus.HistogramVec
	GuardRejections   prometheus.Counter
	OracleFallbacks   *prometheus.CounterVec
	OracleFailures    *prometheus.CounterVec
	EventsPublished   *prometheus.CounterVec
	EventsDropped     *prometheus.CounterVec
	BudgetExceeded    *prometheus.CounterVec
	AmountMoved       *prometheus.CounterVec
	HTTPRequests      *prometheus.CounterVec
	HTTPDuration      *prometheus.HistogramVec
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Operations: f.NewCounterVec(prometheus.CounterOpts{
			Name: "settlement_operations_total",
			Help: "Engine operations by name and failure kind",
		}, []string{"op", "result"}),

		OperationDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "settlement_operation_duration_seconds",
			Help:    "Wall time of one engine operation including commit",
			Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}, []string{"op"}),

		GuardRejections: f.NewCounter(prometheus.CounterOpts{
			Name: "settlement_reentrancy_rejections_total",
			Help: "Nested calls rejected while a transfer was in flight",
		}),

		OracleFallbacks: f.NewCounterVec(prometheus.CounterOpts{
			Name: "settlement_oracle_fallbacks_total",
			Help: "Primary price source failures answered by the backup",
		}, []string{"source"}),

		OracleFailures: f.NewCounterVec(prometheus.CounterOpts{
			Name: "settlement_oracle_failures_total",
			Help: "Price lookups that failed on every source",
		}, []string{"source"}),

		EventsPublished: f.NewCounterVec(prometheus.CounterOpts{
			Name: "settlement_events_published_total",
			Help: "Events delivered to the outbound stream",
		}, []string{"type"}),

		EventsDropped: f.NewCounterVec(prometheus.CounterOpts{
			Name: "settlement_events_dropped_total",
			Help: "Events dropped because a sink queue was full",
		}, []string{"sink"}),

		BudgetExceeded: f.NewCounterVec(prometheus.CounterOpts{
			Name: "settlement_budget_exceeded_total",
			Help: "Operations whose reported cost exceeded the configured ceiling",
		}, []string{"op"}),

		AmountMoved: f.NewCounterVec(prometheus.CounterOpts{
			Name: "settlement_amount_moved_total",
			Help: "Units moved by kind (stake, payout, fee, refund, sweep)",
		}, []string{"kind"}),

		HTTPRequests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "settlement_http_requests_total",
			Help: "HTTP requests by route and status",
		}, []string{"route", "status"}),

		HTTPDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "settlement_http_request_duration_seconds",
			Help:    "HTTP request latency by route",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
	}
}

// ObserveOperation records the outcome and duration of an engine operation.
// result is "ok" or a failure kind.
func (m *Metrics) ObserveOperation(op, result string, d time.Duration) {
	if m == nil {
		return
	}
	m.Operations.WithLabelValues(op, result).Inc()
	m.OperationDuration.WithLabelValues(op).Observe(d.Seconds())
}

func (m *Metrics) GuardRejected() {
	if m == nil {
		return
	}
	m.GuardRejections.Inc()
}

func (m *Metrics) OracleFellBack(source string) {
	if m == nil {
		return
	}
	m.OracleFallbacks.WithLabelValues(source).Inc()
}

func (m *Metrics) OracleFailed(source string) {
	if m == nil {
		return
	}
	m.OracleFailures.WithLabelValues(source).Inc()
}

func (m *Metrics) EventPublished(eventType string) {
	if m == nil {
		return
	}
	m.EventsPublished.WithLabelValues(eventType).Inc()
}

func (m *Metrics) EventDropped(sink string) {
	if m == nil {
		return
	}
	m.EventsDropped.WithLabelValues(sink).Inc()
}

func (m *Metrics) BudgetOverrun(op string) {
	if m == nil {
		return
	}
	m.BudgetExceeded.WithLabelValues(op).Inc()
}

// Moved adds amount to the per-kind volume counter.
func (m *Metrics) Moved(kind string, amount decimal.Decimal) {
	if m == nil || !amount.IsPositive() {
		return
	}
	m.AmountMoved.WithLabelValues(kind).Add(amount.InexactFloat64())
}

func (m *Metrics) ObserveHTTP(route, status string, d time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequests.WithLabelValues(route, status).Inc()
	m.HTTPDuration.WithLabelValues(route).Observe(d.Seconds())
}
