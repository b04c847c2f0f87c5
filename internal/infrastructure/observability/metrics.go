package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sony/gobreaker/v2"
)

// Metrics holds all application metrics
type Metrics struct {
	// Checkout metrics
	CheckoutInitiations *prometheus.CounterVec
	CheckoutOutcomes    *prometheus.CounterVec
	CheckoutDuration    *prometheus.HistogramVec
	PendingCheckouts    prometheus.Gauge
	DroppedCallbacks    *prometheus.CounterVec
	RecordRetries       *prometheus.CounterVec

	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Circuit breaker metrics
	CircuitBreakerState    *prometheus.GaugeVec
	CircuitBreakerRequests *prometheus.CounterVec

	// Stream metrics
	StreamMessagesPublished *prometheus.CounterVec
	OutboxEntries           *prometheus.CounterVec

	IdempotentReplays prometheus.Counter
}

// NewMetrics creates and registers all metrics against the given registry.
// If reg is nil, prometheus.DefaultRegisterer is used.
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := prometheus.WrapRegistererWith(nil, reg)

	m := &Metrics{
		CheckoutInitiations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "checkout_initiations_total",
				Help:      "Total number of checkout initiations by result",
			},
			[]string{"result"},
		),
		CheckoutOutcomes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "checkout_outcomes_total",
				Help:      "Total number of settled checkouts by status",
			},
			[]string{"status"},
		),
		CheckoutDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "checkout_duration_seconds",
				Help:      "Time from dispatch to settlement in seconds",
				Buckets:   []float64{0.5, 1, 5, 15, 30, 60, 120, 300, 600},
			},
			[]string{"status"},
		),
		PendingCheckouts: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "pending_checkouts",
				Help:      "Number of checkouts awaiting a provider verdict",
			},
		),
		DroppedCallbacks: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "dropped_callbacks_total",
				Help:      "Provider callbacks that matched no pending checkout",
			},
			[]string{"kind"},
		),
		RecordRetries: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "outcome_record_retries_total",
				Help:      "Retries while persisting checkout outcomes",
			},
			[]string{"operation"},
		),
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		CircuitBreakerState: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "circuit_breaker_state",
				Help:      "Circuit breaker state (0=closed, 1=half-open, 2=open)",
			},
			[]string{"name"},
		),
		CircuitBreakerRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "circuit_breaker_requests_total",
				Help:      "Total number of circuit breaker requests",
			},
			[]string{"name", "result"},
		),
		StreamMessagesPublished: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "stream_messages_published_total",
				Help:      "Messages published to redis streams",
			},
			[]string{"stream", "status"},
		),
		OutboxEntries: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "outbox_entries_total",
				Help:      "Outbox entries processed by result (published, retry, failed)",
			},
			[]string{"result"},
		),
		IdempotentReplays: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "idempotent_replays_total",
				Help:      "Responses replayed for a repeated Idempotency-Key",
			},
		),
	}

	factory.MustRegister(
		m.CheckoutInitiations,
		m.CheckoutOutcomes,
		m.CheckoutDuration,
		m.PendingCheckouts,
		m.DroppedCallbacks,
		m.RecordRetries,
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.CircuitBreakerState,
		m.CircuitBreakerRequests,
		m.StreamMessagesPublished,
		m.OutboxEntries,
		m.IdempotentReplays,
	)

	return m
}

// ObserveBreaker records a circuit breaker transition. It matches the
// providers.StateListener signature.
func (m *Metrics) ObserveBreaker(name string, _, to gobreaker.State) {
	var v float64
	switch to {
	case gobreaker.StateHalfOpen:
		v = 1
	case gobreaker.StateOpen:
		v = 2
	}
	m.CircuitBreakerState.WithLabelValues(name).Set(v)
}
