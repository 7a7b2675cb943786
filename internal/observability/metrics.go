// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Ledger metrics
	OperationsTotal   *prometheus.CounterVec
	OperationErrors   *prometheus.CounterVec
	InvestmentsTotal  prometheus.Counter
	InvestedAmount    prometheus.Counter
	UnitsTransferred  prometheus.Counter
	TranchesCreated   prometheus.Counter
	TranchesCancelled prometheus.Counter

	// Distribution metrics
	DistributionsCreated prometheus.Counter
	DistributedAmount    prometheus.Counter
	ClaimsTotal          prometheus.Counter
	ClaimedAmount        prometheus.Counter
	UnclaimedSwept       prometheus.Counter
	RefundsClaimed       prometheus.Counter

	// Latency metrics
	OperationLatency *prometheus.HistogramVec
	HTTPLatency      *prometheus.HistogramVec

	// Event feed metrics
	EventsPublished prometheus.Counter
	WSClients       prometheus.Gauge

	// Database metrics
	DBQueryDuration *prometheus.HistogramVec
	DBQueryErrors   *prometheus.CounterVec

	// Health metrics
	LastSequence  prometheus.Gauge
	UptimeSeconds prometheus.Counter
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "revora"
	}

	return &Metrics{
		// Ledger metrics
		OperationsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "operations_total",
			Help:      "Total number of ledger operations by op",
		}, []string{"op"}),
		OperationErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "operation_errors_total",
			Help:      "Total number of rejected operations by op and reason",
		}, []string{"op", "reason"}),
		InvestmentsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "investments_total",
			Help:      "Total number of accepted investments",
		}),
		InvestedAmount: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "invested_amount_total",
			Help:      "Total payment amount accepted across all tranches",
		}),
		UnitsTransferred: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "units_transferred_total",
			Help:      "Total ownership units moved between holders",
		}),
		TranchesCreated: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "tranches_created_total",
			Help:      "Total number of tranches created",
		}),
		TranchesCancelled: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "tranches_cancelled_total",
			Help:      "Total number of tranches closed as cancelled",
		}),

		// Distribution metrics
		DistributionsCreated: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "distribution",
			Name:      "created_total",
			Help:      "Total number of revenue distributions created",
		}),
		DistributedAmount: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "distribution",
			Name:      "distributed_amount_total",
			Help:      "Total payment amount deposited into distributions",
		}),
		ClaimsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "distribution",
			Name:      "claims_total",
			Help:      "Total number of successful claims",
		}),
		ClaimedAmount: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "distribution",
			Name:      "claimed_amount_total",
			Help:      "Total payment amount paid out to claimants",
		}),
		UnclaimedSwept: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "distribution",
			Name:      "unclaimed_swept_total",
			Help:      "Total unclaimed amount swept back after deadlines",
		}),
		RefundsClaimed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "distribution",
			Name:      "refunds_claimed_total",
			Help:      "Total refund amount paid out for cancelled tranches",
		}),

		// Latency metrics
		OperationLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "operation_latency_seconds",
			Help:      "Ledger operation latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"op"}),
		HTTPLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_latency_seconds",
			Help:      "HTTP request latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),

		// Event feed metrics
		EventsPublished: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "events",
			Name:      "published_total",
			Help:      "Total number of events published to the feed",
		}),
		WSClients: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "events",
			Name:      "ws_clients",
			Help:      "Current number of connected WebSocket subscribers",
		}),

		// Database metrics
		DBQueryDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_duration_seconds",
			Help:      "Database query duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"database", "operation"}),
		DBQueryErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_errors_total",
			Help:      "Total number of database query errors",
		}, []string{"database", "operation"}),

		// Health metrics
		LastSequence: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_sequence",
			Help:      "Highest operation sequence number applied",
		}),
		UptimeSeconds: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "uptime_seconds_total",
			Help:      "Total uptime in seconds",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordOperation increments the operation counter and records latency.
func RecordOperation(op string, seconds float64) {
	DefaultMetrics.OperationsTotal.WithLabelValues(op).Inc()
	DefaultMetrics.OperationLatency.WithLabelValues(op).Observe(seconds)
}

// RecordOperationError records a rejected operation.
func RecordOperationError(op, reason string) {
	DefaultMetrics.OperationErrors.WithLabelValues(op, reason).Inc()
}

// RecordInvestment records one accepted investment.
func RecordInvestment(amount uint64) {
	DefaultMetrics.InvestmentsTotal.Inc()
	DefaultMetrics.InvestedAmount.Add(float64(amount))
}

// RecordClaim records one successful claim.
func RecordClaim(amount uint64) {
	DefaultMetrics.ClaimsTotal.Inc()
	DefaultMetrics.ClaimedAmount.Add(float64(amount))
}

// RecordDBQuery records database query metrics.
func RecordDBQuery(database, operation string, seconds float64, err error) {
	DefaultMetrics.DBQueryDuration.WithLabelValues(database, operation).Observe(seconds)
	if err != nil {
		DefaultMetrics.DBQueryErrors.WithLabelValues(database, operation).Inc()
	}
}
