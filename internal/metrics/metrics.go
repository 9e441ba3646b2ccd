// Package metrics exposes the pool's Prometheus collectors. Collectors are
// registered on the default registry at init and served by promhttp.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/josh-kwaku/capital-pool/internal/domain"
)

const namespace = "capital_pool"

var PoolInvested = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: namespace,
	Subsystem: "pool",
	Name:      "invested",
	Help:      "Sum of principal over active investments.",
})

var PoolCommitted = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: namespace,
	Subsystem: "pool",
	Name:      "committed",
	Help:      "Sum of principal over pending and active loans.",
})

var PoolAvailable = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: namespace,
	Subsystem: "pool",
	Name:      "available",
	Help:      "Headroom under the utilization threshold.",
})

var PoolUtilization = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: namespace,
	Subsystem: "pool",
	Name:      "utilization_ratio",
	Help:      "Committed over invested capital.",
})

var PoolActiveInvestors = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: namespace,
	Subsystem: "pool",
	Name:      "active_investors",
	Help:      "Distinct owners holding an active investment.",
})

var PoolQueuedLoans = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: namespace,
	Subsystem: "pool",
	Name:      "queued_loans",
	Help:      "Loans waiting in the FIFO queue.",
})

// LoanTransitions counts loan lifecycle moves by outcome: admitted, queued,
// approved, demoted, promoted, rejected, paid, deleted.
var LoanTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Subsystem: "loans",
	Name:      "transitions_total",
	Help:      "Loan state transitions by outcome.",
}, []string{"outcome"})

var LedgerTransactions = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Subsystem: "ledger",
	Name:      "transactions_total",
	Help:      "Ledger transactions committed, by kind.",
}, []string{"kind"})

// AccrualRuns counts accrual invocations by result: committed, noop, busy,
// failed.
var AccrualRuns = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Subsystem: "accrual",
	Name:      "runs_total",
	Help:      "Accrual batch runs by result.",
}, []string{"result"})

var AccrualAdvanced = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Subsystem: "accrual",
	Name:      "advanced_total",
	Help:      "Checkpoints advanced by accrual, by entity.",
}, []string{"entity"})

var AccrualDuration = promauto.NewHistogram(prometheus.HistogramOpts{
	Namespace: namespace,
	Subsystem: "accrual",
	Name:      "duration_seconds",
	Help:      "Wall time of one accrual batch.",
	Buckets:   prometheus.DefBuckets,
})

var QueueReconcileFailures = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: namespace,
	Subsystem: "queue",
	Name:      "reconcile_failures_total",
	Help:      "Queue reconciliations that rolled back.",
})

var HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Subsystem: "http",
	Name:      "requests_total",
	Help:      "HTTP requests by method, route pattern and status code.",
}, []string{"method", "route", "status"})

var HTTPDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Namespace: namespace,
	Subsystem: "http",
	Name:      "request_duration_seconds",
	Help:      "HTTP request latency by route pattern.",
	Buckets:   prometheus.DefBuckets,
}, []string{"method", "route"})

// ObservePool publishes a pool snapshot to the gauges.
func ObservePool(s domain.PoolStatus) {
	PoolInvested.Set(s.Invested.InexactFloat64())
	PoolCommitted.Set(s.Committed.InexactFloat64())
	PoolAvailable.Set(s.Available.InexactFloat64())
	PoolUtilization.Set(s.Utilization.InexactFloat64())
	PoolActiveInvestors.Set(float64(s.ActiveInvestors))
	PoolQueuedLoans.Set(float64(s.QueuedLoans))
}

func RecordTransaction(kind domain.TransactionKind) {
	LedgerTransactions.WithLabelValues(string(kind)).Inc()
}

func RecordLoan(outcome string) {
	LoanTransitions.WithLabelValues(outcome).Inc()
}
