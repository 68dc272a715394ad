// internal/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "storyline"

// Access path
var (
	AccessDecisionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "access_decisions_total",
			Help:      "Chapter access decisions by reason code",
		},
		[]string{"reason"},
	)

	// AccessCheckFailuresTotal counts access checks that failed or timed out
	// and were treated as a negative result. The check label names the source,
	// so registry outages and ledger outages stay apart.
	AccessCheckFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "access_check_failures_total",
			Help:      "Access checks degraded to false after an error",
		},
		[]string{"check"},
	)

	ChainCallDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "chain_call_duration_seconds",
			Help:      "Registry read latency",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
		},
		[]string{"method"},
	)
)

// Ledger and licensing
var (
	UnlocksRecordedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "unlocks_recorded_total",
			Help:      "Unlock writes by kind (free/paid) and result (created/duplicate)",
		},
		[]string{"kind", "result"},
	)

	InheritanceAnalysesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "inheritance_analyses_total",
			Help:      "License inheritance analyses by outcome",
		},
		[]string{"outcome"},
	)

	PaymentIntentsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payment_intents_total",
			Help:      "Stripe unlock payment intents by status",
		},
		[]string{"status"},
	)
)

func RecordUnlock(isFree, created bool) {
	kind := "paid"
	if isFree {
		kind = "free"
	}
	result := "duplicate"
	if created {
		result = "created"
	}
	UnlocksRecordedTotal.WithLabelValues(kind, result).Inc()
}
