// Package metrics exposes Prometheus instrumentation for the ledger engine.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/norugfun/ledger/ledger/pkg/protocol"
)

var (
	OperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "norug_ledger_operations_total",
			Help: "Ledger operations executed, by operation and outcome.",
		},
		[]string{"op", "outcome"},
	)

	OperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "norug_ledger_operation_duration_seconds",
			Help:    "Ledger operation latency in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"op"},
	)

	FeeLamportsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "norug_ledger_treasury_fee_lamports_total",
			Help: "Lamports routed into treasury sub-accounts, by category.",
		},
		[]string{"category"},
	)

	SupportVolumeLamports = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "norug_ledger_support_volume_lamports_total",
			Help: "Gross lamports contributed through support operations.",
		},
	)
)

// ObserveOperation records one engine operation. The outcome label is "ok"
// for success, otherwise the protocol error kind.
func ObserveOperation(op string, err error, d time.Duration) {
	outcome := "ok"
	if err != nil {
		outcome = protocol.KindOf(err).String()
	}
	OperationsTotal.WithLabelValues(op, outcome).Inc()
	OperationDuration.WithLabelValues(op).Observe(d.Seconds())
}

// ObserveFeeSplit records a support fee routed into the treasury.
func ObserveFeeSplit(split protocol.FeeSplit) {
	FeeLamportsTotal.WithLabelValues(string(protocol.CategoryMarketing)).Add(float64(split.Marketing))
	FeeLamportsTotal.WithLabelValues(string(protocol.CategoryTeam)).Add(float64(split.Team))
	FeeLamportsTotal.WithLabelValues(string(protocol.CategoryOperations)).Add(float64(split.Operations))
	FeeLamportsTotal.WithLabelValues(string(protocol.CategoryInvestments)).Add(float64(split.Investments))
	FeeLamportsTotal.WithLabelValues(string(protocol.CategoryCrank)).Add(float64(split.Crank))
}
