package watchdog

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	SweepsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "norug_watchdog_sweeps_total",
			Help: "Watchdog sweeps, by outcome.",
		},
		[]string{"status"},
	)

	SweepDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "norug_watchdog_sweep_duration_seconds",
			Help:    "Duration of watchdog sweeps in seconds.",
			Buckets: prometheus.DefBuckets,
		},
	)

	EpochsClosedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "norug_watchdog_epochs_closed_total",
			Help: "Epochs closed by the watchdog.",
		},
	)
)
