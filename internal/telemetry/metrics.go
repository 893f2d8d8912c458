package telemetry

import (
	"battery-arbitrage/internal/optimizer"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "battery_optimizer_runs_total",
		Help: "Optimisation runs by final state and solver status",
	}, []string{"state", "status"})

	SolveDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "battery_optimizer_solve_seconds",
		Help:    "Wall time of LP solves",
		Buckets: prometheus.ExponentialBuckets(0.005, 2, 14),
	})

	ModelPeriods = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "battery_optimizer_model_periods",
		Help:    "Number of price periods per optimised model",
		Buckets: prometheus.ExponentialBuckets(1, 4, 8),
	})

	ValidationFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "battery_optimizer_validation_failures_total",
		Help: "Requests rejected before any solve, by field",
	}, []string{"field"})

	StoredRuns = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "battery_optimizer_stored_runs",
		Help: "Runs currently held in the run store",
	})
)

// ObserveRun records a finished run.
func ObserveRun(run *optimizer.Run) {
	if run == nil {
		return
	}
	RunsTotal.WithLabelValues(string(run.State), string(run.Status)).Inc()
	SolveDuration.Observe(run.SolveDuration.Seconds())
	ModelPeriods.Observe(float64(run.Periods))
}
