package statemachine

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metric outcome constants.
const (
	outcomeCommitted = "committed"
	outcomeRejected  = "rejected"
	outcomeForced    = "forced"

	effectStarted  = "started"
	effectSkipped  = "skipped"
	effectPanicked = "panicked"
	effectDone     = "done"
)

// Metric definitions with appropriate labels.
var (
	// dispatchTotal counts every processed event by how it ended.
	dispatchTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "statemachine_dispatch_total",
		Help: "Total number of dispatched events by table, state, event and outcome (committed, rejected or forced)",
	}, []string{"table", "state", "event", "outcome"})

	// transitionTotal tracks committed transitions.
	transitionTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "statemachine_transitions_total",
		Help: "Total number of state transitions by table, from_state, to_state and event",
	}, []string{"table", "from_state", "to_state", "event"})

	// effectsTotal tracks effect initiation by outcome.
	effectsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "statemachine_effects_total",
		Help: "Total number of entry effects by table, effect and outcome (started, skipped, panicked)",
	}, []string{"table", "effect", "outcome"})

	// effectDuration tracks how long asynchronous effects run.
	effectDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "statemachine_effect_duration_seconds",
		Help:    "Duration of asynchronous effect execution by effect",
		Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 30},
	}, []string{"effect"})
)

func sanitizeTable(name string) string {
	if name == "" {
		return "unknown"
	}

	return name
}
