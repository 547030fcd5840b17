// Package metrics provides Prometheus metrics for trackd — counters and
// histograms for timer operations, start races, and clock anomalies.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ─── Timer Operations ───────────────────────────────────────────────────────

// TimerStarts tracks successful timer starts, labelled by whether the start
// implicitly closed a previous timer ("switch") or began from idle ("fresh").
var TimerStarts = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "trackd",
	Name:      "timer_starts_total",
	Help:      "Total successful timer starts.",
}, []string{"kind"})

// TimerStops tracks stop calls by outcome ("stopped", "noop").
var TimerStops = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "trackd",
	Name:      "timer_stops_total",
	Help:      "Total stop calls.",
}, []string{"outcome"})

// ─── Start Races ────────────────────────────────────────────────────────────

// StartRetries tracks starts that hit the uniqueness constraint and were
// retried internally.
var StartRetries = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "trackd",
	Name:      "start_retries_total",
	Help:      "Starts retried after losing the active-entry race.",
})

// StartConflicts tracks starts whose retry also lost, surfaced to the caller.
var StartConflicts = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "trackd",
	Name:      "start_conflicts_total",
	Help:      "Starts that failed with a conflict after the internal retry.",
})

// ─── Anomalies ──────────────────────────────────────────────────────────────

// ClockAnomalies tracks entries whose end timestamp preceded their start,
// clamped to zero duration instead of stored negative.
var ClockAnomalies = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "trackd",
	Name:      "clock_anomalies_total",
	Help:      "Closed entries clamped to zero duration due to clock skew.",
})

// ─── HTTP ───────────────────────────────────────────────────────────────────

// RequestLatency tracks API request duration in seconds by route.
var RequestLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Namespace: "trackd",
	Name:      "request_latency_seconds",
	Help:      "API request duration in seconds.",
	Buckets:   prometheus.DefBuckets,
}, []string{"route"})
