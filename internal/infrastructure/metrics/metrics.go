// Package metrics defines and registers all custom Prometheus metrics for the
// tracking service. It is the single source of truth for metric names,
// labels, and help strings.
//
// Metrics are registered with the default Prometheus registry on import and
// exposed by the HTTP server at /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "tracking"

// ── Sweep metrics ─────────────────────────────────────────────────────────────

// SweepsTotal counts batch sweeps by outcome.
// Label:
//   - result: "completed", "failed" or "skipped" (another sweep was running)
var SweepsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "sweeps_total",
		Help:      "Total number of batch sweeps, labelled by result.",
	},
	[]string{"result"},
)

// SweepDuration measures a full sweep from pending selection to the last code.
var SweepDuration = promauto.NewHistogram(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "sweep_duration_seconds",
		Help:      "Duration of a batch sweep over all pending tracking codes.",
		Buckets:   []float64{.1, .5, 1, 5, 15, 30, 60, 120, 300},
	},
)

// PendingRecords is the number of non-delivered records selected by the last sweep.
var PendingRecords = promauto.NewGauge(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "pending_records",
		Help:      "Number of non-delivered tracking records selected by the last sweep.",
	},
)

// ── Reconciliation metrics ────────────────────────────────────────────────────

// ReconciliationsTotal counts single-code reconciliations.
// Labels:
//   - trigger: "lookup" or "sweep"
//   - result:  "changed", "unchanged" or "error"
var ReconciliationsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "reconciliations_total",
		Help:      "Total number of tracking code reconciliations.",
	},
	[]string{"trigger", "result"},
)

// ReconciliationDuration measures fetch, normalize and persist for one code.
var ReconciliationDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "reconciliation_duration_seconds",
		Help:      "Duration of a single tracking code reconciliation.",
		Buckets:   prometheus.DefBuckets, // .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10
	},
	[]string{"trigger"},
)

// NotificationsTotal counts downstream notifications.
// Label:
//   - result: "published", "duplicate" or "error"
var NotificationsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "notifications_total",
		Help:      "Total number of tracking change notifications, labelled by result.",
	},
	[]string{"result"},
)

// ── Carrier metrics ───────────────────────────────────────────────────────────

// CacheLookupsTotal counts response cache lookups.
// Label:
//   - result: "hit", "miss" or "error"
var CacheLookupsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "cache_lookups_total",
		Help:      "Total number of carrier response cache lookups, labelled by result.",
	},
	[]string{"result"},
)

// CarrierRequestDuration measures upstream carrier calls.
// Labels:
//   - provider: registered provider name
//   - result:   "ok" or "error"
var CarrierRequestDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "carrier_request_duration_seconds",
		Help:      "Duration of carrier tracking API requests.",
		Buckets:   prometheus.DefBuckets,
	},
	[]string{"provider", "result"},
)
