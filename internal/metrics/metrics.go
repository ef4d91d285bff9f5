// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ReconcileDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "attendboard",
		Name:      "reconcile_duration_seconds",
		Help:      "Duration of one reconciliation pass.",
		Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 8),
	}, []string{"view"})

	ReconciledStudents = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "attendboard",
		Name:      "reconciled_students",
		Help:      "Canonical states produced by the latest pass.",
	}, []string{"view"})

	TimeParseFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "attendboard",
		Name:      "time_parse_failures_total",
		Help:      "Attendance time fields dropped because they could not be parsed.",
	}, []string{"field"})

	StaleResults = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "attendboard",
		Name:      "dashboard_stale_results_total",
		Help:      "Dashboard fetches discarded because a newer fetch had started.",
	})

	FetchErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "attendboard",
		Name:      "fetch_errors_total",
		Help:      "Failed snapshot fetches by kind.",
	}, []string{"kind"})

	RateLimited = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "attendboard",
		Name:      "rate_limited_requests_total",
		Help:      "Requests rejected by the rate limiter.",
	})

	CheckIns = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "attendboard",
		Name:      "checkins_processed_total",
		Help:      "Check-in messages handled by the worker by outcome.",
	}, []string{"outcome"})
)

// ObservePass records one reconciliation pass.
func ObservePass(view string, elapsed time.Duration, students int) {
	ReconcileDuration.WithLabelValues(view).Observe(elapsed.Seconds())
	ReconciledStudents.WithLabelValues(view).Set(float64(students))
}

// ParseFailure counts a dropped time field.
func ParseFailure(field string) {
	TimeParseFailures.WithLabelValues(field).Inc()
}
