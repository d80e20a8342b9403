// Package metrics provides Prometheus instrumentation for the swap
// marketplace services. It exposes gauges for catalog and connection counts,
// counters for domain throughput, and histograms for match latency.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// ItemsByStatus tracks the current number of items per lifecycle status.
	ItemsByStatus = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "swaphub_items",
		Help: "Current number of items per lifecycle status",
	}, []string{"status"}) // status = pending, approved, rejected, swapped

	// MatchesComputed counts match computations performed.
	MatchesComputed = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "swaphub_matches_computed_total",
		Help: "Total number of match computations performed",
	})

	// MatchDuration records the duration of a match computation, including
	// the candidate pool fetch.
	MatchDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "swaphub_match_duration_seconds",
		Help:    "Match computation duration in seconds",
		Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
	})

	// OffersTotal counts offers by outcome.
	OffersTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "swaphub_offers_total",
		Help: "Total number of offers processed",
	}, []string{"status"}) // status = created, accepted, rejected

	// PointsAwarded counts points granted through the review workflow.
	PointsAwarded = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "swaphub_points_awarded_total",
		Help: "Total points awarded to users",
	})

	// FeedConnections tracks the current number of realtime feed clients.
	FeedConnections = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "swaphub_feed_connections",
		Help: "Current number of active feed WebSocket connections",
	})

	// NotificationsTotal counts notifications written to user inboxes.
	NotificationsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "swaphub_notifications_total",
		Help: "Total notifications delivered to user inboxes",
	})
)

func init() {
	prometheus.MustRegister(
		ItemsByStatus,
		MatchesComputed,
		MatchDuration,
		OffersTotal,
		PointsAwarded,
		FeedConnections,
		NotificationsTotal,
	)
}

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
