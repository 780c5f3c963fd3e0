// Package metrics holds the Prometheus instrumentation for Activity Architect.
// Collectors register with the default registry on package load; the server
// exposes them on /metrics.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Matching engine
	MatchQueries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "architect_match_queries_total",
			Help: "Total match queries by result state",
		},
		[]string{"state"},
	)

	MatchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "architect_match_duration_seconds",
			Help:    "Time spent filtering the catalog for one query",
			Buckets: []float64{.0001, .0005, .001, .005, .01, .05, .1, .5},
		},
	)

	MatchResultSize = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "architect_match_result_size",
			Help:    "Number of activities returned by a match query",
			Buckets: prometheus.ExponentialBuckets(1, 2, 10),
		},
	)

	// Session mutations
	OverrideEdits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "architect_override_edits_total",
			Help: "Total dimension overrides written",
		},
	)

	OverrideResets = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "architect_override_resets_total",
			Help: "Total times all overrides were cleared",
		},
	)

	CustomActivities = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "architect_custom_activities_total",
			Help: "Total custom activities added",
		},
	)

	CatalogSize = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "architect_catalog_size",
			Help: "Entries in the loaded catalog",
		},
		[]string{"kind"}, // "dimensions", "activities"
	)

	CatalogReloads = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "architect_catalog_reloads_total",
			Help: "Catalog file reloads by outcome",
		},
		[]string{"status"},
	)

	// Storage
	StoreOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "architect_store_operations_total",
			Help: "Store operations by name and outcome",
		},
		[]string{"operation", "status"},
	)

	BreakerState = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "architect_store_breaker_state",
			Help: "Store circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
	)

	// HTTP
	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "architect_http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	HTTPDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "architect_http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	WebSocketClients = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "architect_websocket_clients",
			Help: "Connected session websocket clients",
		},
	)
)

// RecordMatch records one match query.
func RecordMatch(state string, results int, duration time.Duration) {
	MatchQueries.WithLabelValues(state).Inc()
	MatchDuration.Observe(duration.Seconds())
	MatchResultSize.Observe(float64(results))
}

// RecordStoreOperation counts a store call as ok or error.
func RecordStoreOperation(operation string, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	StoreOperations.WithLabelValues(operation, status).Inc()
}

// RecordHTTPRequest records a completed request.
func RecordHTTPRequest(method, route string, status int, duration time.Duration) {
	HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	HTTPDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// SetCatalogSize publishes the loaded catalog's dimensions and activities.
func SetCatalogSize(dimensions, activities int) {
	CatalogSize.WithLabelValues("dimensions").Set(float64(dimensions))
	CatalogSize.WithLabelValues("activities").Set(float64(activities))
}
