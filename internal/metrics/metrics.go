// Dinemap - Restaurant Guide Cache and Proximity Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dinemap

// Package metrics holds the Prometheus instruments of the service. All
// collectors register with the default registry via promauto and are
// exposed by promhttp on /metrics.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Tiered lookups

	CacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dinemap_cache_lookups_total",
			Help: "Tiered lookups by cache, answering tier and outcome",
		},
		[]string{"cache", "source", "outcome"}, // source: memory|durable|external, outcome: hit|miss
	)

	TierFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dinemap_tier_failures_total",
			Help: "Durable or external calls absorbed as misses",
		},
		[]string{"cache", "tier", "reason"}, // reason: error|timeout|panic
	)

	CacheEntries = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "dinemap_cache_entries",
			Help: "Current number of entries per in-memory namespace",
		},
		[]string{"namespace"},
	)

	// Batch aggregation

	BatchRequests = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "dinemap_batch_requests_total",
			Help: "Batch aggregation calls",
		},
	)

	BatchCacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dinemap_batch_cache_hits_total",
			Help: "Batch entity lookups answered from memory",
		},
		[]string{"kind"},
	)

	BatchCacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dinemap_batch_cache_misses_total",
			Help: "Batch entity lookups sent to the durable store",
		},
		[]string{"kind"},
	)

	BatchKindFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dinemap_batch_kind_failures_total",
			Help: "Attribute kind pipelines that failed and contributed no data",
		},
		[]string{"kind"},
	)

	// Proximity

	ProximityQueries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dinemap_proximity_queries_total",
			Help: "Nearby queries by brand and candidate source",
		},
		[]string{"brand", "source"},
	)

	ProximityResults = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "dinemap_proximity_results",
			Help:    "Number of matches returned per nearby query",
			Buckets: []float64{0, 1, 2, 3, 5, 10, 20},
		},
	)

	// External API

	ExternalRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dinemap_external_requests_total",
			Help: "Calls to the places API by endpoint and result",
		},
		[]string{"endpoint", "result"},
	)

	ExternalRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "dinemap_external_request_duration_seconds",
			Help:    "Latency of places API calls",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint"},
	)

	// Circuit breaker

	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "dinemap_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dinemap_circuit_breaker_requests_total",
			Help: "Requests through the circuit breaker by result",
		},
		[]string{"name", "result"}, // success|failure|rejected
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dinemap_circuit_breaker_transitions_total",
			Help: "Circuit breaker state transitions",
		},
		[]string{"name", "from", "to"},
	)

	// Invalidation and refresh

	Invalidations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dinemap_invalidations_total",
			Help: "Administrative invalidations by scope",
		},
		[]string{"scope"},
	)

	DurableDeletes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dinemap_durable_deletes_total",
			Help: "Durable records removed by invalidation",
		},
		[]string{"collection"},
	)

	RefreshRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dinemap_refresh_runs_total",
			Help: "Review refresh runs by result",
		},
		[]string{"result"},
	)

	RefreshedEntities = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dinemap_refreshed_entities_total",
			Help: "Restaurants processed by the review refresher",
		},
		[]string{"result"},
	)

	// HTTP

	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dinemap_api_requests_total",
			Help: "HTTP requests by method, route and status",
		},
		[]string{"method", "route", "status"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "dinemap_api_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "dinemap_api_active_requests",
			Help: "In-flight HTTP requests",
		},
	)
)

// RecordLookup counts one tiered lookup outcome.
func RecordLookup(cache, source string, hit bool) {
	outcome := "miss"
	if hit {
		outcome = "hit"
	}
	CacheLookups.WithLabelValues(cache, source, outcome).Inc()
}

// RecordTierFailure counts a durable or external failure absorbed as a miss.
func RecordTierFailure(cache, tier, reason string) {
	TierFailures.WithLabelValues(cache, tier, reason).Inc()
}

// RecordExternalRequest records one places API call.
func RecordExternalRequest(endpoint string, duration time.Duration, err error) {
	result := "success"
	if err != nil {
		result = "error"
	}
	ExternalRequests.WithLabelValues(endpoint, result).Inc()
	ExternalRequestDuration.WithLabelValues(endpoint).Observe(duration.Seconds())
}

// RecordAPIRequest records an HTTP request.
func RecordAPIRequest(method, route, status string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, route, status).Inc()
	APIRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// TrackActiveRequest moves the in-flight gauge.
func TrackActiveRequest(inc bool) {
	if inc {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}

// UpdateCacheEntries publishes namespace sizes.
func UpdateCacheEntries(sizes map[string]int) {
	for ns, n := range sizes {
		CacheEntries.WithLabelValues(ns).Set(float64(n))
	}
}
