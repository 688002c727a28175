// What2Watch - Movie & TV Discovery Aggregation Backend
// Copyright 2026 What2Watch contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/what2watch/server

// Package metrics provides Prometheus instrumentation for:
//   - API endpoint latency and throughput
//   - Upstream request outcomes and retries
//   - Cache efficiency
//   - Rate limiter rejections
//   - Hidden-gems computation and chat turns
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// API endpoint metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method", "endpoint"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "api_active_requests",
			Help: "Number of API requests currently in flight",
		},
	)

	// Upstream fetch metrics
	UpstreamRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "upstream_requests_total",
			Help: "Total number of upstream HTTP requests by outcome",
		},
		[]string{"host", "outcome"}, // "success", "retryable", "fatal", "timeout"
	)

	UpstreamRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "upstream_request_duration_seconds",
			Help:    "Upstream request duration in seconds (per attempt)",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"host"},
	)

	UpstreamRetriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "upstream_retries_total",
			Help: "Total number of upstream retry attempts",
		},
		[]string{"host"},
	)

	UpstreamBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "upstream_breaker_open",
			Help: "Whether the circuit breaker for a host is open (1) or closed (0)",
		},
		[]string{"host"},
	)

	// Cache metrics
	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_hits_total",
			Help: "Total number of cache hits",
		},
		[]string{"tier"}, // "memory", "persistent"
	)

	CacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_misses_total",
			Help: "Total number of cache misses",
		},
		[]string{"tier"},
	)

	CacheEntries = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "cache_entries",
			Help: "Current number of in-memory cache entries",
		},
	)

	// Rate limiter metrics
	RateLimitRejections = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rate_limit_rejections_total",
			Help: "Total number of requests rejected by the rate limiter",
		},
		[]string{"operation"},
	)

	// Hidden-gems engine metrics
	GemsComputations = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "gems_computations_total",
			Help: "Total number of full hidden-gems recomputations",
		},
	)

	GemsComputationDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "gems_computation_duration_seconds",
			Help:    "Duration of hidden-gems recomputations in seconds",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
	)

	GemsCandidates = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "gems_candidates_surviving_gates",
			Help:    "Number of candidates surviving the hard gates per computation",
			Buckets: []float64{0, 5, 10, 15, 25, 50, 100, 200},
		},
	)

	// Conversation metrics
	ChatTurns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_turns_total",
			Help: "Total number of chat turns by outcome",
		},
		[]string{"outcome"}, // "clarify", "recommend", "detail", "error"
	)

	ChatExtractionFallbacks = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chat_extraction_fallbacks_total",
			Help: "Times the deterministic extractor ran because the model path failed",
		},
	)
)

// RecordAPIRequest records metrics for a completed API request.
func RecordAPIRequest(method, endpoint, statusCode string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// TrackActiveRequest adjusts the in-flight request gauge.
func TrackActiveRequest(start bool) {
	if start {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}

// RecordUpstreamAttempt records a single upstream request attempt.
func RecordUpstreamAttempt(host, outcome string, duration time.Duration) {
	UpstreamRequestsTotal.WithLabelValues(host, outcome).Inc()
	UpstreamRequestDuration.WithLabelValues(host).Observe(duration.Seconds())
}

// SetBreakerOpen records circuit breaker state for a host.
func SetBreakerOpen(host string, open bool) {
	v := 0.0
	if open {
		v = 1.0
	}
	UpstreamBreakerState.WithLabelValues(host).Set(v)
}
