// MindCanvas Insights - SaaS Usage Analytics and Account Health Dashboard
// Copyright 2026 MindCanvas Labs
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package metrics provides Prometheus instrumentation for the Insights
// service: store query performance, fallback usage, degraded-check counts,
// API latency, cache efficiency, and advisor call outcomes. Metrics are
// exposed at /metrics in Prometheus text format.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Store metrics
	StoreQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "duckdb_query_duration_seconds",
			Help:    "Duration of DuckDB queries in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation", "collection"},
	)

	StoreQueryErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "duckdb_query_errors_total",
			Help: "Total number of DuckDB query errors",
		},
		[]string{"operation", "collection"},
	)

	// StoreFallbacks counts filtered queries that fell back to
	// fetch-by-entity plus in-memory filtering.
	StoreFallbacks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "store_query_fallbacks_total",
			Help: "Total number of queries served via the in-memory filter fallback",
		},
		[]string{"collection"},
	)

	// Analytics metrics
	DegradedChecks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "analytics_degraded_checks_total",
			Help: "Total number of sub-queries substituted with neutral defaults",
		},
		[]string{"component", "reason"},
	)

	// API metrics
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
			Help: "Current number of active API requests",
		},
	)

	// Cache metrics
	CacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "analytics_cache_hits_total",
			Help: "Total number of analytics cache hits",
		},
	)

	CacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "analytics_cache_misses_total",
			Help: "Total number of analytics cache misses",
		},
	)

	CacheEntries = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "analytics_cache_entries",
			Help: "Current number of cached analytics responses",
		},
	)

	// Advisor metrics
	AdvisorCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "advisor_llm_calls_total",
			Help: "Total number of advisor LLM calls by outcome",
		},
		[]string{"outcome"}, // "success", "error", "breaker_open", "parse_error"
	)

	AdvisorCallDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "advisor_llm_call_duration_seconds",
			Help:    "Duration of advisor LLM calls in seconds",
			Buckets: []float64{0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
	)

	// AdvisorBreakerState reports the circuit breaker state:
	// 0=closed, 1=half-open, 2=open.
	AdvisorBreakerState = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "advisor_breaker_state",
			Help: "Advisor circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
	)
)

// ObserveStoreQuery records the duration and outcome of one store query.
func ObserveStoreQuery(operation, collection string, start time.Time, err error) {
	StoreQueryDuration.WithLabelValues(operation, collection).Observe(time.Since(start).Seconds())
	if err != nil {
		StoreQueryErrors.WithLabelValues(operation, collection).Inc()
	}
}

// ObserveAPIRequest records one completed HTTP request.
func ObserveAPIRequest(method, endpoint string, statusCode int, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, strconv.Itoa(statusCode)).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}
