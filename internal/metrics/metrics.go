// DHIS2 User Audit - Duplicate Account and Login Activity Auditing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dhis2-user-audit

// Package metrics defines the Prometheus collectors exported on /metrics:
// API traffic, DHIS2 upstream calls, circuit breaker state, fetch caches and
// audit pipeline outcomes.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// API Endpoint Metrics
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
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"method", "endpoint"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "api_active_requests",
			Help: "Current number of active API requests",
		},
	)

	// DHIS2 Upstream Metrics
	DHIS2RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "dhis2_request_duration_seconds",
			Help:    "Duration of DHIS2 API requests in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"endpoint"},
	)

	DHIS2RequestErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dhis2_request_errors_total",
			Help: "Total number of failed DHIS2 API requests",
		},
		[]string{"endpoint", "error_type"},
	)

	DHIS2RateLimitRetries = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "dhis2_rate_limit_retries_total",
			Help: "Total number of retries after DHIS2 answered 429 Too Many Requests",
		},
	)

	DHIS2UnparseableTimestamps = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "dhis2_unparseable_last_login_total",
			Help: "Total number of lastLogin values that could not be parsed and were treated as absent",
		},
	)

	DHIS2Up = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "dhis2_up",
			Help: "Whether the last background probe reached DHIS2 (1) or not (0)",
		},
	)

	// Circuit Breaker Metrics
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_requests_total",
			Help: "Total number of requests through circuit breaker",
		},
		[]string{"name", "result"}, // result: "success", "failure", "rejected"
	)

	CircuitBreakerConsecutiveFailures = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_consecutive_failures",
			Help: "Current number of consecutive failures",
		},
		[]string{"name"},
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_state_transitions_total",
			Help: "Total number of circuit breaker state transitions",
		},
		[]string{"name", "from_state", "to_state"},
	)

	// Fetch Cache Metrics
	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dhis2_cache_hits_total",
			Help: "Total number of DHIS2 fetch cache hits",
		},
		[]string{"resource"},
	)

	CacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dhis2_cache_misses_total",
			Help: "Total number of DHIS2 fetch cache misses",
		},
		[]string{"resource"},
	)

	// Audit Pipeline Metrics
	AuditRunDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "audit_run_duration_seconds",
			Help:    "Duration of audit runs including upstream fetches",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		},
		[]string{"kind"}, // "users", "activity"
	)

	AuditRunErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "audit_run_errors_total",
			Help: "Total number of failed audit runs",
		},
		[]string{"kind"},
	)

	AuditRecordsEnriched = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "audit_records_enriched_total",
			Help: "Total number of user records produced by the enrichment pipeline",
		},
	)

	AuditDuplicateNameRecords = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "audit_duplicate_name_records",
			Help: "Number of records flagged with a duplicate display name in the last user audit",
		},
	)

	AuditAmbiguousCredentials = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "audit_ambiguous_credential_usernames_total",
			Help: "Total number of usernames that matched more than one credential record",
		},
	)

	AuditActiveInRange = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "audit_active_in_range_records",
			Help: "Number of records active in the window of the last activity audit",
		},
	)
)

// RecordAPIRequest records an API request metric
func RecordAPIRequest(method, endpoint, statusCode string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// TrackActiveRequest tracks active API requests
func TrackActiveRequest(inc bool) {
	if inc {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}

// RecordDHIS2Request records the duration and outcome of one DHIS2 call.
// errorType is empty for successful calls.
func RecordDHIS2Request(endpoint string, duration time.Duration, errorType string) {
	DHIS2RequestDuration.WithLabelValues(endpoint).Observe(duration.Seconds())
	if errorType != "" {
		DHIS2RequestErrors.WithLabelValues(endpoint, errorType).Inc()
	}
}

// RecordCacheLookup records a fetch cache hit or miss for resource.
func RecordCacheLookup(resource string, hit bool) {
	if hit {
		CacheHits.WithLabelValues(resource).Inc()
	} else {
		CacheMisses.WithLabelValues(resource).Inc()
	}
}

// RecordAuditRun records one audit run of the given kind.
func RecordAuditRun(kind string, duration time.Duration, err error) {
	AuditRunDuration.WithLabelValues(kind).Observe(duration.Seconds())
	if err != nil {
		AuditRunErrors.WithLabelValues(kind).Inc()
	}
}

// RecordEnrichment records the outcome of one enrichment pass.
func RecordEnrichment(records, duplicateNames, ambiguousUsernames int) {
	AuditRecordsEnriched.Add(float64(records))
	AuditDuplicateNameRecords.Set(float64(duplicateNames))
	AuditAmbiguousCredentials.Add(float64(ambiguousUsernames))
}
