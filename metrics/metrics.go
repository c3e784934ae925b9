// Package metrics defines the Prometheus collectors exported at /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "taskvault_http_requests_total",
			Help: "Total number of HTTP requests handled",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "taskvault_http_request_duration_seconds",
			Help:    "Time taken to handle HTTP requests",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	LoginAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "taskvault_login_attempts_total",
			Help: "Total number of login attempts",
		},
		[]string{"outcome"},
	)

	TaskOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "taskvault_task_operations_total",
			Help: "Total number of task storage operations",
		},
		[]string{"operation"},
	)

	RateLimited = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "taskvault_rate_limited_requests_total",
			Help: "Total number of requests rejected by rate limiting",
		},
	)
)
