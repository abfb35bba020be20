package observability

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce             sync.Once
	requestsTotal            *prometheus.CounterVec
	latencySeconds           *prometheus.HistogramVec
	errorsTotal              *prometheus.CounterVec
	backendRequestsTotal     *prometheus.CounterVec
	backendLatencySeconds    *prometheus.HistogramVec
	enrichmentFailuresTotal  *prometheus.CounterVec
	progressSyncFailureTotal prometheus.Counter
)

// RegisterMetrics initialises the Prometheus collectors used by the classroom service.
func RegisterMetrics() {
	registerOnce.Do(func() {
		requestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "classroom_requests_total",
			Help: "Total number of classroom API requests served.",
		}, []string{"method", "route", "status"})

		latencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "classroom_latency_seconds",
			Help:    "Latency distribution for classroom API requests.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0},
		}, []string{"method", "route"})

		errorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "classroom_errors_total",
			Help: "Total number of error responses returned by classroom endpoints.",
		}, []string{"method", "route", "status"})

		backendRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "learnapi_requests_total",
			Help: "Requests sent to the learning backend.",
		}, []string{"endpoint", "status"})

		backendLatencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "learnapi_request_seconds",
			Help:    "Latency of learning backend requests.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0, 5.0},
		}, []string{"endpoint"})

		enrichmentFailuresTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "classroom_enrichment_failures_total",
			Help: "Lesson enrichment fetches that degraded to an empty list.",
		}, []string{"kind"})

		progressSyncFailureTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "classroom_progress_sync_failures_total",
			Help: "Lesson completions kept locally after the backend call failed.",
		})

		prometheus.MustRegister(
			requestsTotal,
			latencySeconds,
			errorsTotal,
			backendRequestsTotal,
			backendLatencySeconds,
			enrichmentFailuresTotal,
			progressSyncFailureTotal,
		)
	})
}

// Requests exposes the counter for API requests.
func Requests() *prometheus.CounterVec {
	RegisterMetrics()
	return requestsTotal
}

// Latency exposes the latency histogram for API requests.
func Latency() *prometheus.HistogramVec {
	RegisterMetrics()
	return latencySeconds
}

// Errors exposes the counter for error responses.
func Errors() *prometheus.CounterVec {
	RegisterMetrics()
	return errorsTotal
}

// EnrichmentFailures exposes the counter of degraded lesson enrichments.
func EnrichmentFailures() *prometheus.CounterVec {
	RegisterMetrics()
	return enrichmentFailuresTotal
}

// ProgressSyncFailures exposes the counter of unsynchronised completions.
func ProgressSyncFailures() prometheus.Counter {
	RegisterMetrics()
	return progressSyncFailureTotal
}

// ObserveBackendCall records one learning backend request.
func ObserveBackendCall(endpoint string, status int, elapsed time.Duration) {
	RegisterMetrics()
	label := "error"
	if status > 0 {
		label = strconv.Itoa(status)
	}
	backendRequestsTotal.WithLabelValues(endpoint, label).Inc()
	backendLatencySeconds.WithLabelValues(endpoint).Observe(elapsed.Seconds())
}
