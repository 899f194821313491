// Package metrics exposes the Prometheus registry of the cache service.
// Cache and rate limit metrics are defined in their own packages
// (pkg/cache, pkg/ratelimit, internal/retry) and registered via promauto;
// this package serves them and adds HTTP request metrics for the server.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry is the default Prometheus registry used by the cache service.
var Registry = prometheus.DefaultRegisterer

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_http_requests_total",
			Help: "Total HTTP requests served by route and status",
		},
		[]string{"route", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cache_http_request_duration_seconds",
			Help:    "HTTP request duration by route",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route"},
	)
)

// Handler serves the default registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Instrument records request count and duration for next under route.
func Instrument(route string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		httpRequestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
		httpRequestsTotal.WithLabelValues(route, strconv.Itoa(rec.status)).Inc()
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// Metrics Documentation
//
// Cache Metrics (pkg/cache):
//   - cache_hits_total{backend} (Counter): Cache hits by backend
//   - cache_misses_total{backend} (Counter): Cache misses by backend
//   - cache_errors_total{backend, operation} (Counter): Backend operation errors
//   - cache_entries{kind} (Gauge): Embedded store size after the last sweep (kind = cache | rate_limit)
//   - cache_sweep_removed_total{kind} (Counter): Entries removed by the embedded sweeper
//   - cache_rate_limit_increments_total{backend} (Counter): Rate limit counter increments
//
// Retry Metrics (internal/retry):
//   - cache_retries_total{operation} (Counter): Retry attempts by operation
//   - cache_retry_exhausted_total{operation} (Counter): Operations that exhausted their retries
//
// Limiter Metrics (pkg/ratelimit):
//   - rate_limit_allowed_total{limiter} (Counter): Attempts admitted
//   - rate_limit_blocks_total{limiter} (Counter): Attempts blocked
//   - rate_limit_errors_total{limiter} (Counter): Decisions that failed on the store
//
// HTTP Metrics (pkg/metrics):
//   - cache_http_requests_total{route, status} (Counter): Requests served
//   - cache_http_request_duration_seconds{route} (Histogram): Request duration
//
// Example Prometheus Queries:
//
//   # Cache Hit Rate
//   sum(rate(cache_hits_total[5m])) /
//   (sum(rate(cache_hits_total[5m])) + sum(rate(cache_misses_total[5m])))
//
//   # Block Rate per Limiter
//   rate(rate_limit_blocks_total[5m]) /
//   (rate(rate_limit_allowed_total[5m]) + rate(rate_limit_blocks_total[5m]))
//
//   # Shared Store Errors
//   sum by (operation) (rate(cache_errors_total{backend="redis"}[5m]))
