package middleware

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// MiddlewareMetrics holds Prometheus metrics for middleware operations.
type MiddlewareMetrics struct {
	requestDuration   *prometheus.HistogramVec
	rateLimitRejected prometheus.Counter
	panicsRecovered   prometheus.Counter
}

var (
	middlewareMetrics     *MiddlewareMetrics
	middlewareMetricsOnce sync.Once
)

// GetMiddlewareMetrics returns the singleton middleware metrics instance.
func GetMiddlewareMetrics() *MiddlewareMetrics {
	middlewareMetricsOnce.Do(func() {
		middlewareMetrics = &MiddlewareMetrics{
			requestDuration: promauto.NewHistogramVec(
				prometheus.HistogramOpts{
					Namespace: "apimanager",
					Subsystem: "http",
					Name:      "request_duration_seconds",
					Help:      "Duration of inbound requests",
					Buckets:   prometheus.DefBuckets,
				},
				[]string{"method", "status_class"},
			),
			rateLimitRejected: promauto.NewCounter(
				prometheus.CounterOpts{
					Namespace: "apimanager",
					Subsystem: "middleware",
					Name:      "rate_limit_rejected_total",
					Help:      "Total number of requests rejected by the rate limiter",
				},
			),
			panicsRecovered: promauto.NewCounter(
				prometheus.CounterOpts{
					Namespace: "apimanager",
					Subsystem: "middleware",
					Name:      "panics_recovered_total",
					Help:      "Total number of recovered handler panics",
				},
			),
		}
	})
	return middlewareMetrics
}
