package proxy

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// proxyMetrics contains Prometheus metrics for proxy operations.
type proxyMetrics struct {
	errorsTotal     *prometheus.CounterVec
	backendDuration *prometheus.HistogramVec
}

var (
	proxyMetricsInstance *proxyMetrics
	proxyMetricsOnce     sync.Once
)

func getProxyMetrics() *proxyMetrics {
	proxyMetricsOnce.Do(func() {
		proxyMetricsInstance = &proxyMetrics{
			errorsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Namespace: "apimanager",
					Subsystem: "proxy",
					Name:      "errors_total",
					Help:      "Total number of backend call failures",
				},
				[]string{"backend", "error_type"},
			),
			backendDuration: promauto.NewHistogramVec(
				prometheus.HistogramOpts{
					Namespace: "apimanager",
					Subsystem: "proxy",
					Name:      "backend_duration_seconds",
					Help:      "Duration of backend calls",
					Buckets: []float64{
						.001, .005, .01, .025,
						.05, .1, .25, .5,
						1, 2.5, 5, 10,
					},
				},
				[]string{"backend"},
			),
		}
	})
	return proxyMetricsInstance
}
