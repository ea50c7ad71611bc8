package apikey

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds API key resolution metrics.
type Metrics struct {
	resolutions *prometheus.CounterVec
}

var (
	sharedMetrics     *Metrics
	sharedMetricsOnce sync.Once
)

// GetSharedMetrics returns the singleton Metrics instance.
func GetSharedMetrics() *Metrics {
	sharedMetricsOnce.Do(func() {
		sharedMetrics = &Metrics{
			resolutions: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Namespace: "apimanager",
					Subsystem: "apikey",
					Name:      "resolutions_total",
					Help:      "Total number of API key resolutions by source",
				},
				[]string{"source"},
			),
		}
		for _, s := range []Source{SourceQuery, SourceHeader, SourceDefault, SourceNone} {
			sharedMetrics.resolutions.WithLabelValues(string(s))
		}
	})
	return sharedMetrics
}
