package router

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	outcomeMatched   = "matched"
	outcomeUnmatched = "unmatched"
)

// Metrics holds the method resolution metrics.
type Metrics struct {
	resolutions *prometheus.CounterVec
}

var (
	sharedMetrics     *Metrics
	sharedMetricsOnce sync.Once
)

// GetSharedMetrics returns the singleton Metrics registered with the
// default Prometheus registry.
func GetSharedMetrics() *Metrics {
	sharedMetricsOnce.Do(func() {
		sharedMetrics = &Metrics{
			resolutions: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Namespace: "apimanager",
					Subsystem: "router",
					Name:      "resolutions_total",
					Help:      "Total number of method resolutions by outcome",
				},
				[]string{"outcome"},
			),
		}
		sharedMetrics.resolutions.WithLabelValues(outcomeMatched)
		sharedMetrics.resolutions.WithLabelValues(outcomeUnmatched)
	})
	return sharedMetrics
}
