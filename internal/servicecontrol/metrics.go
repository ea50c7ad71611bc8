package servicecontrol

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	cacheHit  = "hit"
	cacheMiss = "miss"
)

// Metrics holds service control client metrics.
type Metrics struct {
	checks             *prometheus.CounterVec
	reports            *prometheus.CounterVec
	transportErrors    *prometheus.CounterVec
	cacheLookups       *prometheus.CounterVec
	breakerTransitions *prometheus.CounterVec
}

var (
	sharedMetrics     *Metrics
	sharedMetricsOnce sync.Once
)

// GetSharedMetrics returns the singleton Metrics instance.
func GetSharedMetrics() *Metrics {
	sharedMetricsOnce.Do(func() {
		sharedMetrics = newMetrics()
	})
	return sharedMetrics
}

func newMetrics() *Metrics {
	return &Metrics{
		checks: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "apimanager",
				Subsystem: "servicecontrol",
				Name:      "checks_total",
				Help:      "Total number of checks by resulting status code",
			},
			[]string{"code"},
		),
		reports: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "apimanager",
				Subsystem: "servicecontrol",
				Name:      "reports_total",
				Help:      "Total number of reports by result, response class and compute platform",
			},
			[]string{"result", "response_class", "platform"},
		),
		transportErrors: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "apimanager",
				Subsystem: "servicecontrol",
				Name:      "transport_errors_total",
				Help:      "Total number of failed round trips by operation",
			},
			[]string{"operation"},
		),
		cacheLookups: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "apimanager",
				Subsystem: "servicecontrol",
				Name:      "check_cache_lookups_total",
				Help:      "Total number of check cache lookups by result",
			},
			[]string{"result"},
		),
		breakerTransitions: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "apimanager",
				Subsystem: "servicecontrol",
				Name:      "circuit_breaker_transitions_total",
				Help:      "Total number of circuit breaker state transitions",
			},
			[]string{"from", "to"},
		),
	}
}
