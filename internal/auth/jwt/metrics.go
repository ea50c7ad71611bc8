package jwt

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	resultValid   = "valid"
	resultInvalid = "invalid"
)

// Metrics holds token validation metrics.
type Metrics struct {
	validations *prometheus.CounterVec
}

var (
	sharedMetrics     *Metrics
	sharedMetricsOnce sync.Once
)

// GetSharedMetrics returns the singleton Metrics instance.
func GetSharedMetrics() *Metrics {
	sharedMetricsOnce.Do(func() {
		sharedMetrics = &Metrics{
			validations: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Namespace: "apimanager",
					Subsystem: "jwt",
					Name:      "validations_total",
					Help:      "Total number of bearer token validations by result",
				},
				[]string{"result"},
			),
		}
		sharedMetrics.validations.WithLabelValues(resultValid)
		sharedMetrics.validations.WithLabelValues(resultInvalid)
	})
	return sharedMetrics
}
