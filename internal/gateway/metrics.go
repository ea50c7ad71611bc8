package gateway

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Check outcomes.
const (
	checkAllowed  = "allowed"
	checkRejected = "rejected"
	checkSkipped  = "skipped"
)

// Report results.
const (
	reportOK    = "ok"
	reportError = "error"
)

// Metrics holds the per-call pipeline metrics.
type Metrics struct {
	calls   *prometheus.CounterVec
	checks  *prometheus.CounterVec
	reports *prometheus.CounterVec
	latency *prometheus.HistogramVec
}

var (
	sharedMetrics     *Metrics
	sharedMetricsOnce sync.Once
)

// GetSharedMetrics returns the process-wide gateway metrics.
func GetSharedMetrics() *Metrics {
	sharedMetricsOnce.Do(func() {
		sharedMetrics = &Metrics{
			calls: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Namespace: "apimanager",
					Subsystem: "gateway",
					Name:      "calls_total",
					Help:      "Total number of calls by check outcome",
				},
				[]string{"check", "status_class"},
			),
			checks: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Namespace: "apimanager",
					Subsystem: "gateway",
					Name:      "check_decisions_total",
					Help:      "Total number of check decisions by canonical code",
				},
				[]string{"code"},
			),
			reports: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Namespace: "apimanager",
					Subsystem: "gateway",
					Name:      "reports_total",
					Help:      "Total number of reports sent",
				},
				[]string{"result"},
			),
			latency: promauto.NewHistogramVec(
				prometheus.HistogramOpts{
					Namespace: "apimanager",
					Subsystem: "gateway",
					Name:      "latency_seconds",
					Help:      "Call latency split into backend and overhead time",
					Buckets:   prometheus.DefBuckets,
				},
				[]string{"kind"},
			),
		}
	})
	return sharedMetrics
}
