package retry

import (
	"context"
	"math"
	"math/rand/v2"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	// DefaultAttempts is the number of tries, the first one included.
	DefaultAttempts = 3

	// DefaultInitialBackoff is the wait before the second try.
	DefaultInitialBackoff = 100 * time.Millisecond

	// DefaultMaxBackoff caps a single wait.
	DefaultMaxBackoff = 2 * time.Second

	// DefaultJitter is the fraction of each wait that is randomized.
	DefaultJitter = 0.2
)

var retriesTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "apimanager",
		Subsystem: "retry",
		Name:      "attempts_total",
		Help:      "Retries by operation and outcome of the final try",
	},
	[]string{"operation", "result"},
)

// Policy describes how often and how patiently an operation is retried.
// The zero value tries once.
type Policy struct {
	Attempts       int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	Jitter         float64

	// Retryable reports whether err is worth another try. Nil retries
	// every error.
	Retryable func(error) bool

	// OnRetry runs before each wait.
	OnRetry func(attempt int, err error, wait time.Duration)
}

// Backoff returns the wait after the given failed try, counted from 0.
func (p Policy) Backoff(attempt int) time.Duration {
	initial := p.InitialBackoff
	if initial <= 0 {
		initial = DefaultInitialBackoff
	}
	limit := p.MaxBackoff
	if limit <= 0 {
		limit = DefaultMaxBackoff
	}
	if attempt < 0 {
		attempt = 0
	}

	wait := float64(initial) * math.Pow(2, float64(attempt))
	if p.Jitter > 0 {
		//nolint:gosec // jitter is not security-sensitive
		wait += wait * math.Min(p.Jitter, 1) * rand.Float64()
	}
	if wait > float64(limit) {
		wait = float64(limit)
	}
	return time.Duration(wait)
}

// Do calls fn until it succeeds, returns a non-retryable error, runs out
// of attempts, or ctx is done. The last error from fn is returned.
func Do(ctx context.Context, operation string, p Policy, fn func(context.Context) error) error {
	attempts := max(p.Attempts, 1)

	var err error
	for attempt := 0; attempt < attempts; attempt++ {
		if ctxErr := ctx.Err(); ctxErr != nil {
			if err == nil {
				err = ctxErr
			}
			break
		}

		if err = fn(ctx); err == nil {
			if attempt > 0 {
				retriesTotal.WithLabelValues(operation, "success").Inc()
			}
			return nil
		}
		if p.Retryable != nil && !p.Retryable(err) {
			return err
		}
		if attempt == attempts-1 {
			break
		}

		wait := p.Backoff(attempt)
		if p.OnRetry != nil {
			p.OnRetry(attempt+1, err, wait)
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			retriesTotal.WithLabelValues(operation, "canceled").Inc()
			return err
		case <-timer.C:
		}
	}

	if attempts > 1 {
		retriesTotal.WithLabelValues(operation, "exhausted").Inc()
	}
	return err
}
