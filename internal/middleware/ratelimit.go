package middleware

import (
	"io"
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/vyrodovalexey/apimanager/internal/config"
	"github.com/vyrodovalexey/apimanager/internal/observability"
)

const (
	// DefaultClientTTL is how long an idle client keeps its bucket.
	DefaultClientTTL = 10 * time.Minute

	// DefaultCleanupInterval is how often idle buckets are swept.
	DefaultCleanupInterval = time.Minute
)

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter is a token bucket shared by all callers, or one bucket per
// client address.
type RateLimiter struct {
	limit     rate.Limit
	burst     int
	perClient bool
	shared    *rate.Limiter
	clientTTL time.Duration
	logger    observability.Logger
	now       func() time.Time

	mu      sync.Mutex
	buckets map[string]*bucket

	stop     chan struct{}
	stopOnce sync.Once
}

// RateLimiterOption configures a RateLimiter.
type RateLimiterOption func(*RateLimiter)

// WithRateLimiterLogger sets the logger.
func WithRateLimiterLogger(logger observability.Logger) RateLimiterOption {
	return func(rl *RateLimiter) {
		rl.logger = logger
	}
}

// WithClientTTL sets how long an idle client bucket is kept.
func WithClientTTL(ttl time.Duration) RateLimiterOption {
	return func(rl *RateLimiter) {
		if ttl > 0 {
			rl.clientTTL = ttl
		}
	}
}

// NewRateLimiter allows rps calls per second with the given burst.
func NewRateLimiter(rps, burst int, perClient bool, opts ...RateLimiterOption) *RateLimiter {
	rl := &RateLimiter{
		limit:     rate.Limit(rps),
		burst:     burst,
		perClient: perClient,
		clientTTL: DefaultClientTTL,
		logger:    observability.NopLogger(),
		now:       time.Now,
		buckets:   make(map[string]*bucket),
		stop:      make(chan struct{}),
	}
	if !perClient {
		rl.shared = rate.NewLimiter(rl.limit, burst)
	}

	for _, opt := range opts {
		opt(rl)
	}
	return rl
}

// Allow takes a token for client.
func (rl *RateLimiter) Allow(client string) bool {
	ok, _ := rl.Take(client)
	return ok
}

// Take takes a token for client. When none is available it returns
// false and the time until one will be.
func (rl *RateLimiter) Take(client string) (bool, time.Duration) {
	now := rl.now()
	r := rl.limiterFor(client, now).ReserveN(now, 1)
	if !r.OK() {
		return false, time.Second
	}
	if wait := r.DelayFrom(now); wait > 0 {
		r.CancelAt(now)
		return false, wait
	}
	return true, 0
}

func (rl *RateLimiter) limiterFor(client string, now time.Time) *rate.Limiter {
	if !rl.perClient {
		return rl.shared
	}

	rl.mu.Lock()
	defer rl.mu.Unlock()

	b, ok := rl.buckets[client]
	if !ok {
		b = &bucket{limiter: rate.NewLimiter(rl.limit, rl.burst)}
		rl.buckets[client] = b
	}
	b.lastSeen = now
	return b.limiter
}

// Sweep drops client buckets idle for longer than maxIdle and returns
// how many were dropped.
func (rl *RateLimiter) Sweep(maxIdle time.Duration) int {
	cutoff := rl.now().Add(-maxIdle)

	rl.mu.Lock()
	defer rl.mu.Unlock()

	dropped := 0
	for client, b := range rl.buckets {
		if b.lastSeen.Before(cutoff) {
			delete(rl.buckets, client)
			dropped++
		}
	}
	if dropped > 0 {
		rl.logger.Debug("dropped idle rate limit buckets",
			observability.Int("dropped", dropped),
			observability.Int("remaining", len(rl.buckets)),
		)
	}
	return dropped
}

// StartSweeper sweeps idle buckets every interval until Stop.
func (rl *RateLimiter) StartSweeper(interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				rl.Sweep(rl.clientTTL)
			case <-rl.stop:
				return
			}
		}
	}()
}

// Stop ends the sweeper. Calling it again is a no-op.
func (rl *RateLimiter) Stop() {
	rl.stopOnce.Do(func() { close(rl.stop) })
}

// RateLimit rejects calls over the limit with 429 and a Retry-After
// header in whole seconds.
func RateLimit(rl *RateLimiter, ips *ClientIPExtractor) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			client := ips.Extract(r)

			ok, wait := rl.Take(client)
			if ok {
				next.ServeHTTP(w, r)
				return
			}

			rl.logger.Warn("rate limit exceeded",
				observability.String("client_ip", client),
				observability.String("path", r.URL.Path),
				observability.Duration("retry_after", wait),
			)
			GetMiddlewareMetrics().rateLimitRejected.Inc()

			w.Header().Set(HeaderContentType, ContentTypeJSON)
			w.Header().Set(HeaderRetryAfter, retryAfterSeconds(wait))
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = io.WriteString(w, errRateLimitExceeded)
		})
	}
}

func retryAfterSeconds(wait time.Duration) string {
	secs := int(math.Ceil(wait.Seconds()))
	return strconv.Itoa(max(secs, 1))
}

// RateLimitFromConfig builds the middleware for cfg. The limiter is nil
// when rate limiting is off; otherwise the caller stops it on shutdown.
func RateLimitFromConfig(
	cfg *config.RateLimitConfig,
	ips *ClientIPExtractor,
	logger observability.Logger,
) (func(http.Handler) http.Handler, *RateLimiter) {
	if cfg == nil || !cfg.Enabled {
		return func(next http.Handler) http.Handler { return next }, nil
	}

	rl := NewRateLimiter(cfg.RequestsPerSecond, cfg.Burst, cfg.PerClient, WithRateLimiterLogger(logger))
	if cfg.PerClient {
		rl.StartSweeper(DefaultCleanupInterval)
	}
	return RateLimit(rl, ips), rl
}
