package health

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"sync/atomic"
	"time"
)

// Status is the outcome of a probe.
type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusDegraded  Status = "degraded"
	StatusUnhealthy Status = "unhealthy"
)

// DefaultCheckTimeout bounds each readiness check.
const DefaultCheckTimeout = 2 * time.Second

// HealthResponse is the body of /health.
type HealthResponse struct {
	Status    Status    `json:"status"`
	Version   string    `json:"version,omitempty"`
	Uptime    string    `json:"uptime,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// ReadinessResponse is the body of /ready.
type ReadinessResponse struct {
	Status    Status           `json:"status"`
	Checks    map[string]Check `json:"checks,omitempty"`
	Timestamp time.Time        `json:"timestamp"`
}

// Check is the result of one named readiness check.
type Check struct {
	Status   Status        `json:"status"`
	Message  string        `json:"message,omitempty"`
	Duration time.Duration `json:"durationNs,omitempty"`
}

// CheckFunc probes one dependency. It must honor ctx.
type CheckFunc func(ctx context.Context) Check

// Checker aggregates readiness checks. Checks run concurrently, each
// under its own timeout.
type Checker struct {
	version string
	started time.Time
	timeout time.Duration
	metrics *Metrics

	draining atomic.Bool

	mu     sync.RWMutex
	checks map[string]CheckFunc
}

// NewChecker creates a checker that reports version on /health.
func NewChecker(version string) *Checker {
	return &Checker{
		version: version,
		started: time.Now(),
		timeout: DefaultCheckTimeout,
		metrics: GetMetrics(),
		checks:  make(map[string]CheckFunc),
	}
}

// RegisterCheck adds or replaces a named readiness check.
func (c *Checker) RegisterCheck(name string, check CheckFunc) {
	c.mu.Lock()
	c.checks[name] = check
	c.mu.Unlock()
}

// SetDraining marks the gateway as shutting down. A draining gateway is
// not ready, whatever its checks say.
func (c *Checker) SetDraining(draining bool) {
	c.draining.Store(draining)
}

// Health reports that the process is up.
func (c *Checker) Health() HealthResponse {
	c.metrics.checksTotal.WithLabelValues("health").Inc()
	return HealthResponse{
		Status:    StatusHealthy,
		Version:   c.version,
		Uptime:    time.Since(c.started).Round(time.Second).String(),
		Timestamp: time.Now(),
	}
}

// Readiness runs every check and folds the results: any unhealthy check
// makes the gateway unhealthy, otherwise any degraded one degrades it.
func (c *Checker) Readiness(ctx context.Context) ReadinessResponse {
	c.metrics.checksTotal.WithLabelValues("readiness").Inc()

	c.mu.RLock()
	checks := make(map[string]CheckFunc, len(c.checks))
	for name, fn := range c.checks {
		checks[name] = fn
	}
	c.mu.RUnlock()

	results := make(map[string]Check, len(checks)+1)
	var (
		mu sync.Mutex
		wg sync.WaitGroup
	)
	for name, fn := range checks {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res := c.run(ctx, fn)
			c.metrics.checkStatus.WithLabelValues(name).Set(statusValue(res.Status))

			mu.Lock()
			results[name] = res
			mu.Unlock()
		}()
	}
	wg.Wait()

	if c.draining.Load() {
		results["draining"] = Check{Status: StatusUnhealthy, Message: "shutting down"}
	}

	overall := StatusHealthy
	for _, res := range results {
		overall = worse(overall, res.Status)
	}

	return ReadinessResponse{Status: overall, Checks: results, Timestamp: time.Now()}
}

func (c *Checker) run(ctx context.Context, fn CheckFunc) Check {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	res := fn(ctx)
	res.Duration = time.Since(start)
	return res
}

func worse(a, b Status) Status {
	rank := map[Status]int{StatusHealthy: 0, StatusDegraded: 1, StatusUnhealthy: 2}
	if rank[b] > rank[a] {
		return b
	}
	return a
}

func statusValue(s Status) float64 {
	if s == StatusUnhealthy {
		return 0
	}
	return 1
}

// PingCheck turns a ping into a check. A failed ping is unhealthy when
// critical and degraded otherwise.
func PingCheck(ping func(ctx context.Context) error, critical bool) CheckFunc {
	return func(ctx context.Context) Check {
		if err := ping(ctx); err != nil {
			if critical {
				return Check{Status: StatusUnhealthy, Message: err.Error()}
			}
			return Check{Status: StatusDegraded, Message: err.Error()}
		}
		return Check{Status: StatusHealthy}
	}
}

// HealthHandler serves /health.
func (c *Checker) HealthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, c.Health())
	}
}

// ReadinessHandler serves /ready: 503 when unhealthy, 200 otherwise.
func (c *Checker) ReadinessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := c.Readiness(r.Context())
		code := http.StatusOK
		if resp.Status == StatusUnhealthy {
			code = http.StatusServiceUnavailable
		}
		writeJSON(w, code, resp)
	}
}

// LivenessHandler serves /live.
func (c *Checker) LivenessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

// RegisterRoutes mounts the probes on mux for GET and HEAD.
func (c *Checker) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", c.HealthHandler())
	mux.HandleFunc("GET /ready", c.ReadinessHandler())
	mux.HandleFunc("GET /live", c.LivenessHandler())
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
