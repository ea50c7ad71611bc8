package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChecker_Health(t *testing.T) {
	t.Parallel()

	c := NewChecker("1.2.3")
	rec := httptest.NewRecorder()
	c.HealthHandler()(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var resp HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, StatusHealthy, resp.Status)
	assert.Equal(t, "1.2.3", resp.Version)
}

func TestChecker_Readiness(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		checks     map[string]CheckFunc
		draining   bool
		wantStatus Status
		wantCode   int
	}{
		{
			name:       "No checks",
			wantStatus: StatusHealthy,
			wantCode:   http.StatusOK,
		},
		{
			name: "Degraded check",
			checks: map[string]CheckFunc{
				"cache": func(context.Context) Check { return Check{Status: StatusDegraded} },
			},
			wantStatus: StatusDegraded,
			wantCode:   http.StatusOK,
		},
		{
			name: "Unhealthy wins over degraded",
			checks: map[string]CheckFunc{
				"a": func(context.Context) Check { return Check{Status: StatusDegraded} },
				"b": func(context.Context) Check { return Check{Status: StatusUnhealthy} },
			},
			wantStatus: StatusUnhealthy,
			wantCode:   http.StatusServiceUnavailable,
		},
		{
			name:       "Draining",
			draining:   true,
			wantStatus: StatusUnhealthy,
			wantCode:   http.StatusServiceUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			c := NewChecker("test")
			for name, fn := range tt.checks {
				c.RegisterCheck(name, fn)
			}
			c.SetDraining(tt.draining)

			rec := httptest.NewRecorder()
			c.ReadinessHandler()(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))

			assert.Equal(t, tt.wantCode, rec.Code)
			var resp ReadinessResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Equal(t, tt.wantStatus, resp.Status)
		})
	}
}

func TestPingCheck(t *testing.T) {
	t.Parallel()

	failing := func(context.Context) error { return errors.New("connection refused") }

	ctx := context.Background()
	assert.Equal(t, StatusHealthy, PingCheck(func(context.Context) error { return nil }, true)(ctx).Status)
	assert.Equal(t, StatusDegraded, PingCheck(failing, false)(ctx).Status)

	check := PingCheck(failing, true)(ctx)
	assert.Equal(t, StatusUnhealthy, check.Status)
	assert.Equal(t, "connection refused", check.Message)
}

func TestChecker_RegisterRoutes(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	NewChecker("test").RegisterRoutes(mux)

	for _, path := range []string{"/health", "/ready", "/live"} {
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusOK, rec.Code, path)
	}
}

func TestChecker_ReadinessTimeout(t *testing.T) {
	t.Parallel()

	c := NewChecker("test")
	c.timeout = 20 * time.Millisecond
	c.RegisterCheck("slow", func(ctx context.Context) Check {
		<-ctx.Done()
		return Check{Status: StatusUnhealthy, Message: ctx.Err().Error()}
	})
	c.RegisterCheck("fast", func(context.Context) Check { return Check{Status: StatusHealthy} })

	resp := c.Readiness(context.Background())

	assert.Equal(t, StatusUnhealthy, resp.Status)
	require.Contains(t, resp.Checks, "slow")
	assert.Equal(t, context.DeadlineExceeded.Error(), resp.Checks["slow"].Message)
	assert.GreaterOrEqual(t, resp.Checks["slow"].Duration, 20*time.Millisecond)
	assert.Equal(t, StatusHealthy, resp.Checks["fast"].Status)
}

func TestChecker_RoutesRejectPost(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	NewChecker("test").RegisterRoutes(mux)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/ready", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
