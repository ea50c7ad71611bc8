package config

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vyrodovalexey/apimanager/internal/util"
)

func validConfig() *GatewayConfig {
	cfg := DefaultConfig()
	cfg.Spec.Backend.URL = "http://localhost:9000"
	cfg.Spec.Service = ServiceConfig{
		Name: "svc.example.com",
		Methods: []MethodConfig{
			{Name: "List", HTTPMethod: "GET", Path: "/v1/items"},
		},
	}
	return cfg
}

func TestValidateConfig_Valid(t *testing.T) {
	t.Parallel()

	cfg, err := LoadConfigFromReader(strings.NewReader(sampleConfig))
	require.NoError(t, err)
	assert.NoError(t, ValidateConfig(cfg))
	assert.NoError(t, ValidateConfig(validConfig()))
}

func TestValidateConfig_Invalid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(*GatewayConfig)
		field  string
	}{
		{
			name:   "missing service name",
			mutate: func(c *GatewayConfig) { c.Spec.Service.Name = "" },
			field:  "spec.service.name",
		},
		{
			name:   "missing method name",
			mutate: func(c *GatewayConfig) { c.Spec.Service.Methods[0].Name = "" },
			field:  "spec.service.methods[0].name",
		},
		{
			name:   "unknown verb",
			mutate: func(c *GatewayConfig) { c.Spec.Service.Methods[0].HTTPMethod = "FETCH" },
			field:  "spec.service.methods[0].httpMethod",
		},
		{
			name:   "relative path",
			mutate: func(c *GatewayConfig) { c.Spec.Service.Methods[0].Path = "v1/items" },
			field:  "spec.service.methods[0].path",
		},
		{
			name: "duplicate method",
			mutate: func(c *GatewayConfig) {
				c.Spec.Service.Methods = append(c.Spec.Service.Methods, c.Spec.Service.Methods[0])
			},
			field: "spec.service.methods[1]",
		},
		{
			name: "blank api key header",
			mutate: func(c *GatewayConfig) {
				c.Spec.Service.Methods[0].APIKey = &APIKeyConfig{Headers: []string{" "}}
			},
			field: "spec.service.methods[0].apiKey.headers[0]",
		},
		{
			name:   "missing backend",
			mutate: func(c *GatewayConfig) { c.Spec.Backend.URL = "" },
			field:  "spec.backend.url",
		},
		{
			name:   "relative backend",
			mutate: func(c *GatewayConfig) { c.Spec.Backend.URL = "/upstream" },
			field:  "spec.backend.url",
		},
		{
			name:   "sampling rate out of range",
			mutate: func(c *GatewayConfig) { c.Spec.Tracing.SamplingRate = 2 },
			field:  "spec.tracing.samplingRate",
		},
		{
			name:   "bad service control endpoint",
			mutate: func(c *GatewayConfig) { c.Spec.ServiceControl.Endpoint = "servicecontrol" },
			field:  "spec.serviceControl.endpoint",
		},
		{
			name:   "check cache without redis",
			mutate: func(c *GatewayConfig) { c.Spec.ServiceControl.CheckCache = &CheckCacheConfig{} },
			field:  "spec.serviceControl.checkCache.redisUrl",
		},
		{
			name:   "bad trusted proxy",
			mutate: func(c *GatewayConfig) { c.Spec.Listen.TrustedProxies = []string{"not-an-ip"} },
			field:  "spec.listen.trustedProxies[0]",
		},
		{
			name: "rate limit without rate",
			mutate: func(c *GatewayConfig) {
				c.Spec.Listen.RateLimit = &RateLimitConfig{Enabled: true, Burst: 10}
			},
			field: "spec.listen.rateLimit.requestsPerSecond",
		},
		{
			name: "rate limit without burst",
			mutate: func(c *GatewayConfig) {
				c.Spec.Listen.RateLimit = &RateLimitConfig{Enabled: true, RequestsPerSecond: 10}
			},
			field: "spec.listen.rateLimit.burst",
		},
		{
			name: "report retry without attempts",
			mutate: func(c *GatewayConfig) {
				c.Spec.ServiceControl.ReportRetry = &RetryConfig{}
			},
			field: "spec.serviceControl.reportRetry.attempts",
		},
		{
			name:   "jwt without keys",
			mutate: func(c *GatewayConfig) { c.Spec.Auth = &AuthConfig{JWT: &JWTConfig{}} },
			field:  "spec.auth.jwt",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := validConfig()
			tt.mutate(cfg)

			err := ValidateConfig(cfg)
			require.Error(t, err)
			assert.ErrorIs(t, err, util.ErrConfigInvalid)

			var verr *util.ValidationError
			require.True(t, errors.As(err, &verr))
			assert.Contains(t, verr.Fields, tt.field)
		})
	}
}

func TestValidateConfig_Nil(t *testing.T) {
	t.Parallel()

	assert.Error(t, ValidateConfig(nil))
}
