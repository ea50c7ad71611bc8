package config

import (
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"

	"github.com/vyrodovalexey/apimanager/internal/util"
)

var knownHTTPMethods = map[string]bool{
	http.MethodGet:     true,
	http.MethodHead:    true,
	http.MethodPost:    true,
	http.MethodPut:     true,
	http.MethodPatch:   true,
	http.MethodDelete:  true,
	http.MethodOptions: true,
	"*":                true,
}

// ValidateConfig validates a gateway configuration. The returned error is
// a *util.ValidationError listing every failing field.
func ValidateConfig(cfg *GatewayConfig) error {
	verr := util.NewValidationError("invalid gateway configuration")
	if cfg == nil {
		verr.AddField("", "configuration is nil")
		return verr
	}

	validateService(&cfg.Spec.Service, verr)
	validateBackend(&cfg.Spec.Backend, verr)
	validateTracing(&cfg.Spec.Tracing, verr)
	validateServiceControl(&cfg.Spec.ServiceControl, verr)
	validateListen(&cfg.Spec.Listen, verr)
	validateAuth(cfg.Spec.Auth, verr)

	if verr.HasErrors() {
		return verr
	}
	return nil
}

func validateService(svc *ServiceConfig, verr *util.ValidationError) {
	if svc.Name == "" {
		verr.AddField("spec.service.name", "is required")
	}

	seen := make(map[string]int, len(svc.Methods))
	for i, m := range svc.Methods {
		field := fmt.Sprintf("spec.service.methods[%d]", i)
		if m.Name == "" {
			verr.AddField(field+".name", "is required")
		} else if j, dup := seen[m.Name+" "+m.HTTPMethod+" "+m.Path]; dup {
			verr.AddField(field, fmt.Sprintf("duplicates methods[%d]", j))
		} else {
			seen[m.Name+" "+m.HTTPMethod+" "+m.Path] = i
		}
		if !knownHTTPMethods[strings.ToUpper(m.HTTPMethod)] {
			verr.AddField(field+".httpMethod", fmt.Sprintf("unsupported HTTP method %q", m.HTTPMethod))
		}
		if !strings.HasPrefix(m.Path, "/") {
			verr.AddField(field+".path", "must start with /")
		}
		if m.APIKey != nil {
			for j, h := range m.APIKey.Headers {
				if strings.TrimSpace(h) == "" {
					verr.AddField(fmt.Sprintf("%s.apiKey.headers[%d]", field, j), "must not be empty")
				}
			}
			for j, q := range m.APIKey.Query {
				if strings.TrimSpace(q) == "" {
					verr.AddField(fmt.Sprintf("%s.apiKey.query[%d]", field, j), "must not be empty")
				}
			}
		}
	}
}

func validateBackend(b *BackendConfig, verr *util.ValidationError) {
	if b.URL == "" {
		verr.AddField("spec.backend.url", "is required")
		return
	}
	u, err := url.Parse(b.URL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		verr.AddField("spec.backend.url", "must be an absolute URL")
	}
}

func validateTracing(t *TracingConfig, verr *util.ValidationError) {
	if t.SamplingRate < 0 || t.SamplingRate > 1 {
		verr.AddField("spec.tracing.samplingRate", "must be between 0 and 1")
	}
}

func validateServiceControl(sc *ServiceControlConfig, verr *util.ValidationError) {
	if sc.Endpoint != "" {
		u, err := url.Parse(sc.Endpoint)
		if err != nil || u.Scheme == "" || u.Host == "" {
			verr.AddField("spec.serviceControl.endpoint", "must be an absolute URL")
		}
	}
	if sc.CircuitBreaker.Threshold < 0 {
		verr.AddField("spec.serviceControl.circuitBreaker.threshold", "must be non-negative")
	}
	if rr := sc.ReportRetry; rr != nil {
		if rr.Attempts < 1 {
			verr.AddField("spec.serviceControl.reportRetry.attempts", "must be at least 1")
		}
		if rr.InitialBackoff < 0 || rr.MaxBackoff < 0 {
			verr.AddField("spec.serviceControl.reportRetry", "backoff must be non-negative")
		}
	}
	if cc := sc.CheckCache; cc != nil {
		if cc.RedisURL == "" {
			verr.AddField("spec.serviceControl.checkCache.redisUrl", "is required")
		}
		if cc.TTL < 0 {
			verr.AddField("spec.serviceControl.checkCache.ttl", "must be non-negative")
		}
	}
}

func validateListen(l *ListenConfig, verr *util.ValidationError) {
	for i, p := range l.TrustedProxies {
		if _, _, err := net.ParseCIDR(p); err == nil {
			continue
		}
		if net.ParseIP(p) == nil {
			verr.AddField(fmt.Sprintf("spec.listen.trustedProxies[%d]", i), "must be a CIDR or IP")
		}
	}
	if rl := l.RateLimit; rl != nil && rl.Enabled {
		if rl.RequestsPerSecond <= 0 {
			verr.AddField("spec.listen.rateLimit.requestsPerSecond", "must be positive")
		}
		if rl.Burst <= 0 {
			verr.AddField("spec.listen.rateLimit.burst", "must be positive")
		}
	}
}

func validateAuth(a *AuthConfig, verr *util.ValidationError) {
	if a == nil || a.JWT == nil {
		return
	}
	if a.JWT.JWKS == "" && a.JWT.JWKSFile == "" {
		verr.AddField("spec.auth.jwt", "one of jwks or jwksFile is required")
	}
}
