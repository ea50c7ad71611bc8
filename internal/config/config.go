package config

import "time"

// Configuration defaults.
const (
	DefaultListenAddress         = ":8080"
	DefaultMetricsAddress        = ":9090"
	DefaultMetricsPath           = "/metrics"
	DefaultReadTimeout           = 30 * time.Second
	DefaultWriteTimeout          = 30 * time.Second
	DefaultShutdownTimeout       = 15 * time.Second
	DefaultBackendTimeout        = 30 * time.Second
	DefaultServiceControlTimeout = 5 * time.Second
	DefaultCheckTimeout          = 3 * time.Second
	DefaultCheckCacheTTL         = 30 * time.Second
	DefaultBreakerThreshold      = 5
	DefaultBreakerTimeout        = 30 * time.Second
	DefaultTraceTriggerHeader    = "X-Cloud-Trace-Context"
	DefaultCheckCachePrefix      = "apimanager:check:"
)

// GatewayConfig is the root configuration document.
type GatewayConfig struct {
	APIVersion string      `yaml:"apiVersion" json:"apiVersion"`
	Kind       string      `yaml:"kind" json:"kind"`
	Metadata   Metadata    `yaml:"metadata" json:"metadata"`
	Spec       GatewaySpec `yaml:"spec" json:"spec"`
}

// Metadata identifies the gateway instance.
type Metadata struct {
	Name   string            `yaml:"name" json:"name"`
	Labels map[string]string `yaml:"labels,omitempty" json:"labels,omitempty"`
}

// GatewaySpec holds all gateway settings.
type GatewaySpec struct {
	Listen         ListenConfig         `yaml:"listen" json:"listen"`
	Backend        BackendConfig        `yaml:"backend" json:"backend"`
	Service        ServiceConfig        `yaml:"service" json:"service"`
	Cloud          *CloudConfig         `yaml:"cloud,omitempty" json:"cloud,omitempty"`
	Tracing        TracingConfig        `yaml:"tracing" json:"tracing"`
	ServiceControl ServiceControlConfig `yaml:"serviceControl" json:"serviceControl"`
	Auth           *AuthConfig          `yaml:"auth,omitempty" json:"auth,omitempty"`
	Logging        LoggingConfig        `yaml:"logging" json:"logging"`
	Metrics        MetricsConfig        `yaml:"metrics" json:"metrics"`
}

// ListenConfig configures the inbound HTTP server.
type ListenConfig struct {
	Address         string   `yaml:"address" json:"address"`
	ReadTimeout     Duration `yaml:"readTimeout,omitempty" json:"readTimeout,omitempty"`
	WriteTimeout    Duration `yaml:"writeTimeout,omitempty" json:"writeTimeout,omitempty"`
	ShutdownTimeout Duration `yaml:"shutdownTimeout,omitempty" json:"shutdownTimeout,omitempty"`

	// TrustedProxies lists CIDRs (or single IPs) whose X-Forwarded-For
	// entries are trusted when resolving the client IP.
	TrustedProxies []string `yaml:"trustedProxies,omitempty" json:"trustedProxies,omitempty"`

	RateLimit *RateLimitConfig `yaml:"rateLimit,omitempty" json:"rateLimit,omitempty"`
}

// RateLimitConfig configures inbound request rate limiting.
type RateLimitConfig struct {
	Enabled           bool `yaml:"enabled" json:"enabled"`
	RequestsPerSecond int  `yaml:"requestsPerSecond" json:"requestsPerSecond"`
	Burst             int  `yaml:"burst" json:"burst"`
	PerClient         bool `yaml:"perClient,omitempty" json:"perClient,omitempty"`
}

// BackendConfig configures the upstream the gateway proxies to.
type BackendConfig struct {
	URL     string   `yaml:"url" json:"url"`
	Timeout Duration `yaml:"timeout,omitempty" json:"timeout,omitempty"`
}

// ServiceConfig describes the managed API.
type ServiceConfig struct {
	Name              string         `yaml:"name" json:"name"`
	ProducerProjectID string         `yaml:"producerProjectId" json:"producerProjectId"`
	Methods           []MethodConfig `yaml:"methods" json:"methods"`
}

// MethodConfig registers one API method.
type MethodConfig struct {
	// Name is the fully qualified method name reported as the operation.
	Name string `yaml:"name" json:"name"`

	// HTTPMethod is the verb, or "*" for any verb.
	HTTPMethod string `yaml:"httpMethod" json:"httpMethod"`

	// Path is the URL template, e.g. /v1/shelves/{shelf}/books/{book=**}.
	Path string `yaml:"path" json:"path"`

	// APIKey declares custom API key locations. Nil means undeclared.
	APIKey *APIKeyConfig `yaml:"apiKey,omitempty" json:"apiKey,omitempty"`
}

// APIKeyConfig lists the places an API key may be found. A nil list is
// undeclared; an empty list is declared.
type APIKeyConfig struct {
	Query   []string `yaml:"query,omitempty" json:"query,omitempty"`
	Headers []string `yaml:"headers,omitempty" json:"headers,omitempty"`
}

// CloudConfig carries the cloud placement data normally fetched from the
// metadata server. Its presence marks the data as valid.
type CloudConfig struct {
	Zone              string `yaml:"zone" json:"zone"`
	GAEServerSoftware string `yaml:"gaeServerSoftware,omitempty" json:"gaeServerSoftware,omitempty"`
	KubeEnv           string `yaml:"kubeEnv,omitempty" json:"kubeEnv,omitempty"`
}

// TracingConfig configures distributed tracing.
type TracingConfig struct {
	Enabled       bool    `yaml:"enabled" json:"enabled"`
	OTLPEndpoint  string  `yaml:"otlpEndpoint,omitempty" json:"otlpEndpoint,omitempty"`
	SamplingRate  float64 `yaml:"samplingRate,omitempty" json:"samplingRate,omitempty"`
	TriggerHeader string  `yaml:"triggerHeader,omitempty" json:"triggerHeader,omitempty"`
}

// ServiceControlConfig configures the check/report transport.
type ServiceControlConfig struct {
	// Endpoint is the base URL. Empty disables remote check and report;
	// records are then only logged.
	Endpoint       string               `yaml:"endpoint,omitempty" json:"endpoint,omitempty"`
	Timeout        Duration             `yaml:"timeout,omitempty" json:"timeout,omitempty"`
	CheckTimeout   Duration             `yaml:"checkTimeout,omitempty" json:"checkTimeout,omitempty"`
	CircuitBreaker CircuitBreakerConfig `yaml:"circuitBreaker" json:"circuitBreaker"`
	CheckCache     *CheckCacheConfig    `yaml:"checkCache,omitempty" json:"checkCache,omitempty"`
	ReportRetry    *RetryConfig         `yaml:"reportRetry,omitempty" json:"reportRetry,omitempty"`
}

// RetryConfig configures report retries on transport failures.
type RetryConfig struct {
	Attempts       int      `yaml:"attempts" json:"attempts"`
	InitialBackoff Duration `yaml:"initialBackoff,omitempty" json:"initialBackoff,omitempty"`
	MaxBackoff     Duration `yaml:"maxBackoff,omitempty" json:"maxBackoff,omitempty"`
}

// CircuitBreakerConfig configures the breaker around the transport.
type CircuitBreakerConfig struct {
	Enabled   bool     `yaml:"enabled" json:"enabled"`
	Threshold int      `yaml:"threshold,omitempty" json:"threshold,omitempty"`
	Timeout   Duration `yaml:"timeout,omitempty" json:"timeout,omitempty"`
}

// CheckCacheConfig configures the Redis check-result cache.
type CheckCacheConfig struct {
	RedisURL  string   `yaml:"redisUrl" json:"redisUrl"`
	TTL       Duration `yaml:"ttl,omitempty" json:"ttl,omitempty"`
	KeyPrefix string   `yaml:"keyPrefix,omitempty" json:"keyPrefix,omitempty"`
}

// AuthConfig configures the authentication collaborator.
type AuthConfig struct {
	JWT *JWTConfig `yaml:"jwt,omitempty" json:"jwt,omitempty"`
}

// JWTConfig configures bearer token validation.
type JWTConfig struct {
	// JWKS is an inline JSON Web Key Set.
	JWKS string `yaml:"jwks,omitempty" json:"jwks,omitempty"`
	// JWKSFile is a path to a JSON Web Key Set.
	JWKSFile string `yaml:"jwksFile,omitempty" json:"jwksFile,omitempty"`
	// Issuers restricts accepted issuers when non-empty.
	Issuers []string `yaml:"issuers,omitempty" json:"issuers,omitempty"`
	// Audiences restricts accepted audiences when non-empty.
	Audiences []string `yaml:"audiences,omitempty" json:"audiences,omitempty"`
}

// LoggingConfig configures the logger.
type LoggingConfig struct {
	Level  string `yaml:"level,omitempty" json:"level,omitempty"`
	Format string `yaml:"format,omitempty" json:"format,omitempty"`
}

// MetricsConfig configures the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" json:"enabled"`
	Address string `yaml:"address,omitempty" json:"address,omitempty"`
	Path    string `yaml:"path,omitempty" json:"path,omitempty"`
}

// ApplyDefaults fills unset optional fields.
func (c *GatewayConfig) ApplyDefaults() {
	s := &c.Spec
	if s.Listen.Address == "" {
		s.Listen.Address = DefaultListenAddress
	}
	if s.Tracing.TriggerHeader == "" {
		s.Tracing.TriggerHeader = DefaultTraceTriggerHeader
	}
	if s.Tracing.SamplingRate == 0 {
		s.Tracing.SamplingRate = 1.0
	}
	if s.ServiceControl.CircuitBreaker.Threshold == 0 {
		s.ServiceControl.CircuitBreaker.Threshold = DefaultBreakerThreshold
	}
	if cc := s.ServiceControl.CheckCache; cc != nil && cc.KeyPrefix == "" {
		cc.KeyPrefix = DefaultCheckCachePrefix
	}
	if s.Logging.Level == "" {
		s.Logging.Level = "info"
	}
	if s.Logging.Format == "" {
		s.Logging.Format = "json"
	}
	if s.Metrics.Address == "" {
		s.Metrics.Address = DefaultMetricsAddress
	}
	if s.Metrics.Path == "" {
		s.Metrics.Path = DefaultMetricsPath
	}
}

// DefaultConfig returns a configuration with every default applied.
func DefaultConfig() *GatewayConfig {
	cfg := &GatewayConfig{
		APIVersion: "apimanager.io/v1",
		Kind:       "Gateway",
	}
	cfg.ApplyDefaults()
	return cfg
}
