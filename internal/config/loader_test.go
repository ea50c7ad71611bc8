package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleConfig = `
apiVersion: apimanager.io/v1
kind: Gateway
metadata:
  name: bookstore
spec:
  listen:
    address: ":${APIM_TEST_PORT:-8081}"
    trustedProxies: ["10.0.0.0/8"]
  backend:
    url: http://localhost:9000
    timeout: 10s
  service:
    name: bookstore.endpoints.example.cloud.goog
    producerProjectId: example
    methods:
      - name: ListShelves
        httpMethod: GET
        path: /v1/shelves
      - name: GetShelf
        httpMethod: GET
        path: /v1/shelves/{shelf}
        apiKey:
          query: []
      - name: CreateShelf
        httpMethod: POST
        path: /v1/shelves
        apiKey:
          headers: [x-api-key, x-goog-api-key]
  cloud:
    zone: europe-west1-b
  serviceControl:
    endpoint: https://servicecontrol.example.com
    checkCache:
      redisUrl: redis://localhost:6379
      ttl: 1m
  logging:
    level: debug
`

func TestLoadConfigFromReader(t *testing.T) {
	cfg, err := LoadConfigFromReader(strings.NewReader(sampleConfig))
	require.NoError(t, err)

	assert.Equal(t, "bookstore", cfg.Metadata.Name)
	assert.Equal(t, ":8081", cfg.Spec.Listen.Address)
	assert.Equal(t, 10*time.Second, cfg.Spec.Backend.Timeout.Duration())
	assert.Equal(t, "example", cfg.Spec.Service.ProducerProjectID)
	require.Len(t, cfg.Spec.Service.Methods, 3)

	require.NotNil(t, cfg.Spec.Cloud)
	assert.Equal(t, "europe-west1-b", cfg.Spec.Cloud.Zone)

	assert.Equal(t, time.Minute, cfg.Spec.ServiceControl.CheckCache.TTL.Duration())
	assert.Equal(t, DefaultCheckCachePrefix, cfg.Spec.ServiceControl.CheckCache.KeyPrefix)
	assert.Equal(t, "debug", cfg.Spec.Logging.Level)
	assert.Equal(t, DefaultTraceTriggerHeader, cfg.Spec.Tracing.TriggerHeader)
}

func TestLoadConfig_APIKeyDeclaration(t *testing.T) {
	cfg, err := LoadConfigFromReader(strings.NewReader(sampleConfig))
	require.NoError(t, err)

	methods := cfg.Spec.Service.Methods

	assert.Nil(t, methods[0].APIKey, "undeclared apiKey section")

	require.NotNil(t, methods[1].APIKey)
	assert.NotNil(t, methods[1].APIKey.Query, "empty list is still declared")
	assert.Empty(t, methods[1].APIKey.Query)
	assert.Nil(t, methods[1].APIKey.Headers)

	require.NotNil(t, methods[2].APIKey)
	assert.Nil(t, methods[2].APIKey.Query)
	assert.Equal(t, []string{"x-api-key", "x-goog-api-key"}, methods[2].APIKey.Headers)
}

func TestLoadConfig_EnvSubstitution(t *testing.T) {
	t.Setenv("APIM_TEST_PORT", "9999")

	cfg, err := LoadConfigFromReader(strings.NewReader(sampleConfig))
	require.NoError(t, err)
	assert.Equal(t, ":9999", cfg.Spec.Listen.Address)
}

func TestSubstituteEnvVars(t *testing.T) {
	t.Setenv("APIM_TEST_VALUE", "set")

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "set variable", input: "${APIM_TEST_VALUE}", expected: "set"},
		{name: "default used", input: "${APIM_TEST_MISSING:-fallback}", expected: "fallback"},
		{name: "missing without default", input: "a${APIM_TEST_MISSING}b", expected: "ab"},
		{name: "escaped dollar", input: "$${APIM_TEST_VALUE}", expected: "${APIM_TEST_VALUE}"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, substituteEnvVars(tt.input))
		})
	}
}

func TestLoadConfig_File(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "gateway.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleConfig), 0o600))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "bookstore", cfg.Metadata.Name)
}

func TestLoadConfig_Errors(t *testing.T) {
	t.Parallel()

	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = LoadConfigFromReader(strings.NewReader("spec: [unterminated"))
	assert.ErrorContains(t, err, "failed to parse YAML")
}

func TestDefaultConfig(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	assert.Equal(t, DefaultListenAddress, cfg.Spec.Listen.Address)
	assert.Equal(t, DefaultMetricsPath, cfg.Spec.Metrics.Path)
	assert.Equal(t, 1.0, cfg.Spec.Tracing.SamplingRate)
	assert.Equal(t, DefaultBreakerThreshold, cfg.Spec.ServiceControl.CircuitBreaker.Threshold)
	assert.Nil(t, cfg.Spec.Cloud)
}

func TestDuration(t *testing.T) {
	t.Parallel()

	var d Duration
	require.NoError(t, d.UnmarshalJSON([]byte(`"1500ms"`)))
	assert.Equal(t, 1500*time.Millisecond, d.Duration())

	out, err := d.MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, `"1.5s"`, string(out))

	require.NoError(t, d.UnmarshalJSON([]byte(`null`)))
	assert.Zero(t, d)
	assert.Equal(t, time.Second, d.OrDefault(time.Second))

	assert.Error(t, d.UnmarshalJSON([]byte(`"soon"`)))
}
