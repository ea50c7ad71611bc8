package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.39.0"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// otlpRetry is how the exporter retries a failed batch.
var otlpRetry = otlptracegrpc.RetryConfig{
	Enabled:         true,
	InitialInterval: time.Second,
	MaxInterval:     30 * time.Second,
	MaxElapsedTime:  time.Minute,
}

const otlpTimeout = 10 * time.Second

// TracerConfig configures span export.
type TracerConfig struct {
	Enabled bool
	// ServiceName names the managed service in exported spans.
	ServiceName    string
	ServiceVersion string
	// Zone is the cloud zone the gateway runs in, if known.
	Zone         string
	OTLPEndpoint string
	// SamplingRate applies to calls without a sampled parent. A call
	// whose trace header asks for tracing is always recorded.
	SamplingRate float64
}

// TracerProvider owns the SDK provider. A disabled provider hands out
// no-op tracers.
type TracerProvider struct {
	provider *sdktrace.TracerProvider
	name     string
}

// NewTracerProvider builds the provider described by cfg and installs
// it as the global one. Without an OTLP endpoint spans are recorded but
// not exported.
func NewTracerProvider(ctx context.Context, cfg TracerConfig) (*TracerProvider, error) {
	if !cfg.Enabled {
		return &TracerProvider{name: cfg.ServiceName}, nil
	}

	// resource.Default carries the SDK's schema URL; ours stays schemaless.
	res, err := resource.Merge(resource.Default(), resource.NewSchemaless(resourceAttributes(cfg)...))
	if err != nil {
		return nil, fmt.Errorf("failed to build trace resource: %w", err)
	}

	opts := []sdktrace.TracerProviderOption{
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(ratioSampler(cfg.SamplingRate))),
	}

	if cfg.OTLPEndpoint != "" {
		exporter, err := otlptracegrpc.New(ctx,
			otlptracegrpc.WithEndpoint(cfg.OTLPEndpoint),
			otlptracegrpc.WithInsecure(),
			otlptracegrpc.WithTimeout(otlpTimeout),
			otlptracegrpc.WithRetry(otlpRetry),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to create OTLP exporter: %w", err)
		}
		opts = append(opts, sdktrace.WithBatcher(exporter))
	}

	provider := sdktrace.NewTracerProvider(opts...)
	otel.SetTracerProvider(provider)

	return &TracerProvider{provider: provider, name: cfg.ServiceName}, nil
}

func resourceAttributes(cfg TracerConfig) []attribute.KeyValue {
	attrs := []attribute.KeyValue{semconv.ServiceName(cfg.ServiceName)}
	if cfg.ServiceVersion != "" {
		attrs = append(attrs, semconv.ServiceVersion(cfg.ServiceVersion))
	}
	if cfg.Zone != "" {
		attrs = append(attrs, semconv.CloudAvailabilityZone(cfg.Zone))
	}
	return attrs
}

// NewTracerProviderFrom wraps an SDK provider built elsewhere, typically
// one exporting to tracetest in tests.
func NewTracerProviderFrom(provider *sdktrace.TracerProvider, name string) *TracerProvider {
	return &TracerProvider{provider: provider, name: name}
}

func ratioSampler(rate float64) sdktrace.Sampler {
	switch {
	case rate >= 1:
		return sdktrace.AlwaysSample()
	case rate <= 0:
		return sdktrace.NeverSample()
	default:
		return sdktrace.TraceIDRatioBased(rate)
	}
}

// Tracer returns the gateway tracer. It never returns nil.
func (p *TracerProvider) Tracer() trace.Tracer {
	if !p.Enabled() {
		return noop.NewTracerProvider().Tracer("")
	}
	return p.provider.Tracer(p.name)
}

// Enabled reports whether spans are recorded.
func (p *TracerProvider) Enabled() bool {
	return p != nil && p.provider != nil
}

// Shutdown flushes pending spans.
func (p *TracerProvider) Shutdown(ctx context.Context) error {
	if !p.Enabled() {
		return nil
	}
	return p.provider.Shutdown(ctx)
}
