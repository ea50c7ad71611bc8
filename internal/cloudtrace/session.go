package cloudtrace

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/vyrodovalexey/apimanager/internal/observability"
)

// Tracer creates trace sessions.
type Tracer struct {
	tracer trace.Tracer
	header string
	logger observability.Logger
}

// TracerOption configures a Tracer.
type TracerOption func(*Tracer)

// WithLogger sets the logger used to report rejected headers.
func WithLogger(logger observability.Logger) TracerOption {
	return func(t *Tracer) {
		t.logger = logger
	}
}

// WithTriggerHeader overrides the header read by the gateway.
func WithTriggerHeader(name string) TracerOption {
	return func(t *Tracer) {
		if name != "" {
			t.header = name
		}
	}
}

// NewTracer creates a Tracer on top of an OpenTelemetry tracer. A nil
// tracer disables every session.
func NewTracer(tracer trace.Tracer, opts ...TracerOption) *Tracer {
	t := &Tracer{
		tracer: tracer,
		header: HeaderName,
		logger: observability.NopLogger(),
	}
	if t.tracer == nil {
		t.tracer = noop.NewTracerProvider().Tracer("")
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// TriggerHeader returns the name of the header that activates tracing.
func (t *Tracer) TriggerHeader() string {
	if t == nil {
		return HeaderName
	}
	return t.header
}

// NewSession starts the session of one call. It never fails: an absent,
// malformed or not-enabled header yields a disabled session.
func (t *Tracer) NewSession(ctx context.Context, headerValue, name string) *Session {
	if t == nil || headerValue == "" {
		return disabledSession(ctx)
	}

	h, err := ParseHeader(headerValue)
	if err != nil {
		t.logger.Debug("ignoring trace header",
			observability.String("header", headerValue),
			observability.Error(err))
		return disabledSession(ctx)
	}
	if !h.Enabled {
		return disabledSession(ctx)
	}

	parent := trace.ContextWithRemoteSpanContext(ctx, h.SpanContext())
	ctx, root := t.tracer.Start(parent, name,
		trace.WithSpanKind(trace.SpanKindServer),
		trace.WithAttributes(attribute.String("cloudtrace.trace_id", h.TraceID.String())),
	)

	return &Session{
		ctx:     ctx,
		root:    root,
		tracer:  t.tracer,
		enabled: true,
	}
}

// Session is the trace of one call.
type Session struct {
	ctx     context.Context
	root    trace.Span
	tracer  trace.Tracer
	enabled bool
}

var noopTracer = noop.NewTracerProvider().Tracer("")

func disabledSession(ctx context.Context) *Session {
	_, root := noopTracer.Start(ctx, "")
	return &Session{ctx: ctx, root: root, tracer: noopTracer}
}

// Enabled reports whether spans of the session are recorded.
func (s *Session) Enabled() bool {
	return s.enabled
}

// Context returns the context carrying the root span.
func (s *Session) Context() context.Context {
	return s.ctx
}

// Root returns the root span of the session.
func (s *Session) Root() trace.Span {
	return s.root
}

// StartSpan starts a child of the root span. Each call creates a new
// sibling; the caller ends it.
func (s *Session) StartSpan(name string, opts ...trace.SpanStartOption) trace.Span {
	_, span := s.tracer.Start(s.ctx, name, opts...)
	return span
}

// End ends the root span.
func (s *Session) End() {
	s.root.End()
}
