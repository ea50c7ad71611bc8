// Package service holds the service-wide state every call reads: the
// method catalog, the producer project, the cloud placement and the
// tracer. A Context is immutable; a configuration reload builds a new one
// and swaps it into the Holder.
package service

import (
	"fmt"
	"sync/atomic"

	"go.opentelemetry.io/otel/trace"

	"github.com/vyrodovalexey/apimanager/internal/cloudtrace"
	"github.com/vyrodovalexey/apimanager/internal/config"
	"github.com/vyrodovalexey/apimanager/internal/metadata"
	"github.com/vyrodovalexey/apimanager/internal/observability"
	"github.com/vyrodovalexey/apimanager/internal/router"
)

// Context is the read-only state of the managed service.
type Context struct {
	name      string
	projectID string
	router    *router.Router
	metadata  *metadata.Metadata
	tracer    *cloudtrace.Tracer
}

// New builds a service context from configuration. tracer may be nil to
// disable tracing.
func New(cfg *config.GatewayConfig, tracer trace.Tracer, logger observability.Logger) (*Context, error) {
	if logger == nil {
		logger = observability.NopLogger()
	}

	r, err := router.New(cfg.Spec.Service.Methods)
	if err != nil {
		return nil, fmt.Errorf("failed to build method catalog: %w", err)
	}

	return &Context{
		name:      cfg.Spec.Service.Name,
		projectID: cfg.Spec.Service.ProducerProjectID,
		router:    r,
		metadata:  metadata.FromConfig(cfg.Spec.Cloud),
		tracer: cloudtrace.NewTracer(tracer,
			cloudtrace.WithTriggerHeader(cfg.Spec.Tracing.TriggerHeader),
			cloudtrace.WithLogger(logger)),
	}, nil
}

// ResolveMethod finds the method targeted by a call.
func (c *Context) ResolveMethod(httpMethod, path string) router.MatchResult {
	return c.router.Resolve(httpMethod, path)
}

// ServiceName returns the managed service name.
func (c *Context) ServiceName() string { return c.name }

// ProjectID returns the producer project id.
func (c *Context) ProjectID() string { return c.projectID }

// Metadata returns the cloud placement.
func (c *Context) Metadata() metadata.Source { return c.metadata }

// Tracer returns the trace session factory.
func (c *Context) Tracer() *cloudtrace.Tracer { return c.tracer }

// Router returns the method catalog.
func (c *Context) Router() *router.Router { return c.router }

// Holder publishes the current Context to concurrent readers.
type Holder struct {
	current atomic.Pointer[Context]
}

// NewHolder creates a holder with an initial context.
func NewHolder(c *Context) *Holder {
	h := &Holder{}
	h.current.Store(c)
	return h
}

// Load returns the current context.
func (h *Holder) Load() *Context {
	return h.current.Load()
}

// Store replaces the current context. Calls already in flight keep the
// context they loaded.
func (h *Holder) Store(c *Context) {
	h.current.Store(c)
}
