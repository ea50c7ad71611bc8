package router

import (
	"fmt"
	"net/http"
	"sort"
	"strings"

	"github.com/vyrodovalexey/apimanager/internal/config"
)

// MethodInfo is the read-only descriptor of a configured API method.
type MethodInfo struct {
	name          string
	httpMethod    string
	template      *PathTemplate
	apiKeyQuery   []string
	apiKeyHeaders []string
}

// NewMethodInfo compiles a method configuration.
func NewMethodInfo(cfg config.MethodConfig) (*MethodInfo, error) {
	tmpl, err := ParseTemplate(cfg.Path)
	if err != nil {
		return nil, err
	}

	m := &MethodInfo{
		name:       cfg.Name,
		httpMethod: strings.ToUpper(cfg.HTTPMethod),
		template:   tmpl,
	}
	if cfg.APIKey != nil {
		m.apiKeyQuery = cloneDeclared(cfg.APIKey.Query)
		m.apiKeyHeaders = cloneDeclared(cfg.APIKey.Headers)
	}
	return m, nil
}

// cloneDeclared copies a list while preserving the nil/empty distinction.
func cloneDeclared(in []string) []string {
	if in == nil {
		return nil
	}
	return append(make([]string, 0, len(in)), in...)
}

// Name returns the method name used as the operation name.
func (m *MethodInfo) Name() string { return m.name }

// Selector returns the fully qualified name the method is reported by.
func (m *MethodInfo) Selector() string { return m.name }

// HTTPMethod returns the configured verb ("*" for any).
func (m *MethodInfo) HTTPMethod() string { return m.httpMethod }

// PathTemplate returns the configured URL template.
func (m *MethodInfo) PathTemplate() string { return m.template.Pattern() }

// APIKeyQueryParameters returns the declared query parameter names, or
// nil when the method declares none.
func (m *MethodInfo) APIKeyQueryParameters() []string { return m.apiKeyQuery }

// APIKeyHeaders returns the declared header names, or nil when the
// method declares none.
func (m *MethodInfo) APIKeyHeaders() []string { return m.apiKeyHeaders }

// matchesVerb checks the request verb. HEAD falls back to GET methods.
func (m *MethodInfo) matchesVerb(verb string) bool {
	verb = strings.ToUpper(verb)
	switch m.httpMethod {
	case "*", verb:
		return true
	case http.MethodGet:
		return verb == http.MethodHead
	}
	return false
}

// MatchResult is the outcome of resolving a call.
type MatchResult struct {
	// Method is nil when the call matches no configured method.
	Method *MethodInfo

	// Bindings maps template variable names to path segments.
	Bindings map[string]string
}

// Matched reports whether a named method was found.
func (r MatchResult) Matched() bool {
	return r.Method != nil && r.Method.Name() != ""
}

// Router is an immutable method catalog. A configuration reload builds a
// new Router rather than mutating one that requests are reading.
type Router struct {
	methods []*MethodInfo
	metrics *Metrics
}

// New compiles the method catalog. Methods with more literal segments are
// tried first; ties keep declaration order.
func New(methods []config.MethodConfig) (*Router, error) {
	r := &Router{
		methods: make([]*MethodInfo, 0, len(methods)),
		metrics: GetSharedMetrics(),
	}

	for i, cfg := range methods {
		m, err := NewMethodInfo(cfg)
		if err != nil {
			return nil, fmt.Errorf("method %d (%s): %w", i, cfg.Name, err)
		}
		r.methods = append(r.methods, m)
	}

	sort.SliceStable(r.methods, func(i, j int) bool {
		return r.methods[i].template.literals > r.methods[j].template.literals
	})

	return r, nil
}

// Resolve finds the method for verb and path.
func (r *Router) Resolve(httpMethod, path string) MatchResult {
	for _, m := range r.methods {
		if !m.matchesVerb(httpMethod) {
			continue
		}
		if ok, bindings := m.template.Match(path); ok {
			result := MatchResult{Method: m, Bindings: bindings}
			r.count(result)
			return result
		}
	}

	r.count(MatchResult{})
	return MatchResult{}
}

func (r *Router) count(result MatchResult) {
	outcome := outcomeUnmatched
	if result.Matched() {
		outcome = outcomeMatched
	}
	r.metrics.resolutions.WithLabelValues(outcome).Inc()
}

// Methods returns the compiled methods in match order.
func (r *Router) Methods() []*MethodInfo {
	return append([]*MethodInfo(nil), r.methods...)
}
