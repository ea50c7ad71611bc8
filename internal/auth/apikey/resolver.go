package apikey

// Default query parameters probed when a method declares no key location.
const (
	DefaultQueryParam         = "key"
	DefaultFallbackQueryParam = "api_key"
)

// Sources is the API key configuration of a method. A nil list is
// undeclared; a non-nil empty list is declared.
type Sources interface {
	APIKeyQueryParameters() []string
	APIKeyHeaders() []string
}

// Source identifies where a key was found.
type Source string

// Key sources.
const (
	SourceQuery   Source = "query"
	SourceHeader  Source = "header"
	SourceDefault Source = "default"
	SourceNone    Source = "none"
)

var defaultExtractor = NewQueryExtractor(DefaultQueryParam, DefaultFallbackQueryParam)

// Resolver resolves API keys and records where they came from.
type Resolver struct {
	metrics *Metrics
}

// NewResolver creates a resolver recording to the shared metrics.
func NewResolver() *Resolver {
	return &Resolver{metrics: GetSharedMetrics()}
}

// Resolve returns the API key of req, or "" when there is none.
func (r *Resolver) Resolve(src Sources, req Lookup) string {
	key, source := ResolveSource(src, req)
	if r != nil && r.metrics != nil {
		r.metrics.resolutions.WithLabelValues(string(source)).Inc()
	}
	return key
}

// ResolveSource returns the API key of req and where it was found.
//
// A declared query list is probed first, then a declared header list.
// Only when neither is declared are the default query parameters tried.
func ResolveSource(src Sources, req Lookup) (string, Source) {
	declared := false

	if params := src.APIKeyQueryParameters(); params != nil {
		declared = true
		if key, ok := NewQueryExtractor(params...).Extract(req); ok {
			return key, SourceQuery
		}
	}

	if headers := src.APIKeyHeaders(); headers != nil {
		declared = true
		if key, ok := NewHeaderExtractor(headers...).Extract(req); ok {
			return key, SourceHeader
		}
	}

	if !declared {
		if key, ok := defaultExtractor.Extract(req); ok {
			return key, SourceDefault
		}
	}

	return "", SourceNone
}
