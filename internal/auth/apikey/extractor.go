package apikey

// Lookup exposes the parts of a request an API key can come from.
type Lookup interface {
	// FindQuery returns the first value of a query parameter and whether
	// the parameter is present.
	FindQuery(name string) (string, bool)

	// FindHeader returns the first value of a header and whether it is
	// present.
	FindHeader(name string) (string, bool)
}

// Extractor finds an API key in a request.
type Extractor interface {
	Extract(req Lookup) (string, bool)
}

// QueryExtractor probes query parameters in order.
type QueryExtractor struct {
	params []string
}

// NewQueryExtractor creates a query parameter extractor.
func NewQueryExtractor(params ...string) *QueryExtractor {
	return &QueryExtractor{params: params}
}

// Extract returns the value of the first present parameter.
func (e *QueryExtractor) Extract(req Lookup) (string, bool) {
	for _, p := range e.params {
		if v, ok := req.FindQuery(p); ok {
			return v, true
		}
	}
	return "", false
}

// HeaderExtractor probes headers in order.
type HeaderExtractor struct {
	headers []string
}

// NewHeaderExtractor creates a header extractor.
func NewHeaderExtractor(headers ...string) *HeaderExtractor {
	return &HeaderExtractor{headers: headers}
}

// Extract returns the value of the first present header.
func (e *HeaderExtractor) Extract(req Lookup) (string, bool) {
	for _, h := range e.headers {
		if v, ok := req.FindHeader(h); ok {
			return v, true
		}
	}
	return "", false
}

// ExtractorFunc adapts a function to Extractor.
type ExtractorFunc func(req Lookup) (string, bool)

// Extract implements Extractor.
func (f ExtractorFunc) Extract(req Lookup) (string, bool) {
	return f(req)
}
