package apikey

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

type fakeSources struct {
	query   []string
	headers []string
}

func (f fakeSources) APIKeyQueryParameters() []string { return f.query }
func (f fakeSources) APIKeyHeaders() []string         { return f.headers }

func TestResolveSource(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name           string
		sources        fakeSources
		req            fakeLookup
		expectedKey    string
		expectedSource Source
	}{
		{
			name:           "Declared query list first match wins",
			sources:        fakeSources{query: []string{"q1", "q2"}},
			req:            fakeLookup{query: map[string]string{"q1": "A", "q2": "B"}},
			expectedKey:    "A",
			expectedSource: SourceQuery,
		},
		{
			name:           "Declared query list second entry",
			sources:        fakeSources{query: []string{"q1", "q2"}},
			req:            fakeLookup{query: map[string]string{"q2": "B"}},
			expectedKey:    "B",
			expectedSource: SourceQuery,
		},
		{
			name:           "Declared header list",
			sources:        fakeSources{headers: []string{"X-Key", "X-Alt"}},
			req:            fakeLookup{headers: map[string]string{"X-Alt": "H"}},
			expectedKey:    "H",
			expectedSource: SourceHeader,
		},
		{
			name:           "Query list probed before header list",
			sources:        fakeSources{query: []string{"q"}, headers: []string{"X-Key"}},
			req:            fakeLookup{query: map[string]string{"q": "Q"}, headers: map[string]string{"X-Key": "H"}},
			expectedKey:    "Q",
			expectedSource: SourceQuery,
		},
		{
			name:           "Header list used when query list misses",
			sources:        fakeSources{query: []string{"q"}, headers: []string{"X-Key"}},
			req:            fakeLookup{headers: map[string]string{"X-Key": "H"}},
			expectedKey:    "H",
			expectedSource: SourceHeader,
		},
		{
			name:           "Declared query list does not fall back to defaults",
			sources:        fakeSources{query: []string{"q"}},
			req:            fakeLookup{query: map[string]string{"key": "A"}},
			expectedSource: SourceNone,
		},
		{
			name:           "Declared empty list does not fall back to defaults",
			sources:        fakeSources{query: []string{}},
			req:            fakeLookup{query: map[string]string{"key": "A"}},
			expectedSource: SourceNone,
		},
		{
			name:           "Declared empty header list does not fall back to defaults",
			sources:        fakeSources{headers: []string{}},
			req:            fakeLookup{query: map[string]string{"api_key": "B"}},
			expectedSource: SourceNone,
		},
		{
			name:           "Default key before api_key",
			req:            fakeLookup{query: map[string]string{"key": "A", "api_key": "B"}},
			expectedKey:    "A",
			expectedSource: SourceDefault,
		},
		{
			name:           "Default api_key when key absent",
			req:            fakeLookup{query: map[string]string{"api_key": "X"}},
			expectedKey:    "X",
			expectedSource: SourceDefault,
		},
		{
			name:           "Defaults ignore headers",
			req:            fakeLookup{headers: map[string]string{"key": "A"}},
			expectedSource: SourceNone,
		},
		{
			name:           "No key anywhere",
			req:            fakeLookup{},
			expectedSource: SourceNone,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			key, source := ResolveSource(tt.sources, tt.req)
			assert.Equal(t, tt.expectedKey, key)
			assert.Equal(t, tt.expectedSource, source)
		})
	}
}

func TestResolver_Resolve(t *testing.T) {
	t.Parallel()

	r := NewResolver()
	counter := r.metrics.resolutions.WithLabelValues(string(SourceDefault))
	before := testutil.ToFloat64(counter)

	key := r.Resolve(fakeSources{}, fakeLookup{query: map[string]string{"key": "A"}})

	assert.Equal(t, "A", key)
	assert.GreaterOrEqual(t, testutil.ToFloat64(counter)-before, 1.0)
}

func TestResolver_NilSafe(t *testing.T) {
	t.Parallel()

	var r *Resolver
	assert.Equal(t, "X", r.Resolve(fakeSources{}, fakeLookup{query: map[string]string{"api_key": "X"}}))
}
