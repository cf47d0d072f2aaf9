package inference

import (
	"context"

	"github.com/zen-systems/promptgate/pkg/config"
	"github.com/zen-systems/promptgate/pkg/schema"
)

// Mock returns canned scores and values for local runs and tests.
type Mock struct {
	Scores        map[string]float64
	Values        map[string]any
	SimilarityErr error
	ExtractErr    error

	SimilarityCalls int
	ExtractCalls    int
}

// Similarity returns the canned score map.
func (m *Mock) Similarity(_ context.Context, _ string, labels []string) (map[string]float64, error) {
	m.SimilarityCalls++
	if m.SimilarityErr != nil {
		return nil, m.SimilarityErr
	}
	out := make(map[string]float64, len(labels))
	for _, l := range labels {
		out[l] = m.Scores[l]
	}
	return out, nil
}

// ExtractParameters returns canned values restricted to the requested specs.
func (m *Mock) ExtractParameters(_ context.Context, _ string, _ []schema.Turn, specs []config.Parameter) (map[string]any, error) {
	m.ExtractCalls++
	if m.ExtractErr != nil {
		return nil, m.ExtractErr
	}
	out := make(map[string]any, len(specs))
	for _, s := range specs {
		if v, ok := m.Values[s.Name]; ok {
			out[s.Name] = v
		}
	}
	return out, nil
}
