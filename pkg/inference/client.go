// Package inference talks to the model server that supplies semantic
// similarity scoring and parameter extraction. The gateway treats it as a
// black box reachable over HTTP; every call carries a caller-enforced timeout.
package inference

import (
	"context"
	"errors"

	"github.com/zen-systems/promptgate/pkg/config"
	"github.com/zen-systems/promptgate/pkg/schema"
)

// ErrClassifierUnavailable marks similarity calls that failed or timed out.
// The router degrades these to fallback routing.
var ErrClassifierUnavailable = errors.New("classifier unavailable")

// ErrExtractorUnavailable marks extraction calls that failed or timed out.
var ErrExtractorUnavailable = errors.New("extractor unavailable")

// Client is the inference collaborator interface.
type Client interface {
	// Similarity scores text against each candidate label, keyed by label.
	Similarity(ctx context.Context, text string, labels []string) (map[string]float64, error)

	// ExtractParameters pulls values for the given parameter specs out of the
	// text and prior conversation turns. Values are keyed by parameter name;
	// absent keys mean the model found nothing.
	ExtractParameters(ctx context.Context, text string, history []schema.Turn, specs []config.Parameter) (map[string]any, error)
}
