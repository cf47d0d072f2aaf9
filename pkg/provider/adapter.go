// Package provider holds the LLM backend adapters, the shared health table,
// and the priority-ordered provider pool used for fail-over dispatch.
package provider

import (
	"context"
	"fmt"
	"os"

	"github.com/zen-systems/promptgate/pkg/config"
)

// Adapter is the narrow interface every LLM backend implements.
type Adapter interface {
	// Generate sends a prompt to the model and returns the text response.
	Generate(ctx context.Context, model string, prompt string) (string, error)

	// Name returns the adapter's identifier.
	Name() string
}

// NewAdapter constructs the adapter for a configured provider descriptor,
// reading its credential from the configured environment variable.
func NewAdapter(p config.LLMProvider) (Adapter, error) {
	apiKey := ""
	if p.AccessKeyEnv != "" {
		apiKey = os.Getenv(p.AccessKeyEnv)
	}

	switch p.Provider {
	case "anthropic":
		return NewAnthropicAdapter(apiKey)
	case "openai":
		return NewOpenAIAdapter(apiKey)
	case "google":
		return NewGoogleAdapter(apiKey)
	case "mock":
		return NewMockAdapter(), nil
	default:
		return nil, fmt.Errorf("unknown provider kind %q", p.Provider)
	}
}
