// Package extractor resolves declared parameter values from a prompt and its
// conversation history through the inference collaborator.
package extractor

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/zen-systems/promptgate/pkg/config"
	"github.com/zen-systems/promptgate/pkg/inference"
	"github.com/zen-systems/promptgate/pkg/registry"
	"github.com/zen-systems/promptgate/pkg/schema"
)

// Result maps declared parameter names to coerced values. Missing lists
// required parameters that stayed unresolved, in declaration order.
type Result struct {
	Values  map[string]any
	Missing []string
}

// Complete reports whether every required parameter was resolved.
func (r *Result) Complete() bool {
	return len(r.Missing) == 0
}

// Extractor runs parameter extraction for matched targets. Extraction is
// idempotent: identical input and target yield an identical result.
type Extractor struct {
	client inference.Client
}

// New creates an extractor backed by the given collaborator.
func New(client inference.Client) *Extractor {
	return &Extractor{client: client}
}

// Extract resolves each of the target's declared parameters from the prompt
// and history. Type coercion failures count as "not extracted" rather than
// hard errors. Collaborator failures surface as
// inference.ErrExtractorUnavailable.
func (e *Extractor) Extract(ctx context.Context, prompt string, history []schema.Turn, target *registry.Target) (*Result, error) {
	result := &Result{Values: make(map[string]any, len(target.Parameters))}
	if len(target.Parameters) == 0 {
		return result, nil
	}

	raw, err := e.client.ExtractParameters(ctx, prompt, history, target.Parameters)
	if err != nil {
		return nil, err
	}

	// Only declared parameters make it into the result, in declaration order.
	for _, spec := range target.Parameters {
		value, ok := raw[spec.Name]
		if ok {
			if coerced, ok := coerce(value, spec); ok {
				result.Values[spec.Name] = coerced
				continue
			}
		}
		if !spec.Required && spec.Default != "" {
			if coerced, ok := coerce(spec.Default, spec); ok {
				result.Values[spec.Name] = coerced
			}
			continue
		}
		if spec.Required {
			result.Missing = append(result.Missing, spec.Name)
		}
	}
	return result, nil
}

// coerce converts a raw extracted value to the parameter's declared type.
func coerce(value any, spec config.Parameter) (any, bool) {
	switch spec.Type {
	case "string":
		s, ok := asString(value)
		if !ok || strings.TrimSpace(s) == "" {
			return nil, false
		}
		return s, true
	case "number":
		return asNumber(value)
	case "boolean":
		return asBool(value)
	case "enum":
		s, ok := asString(value)
		if !ok {
			return nil, false
		}
		for _, allowed := range spec.Enum {
			if s == allowed {
				return s, true
			}
		}
		return nil, false
	default:
		return nil, false
	}
}

func asString(value any) (string, bool) {
	s, ok := value.(string)
	return s, ok
}

func asNumber(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		return f, err == nil
	default:
		return 0, false
	}
}

func asBool(value any) (bool, bool) {
	switch v := value.(type) {
	case bool:
		return v, true
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		return b, err == nil
	default:
		return false, false
	}
}
