package config

import (
	"errors"
	"strings"
	"testing"
)

const baseConfig = `
version: v1
listener:
  address: 127.0.0.1
  port: 10000
inference:
  address: http://model-server:8000
endpoints:
  app_server:
    address: http://app:8080
  error_server:
    address: http://errors:8081
llm_providers:
  - id: primary
    provider: openai
    model: gpt-4o
    priority: 1
    default: true
  - id: secondary
    provider: anthropic
    model: claude-sonnet-4-20250514
    priority: 2
prompt_targets:
  - id: book_flight
    description: Book a flight between two cities on a date
    endpoint:
      name: app_server
      path: /flights
    parameters:
      - name: origin
        type: string
        description: departure city
        required: true
      - name: destination
        type: string
        description: arrival city
        required: true
  - id: order_status
    description: Check the status of an existing order
    endpoint:
      name: app_server
      path: /orders
error_targets:
  - id: classify_errors
    endpoint:
      name: error_server
      path: /error
    error_kind: classification_failure
`

func TestParseValidConfig(t *testing.T) {
	cfg, err := Parse([]byte(baseConfig))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(cfg.PromptTargets) != 2 {
		t.Fatalf("expected 2 targets, got %d", len(cfg.PromptTargets))
	}
	if cfg.PromptTargets[0].ID != "book_flight" {
		t.Fatalf("declaration order not preserved: %s", cfg.PromptTargets[0].ID)
	}
	if !cfg.PromptTargets[0].Parameters[0].Required {
		t.Fatalf("expected origin to be required")
	}
}

func TestDefaultsApplied(t *testing.T) {
	cfg, err := Parse([]byte(baseConfig))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	o := cfg.Overrides
	if o.IntentMatchingThreshold <= 0 || o.TieEpsilon <= 0 || o.ContinuationThreshold <= 0 {
		t.Fatalf("thresholds not defaulted: %+v", o)
	}
	if o.RetryBudget == 0 || o.ProviderFailureThreshold == 0 || o.ProviderCooldownMs == 0 {
		t.Fatalf("dispatch tunables not defaulted: %+v", o)
	}
	if o.RequestDeadline() <= o.AttemptTimeout() {
		t.Fatalf("deadline should exceed a single attempt timeout")
	}
	if cfg.InferenceTimeout() <= 0 {
		t.Fatalf("inference timeout not defaulted")
	}
}

func TestNegativeOverridesMeanZero(t *testing.T) {
	doc := baseConfig + `
overrides:
  retry_budget: -1
  history_window: -1
`
	cfg, err := Parse([]byte(doc))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Overrides.RetryBudget != 0 {
		t.Fatalf("retry_budget: -1 should disable retries, got %d", cfg.Overrides.RetryBudget)
	}
	if cfg.Overrides.HistoryWindow != 0 {
		t.Fatalf("history_window: -1 should disable blending, got %d", cfg.Overrides.HistoryWindow)
	}
}

func TestDuplicateTargetID(t *testing.T) {
	doc := strings.Replace(baseConfig, "id: order_status", "id: book_flight", 1)
	_, err := Parse([]byte(doc))
	var cerr *ConfigError
	if !errors.As(err, &cerr) {
		t.Fatalf("expected ConfigError, got %v", err)
	}
	if !strings.Contains(cerr.Error(), "duplicate target id") {
		t.Fatalf("unexpected reason: %v", cerr)
	}
}

func TestDuplicateParameterName(t *testing.T) {
	doc := strings.Replace(baseConfig, "name: destination", "name: origin", 1)
	_, err := Parse([]byte(doc))
	var cerr *ConfigError
	if !errors.As(err, &cerr) {
		t.Fatalf("expected ConfigError, got %v", err)
	}
	if !strings.Contains(cerr.Error(), "duplicate parameter") {
		t.Fatalf("unexpected reason: %v", cerr)
	}
}

func TestUndeclaredEndpoint(t *testing.T) {
	doc := strings.Replace(baseConfig, "name: app_server\n      path: /flights", "name: nowhere\n      path: /flights", 1)
	if _, err := Parse([]byte(doc)); err == nil {
		t.Fatalf("expected error for undeclared endpoint")
	}
}

func TestMalformedAddress(t *testing.T) {
	doc := strings.Replace(baseConfig, "address: http://app:8080", "address: not a url", 1)
	var cerr *ConfigError
	if _, err := Parse([]byte(doc)); !errors.As(err, &cerr) {
		t.Fatalf("expected ConfigError, got %v", err)
	}
}

func TestUnknownErrorKind(t *testing.T) {
	doc := strings.Replace(baseConfig, "error_kind: classification_failure", "error_kind: bad_kind", 1)
	if _, err := Parse([]byte(doc)); err == nil {
		t.Fatalf("expected error for unknown error kind")
	}
}

func TestEnumWithoutValues(t *testing.T) {
	doc := strings.Replace(baseConfig, "type: string\n        description: arrival city", "type: enum\n        description: arrival city", 1)
	if _, err := Parse([]byte(doc)); err == nil {
		t.Fatalf("expected error for enum without values")
	}
}

func TestTwoDefaultTargets(t *testing.T) {
	extra := `  - id: catchall_a
    description: first default
    default: true
    endpoint:
      name: app_server
  - id: catchall_b
    description: second default
    default: true
    endpoint:
      name: app_server
error_targets:`
	doc := strings.Replace(baseConfig, "error_targets:", extra, 1)
	if _, err := Parse([]byte(doc)); err == nil {
		t.Fatalf("expected error for two default targets")
	}
}
