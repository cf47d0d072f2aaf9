package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the declarative gateway configuration, loaded once at startup.
type Config struct {
	Version       string              `yaml:"version"`
	Listener      Listener            `yaml:"listener"`
	Inference     Inference           `yaml:"inference"`
	Endpoints     map[string]Endpoint `yaml:"endpoints"`
	LLMProviders  []LLMProvider       `yaml:"llm_providers"`
	PromptTargets []PromptTarget      `yaml:"prompt_targets"`
	ErrorTargets  []ErrorTarget       `yaml:"error_targets,omitempty"`
	Overrides     Overrides           `yaml:"overrides,omitempty"`
}

// Listener is the ingress bind configuration.
type Listener struct {
	Address string `yaml:"address"`
	Port    int    `yaml:"port"`
}

// Inference points at the model server providing similarity scoring and
// parameter extraction.
type Inference struct {
	Address   string `yaml:"address"`
	TimeoutMs int    `yaml:"timeout_ms,omitempty"`
}

// Endpoint is a named upstream application address.
type Endpoint struct {
	Address string `yaml:"address"`
}

// EndpointRef points a target at a named endpoint with an optional path.
type EndpointRef struct {
	Name string `yaml:"name"`
	Path string `yaml:"path,omitempty"`
}

// LLMProvider describes one generative-model backend used for LLM dispatch.
type LLMProvider struct {
	ID           string     `yaml:"id"`
	Provider     string     `yaml:"provider"` // anthropic | openai | google | mock
	Model        string     `yaml:"model"`
	AccessKeyEnv string     `yaml:"access_key_env,omitempty"`
	Priority     int        `yaml:"priority"`
	Default      bool       `yaml:"default,omitempty"`
	RateLimit    *RateLimit `yaml:"rate_limit,omitempty"`
}

// RateLimit bounds dispatch throughput for one provider.
type RateLimit struct {
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	Burst             int     `yaml:"burst,omitempty"`
}

// PromptTarget is a developer-declared intent with typed parameters and a
// destination endpoint.
type PromptTarget struct {
	ID                        string      `yaml:"id"`
	Description               string      `yaml:"description"`
	Parameters                []Parameter `yaml:"parameters,omitempty"`
	Endpoint                  EndpointRef `yaml:"endpoint"`
	SystemPrompt              string      `yaml:"system_prompt,omitempty"`
	AutoLLMDispatchOnResponse bool        `yaml:"auto_llm_dispatch_on_response,omitempty"`
	Default                   bool        `yaml:"default,omitempty"`
}

// Parameter declares one extractable value on a prompt target.
type Parameter struct {
	Name        string   `yaml:"name"`
	Type        string   `yaml:"type"` // string | number | boolean | enum
	Description string   `yaml:"description"`
	Required    bool     `yaml:"required,omitempty"`
	Enum        []string `yaml:"enum,omitempty"`
	Default     string   `yaml:"default,omitempty"`
}

// ErrorTarget receives requests when processing fails in a matching way.
// An empty ErrorKind matches every kind.
type ErrorTarget struct {
	ID        string      `yaml:"id"`
	Endpoint  EndpointRef `yaml:"endpoint"`
	ErrorKind string      `yaml:"error_kind,omitempty"`
}

// Overrides collects every tunable with a sane default. None of these are
// hardcoded at use sites. Zero means unset and takes the default; retry_budget
// and history_window accept a negative value to mean an explicit zero
// (no retries, no history blending).
type Overrides struct {
	IntentMatchingThreshold  float64 `yaml:"intent_matching_threshold,omitempty"`
	TieEpsilon               float64 `yaml:"tie_epsilon,omitempty"`
	ContinuationThreshold    float64 `yaml:"continuation_threshold,omitempty"`
	HistoryWindow            int     `yaml:"history_window,omitempty"`
	ScoreCacheSize           int     `yaml:"score_cache_size,omitempty"`
	RetryBudget              int     `yaml:"retry_budget,omitempty"`
	BaseBackoffMs            int     `yaml:"base_backoff_ms,omitempty"`
	MaxBackoffMs             int     `yaml:"max_backoff_ms,omitempty"`
	AttemptTimeoutMs         int     `yaml:"attempt_timeout_ms,omitempty"`
	RequestDeadlineMs        int     `yaml:"request_deadline_ms,omitempty"`
	ProviderFailureThreshold int     `yaml:"provider_failure_threshold,omitempty"`
	ProviderCooldownMs       int     `yaml:"provider_cooldown_ms,omitempty"`
}

// ConfigError is the fatal startup-only error class. A configuration either
// loads completely or not at all.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("config: %s", e.Reason)
	}
	return fmt.Sprintf("config: %s: %s", e.Field, e.Reason)
}

func errf(field, format string, args ...any) *ConfigError {
	return &ConfigError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// Load reads, defaults, and validates a gateway configuration file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &ConfigError{Reason: fmt.Sprintf("read %s: %v", path, err)}
	}
	return Parse(data)
}

// Parse decodes and validates a configuration document.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, &ConfigError{Reason: fmt.Sprintf("parse yaml: %v", err)}
	}

	applyDefaults(&cfg)
	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// InferenceTimeout returns the model-server call timeout.
func (c *Config) InferenceTimeout() time.Duration {
	return time.Duration(c.Inference.TimeoutMs) * time.Millisecond
}

// AttemptTimeout bounds a single upstream dispatch attempt.
func (o Overrides) AttemptTimeout() time.Duration {
	return time.Duration(o.AttemptTimeoutMs) * time.Millisecond
}

// RequestDeadline bounds a request end to end across all retries.
func (o Overrides) RequestDeadline() time.Duration {
	return time.Duration(o.RequestDeadlineMs) * time.Millisecond
}

// ProviderCooldown is how long a demoted provider stays out of rotation.
func (o Overrides) ProviderCooldown() time.Duration {
	return time.Duration(o.ProviderCooldownMs) * time.Millisecond
}

// BaseBackoff is the first retry delay.
func (o Overrides) BaseBackoff() time.Duration {
	return time.Duration(o.BaseBackoffMs) * time.Millisecond
}

// MaxBackoff caps the retry delay.
func (o Overrides) MaxBackoff() time.Duration {
	return time.Duration(o.MaxBackoffMs) * time.Millisecond
}

func applyDefaults(cfg *Config) {
	if cfg == nil {
		return
	}
	if cfg.Inference.TimeoutMs == 0 {
		cfg.Inference.TimeoutMs = 5000
	}
	o := &cfg.Overrides
	if o.IntentMatchingThreshold == 0 {
		o.IntentMatchingThreshold = 0.6
	}
	if o.TieEpsilon == 0 {
		o.TieEpsilon = 0.02
	}
	if o.ContinuationThreshold == 0 {
		o.ContinuationThreshold = 0.4
	}
	if o.HistoryWindow == 0 {
		o.HistoryWindow = 2
	}
	if o.HistoryWindow < 0 {
		o.HistoryWindow = 0
	}
	if o.ScoreCacheSize == 0 {
		o.ScoreCacheSize = 512
	}
	if o.RetryBudget == 0 {
		o.RetryBudget = 2
	}
	if o.RetryBudget < 0 {
		o.RetryBudget = 0
	}
	if o.BaseBackoffMs == 0 {
		o.BaseBackoffMs = 200
	}
	if o.MaxBackoffMs == 0 {
		o.MaxBackoffMs = 2000
	}
	if o.MaxBackoffMs < o.BaseBackoffMs {
		o.MaxBackoffMs = o.BaseBackoffMs
	}
	if o.AttemptTimeoutMs == 0 {
		o.AttemptTimeoutMs = 10000
	}
	if o.RequestDeadlineMs == 0 {
		o.RequestDeadlineMs = 30000
	}
	if o.ProviderFailureThreshold == 0 {
		o.ProviderFailureThreshold = 3
	}
	if o.ProviderCooldownMs == 0 {
		o.ProviderCooldownMs = 30000
	}
}
