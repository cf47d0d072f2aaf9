package config

import (
	"net"
	"net/url"
	"strings"

	"github.com/zen-systems/promptgate/pkg/schema"
)

var parameterTypes = map[string]bool{
	"string":  true,
	"number":  true,
	"boolean": true,
	"enum":    true,
}

var providerKinds = map[string]bool{
	"anthropic": true,
	"openai":    true,
	"google":    true,
	"mock":      true,
}

func validate(cfg *Config) error {
	if cfg.Listener.Port <= 0 || cfg.Listener.Port > 65535 {
		return errf("listener.port", "must be in 1..65535, got %d", cfg.Listener.Port)
	}
	if err := validAddress(cfg.Inference.Address); err != nil {
		return errf("inference.address", "%v", err)
	}

	for name, ep := range cfg.Endpoints {
		if err := validAddress(ep.Address); err != nil {
			return errf("endpoints."+name, "%v", err)
		}
	}

	if err := validateProviders(cfg.LLMProviders); err != nil {
		return err
	}
	if err := validateTargets(cfg); err != nil {
		return err
	}
	return validateErrorTargets(cfg)
}

func validateProviders(providers []LLMProvider) error {
	if len(providers) == 0 {
		return errf("llm_providers", "at least one provider is required")
	}
	seen := make(map[string]bool, len(providers))
	for _, p := range providers {
		if strings.TrimSpace(p.ID) == "" {
			return errf("llm_providers", "provider id is required")
		}
		if seen[p.ID] {
			return errf("llm_providers", "duplicate provider id %q", p.ID)
		}
		seen[p.ID] = true
		if !providerKinds[p.Provider] {
			return errf("llm_providers."+p.ID, "unknown provider kind %q", p.Provider)
		}
		if strings.TrimSpace(p.Model) == "" {
			return errf("llm_providers."+p.ID, "model is required")
		}
		if p.RateLimit != nil && p.RateLimit.RequestsPerSecond <= 0 {
			return errf("llm_providers."+p.ID, "rate_limit.requests_per_second must be positive")
		}
	}
	return nil
}

func validateTargets(cfg *Config) error {
	if len(cfg.PromptTargets) == 0 {
		return errf("prompt_targets", "at least one prompt target is required")
	}
	seen := make(map[string]bool, len(cfg.PromptTargets))
	defaults := 0
	for _, t := range cfg.PromptTargets {
		if strings.TrimSpace(t.ID) == "" {
			return errf("prompt_targets", "target id is required")
		}
		if seen[t.ID] {
			return errf("prompt_targets", "duplicate target id %q", t.ID)
		}
		seen[t.ID] = true
		if strings.TrimSpace(t.Description) == "" {
			return errf("prompt_targets."+t.ID, "description is required")
		}
		if err := validateEndpointRef(cfg, t.Endpoint); err != nil {
			return errf("prompt_targets."+t.ID+".endpoint", "%v", err)
		}
		if t.Default {
			defaults++
		}

		names := make(map[string]bool, len(t.Parameters))
		for _, p := range t.Parameters {
			if strings.TrimSpace(p.Name) == "" {
				return errf("prompt_targets."+t.ID, "parameter name is required")
			}
			if names[p.Name] {
				return errf("prompt_targets."+t.ID, "duplicate parameter %q", p.Name)
			}
			names[p.Name] = true
			if !parameterTypes[p.Type] {
				return errf("prompt_targets."+t.ID+"."+p.Name, "unknown parameter type %q", p.Type)
			}
			if p.Type == "enum" && len(p.Enum) == 0 {
				return errf("prompt_targets."+t.ID+"."+p.Name, "enum parameter declares no values")
			}
		}
	}
	if defaults > 1 {
		return errf("prompt_targets", "at most one target may be default, found %d", defaults)
	}
	return nil
}

func validateErrorTargets(cfg *Config) error {
	seen := make(map[string]bool, len(cfg.ErrorTargets))
	for _, et := range cfg.ErrorTargets {
		if strings.TrimSpace(et.ID) == "" {
			return errf("error_targets", "error target id is required")
		}
		if seen[et.ID] {
			return errf("error_targets", "duplicate error target id %q", et.ID)
		}
		seen[et.ID] = true
		if err := validateEndpointRef(cfg, et.Endpoint); err != nil {
			return errf("error_targets."+et.ID+".endpoint", "%v", err)
		}
		if et.ErrorKind != "" && !schema.KnownErrorKind(et.ErrorKind) {
			return errf("error_targets."+et.ID, "unknown error kind %q", et.ErrorKind)
		}
	}
	return nil
}

func validateEndpointRef(cfg *Config, ref EndpointRef) error {
	if strings.TrimSpace(ref.Name) == "" {
		return errf("", "endpoint name is required")
	}
	if _, ok := cfg.Endpoints[ref.Name]; !ok {
		return errf("", "endpoint %q is not declared", ref.Name)
	}
	if ref.Path != "" && !strings.HasPrefix(ref.Path, "/") {
		return errf("", "path %q must start with /", ref.Path)
	}
	return nil
}

// validAddress accepts http(s) URLs with a host, or bare host:port pairs.
func validAddress(addr string) error {
	if strings.TrimSpace(addr) == "" {
		return errf("", "address is required")
	}
	if strings.Contains(addr, "://") {
		u, err := url.Parse(addr)
		if err != nil {
			return errf("", "invalid url %q: %v", addr, err)
		}
		if u.Scheme != "http" && u.Scheme != "https" {
			return errf("", "unsupported scheme %q", u.Scheme)
		}
		if u.Host == "" {
			return errf("", "url %q has no host", addr)
		}
		return nil
	}
	if _, _, err := net.SplitHostPort(addr); err != nil {
		return errf("", "invalid host:port %q: %v", addr, err)
	}
	return nil
}
