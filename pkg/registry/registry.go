// Package registry holds the validated, immutable set of prompt targets and
// error targets for the process lifetime. Concurrent readers need no locking.
package registry

import (
	"fmt"
	"strings"

	"github.com/zen-systems/promptgate/pkg/config"
)

// Target is a prompt target resolved against its destination endpoint.
type Target struct {
	ID                        string
	Description               string
	Parameters                []config.Parameter
	Address                   string
	Path                      string
	SystemPrompt              string
	AutoLLMDispatchOnResponse bool
	Default                   bool

	// Index is the declaration position, used as the classifier tie-break.
	Index int
}

// URL joins the endpoint address and path.
func (t *Target) URL() string {
	return joinURL(t.Address, t.Path)
}

// ErrorTarget is a failure destination with an optional error-kind filter.
type ErrorTarget struct {
	ID        string
	Address   string
	Path      string
	ErrorKind string
}

// URL joins the endpoint address and path.
func (t *ErrorTarget) URL() string {
	return joinURL(t.Address, t.Path)
}

// Registry is the read-only target table built once from configuration.
type Registry struct {
	targets      []Target
	byID         map[string]*Target
	errorTargets []ErrorTarget
	defaultTgt   *Target
}

// New builds a registry from validated configuration.
func New(cfg *config.Config) (*Registry, error) {
	r := &Registry{
		targets: make([]Target, 0, len(cfg.PromptTargets)),
		byID:    make(map[string]*Target, len(cfg.PromptTargets)),
	}

	for i, t := range cfg.PromptTargets {
		ep, ok := cfg.Endpoints[t.Endpoint.Name]
		if !ok {
			return nil, fmt.Errorf("target %s references undeclared endpoint %q", t.ID, t.Endpoint.Name)
		}
		r.targets = append(r.targets, Target{
			ID:                        t.ID,
			Description:               t.Description,
			Parameters:                t.Parameters,
			Address:                   ep.Address,
			Path:                      t.Endpoint.Path,
			SystemPrompt:              t.SystemPrompt,
			AutoLLMDispatchOnResponse: t.AutoLLMDispatchOnResponse,
			Default:                   t.Default,
			Index:                     i,
		})
	}
	for i := range r.targets {
		tgt := &r.targets[i]
		r.byID[tgt.ID] = tgt
		if tgt.Default {
			r.defaultTgt = tgt
		}
	}

	for _, et := range cfg.ErrorTargets {
		ep, ok := cfg.Endpoints[et.Endpoint.Name]
		if !ok {
			return nil, fmt.Errorf("error target %s references undeclared endpoint %q", et.ID, et.Endpoint.Name)
		}
		r.errorTargets = append(r.errorTargets, ErrorTarget{
			ID:        et.ID,
			Address:   ep.Address,
			Path:      et.Endpoint.Path,
			ErrorKind: et.ErrorKind,
		})
	}

	return r, nil
}

// Lookup returns the target with the given id, or nil.
func (r *Registry) Lookup(id string) *Target {
	return r.byID[id]
}

// All returns every target in declaration order. Callers must not mutate it.
func (r *Registry) All() []Target {
	return r.targets
}

// Descriptions returns target descriptions in declaration order.
func (r *Registry) Descriptions() []string {
	out := make([]string, len(r.targets))
	for i, t := range r.targets {
		out[i] = t.Description
	}
	return out
}

// Default returns the passthrough target, or nil when none is declared.
func (r *Registry) Default() *Target {
	return r.defaultTgt
}

// ErrorTargetFor returns the error target handling the given kind. A target
// with a matching filter wins over an unfiltered one; nil means no error
// target applies.
func (r *Registry) ErrorTargetFor(kind string) *ErrorTarget {
	var catchall *ErrorTarget
	for i := range r.errorTargets {
		et := &r.errorTargets[i]
		if et.ErrorKind == kind {
			return et
		}
		if et.ErrorKind == "" && catchall == nil {
			catchall = et
		}
	}
	return catchall
}

func joinURL(address, path string) string {
	if path == "" {
		return address
	}
	return strings.TrimSuffix(address, "/") + path
}
