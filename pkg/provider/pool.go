package provider

import (
	"fmt"
	"sort"

	"golang.org/x/time/rate"

	"github.com/zen-systems/promptgate/pkg/config"
)

// Entry pairs a configured provider descriptor with its adapter and optional
// rate limiter.
type Entry struct {
	ID       string
	Model    string
	Priority int
	Adapter  Adapter
	limiter  *rate.Limiter
}

// Allow reports whether the provider's rate limit admits one more dispatch.
// Unlimited providers always admit.
func (e *Entry) Allow() bool {
	if e.limiter == nil {
		return true
	}
	return e.limiter.Allow()
}

// Pool is the priority-ordered set of LLM providers sharing one health table.
type Pool struct {
	entries []*Entry
	health  *Health
}

// NewPool builds a pool from configured providers and their adapters, keyed
// by provider id.
func NewPool(providers []config.LLMProvider, adapters map[string]Adapter, opts config.Overrides) (*Pool, error) {
	if len(providers) == 0 {
		return nil, fmt.Errorf("no providers configured")
	}

	ids := make([]string, 0, len(providers))
	entries := make([]*Entry, 0, len(providers))
	for _, p := range providers {
		a, ok := adapters[p.ID]
		if !ok {
			return nil, fmt.Errorf("no adapter for provider %q", p.ID)
		}
		e := &Entry{ID: p.ID, Model: p.Model, Priority: p.Priority, Adapter: a}
		if p.RateLimit != nil {
			burst := p.RateLimit.Burst
			if burst <= 0 {
				burst = 1
			}
			e.limiter = rate.NewLimiter(rate.Limit(p.RateLimit.RequestsPerSecond), burst)
		}
		ids = append(ids, p.ID)
		entries = append(entries, e)
	}

	// Stable sort keeps declaration order within equal priorities.
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Priority < entries[j].Priority
	})

	return &Pool{
		entries: entries,
		health:  NewHealth(ids, opts.ProviderFailureThreshold, opts.ProviderCooldown()),
	}, nil
}

// InPriorityOrder returns every provider entry, best first.
func (p *Pool) InPriorityOrder() []*Entry {
	return p.entries
}

// Health returns the shared health table.
func (p *Pool) Health() *Health {
	return p.health
}
