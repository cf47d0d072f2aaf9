package provider

import (
	"sync/atomic"
	"time"
)

// Health is the one piece of state shared across requests: a fixed-size table
// of per-provider failure counters. Counters are atomic so concurrent
// requests never take a lock on the dispatch path.
type Health struct {
	threshold int64
	cooldown  time.Duration
	entries   map[string]*healthEntry
	now       func() time.Time
}

type healthEntry struct {
	failures     atomic.Int64
	demotedUntil atomic.Int64 // unix nanos; zero means not demoted
}

// NewHealth creates a health table for the given provider ids.
func NewHealth(ids []string, failureThreshold int, cooldown time.Duration) *Health {
	entries := make(map[string]*healthEntry, len(ids))
	for _, id := range ids {
		entries[id] = &healthEntry{}
	}
	return &Health{
		threshold: int64(failureThreshold),
		cooldown:  cooldown,
		entries:   entries,
		now:       time.Now,
	}
}

// Healthy reports whether the provider is in rotation. A demoted provider
// returns to rotation once its cool-down elapses.
func (h *Health) Healthy(id string) bool {
	e, ok := h.entries[id]
	if !ok {
		return false
	}
	if e.failures.Load() < h.threshold {
		return true
	}
	return h.now().UnixNano() >= e.demotedUntil.Load()
}

// ReportSuccess resets the provider's consecutive failure count.
func (h *Health) ReportSuccess(id string) {
	if e, ok := h.entries[id]; ok {
		e.failures.Store(0)
		e.demotedUntil.Store(0)
	}
}

// ReportFailure increments the consecutive failure count and demotes the
// provider for the cool-down period once it crosses the threshold.
func (h *Health) ReportFailure(id string) {
	e, ok := h.entries[id]
	if !ok {
		return
	}
	if e.failures.Add(1) >= h.threshold {
		e.demotedUntil.Store(h.now().Add(h.cooldown).UnixNano())
	}
}

// Failures returns the provider's current consecutive failure count.
func (h *Health) Failures(id string) int {
	if e, ok := h.entries[id]; ok {
		return int(e.failures.Load())
	}
	return 0
}
