package router

import (
	"fmt"

	"github.com/zen-systems/promptgate/pkg/schema"
)

// DestinationKind names the kind of destination a decision resolved to.
type DestinationKind string

const (
	// KindApplication dispatches the enriched payload to a target endpoint.
	KindApplication DestinationKind = "application"
	// KindProvider dispatches the prompt to the LLM provider chain.
	KindProvider DestinationKind = "provider"
	// KindErrorTarget dispatches the enriched payload to an error target.
	KindErrorTarget DestinationKind = "error_target"
	// KindClarification answers the caller directly with a follow-up
	// question; nothing is dispatched upstream.
	KindClarification DestinationKind = "clarification"
)

// Decision is the routing outcome for one request. It always names exactly
// one destination.
type Decision struct {
	Kind        DestinationKind
	Destination string // endpoint URL, error target URL, or provider chain
	TargetID    string
	ErrorKind   string
	Payload     schema.EnrichedPayload
	Missing     []string
	LLMFollowUp bool
}

// Response is what the gateway returns to the caller. Headers carry the
// metadata keys callers branch on.
type Response struct {
	Status  int
	Body    []byte
	Headers map[string]string
}

func (r *Response) setHeader(key, value string) {
	if r.Headers == nil {
		r.Headers = map[string]string{}
	}
	r.Headers[key] = value
}

// DispatchError reports an upstream dispatch that exhausted its retry budget
// and had no applicable error target.
type DispatchError struct {
	Kind     string
	Attempts int
	Err      error
}

func (e *DispatchError) Error() string {
	return fmt.Sprintf("dispatch failed after %d attempts: %v", e.Attempts, e.Err)
}

func (e *DispatchError) Unwrap() error {
	return e.Err
}
