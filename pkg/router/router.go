// Package router turns classification outcomes into routing decisions and
// dispatches them: to application endpoints, to the LLM provider chain with
// health-aware fail-over, or to error targets. All per-request errors stop
// here; none abort the serving process.
package router

import (
	"fmt"
	"strings"

	"github.com/zen-systems/promptgate/pkg/classifier"
	"github.com/zen-systems/promptgate/pkg/config"
	"github.com/zen-systems/promptgate/pkg/drift"
	"github.com/zen-systems/promptgate/pkg/extractor"
	"github.com/zen-systems/promptgate/pkg/provider"
	"github.com/zen-systems/promptgate/pkg/registry"
	"github.com/zen-systems/promptgate/pkg/schema"
)

// Router decides and performs request dispatch.
type Router struct {
	reg  *registry.Registry
	pool *provider.Pool
	opts config.Overrides
	http upstreamClient
}

// New creates a router over the registry and provider pool.
func New(reg *registry.Registry, pool *provider.Pool, opts config.Overrides) *Router {
	return &Router{reg: reg, pool: pool, opts: opts, http: newUpstreamClient()}
}

// Route applies the decision policy. A nil classification result means the
// classifier was unavailable and is treated as "no match".
func (r *Router) Route(requestID, prompt string, cls *classifier.Result, ext *extractor.Result, sig drift.Signal) *Decision {
	payload := schema.EnrichedPayload{
		RequestID:    requestID,
		Prompt:       prompt,
		DriftChanged: sig.Changed,
	}
	if sig.Changed {
		payload.DriftFrom = sig.Previous
	}

	if cls == nil || cls.Match == nil {
		return r.routeUnmatched(payload)
	}

	target := cls.Match
	payload.Target = target.ID

	if ext != nil && !ext.Complete() {
		return &Decision{
			Kind:     KindClarification,
			TargetID: target.ID,
			Missing:  ext.Missing,
			Payload:  payload,
		}
	}

	if ext != nil {
		payload.Parameters = ext.Values
	}
	payload.SystemPrompt = target.SystemPrompt

	return &Decision{
		Kind:        KindApplication,
		Destination: target.URL(),
		TargetID:    target.ID,
		Payload:     payload,
		LLMFollowUp: target.AutoLLMDispatchOnResponse,
	}
}

// routeUnmatched handles "no match": a classification-failure error target
// wins, then the default application endpoint, then the provider chain.
func (r *Router) routeUnmatched(payload schema.EnrichedPayload) *Decision {
	payload.Unclassified = true

	if et := r.reg.ErrorTargetFor(schema.ErrorKindClassification); et != nil {
		payload.ErrorKind = schema.ErrorKindClassification
		return &Decision{
			Kind:        KindErrorTarget,
			Destination: et.URL(),
			ErrorKind:   schema.ErrorKindClassification,
			Payload:     payload,
		}
	}

	if d := r.reg.Default(); d != nil {
		return &Decision{
			Kind:        KindApplication,
			Destination: d.URL(),
			TargetID:    d.ID,
			Payload:     payload,
			LLMFollowUp: d.AutoLLMDispatchOnResponse,
		}
	}

	return &Decision{
		Kind:        KindProvider,
		Destination: "llm",
		Payload:     payload,
	}
}

// clarificationText asks the user for every missing required parameter.
func clarificationText(target *registry.Target, missing []string) string {
	var parts []string
	for _, name := range missing {
		desc := name
		for _, p := range target.Parameters {
			if p.Name == name && p.Description != "" {
				desc = fmt.Sprintf("%s (%s)", name, p.Description)
				break
			}
		}
		parts = append(parts, desc)
	}
	return fmt.Sprintf("To handle %q I still need: %s.", target.ID, strings.Join(parts, ", "))
}
