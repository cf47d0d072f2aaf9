package router

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/zen-systems/promptgate/pkg/provider"
	"github.com/zen-systems/promptgate/pkg/schema"
)

// upstreamClient posts enriched payloads to application and error endpoints.
type upstreamClient interface {
	Post(ctx context.Context, url string, payload schema.EnrichedPayload, timeout time.Duration) ([]byte, error)
}

type httpUpstream struct {
	client *http.Client
}

func newUpstreamClient() upstreamClient {
	return &httpUpstream{client: &http.Client{}}
}

func (u *httpUpstream) Post(ctx context.Context, url string, payload schema.EnrichedPayload, timeout time.Duration) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := u.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("upstream returned %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}
	return data, nil
}

// Dispatch performs a routing decision and always yields either a response
// for the caller or a *DispatchError. The whole dispatch, retries included,
// runs under the configured end-to-end deadline.
func (r *Router) Dispatch(ctx context.Context, d *Decision) (*Response, error) {
	ctx, cancel := context.WithTimeout(ctx, r.opts.RequestDeadline())
	defer cancel()

	switch d.Kind {
	case KindClarification:
		return r.clarify(d)
	case KindErrorTarget:
		return r.dispatchErrorTarget(ctx, d.Destination, d.Payload)
	case KindProvider:
		return r.dispatchProvider(ctx, d)
	case KindApplication:
		return r.dispatchApplication(ctx, d)
	default:
		return nil, &DispatchError{Kind: schema.ErrorKindUpstream, Err: fmt.Errorf("unknown decision kind %q", d.Kind)}
	}
}

// clarify answers the caller directly; an incomplete extraction is a normal
// conversational branch, not an error.
func (r *Router) clarify(d *Decision) (*Response, error) {
	text := fmt.Sprintf("I still need: %s.", strings.Join(d.Missing, ", "))
	if target := r.reg.Lookup(d.TargetID); target != nil {
		text = clarificationText(target, d.Missing)
	}

	body, err := json.Marshal(map[string]any{
		"clarification": text,
		"missing":       d.Missing,
	})
	if err != nil {
		return nil, &DispatchError{Kind: schema.ErrorKindMissingParams, Err: err}
	}

	resp := &Response{Status: http.StatusOK, Body: body}
	resp.setHeader(schema.HeaderErrorKind, schema.ErrorKindMissingParams)
	resp.setHeader(schema.HeaderTarget, d.TargetID)
	return resp, nil
}

func (r *Router) dispatchApplication(ctx context.Context, d *Decision) (*Response, error) {
	body, err := r.http.Post(ctx, d.Destination, d.Payload, r.opts.AttemptTimeout())
	if err != nil {
		return r.fallbackUpstream(ctx, d, err)
	}

	resp := &Response{Status: http.StatusOK, Body: body}
	resp.setHeader(schema.HeaderTarget, d.TargetID)

	if !d.LLMFollowUp {
		return resp, nil
	}

	// The target asked for its endpoint response to be run through a model
	// before returning to the caller.
	out, providerID, err := r.callProviders(ctx, followUpPrompt(d.Payload, body))
	if err != nil {
		return r.fallbackUpstream(ctx, d, err)
	}
	resp.Body = []byte(out)
	resp.setHeader(schema.HeaderProvider, providerID)
	return resp, nil
}

func (r *Router) dispatchProvider(ctx context.Context, d *Decision) (*Response, error) {
	out, providerID, err := r.callProviders(ctx, providerPrompt(d.Payload))
	if err != nil {
		return r.fallbackUpstream(ctx, d, err)
	}

	resp := &Response{Status: http.StatusOK, Body: []byte(out)}
	resp.setHeader(schema.HeaderProvider, providerID)
	return resp, nil
}

func (r *Router) dispatchErrorTarget(ctx context.Context, url string, payload schema.EnrichedPayload) (*Response, error) {
	body, err := r.http.Post(ctx, url, payload, r.opts.AttemptTimeout())
	if err != nil {
		// Error targets get no further fallback.
		return nil, &DispatchError{Kind: schema.ErrorKindUpstream, Attempts: 1, Err: err}
	}
	resp := &Response{Status: http.StatusOK, Body: body}
	if payload.ErrorKind != "" {
		resp.setHeader(schema.HeaderErrorKind, payload.ErrorKind)
	}
	return resp, nil
}

// DispatchFailure routes a pipeline failure of the given kind to its error
// target. The error return means no error target is configured for the kind
// or the post itself failed.
func (r *Router) DispatchFailure(ctx context.Context, kind string, payload schema.EnrichedPayload) (*Response, error) {
	et := r.reg.ErrorTargetFor(kind)
	if et == nil {
		return nil, &DispatchError{Kind: kind, Err: fmt.Errorf("no error target for %s", kind)}
	}
	ctx, cancel := context.WithTimeout(ctx, r.opts.RequestDeadline())
	defer cancel()
	payload.ErrorKind = kind
	return r.dispatchErrorTarget(ctx, et.URL(), payload)
}

// fallbackUpstream routes a failed dispatch to the upstream-failure error
// target when one is configured, otherwise surfaces a DispatchError.
func (r *Router) fallbackUpstream(ctx context.Context, d *Decision, cause error) (*Response, error) {
	if et := r.reg.ErrorTargetFor(schema.ErrorKindUpstream); et != nil {
		payload := d.Payload
		payload.ErrorKind = schema.ErrorKindUpstream
		return r.dispatchErrorTarget(ctx, et.URL(), payload)
	}
	return nil, &DispatchError{Kind: schema.ErrorKindUpstream, Err: cause}
}

// callProviders walks healthy providers in priority order, retrying failures
// against the next provider until the retry budget is spent. Rate-limited
// providers are skipped without consuming the budget.
func (r *Router) callProviders(ctx context.Context, prompt string) (content, providerID string, err error) {
	health := r.pool.Health()
	maxAttempts := r.opts.RetryBudget + 1
	attempts := 0
	var lastErr error

	for _, e := range r.pool.InPriorityOrder() {
		if ctx.Err() != nil {
			return "", "", ctx.Err()
		}
		if !health.Healthy(e.ID) {
			continue
		}
		if !e.Allow() {
			continue
		}

		attemptCtx, cancel := context.WithTimeout(ctx, r.opts.AttemptTimeout())
		out, genErr := e.Adapter.Generate(attemptCtx, e.Model, prompt)
		cancel()
		attempts++

		if genErr == nil {
			health.ReportSuccess(e.ID)
			return out, e.ID, nil
		}

		health.ReportFailure(e.ID)
		lastErr = genErr
		if attempts >= maxAttempts {
			break
		}
		// Transient failures back off before the next provider; hard
		// failures fail over immediately.
		if provider.IsTransient(genErr) {
			if err := sleepWithContext(ctx, computeBackoff(r.opts.BaseBackoff(), r.opts.MaxBackoff(), attempts-1)); err != nil {
				return "", "", err
			}
		}
	}

	if lastErr == nil {
		lastErr = fmt.Errorf("no healthy provider available")
	}
	return "", "", lastErr
}

func providerPrompt(payload schema.EnrichedPayload) string {
	if payload.SystemPrompt == "" {
		return payload.Prompt
	}
	return payload.SystemPrompt + "\n\n" + payload.Prompt
}

// followUpPrompt feeds the endpoint response back through the model together
// with the original prompt, mirroring the enrichment order of the payload.
func followUpPrompt(payload schema.EnrichedPayload, endpointBody []byte) string {
	var sb strings.Builder
	if payload.SystemPrompt != "" {
		sb.WriteString(payload.SystemPrompt)
		sb.WriteString("\n\n")
	}
	sb.WriteString("Context:\n")
	sb.Write(endpointBody)
	sb.WriteString("\n\nUser request:\n")
	sb.WriteString(payload.Prompt)
	return sb.String()
}

func computeBackoff(base, max time.Duration, attempt int) time.Duration {
	backoff := base
	for i := 0; i < attempt; i++ {
		backoff *= 2
		if backoff >= max {
			return max
		}
	}
	if backoff > max {
		return max
	}
	return backoff
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
