package inference

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/zen-systems/promptgate/pkg/config"
	"github.com/zen-systems/promptgate/pkg/schema"
)

// HTTPClient calls the model server's /zeroshot and /extract endpoints.
type HTTPClient struct {
	base    string
	timeout time.Duration
	client  *http.Client
}

// NewHTTPClient creates a client for the model server at base.
func NewHTTPClient(base string, timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		base:    strings.TrimSuffix(base, "/"),
		timeout: timeout,
		client:  &http.Client{},
	}
}

type zeroShotRequest struct {
	Input  string   `json:"input"`
	Labels []string `json:"labels"`
}

type zeroShotResponse struct {
	PredictedClass      string             `json:"predicted_class"`
	PredictedClassScore float64            `json:"predicted_class_score"`
	Scores              map[string]float64 `json:"scores"`
}

// Similarity scores text against each label via the zero-shot endpoint.
func (c *HTTPClient) Similarity(ctx context.Context, text string, labels []string) (map[string]float64, error) {
	var resp zeroShotResponse
	err := c.post(ctx, "/zeroshot", zeroShotRequest{Input: text, Labels: labels}, &resp)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrClassifierUnavailable, err)
	}
	if resp.Scores == nil {
		return nil, fmt.Errorf("%w: empty score map", ErrClassifierUnavailable)
	}
	return resp.Scores, nil
}

type extractRequest struct {
	Input      string          `json:"input"`
	Messages   []schema.Turn   `json:"messages,omitempty"`
	Parameters []parameterSpec `json:"parameters"`
}

type parameterSpec struct {
	Name        string   `json:"name"`
	Type        string   `json:"type"`
	Description string   `json:"description"`
	Required    bool     `json:"required,omitempty"`
	Enum        []string `json:"enum,omitempty"`
}

type extractResponse struct {
	Values map[string]any `json:"values"`
}

// ExtractParameters resolves parameter values via the extraction endpoint.
func (c *HTTPClient) ExtractParameters(ctx context.Context, text string, history []schema.Turn, specs []config.Parameter) (map[string]any, error) {
	req := extractRequest{
		Input:      text,
		Messages:   history,
		Parameters: make([]parameterSpec, 0, len(specs)),
	}
	for _, s := range specs {
		req.Parameters = append(req.Parameters, parameterSpec{
			Name:        s.Name,
			Type:        s.Type,
			Description: s.Description,
			Required:    s.Required,
			Enum:        s.Enum,
		})
	}

	var resp extractResponse
	if err := c.post(ctx, "/extract", req, &resp); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrExtractorUnavailable, err)
	}
	if resp.Values == nil {
		return map[string]any{}, nil
	}
	return resp.Values, nil
}

func (c *HTTPClient) post(ctx context.Context, path string, in, out any) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("model server returned %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
