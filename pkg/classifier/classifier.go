// Package classifier scores incoming prompts against the registry's prompt
// target descriptions and picks the best match above the acceptance threshold.
package classifier

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/zen-systems/promptgate/pkg/config"
	"github.com/zen-systems/promptgate/pkg/inference"
	"github.com/zen-systems/promptgate/pkg/registry"
	"github.com/zen-systems/promptgate/pkg/schema"
)

// Candidate is one ranked classification candidate.
type Candidate struct {
	Target string  `json:"target"`
	Score  float64 `json:"score"`
	Index  int     `json:"index"`
}

// Result is the outcome of classifying a single prompt. A nil Match means
// no target scored above the acceptance threshold.
type Result struct {
	Match      *registry.Target
	Confidence float64
	Candidates []Candidate
	Scores     map[string]float64 // raw score per target id
}

// Matched returns the matched target id, or "".
func (r *Result) Matched() string {
	if r == nil || r.Match == nil {
		return ""
	}
	return r.Match.ID
}

// Classifier scores prompts through the inference collaborator. It never
// mutates registry state and is safe for concurrent use.
type Classifier struct {
	client inference.Client
	reg    *registry.Registry
	opts   config.Overrides
	cache  *lru.Cache[string, map[string]float64]
}

// New creates a classifier with a bounded score cache.
func New(client inference.Client, reg *registry.Registry, opts config.Overrides) (*Classifier, error) {
	cache, err := lru.New[string, map[string]float64](opts.ScoreCacheSize)
	if err != nil {
		return nil, fmt.Errorf("create score cache: %w", err)
	}
	return &Classifier{client: client, reg: reg, opts: opts, cache: cache}, nil
}

// Classify scores the prompt (blended with recent history) against every
// target description and returns the ranked result. Collaborator failures
// surface as inference.ErrClassifierUnavailable.
func (c *Classifier) Classify(ctx context.Context, prompt string, history []schema.Turn) (*Result, error) {
	text := scoringText(prompt, history, c.opts.HistoryWindow)

	scores, err := c.scoreTargets(ctx, text)
	if err != nil {
		return nil, err
	}

	targets := c.reg.All()
	candidates := make([]Candidate, 0, len(targets))
	for _, t := range targets {
		candidates = append(candidates, Candidate{Target: t.ID, Score: scores[t.ID], Index: t.Index})
	}

	// Stable sort by (score desc, declaration index asc) for reproducible
	// routing on identical inputs.
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].Score == candidates[j].Score {
			return candidates[i].Index < candidates[j].Index
		}
		return candidates[i].Score > candidates[j].Score
	})

	result := &Result{Candidates: candidates, Scores: scores}
	if len(candidates) == 0 {
		return result, nil
	}

	top := candidates[0]
	if top.Score < c.opts.IntentMatchingThreshold {
		return result, nil
	}

	// Scores within epsilon of the top are ties; the earliest declared wins.
	pick := top
	for _, cand := range candidates[1:] {
		if top.Score-cand.Score > c.opts.TieEpsilon {
			break
		}
		if cand.Index < pick.Index {
			pick = cand
		}
	}

	result.Match = c.reg.Lookup(pick.Target)
	result.Confidence = pick.Score
	return result, nil
}

func (c *Classifier) scoreTargets(ctx context.Context, text string) (map[string]float64, error) {
	key := cacheKey(text)
	if cached, ok := c.cache.Get(key); ok {
		return cached, nil
	}

	byLabel, err := c.client.Similarity(ctx, text, c.reg.Descriptions())
	if err != nil {
		return nil, err
	}

	scores := make(map[string]float64, len(byLabel))
	for _, t := range c.reg.All() {
		scores[t.ID] = byLabel[t.Description]
	}
	c.cache.Add(key, scores)
	return scores, nil
}

// scoringText blends the prompt with up to window recent turns for context.
func scoringText(prompt string, history []schema.Turn, window int) string {
	if window <= 0 || len(history) == 0 {
		return prompt
	}
	start := len(history) - window
	if start < 0 {
		start = 0
	}
	var sb strings.Builder
	for _, turn := range history[start:] {
		if turn.Content == "" {
			continue
		}
		sb.WriteString(turn.Content)
		sb.WriteString("\n")
	}
	sb.WriteString(prompt)
	return sb.String()
}

func cacheKey(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}
