package extractor

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/zen-systems/promptgate/pkg/config"
	"github.com/zen-systems/promptgate/pkg/inference"
	"github.com/zen-systems/promptgate/pkg/registry"
)

func flightTarget() *registry.Target {
	return &registry.Target{
		ID:          "book_flight",
		Description: "book a flight",
		Parameters: []config.Parameter{
			{Name: "origin", Type: "string", Description: "departure city", Required: true},
			{Name: "destination", Type: "string", Description: "arrival city", Required: true},
			{Name: "date", Type: "string", Description: "travel date", Required: true},
			{Name: "passengers", Type: "number", Description: "seat count"},
			{Name: "cabin", Type: "enum", Description: "cabin class", Enum: []string{"economy", "business"}, Default: "economy"},
		},
	}
}

func TestMissingRequiredParameters(t *testing.T) {
	mock := &inference.Mock{Values: map[string]any{}}
	e := New(mock)

	res, err := e.Extract(context.Background(), "book me a flight", nil, flightTarget())
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	want := []string{"origin", "destination", "date"}
	if !reflect.DeepEqual(res.Missing, want) {
		t.Fatalf("missing = %v, want %v", res.Missing, want)
	}
	if res.Complete() {
		t.Fatalf("result should be incomplete")
	}
	// Optional enum falls back to its default.
	if res.Values["cabin"] != "economy" {
		t.Fatalf("cabin default not applied: %v", res.Values["cabin"])
	}
}

func TestFullExtraction(t *testing.T) {
	mock := &inference.Mock{Values: map[string]any{
		"origin":      "SEA",
		"destination": "SFO",
		"date":        "2026-09-01",
		"passengers":  float64(2),
		"cabin":       "business",
	}}
	e := New(mock)

	res, err := e.Extract(context.Background(), "book 2 business seats SEA to SFO on sep 1", nil, flightTarget())
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if !res.Complete() {
		t.Fatalf("missing: %v", res.Missing)
	}
	if res.Values["passengers"] != float64(2) || res.Values["cabin"] != "business" {
		t.Fatalf("values: %+v", res.Values)
	}
}

func TestCoercionFailureIsMissing(t *testing.T) {
	mock := &inference.Mock{Values: map[string]any{
		"origin":      "SEA",
		"destination": "SFO",
		"date":        "2026-09-01",
		"passengers":  "a few", // not numeric
		"cabin":       "first", // not in enum
	}}
	e := New(mock)

	res, err := e.Extract(context.Background(), "book a flight", nil, flightTarget())
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if _, ok := res.Values["passengers"]; ok {
		t.Fatalf("non-numeric value should be dropped")
	}
	// Optional parameters never land in Missing; the bad enum value falls
	// back to the declared default.
	if !res.Complete() {
		t.Fatalf("missing: %v", res.Missing)
	}
	if res.Values["cabin"] != "economy" {
		t.Fatalf("cabin: %v", res.Values["cabin"])
	}
}

func TestUndeclaredValuesDropped(t *testing.T) {
	mock := &inference.Mock{Values: map[string]any{
		"origin":  "SEA",
		"airline": "should never appear",
	}}
	e := New(mock)

	res, err := e.Extract(context.Background(), "book a flight from seattle", nil, flightTarget())
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if _, ok := res.Values["airline"]; ok {
		t.Fatalf("undeclared parameter leaked into result")
	}
}

func TestIdempotence(t *testing.T) {
	mock := &inference.Mock{Values: map[string]any{"origin": "SEA"}}
	e := New(mock)

	first, err := e.Extract(context.Background(), "book a flight from seattle", nil, flightTarget())
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	second, err := e.Extract(context.Background(), "book a flight from seattle", nil, flightTarget())
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if !reflect.DeepEqual(first.Values, second.Values) || !reflect.DeepEqual(first.Missing, second.Missing) {
		t.Fatalf("extraction not idempotent: %+v vs %+v", first, second)
	}
}

func TestExtractorUnavailable(t *testing.T) {
	mock := &inference.Mock{ExtractErr: inference.ErrExtractorUnavailable}
	e := New(mock)
	_, err := e.Extract(context.Background(), "book a flight", nil, flightTarget())
	if !errors.Is(err, inference.ErrExtractorUnavailable) {
		t.Fatalf("expected ErrExtractorUnavailable, got %v", err)
	}
}

func TestNoParametersNoCall(t *testing.T) {
	mock := &inference.Mock{}
	e := New(mock)
	target := &registry.Target{ID: "order_status", Description: "check order status"}

	res, err := e.Extract(context.Background(), "where is my order", nil, target)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if !res.Complete() || len(res.Values) != 0 {
		t.Fatalf("unexpected result: %+v", res)
	}
	if mock.ExtractCalls != 0 {
		t.Fatalf("collaborator should not be called for parameterless targets")
	}
}

// Note: mock returns only declared specs, so this also guards the invariant
// in the HTTP client path where the server may echo extra keys.
func TestEnumMembership(t *testing.T) {
	spec := config.Parameter{Name: "cabin", Type: "enum", Enum: []string{"economy", "business"}}
	if _, ok := coerce("economy", spec); !ok {
		t.Fatalf("member should coerce")
	}
	if _, ok := coerce("premium", spec); ok {
		t.Fatalf("non-member should not coerce")
	}
}
