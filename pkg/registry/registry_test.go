package registry

import (
	"testing"

	"github.com/zen-systems/promptgate/pkg/config"
	"github.com/zen-systems/promptgate/pkg/schema"
)

func testConfig() *config.Config {
	return &config.Config{
		Endpoints: map[string]config.Endpoint{
			"app":  {Address: "http://app:8080"},
			"errs": {Address: "http://errs:8081"},
		},
		PromptTargets: []config.PromptTarget{
			{ID: "order_status", Description: "check order status", Endpoint: config.EndpointRef{Name: "app", Path: "/orders"}},
			{ID: "cancel_order", Description: "cancel an order", Endpoint: config.EndpointRef{Name: "app", Path: "/cancel"}},
			{ID: "fallthrough", Description: "anything else", Default: true, Endpoint: config.EndpointRef{Name: "app"}},
		},
		ErrorTargets: []config.ErrorTarget{
			{ID: "all_errors", Endpoint: config.EndpointRef{Name: "errs", Path: "/any"}},
			{ID: "classify_errors", Endpoint: config.EndpointRef{Name: "errs", Path: "/classify"}, ErrorKind: schema.ErrorKindClassification},
		},
	}
}

func TestDeclarationOrder(t *testing.T) {
	r, err := New(testConfig())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	all := r.All()
	if len(all) != 3 {
		t.Fatalf("expected 3 targets, got %d", len(all))
	}
	for i, want := range []string{"order_status", "cancel_order", "fallthrough"} {
		if all[i].ID != want {
			t.Fatalf("position %d: got %s want %s", i, all[i].ID, want)
		}
		if all[i].Index != i {
			t.Fatalf("position %d: index %d", i, all[i].Index)
		}
	}
}

func TestLookupAndDefault(t *testing.T) {
	r, err := New(testConfig())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tgt := r.Lookup("cancel_order"); tgt == nil || tgt.URL() != "http://app:8080/cancel" {
		t.Fatalf("lookup cancel_order: %+v", tgt)
	}
	if tgt := r.Lookup("missing"); tgt != nil {
		t.Fatalf("expected nil for unknown id")
	}
	if d := r.Default(); d == nil || d.ID != "fallthrough" {
		t.Fatalf("default target: %+v", d)
	}
}

func TestErrorTargetFiltering(t *testing.T) {
	r, err := New(testConfig())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if et := r.ErrorTargetFor(schema.ErrorKindClassification); et == nil || et.ID != "classify_errors" {
		t.Fatalf("specific filter should win: %+v", et)
	}
	if et := r.ErrorTargetFor(schema.ErrorKindUpstream); et == nil || et.ID != "all_errors" {
		t.Fatalf("catchall should handle unfiltered kinds: %+v", et)
	}
}

func TestNoErrorTargets(t *testing.T) {
	cfg := testConfig()
	cfg.ErrorTargets = nil
	r, err := New(cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if et := r.ErrorTargetFor(schema.ErrorKindClassification); et != nil {
		t.Fatalf("expected nil, got %+v", et)
	}
}
