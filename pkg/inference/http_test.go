package inference

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/zen-systems/promptgate/pkg/config"
)

func TestSimilarityTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(2 * time.Second):
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL, 20*time.Millisecond)
	_, err := c.Similarity(context.Background(), "cancel my order", []string{"cancel an order"})
	if !errors.Is(err, ErrClassifierUnavailable) {
		t.Fatalf("slow model server should map to ErrClassifierUnavailable, got %v", err)
	}
}

func TestExtractTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(2 * time.Second):
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL, 20*time.Millisecond)
	specs := []config.Parameter{{Name: "order_id", Type: "string"}}
	_, err := c.ExtractParameters(context.Background(), "cancel order A-1", nil, specs)
	if !errors.Is(err, ErrExtractorUnavailable) {
		t.Fatalf("slow model server should map to ErrExtractorUnavailable, got %v", err)
	}
}

func TestSimilarityServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model crashed", http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL, time.Second)
	_, err := c.Similarity(context.Background(), "anything", []string{"a label"})
	if !errors.Is(err, ErrClassifierUnavailable) {
		t.Fatalf("non-200 should map to ErrClassifierUnavailable, got %v", err)
	}
}

func TestSimilarityScores(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/zeroshot" {
			t.Errorf("path = %s", r.URL.Path)
		}
		w.Write([]byte(`{"predicted_class":"cancel an order","predicted_class_score":0.9,"scores":{"cancel an order":0.9,"book a flight":0.1}}`))
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL, time.Second)
	scores, err := c.Similarity(context.Background(), "cancel my order", []string{"cancel an order", "book a flight"})
	if err != nil {
		t.Fatalf("similarity: %v", err)
	}
	if scores["cancel an order"] != 0.9 || scores["book a flight"] != 0.1 {
		t.Fatalf("scores: %v", scores)
	}
}

func TestExtractValues(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/extract" {
			t.Errorf("path = %s", r.URL.Path)
		}
		w.Write([]byte(`{"values":{"order_id":"A-100"}}`))
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL, time.Second)
	specs := []config.Parameter{{Name: "order_id", Type: "string", Required: true}}
	values, err := c.ExtractParameters(context.Background(), "where is order A-100", nil, specs)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if values["order_id"] != "A-100" {
		t.Fatalf("values: %v", values)
	}
}
