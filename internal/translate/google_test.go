package translate

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"captionsync/internal/services"
)

func TestTranslateSendsRequest(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("key") != "k" {
			t.Errorf("missing api key")
		}
		var req translateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode: %v", err)
		}
		if req.Target != "es" || req.Source != "en" || req.Format != "text" || len(req.Q) != 1 || req.Q[0] != "Rock & roll" {
			t.Errorf("unexpected request %+v", req)
		}
		_, _ = w.Write([]byte(`{"data":{"translations":[{"translatedText":"Rock &amp; roll en español"}]}}`))
	}))
	defer server.Close()

	g, err := New(Config{APIKey: "k", BaseURL: server.URL, RequestsPerSecond: 100})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	got, err := g.Translate(context.Background(), " Rock & roll ", "es", "en")
	if err != nil {
		t.Fatalf("Translate: %v", err)
	}
	if got != "Rock & roll en español" {
		t.Fatalf("unexpected translation %q", got)
	}
}

func TestTranslateBlankSkipsVendor(t *testing.T) {
	g, err := New(Config{APIKey: "k", BaseURL: "http://127.0.0.1:1"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	got, err := g.Translate(context.Background(), "   ", "es", "en")
	if err != nil || got != "" {
		t.Fatalf("expected empty no-op, got %q %v", got, err)
	}
}

func TestBreakerOpensAfterConsecutiveFailures(t *testing.T) {
	var hits atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		http.Error(w, "backend error", http.StatusInternalServerError)
	}))
	defer server.Close()

	g, err := New(Config{APIKey: "k", BaseURL: server.URL, RequestsPerSecond: 1000, BreakerFailures: 2, OpenTimeout: time.Minute})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ctx := context.Background()
	for i := 0; i < 2; i++ {
		if _, err := g.Translate(ctx, "hello", "es", "en"); !errors.Is(err, services.ErrVendor) {
			t.Fatalf("call %d: expected vendor error, got %v", i, err)
		}
	}
	if _, err := g.Translate(ctx, "hello", "es", "en"); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected short-circuit, got %v", err)
	}
	if hits.Load() != 2 {
		t.Fatalf("expected breaker to stop vendor calls, got %d hits", hits.Load())
	}
	if g.State() != "open" {
		t.Fatalf("expected open breaker, got %s", g.State())
	}
}

func TestBadRequestDoesNotTripBreaker(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad target", http.StatusBadRequest)
	}))
	defer server.Close()

	g, err := New(Config{APIKey: "k", BaseURL: server.URL, RequestsPerSecond: 1000, BreakerFailures: 1})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	for i := 0; i < 3; i++ {
		if _, err := g.Translate(context.Background(), "hello", "xx", "en"); !errors.Is(err, services.ErrValidation) {
			t.Fatalf("call %d: expected validation error, got %v", i, err)
		}
	}
	if g.State() != "closed" {
		t.Fatalf("expected closed breaker, got %s", g.State())
	}
}

func TestNewRequiresKey(t *testing.T) {
	if _, err := New(Config{}); err == nil {
		t.Fatal("expected api key error")
	}
}
