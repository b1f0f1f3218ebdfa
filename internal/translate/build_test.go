package translate

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"captionsync/internal/testsupport"
)

func TestFromConfigRequiresKey(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Translate.APIKey = ""
	if _, err := FromConfig(cfg, nil, nil); err == nil || !strings.Contains(err.Error(), "translate.api_key") {
		t.Fatalf("expected missing key error, got %v", err)
	}
}

func TestFromConfigUsesBaseURL(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("key") != "test-translate-key" {
			t.Errorf("unexpected key %q", r.URL.Query().Get("key"))
		}
		_, _ = w.Write([]byte(`{"data":{"translations":[{"translatedText":"hola"}]}}`))
	}))
	defer server.Close()

	cfg := testsupport.NewConfig(t, testsupport.WithVendorServer(server.URL))
	g, err := FromConfig(cfg, nil, nil)
	if err != nil {
		t.Fatalf("FromConfig: %v", err)
	}
	got, err := g.Translate(context.Background(), "hello", "es", "en")
	if err != nil || got != "hola" {
		t.Fatalf("Translate = %q, %v", got, err)
	}
}
