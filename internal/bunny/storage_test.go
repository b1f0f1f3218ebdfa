package bunny

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestStorageCandidatesOrder(t *testing.T) {
	storage, err := NewStorage(StorageConfig{BaseURL: "https://storage.example", Zone: "/zone/", AccessKey: "k3y"})
	if err != nil {
		t.Fatalf("NewStorage: %v", err)
	}
	got := storage.Candidates("vid", "es")
	want := []string{
		"https://storage.example/zone/vid/captions/ES.vtt?accessKey=k3y",
		"https://storage.example/zone/vid/captions/es.vtt?accessKey=k3y",
		"https://storage.example/zone/vid/captions/ES.srt?accessKey=k3y",
		"https://storage.example/zone/vid/captions/es.srt?accessKey=k3y",
	}
	if len(got) != len(want) {
		t.Fatalf("expected %d candidates, got %v", len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("candidate %d: got %q want %q", i, got[i], want[i])
		}
	}
	if Redact(got[0]) != "https://storage.example/zone/vid/captions/ES.vtt" {
		t.Fatalf("redaction kept query: %q", Redact(got[0]))
	}
}

func TestNewStorageRequiresZoneAndKey(t *testing.T) {
	if _, err := NewStorage(StorageConfig{AccessKey: "k"}); err == nil {
		t.Fatal("expected zone error")
	}
	if _, err := NewStorage(StorageConfig{Zone: "z"}); err == nil {
		t.Fatal("expected access key error")
	}
}

func TestStoragePutAndFetch(t *testing.T) {
	stored := map[string]string{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPut:
			if r.Header.Get("AccessKey") != "k" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			body, _ := io.ReadAll(r.Body)
			stored[r.URL.Path] = string(body)
			w.WriteHeader(http.StatusCreated)
		case http.MethodGet:
			if r.URL.Query().Get("accessKey") != "k" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			body, ok := stored[r.URL.Path]
			if !ok {
				w.WriteHeader(http.StatusNotFound)
				return
			}
			_, _ = io.WriteString(w, body)
		}
	}))
	defer server.Close()

	storage, err := NewStorage(StorageConfig{BaseURL: server.URL, Zone: "zone", AccessKey: "k"})
	if err != nil {
		t.Fatalf("NewStorage: %v", err)
	}
	ctx := context.Background()
	if err := storage.Put(ctx, "vid", "ES.vtt", []byte("WEBVTT\n\n")); err != nil {
		t.Fatalf("Put: %v", err)
	}
	candidates := storage.Candidates("vid", "es")
	if res := storage.Fetch(ctx, candidates[0]); !res.OK() || !strings.HasPrefix(res.Value, "WEBVTT") {
		t.Fatalf("expected stored document, got %+v", res)
	}
	if res := storage.Fetch(ctx, candidates[1]); res.OK() {
		t.Fatalf("expected lowercase candidate to be missing, got %+v", res)
	}
}
