package objectstore

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"captionsync/internal/services"
)

// fakeS3 serves path-style GET and PUT for a single bucket.
type fakeS3 struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func (f *fakeS3) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	switch r.Method {
	case http.MethodPut:
		body, _ := io.ReadAll(r.Body)
		f.objects[r.URL.Path] = body
		w.Header().Set("ETag", `"d41d8cd98f00b204e9800998ecf8427e"`)
		w.WriteHeader(http.StatusOK)
	case http.MethodGet, http.MethodHead:
		body, ok := f.objects[r.URL.Path]
		if !ok {
			w.Header().Set("Content-Type", "application/xml")
			w.WriteHeader(http.StatusNotFound)
			_, _ = io.WriteString(w, `<?xml version="1.0" encoding="UTF-8"?><Error><Code>NoSuchKey</Code><Message>The specified key does not exist.</Message></Error>`)
			return
		}
		w.Header().Set("ETag", `"d41d8cd98f00b204e9800998ecf8427e"`)
		w.Header().Set("Last-Modified", time.Unix(1700000000, 0).UTC().Format(http.TimeFormat))
		w.Header().Set("Content-Length", strconv.Itoa(len(body)))
		w.Header().Set("Content-Type", "text/vtt")
		if r.Method == http.MethodGet {
			_, _ = w.Write(body)
		}
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func newTestStore(t *testing.T) (*Store, *fakeS3) {
	t.Helper()
	fake := &fakeS3{objects: map[string][]byte{}}
	server := httptest.NewServer(fake)
	t.Cleanup(server.Close)
	store, err := New(Config{
		Endpoint:  strings.TrimPrefix(server.URL, "http://"),
		Bucket:    "captions",
		Prefix:    "/library/",
		AccessKey: "access",
		SecretKey: "secret",
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return store, fake
}

func TestCandidatesUsePrefix(t *testing.T) {
	store, _ := newTestStore(t)
	got := store.Candidates("vid", "pt")
	want := []string{
		"library/vid/captions/PT.vtt",
		"library/vid/captions/pt.vtt",
		"library/vid/captions/PT.srt",
		"library/vid/captions/pt.srt",
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("candidate %d: got %q want %q", i, got[i], want[i])
		}
	}
}

func TestPutStoresUnderBucketPath(t *testing.T) {
	store, fake := newTestStore(t)
	if err := store.Put(context.Background(), "vid", "PT.vtt", []byte("WEBVTT\n\n")); err != nil {
		t.Fatalf("Put: %v", err)
	}
	fake.mu.Lock()
	defer fake.mu.Unlock()
	if _, ok := fake.objects["/captions/library/vid/captions/PT.vtt"]; !ok {
		t.Fatalf("expected object under bucket path, have %v", fake.objects)
	}
}

func TestFetchReadsObject(t *testing.T) {
	store, fake := newTestStore(t)
	doc := "WEBVTT\n\n00:00:01.000 --> 00:00:02.000\nOlá\n"
	fake.objects["/captions/library/vid/captions/PT.vtt"] = []byte(doc)
	res := store.Fetch(context.Background(), store.Key("vid", "PT.vtt"))
	if !res.OK() || res.Value != doc {
		t.Fatalf("unexpected fetch %+v", res)
	}
}

func TestFetchMissingIsNotFound(t *testing.T) {
	store, _ := newTestStore(t)
	res := store.Fetch(context.Background(), store.Key("vid", "EN.vtt"))
	if res.Outcome != services.OutcomeNotFound {
		t.Fatalf("expected not found, got %s (%v)", res.Outcome, res.Err)
	}
}

func TestNewValidatesConfig(t *testing.T) {
	if _, err := New(Config{Bucket: "b"}); err == nil {
		t.Fatal("expected endpoint error")
	}
	if _, err := New(Config{Endpoint: "localhost:9000"}); err == nil {
		t.Fatal("expected bucket error")
	}
}

func TestContentType(t *testing.T) {
	if contentType("EN.vtt") != "text/vtt; charset=utf-8" || contentType("en.SRT") != "application/x-subrip" {
		t.Fatal("unexpected content types")
	}
}
