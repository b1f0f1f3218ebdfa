package captions_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"captionsync/internal/bunny"
	"captionsync/internal/captions"
	"captionsync/internal/clock"
	"captionsync/internal/services"
	"captionsync/internal/testsupport"
)

const englishVTT = "WEBVTT\n\n00:00:01.000 --> 00:00:03.000\nWelcome to the lesson\n"

const spanishSRT = "1\r\n00:00:01,000 --> 00:00:03,000\r\nBienvenidos a la lección\r\n\r\n"

// vendorServer fakes the Stream API and the storage zone on one listener.
func vendorServer(t *testing.T, metadata http.HandlerFunc, storage map[string]string, hits *atomic.Int64) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits != nil {
			hits.Add(1)
		}
		if strings.HasPrefix(r.URL.Path, "/library/") {
			metadata(w, r)
			return
		}
		if r.URL.Query().Get("accessKey") != "storage-key" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		body, ok := storage[r.URL.Path]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)
	return server
}

func newHTTPResolver(t *testing.T, serverURL string, opts captions.Options) *captions.Resolver {
	t.Helper()
	client, err := bunny.New(bunny.Config{APIKey: "api-key", LibraryID: "42", BaseURL: serverURL})
	if err != nil {
		t.Fatalf("bunny.New: %v", err)
	}
	storage, err := bunny.NewStorage(bunny.StorageConfig{BaseURL: serverURL, Zone: "zone", AccessKey: "storage-key"})
	if err != nil {
		t.Fatalf("bunny.NewStorage: %v", err)
	}
	return captions.NewResolver(client, storage, opts)
}

func TestResolveMetadataInlineAndThirdStorageCandidate(t *testing.T) {
	metadata := func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"guid":"vid","captions":[{"srclang":"en","label":"English","text":` + quoteJSON(englishVTT) + `}]}`))
	}
	storage := map[string]string{
		// ES.vtt is absent; es.vtt is an error page served with 200.
		"/zone/vid/captions/es.vtt": "<html><body>404 Not Found</body></html>",
		"/zone/vid/captions/ES.srt": spanishSRT,
	}
	server := vendorServer(t, metadata, storage, nil)
	resolver := newHTTPResolver(t, server.URL, captions.Options{})

	result, err := resolver.Resolve(context.Background(), "vid", []string{"en", "es"})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if len(result.Missing) != 0 {
		t.Fatalf("expected nothing missing, got %v", result.Missing)
	}
	en := result.Sources["en"]
	if en.Method != captions.MethodVendorMetadata || !en.Inline {
		t.Fatalf("unexpected en source %+v", en)
	}
	es := result.Sources["es"]
	if es.Method != captions.MethodStorageDirect || es.Backend != "bunny" {
		t.Fatalf("unexpected es source %+v", es)
	}
	if !strings.HasSuffix(es.URL, "/zone/vid/captions/ES.srt") || strings.Contains(es.URL, "accessKey") {
		t.Fatalf("expected redacted ES.srt url, got %q", es.URL)
	}
	if len(result.Tracks["en"]) == 0 || len(result.Tracks["es"]) == 0 {
		t.Fatalf("expected cues for both languages, got %+v", result.Tracks)
	}
	if result.Tracks["es"][0].Text != "Bienvenidos a la lección" {
		t.Fatalf("unexpected es cue %+v", result.Tracks["es"][0])
	}
}

func TestResolveFetchesMetadataURL(t *testing.T) {
	var serverURL string
	metadata := func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"captions":[{"language":"Portuguese","url":"` + serverURL + `/cdn/pt.vtt?token=abc"}]}`))
	}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/cdn/pt.vtt" {
			_, _ = w.Write([]byte("WEBVTT\n\n00:00:00.500 --> 00:00:01.500\nOlá\n"))
			return
		}
		metadata(w, r)
	}))
	defer server.Close()
	serverURL = server.URL

	resolver := newHTTPResolver(t, server.URL, captions.Options{})
	result, err := resolver.Resolve(context.Background(), "vid", []string{"pt-BR"})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	src, ok := result.Sources["pt"]
	if !ok || src.Method != captions.MethodVendorMetadata || src.Inline {
		t.Fatalf("unexpected pt source %+v", src)
	}
	if strings.Contains(src.URL, "token=") {
		t.Fatalf("source url must be redacted, got %q", src.URL)
	}
}

type fakeMetadata struct {
	result services.Result[bunny.Video]
}

func (f fakeMetadata) Video(context.Context, string) services.Result[bunny.Video] { return f.result }

func (f fakeMetadata) Fetch(context.Context, string) services.Result[string] {
	return services.NotFound[string](http.StatusNotFound)
}

// fakeProber serves documents by language; a language listed in hang blocks
// until the probe context ends.
type fakeProber struct {
	docs  map[string]string
	hang  map[string]bool
	calls atomic.Int64
}

func (f *fakeProber) Name() string { return "fake" }

func (f *fakeProber) Candidates(videoID, lang string) []string {
	return []string{videoID + "/" + lang}
}

func (f *fakeProber) Fetch(ctx context.Context, location string) services.Result[string] {
	f.calls.Add(1)
	lang := location[strings.LastIndex(location, "/")+1:]
	if f.hang[lang] {
		<-ctx.Done()
		return services.VendorError[string](ctx.Err(), 0)
	}
	doc, ok := f.docs[lang]
	if !ok {
		return services.NotFound[string](http.StatusNotFound)
	}
	return services.Success(doc, http.StatusOK)
}

func TestResolveLanguageIndependence(t *testing.T) {
	prober := &fakeProber{
		docs: map[string]string{
			"en": englishVTT,
			"pt": "WEBVTT\n\n00:00:01.000 --> 00:00:02.000\nOlá\n",
		},
		hang: map[string]bool{"es": true},
	}
	meta := fakeMetadata{result: services.Success(bunny.Video{}, http.StatusOK)}
	resolver := captions.NewResolver(meta, prober, captions.Options{ProbeTimeout: 50 * time.Millisecond})

	result, err := resolver.Resolve(context.Background(), "vid", []string{"en", "es", "pt"})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if got := result.Languages(); len(got) != 2 || got[0] != "en" || got[1] != "pt" {
		t.Fatalf("expected en and pt, got %v", got)
	}
	if len(result.Missing) != 1 || result.Missing[0] != "es" {
		t.Fatalf("expected es missing, got %v", result.Missing)
	}
}

// barrierProber answers only once every expected language is probing at
// the same time.
type barrierProber struct {
	fakeProber
	waiting atomic.Int64
	want    int64
	all     chan struct{}
}

func (b *barrierProber) Fetch(ctx context.Context, location string) services.Result[string] {
	if b.waiting.Add(1) == b.want {
		close(b.all)
	}
	select {
	case <-b.all:
		return b.fakeProber.Fetch(ctx, location)
	case <-ctx.Done():
		return services.VendorError[string](ctx.Err(), 0)
	}
}

func TestResolveProbesAllLanguagesAtOnce(t *testing.T) {
	langs := []string{"en", "es", "pt", "fr", "de", "it", "ja"}
	docs := make(map[string]string, len(langs))
	for _, lang := range langs {
		docs[lang] = "WEBVTT\n\n00:00:01.000 --> 00:00:02.000\n" + lang + "\n"
	}
	prober := &barrierProber{fakeProber: fakeProber{docs: docs}, want: int64(len(langs)), all: make(chan struct{})}
	meta := fakeMetadata{result: services.Success(bunny.Video{}, http.StatusOK)}
	resolver := captions.NewResolver(meta, prober, captions.Options{ProbeTimeout: 2 * time.Second})

	result, err := resolver.Resolve(context.Background(), "vid", langs)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if len(result.Missing) != 0 || len(result.Tracks) != len(langs) {
		t.Fatalf("expected every language resolved, missing %v", result.Missing)
	}
}

func TestResolveTotalFailure(t *testing.T) {
	meta := fakeMetadata{result: services.VendorError[bunny.Video](errors.New("dial tcp: connection refused"), 0)}
	resolver := captions.NewResolver(meta, &fakeProber{}, captions.Options{})

	result, err := resolver.Resolve(context.Background(), "vid", []string{"en"})
	if !errors.Is(err, captions.ErrCaptionsUnavailable) {
		t.Fatalf("expected ErrCaptionsUnavailable, got %v", err)
	}
	if !result.Empty() {
		t.Fatalf("expected empty result, got %+v", result)
	}
}

func TestResolveMetadataFailureWithStorageHitIsPartial(t *testing.T) {
	meta := fakeMetadata{result: services.VendorError[bunny.Video](errors.New("boom"), http.StatusBadGateway)}
	prober := &fakeProber{docs: map[string]string{"en": englishVTT}}
	resolver := captions.NewResolver(meta, prober, captions.Options{})

	result, err := resolver.Resolve(context.Background(), "vid", []string{"en", "es"})
	if err != nil {
		t.Fatalf("expected partial result without error, got %v", err)
	}
	if result.Sources["en"].Method != captions.MethodStorageDirect {
		t.Fatalf("unexpected en source %+v", result.Sources["en"])
	}
	if len(result.Missing) != 1 || result.Missing[0] != "es" {
		t.Fatalf("expected es missing, got %v", result.Missing)
	}
}

func TestResolveNotFoundMetadataIsNotAnError(t *testing.T) {
	meta := fakeMetadata{result: services.NotFound[bunny.Video](http.StatusNotFound)}
	resolver := captions.NewResolver(meta, &fakeProber{}, captions.Options{})
	result, err := resolver.Resolve(context.Background(), "vid", []string{"en"})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(result.Missing) != 1 {
		t.Fatalf("expected en missing, got %v", result.Missing)
	}
}

func TestResolveRejectsBlankVideoID(t *testing.T) {
	resolver := captions.NewResolver(nil, nil, captions.Options{})
	if _, err := resolver.Resolve(context.Background(), "  ", []string{"en"}); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestResolveUsesCacheWithinTTL(t *testing.T) {
	clk := clock.NewFake(time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC))
	store := testsupport.MustOpenCache(t, clk)
	prober := &fakeProber{docs: map[string]string{"en": englishVTT}}
	resolver := captions.NewResolver(nil, prober, captions.Options{
		Cache: captions.NewCache(store, 10*time.Minute, nil),
	})

	ctx := context.Background()
	if _, err := resolver.Resolve(ctx, "vid", []string{"en"}); err != nil {
		t.Fatalf("first Resolve: %v", err)
	}
	result, err := resolver.Resolve(ctx, "vid", []string{"en"})
	if err != nil {
		t.Fatalf("second Resolve: %v", err)
	}
	if prober.calls.Load() != 1 {
		t.Fatalf("expected one probe, got %d", prober.calls.Load())
	}
	if !result.Sources["en"].Cached || result.Sources["en"].Method != captions.MethodStorageDirect {
		t.Fatalf("expected cached storage source, got %+v", result.Sources["en"])
	}

	clk.Advance(11 * time.Minute)
	if _, err := resolver.Resolve(ctx, "vid", []string{"en"}); err != nil {
		t.Fatalf("third Resolve: %v", err)
	}
	if prober.calls.Load() != 2 {
		t.Fatalf("expected expired entry to trigger a probe, got %d calls", prober.calls.Load())
	}
}

func quoteJSON(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", `\n`, "\r", `\r`)
	return `"` + r.Replace(s) + `"`
}
