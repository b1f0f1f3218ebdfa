package captions_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"captionsync/internal/captions"
	"captionsync/internal/subtitles"
)

// gatedResolver blocks resolutions of videos listed in gates until released.
type gatedResolver struct {
	gates   map[string]chan struct{}
	results map[string]captions.Result
}

func (g *gatedResolver) Resolve(ctx context.Context, videoID string, _ []string) (captions.Result, error) {
	if gate, ok := g.gates[videoID]; ok {
		select {
		case <-gate:
		case <-ctx.Done():
		}
	}
	return g.results[videoID], nil
}

func trackResult(videoID, lang, text string) captions.Result {
	return captions.Result{
		VideoID: videoID,
		Tracks:  subtitles.Tracks{lang: {{Start: 1, End: 2, Text: text}}},
		Sources: map[string]captions.Source{lang: {Language: lang, Method: captions.MethodStorageDirect}},
	}
}

func TestSessionDropsStaleResults(t *testing.T) {
	resolver := &gatedResolver{
		gates: map[string]chan struct{}{"old": make(chan struct{})},
		results: map[string]captions.Result{
			"old": trackResult("old", "en", "old video"),
			"new": trackResult("new", "en", "new video"),
		},
	}
	session := captions.NewSession(resolver, []string{"en"}, nil)
	defer session.Close()

	published := make(chan captions.Snapshot, 4)
	dispose := session.Subscribe(func(s captions.Snapshot) { published <- s })
	defer dispose()

	oldDone := make(chan error, 1)
	go func() {
		_, err := session.Load(context.Background(), "old")
		oldDone <- err
	}()
	// Give the first load time to enter Resolve before superseding it.
	time.Sleep(20 * time.Millisecond)

	snap, err := session.Load(context.Background(), "new")
	if err != nil {
		t.Fatalf("Load new: %v", err)
	}
	if snap.VideoID != "new" {
		t.Fatalf("unexpected snapshot %+v", snap)
	}

	select {
	case err := <-oldDone:
		if !errors.Is(err, captions.ErrStale) {
			t.Fatalf("expected ErrStale for superseded load, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("superseded load was not cancelled")
	}

	current := session.Current()
	if current.VideoID != "new" || current.Result.Tracks["en"][0].Text != "new video" {
		t.Fatalf("stale result leaked into current snapshot: %+v", current)
	}
	if got := <-published; got.VideoID != "new" {
		t.Fatalf("expected only the new video to be published, got %q", got.VideoID)
	}
	select {
	case extra := <-published:
		t.Fatalf("unexpected extra publication %+v", extra)
	default:
	}
}

func TestSessionKeepsPublishedTracksOnReload(t *testing.T) {
	resolver := &gatedResolver{results: map[string]captions.Result{"vid": trackResult("vid", "en", "first")}}
	session := captions.NewSession(resolver, []string{"en", "es"}, nil)
	defer session.Close()

	if _, err := session.Load(context.Background(), "vid"); err != nil {
		t.Fatalf("first Load: %v", err)
	}
	next := trackResult("vid", "en", "second")
	next.Tracks["es"] = []subtitles.Cue{{Start: 1, End: 2, Text: "segundo"}}
	next.Sources["es"] = captions.Source{Language: "es", Method: captions.MethodStorageDirect}
	resolver.results["vid"] = next

	snap, err := session.Load(context.Background(), "vid")
	if err != nil {
		t.Fatalf("second Load: %v", err)
	}
	if snap.Result.Tracks["en"][0].Text != "first" {
		t.Fatalf("published en track must be kept, got %+v", snap.Result.Tracks["en"])
	}
	if snap.Result.Tracks["es"][0].Text != "segundo" {
		t.Fatalf("new es track should be added, got %+v", snap.Result.Tracks["es"])
	}
}

func TestSessionSubscribeDisposer(t *testing.T) {
	resolver := &gatedResolver{results: map[string]captions.Result{"vid": trackResult("vid", "en", "x")}}
	session := captions.NewSession(resolver, []string{"en"}, nil)
	defer session.Close()

	calls := 0
	dispose := session.Subscribe(func(captions.Snapshot) { calls++ })
	dispose()
	dispose()
	if _, err := session.Load(context.Background(), "vid"); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if calls != 0 {
		t.Fatalf("disposed subscriber was called %d times", calls)
	}
}

func TestSessionClosedRejectsLoad(t *testing.T) {
	session := captions.NewSession(&gatedResolver{}, []string{"en"}, nil)
	session.Close()
	if _, err := session.Load(context.Background(), "vid"); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled after Close, got %v", err)
	}
}
