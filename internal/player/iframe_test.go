package player

import (
	"context"
	"errors"
	"testing"
	"time"

	"captionsync/internal/retry"
)

func newIframe(t *testing.T, rpc *fakeRPC, opts IframeOptions) (*IframeEngine, *recorder) {
	t.Helper()
	if opts.Attach.Attempts == 0 {
		opts.Attach = retry.Constant(5, 5*time.Millisecond)
	}
	if opts.EmbedURL == "" {
		opts.EmbedURL = "https://iframe.mediadelivery.net/embed/77/vid"
	}
	e := NewIframe(rpc, opts)
	t.Cleanup(e.Close)
	return e, record(e, EventReady, EventError, EventTimeUpdate, EventDurationChange, EventPlay)
}

func waitEvent(t *testing.T, rec *recorder, typ EventType) Event {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case ev := <-rec.ch:
			if ev.Type == typ {
				return ev
			}
		case <-deadline:
			t.Fatalf("timed out waiting for %s", typ)
		}
	}
}

func TestIframeAttachRetriesThenReady(t *testing.T) {
	rpc := &fakeRPC{failures: 2, control: newFakeControl()}
	e, rec := newIframe(t, rpc, IframeOptions{})
	if err := e.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	waitEvent(t, rec, EventReady)
	if rpc.attempts.Load() != 3 {
		t.Fatalf("expected 3 attach attempts, got %d", rpc.attempts.Load())
	}
	if !e.Session().Ready {
		t.Fatal("session should be ready")
	}
}

func TestIframePlayWaitsForAttach(t *testing.T) {
	rpc := &fakeRPC{failures: 3, control: newFakeControl()}
	e, _ := newIframe(t, rpc, IframeOptions{Attach: retry.Constant(5, 30*time.Millisecond)})
	if err := e.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := e.Play(context.Background()); err != nil {
		t.Fatalf("Play should wait for attach, got %v", err)
	}
	if rpc.control.playCount() != 1 {
		t.Fatalf("expected play to reach the vendor, got %d", rpc.control.playCount())
	}
}

func TestIframePlayWaitIsBounded(t *testing.T) {
	rpc := &fakeRPC{failures: 100, control: newFakeControl()}
	e, _ := newIframe(t, rpc, IframeOptions{Attach: retry.Constant(100, 50*time.Millisecond), PlayWait: 30 * time.Millisecond})
	if err := e.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	start := time.Now()
	if err := e.Play(context.Background()); !errors.Is(err, ErrNotReady) {
		t.Fatalf("expected ErrNotReady, got %v", err)
	}
	if time.Since(start) > time.Second {
		t.Fatal("play waited too long")
	}
}

func TestIframeGiveUpIsNotFatal(t *testing.T) {
	rpc := &fakeRPC{failures: 100, control: newFakeControl()}
	e, rec := newIframe(t, rpc, IframeOptions{})
	if err := e.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := e.Play(context.Background()); !errors.Is(err, ErrControlUnavailable) {
		t.Fatalf("expected ErrControlUnavailable, got %v", err)
	}
	if rpc.attempts.Load() != 5 {
		t.Fatalf("expected 5 attach attempts, got %d", rpc.attempts.Load())
	}
	if rec.count(EventError) != 0 {
		t.Fatal("giving up on the bridge must not emit error")
	}
}

func TestIframeLibraryFailureIsNotFatal(t *testing.T) {
	rpc := &fakeRPC{libErr: errors.New("script blocked"), control: newFakeControl()}
	e, rec := newIframe(t, rpc, IframeOptions{})
	if err := e.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := e.Play(context.Background()); !errors.Is(err, ErrControlUnavailable) {
		t.Fatalf("expected ErrControlUnavailable, got %v", err)
	}
	if rec.count(EventError) != 0 || rpc.attempts.Load() != 0 {
		t.Fatal("library failure should skip attach without an error event")
	}
}

func TestIframeFrameFailureIsFatal(t *testing.T) {
	rpc := &fakeRPC{frameErr: errors.New("refused to connect")}
	e, rec := newIframe(t, rpc, IframeOptions{})
	if err := e.Start(context.Background()); !errors.Is(err, ErrFatal) {
		t.Fatalf("expected ErrFatal, got %v", err)
	}
	if rec.count(EventError) != 1 {
		t.Fatal("iframe load failure should emit error")
	}
	if err := e.Play(context.Background()); !errors.Is(err, ErrFatal) {
		t.Fatalf("expected ErrFatal from play, got %v", err)
	}
}

func TestIframeVendorEvents(t *testing.T) {
	control := newFakeControl()
	e, rec := newIframe(t, &fakeRPC{control: control}, IframeOptions{})
	if err := e.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	waitEvent(t, rec, EventReady)

	control.fire(VendorEvent{Name: "play"})
	control.fire(VendorEvent{Name: "timeupdate", Seconds: 12.5, Duration: 300})
	control.fire(VendorEvent{Name: "timeupdate", Seconds: 13, Duration: 300})
	if e.Paused() || e.CurrentTime() != 13 || e.Duration() != 300 {
		t.Fatalf("unexpected session %+v", e.Session())
	}
	if rec.count(EventDurationChange) != 1 || rec.count(EventTimeUpdate) != 2 {
		t.Fatalf("unexpected events %+v", rec.events)
	}

	control.fire(VendorEvent{Name: "error", Message: "buffering"})
	if rec.count(EventError) != 0 {
		t.Fatal("non-fatal vendor errors must not surface")
	}
	control.fire(VendorEvent{Name: "error", Fatal: true, Message: "media could not be loaded"})
	if rec.count(EventError) != 1 {
		t.Fatal("fatal vendor error should surface")
	}
	if control.handlerCount() != 0 {
		t.Fatal("vendor subscriptions should be released after a fatal error")
	}
}

func TestIframeCaptionStatusIsCoarse(t *testing.T) {
	control := newFakeControl()
	rpc := &fakeRPC{failures: 1, control: control}
	e, rec := newIframe(t, rpc, IframeOptions{Languages: []string{"en", "es"}, Attach: retry.Constant(5, 20*time.Millisecond)})
	if err := e.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	if err := e.SetCaptionTrack(context.Background(), "pt"); err != nil {
		t.Fatalf("selection before attach should be deferred, got %v", err)
	}
	waitEvent(t, rec, EventReady)
	if len(control.tracks) != 1 || control.tracks[0] != "pt" {
		t.Fatalf("deferred selection not applied: %v", control.tracks)
	}

	status := e.CaptionStatus()
	want := []CaptionTrackStatus{
		{Language: "en", Mode: ModeDisabled, Cue: CueUnknown},
		{Language: "es", Mode: ModeDisabled, Cue: CueUnknown},
		{Language: "pt", Mode: ModeShowing, Cue: CueUnknown},
	}
	if len(status) != len(want) {
		t.Fatalf("unexpected status %+v", status)
	}
	for i := range want {
		if status[i] != want[i] {
			t.Fatalf("status[%d] = %+v, want %+v", i, status[i], want[i])
		}
	}
	if e.CurrentCaptionText() != "" || e.AudioTracks() != nil {
		t.Fatal("iframe engine has no caption text or audio tracks")
	}
	if err := e.SetAudioTrack(context.Background(), "es"); err != nil {
		t.Fatalf("audio selection should be a silent no-op, got %v", err)
	}
	if err := e.SetCaptionTrack(context.Background(), "off"); err != nil {
		t.Fatal(err)
	}
	off := e.CaptionStatus()
	if len(off) != len(want) {
		t.Fatalf("turning captions off changed the track list: %+v", off)
	}
	if control.disabled != 1 || off[2].Language != "pt" || off[2].Mode != ModeDisabled {
		t.Fatalf("captions should be disabled: %+v", off)
	}
}

func TestIframeCloseReleasesEverything(t *testing.T) {
	control := newFakeControl()
	e, rec := newIframe(t, &fakeRPC{control: control}, IframeOptions{})
	if err := e.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	waitEvent(t, rec, EventReady)
	e.Close()
	if control.handlerCount() != 0 {
		t.Fatal("vendor subscriptions not released")
	}
	if e.events.count() != 0 {
		t.Fatal("engine subscriptions not released")
	}
	if err := e.Play(context.Background()); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
}

func TestIframeCloseStopsAttachRetries(t *testing.T) {
	rpc := &fakeRPC{failures: 100, control: newFakeControl()}
	e, _ := newIframe(t, rpc, IframeOptions{Attach: retry.Constant(100, 20*time.Millisecond)})
	if err := e.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	time.Sleep(50 * time.Millisecond)
	e.Close()
	time.Sleep(30 * time.Millisecond)
	after := rpc.attempts.Load()
	time.Sleep(100 * time.Millisecond)
	if rpc.attempts.Load() != after {
		t.Fatalf("attach retried after Close: %d -> %d", after, rpc.attempts.Load())
	}
}
