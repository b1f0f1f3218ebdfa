package api_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"captionsync/internal/api"
	"captionsync/internal/clock"
	"captionsync/internal/config"
	"captionsync/internal/metrics"
)

func dialOverlay(t *testing.T, srv *api.Server, query string) *websocket.Conn {
	t.Helper()
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/videos/vid/overlay" + query
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func readUntil(t *testing.T, conn *websocket.Conn, match func(api.OverlayMessage) bool) api.OverlayMessage {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for {
		_ = conn.SetReadDeadline(deadline)
		var msg api.OverlayMessage
		if err := conn.ReadJSON(&msg); err != nil {
			t.Fatalf("read: %v", err)
		}
		if match(msg) {
			return msg
		}
	}
}

func cueText(text string, active bool) func(api.OverlayMessage) bool {
	return func(msg api.OverlayMessage) bool {
		return msg.Type == api.MessageCue && msg.Change != nil &&
			msg.Change.Active == active && msg.Change.Cue.Text == text
	}
}

func TestOverlayStreamsCueChanges(t *testing.T) {
	srv := newServer(t, api.Options{
		Playlists: fakePlaylists{url: "https://cdn.example/vid/playlist.m3u8"},
		Clock:     clock.NewFake(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)),
		Player:    config.Player{NetworkRetries: 1, MediaRecoveries: 1, RetryDelayMillis: 1, FrameIntervalMilli: 5},
	})
	conn := dialOverlay(t, srv, "?lang=en")

	load := readUntil(t, conn, func(msg api.OverlayMessage) bool {
		return msg.Type == api.MessageCommand && msg.Command != nil && msg.Command.Name == "load"
	})
	if load.Command.URL != "https://cdn.example/vid/playlist.m3u8" {
		t.Fatalf("load url = %q", load.Command.URL)
	}
	tracks := readUntil(t, conn, func(msg api.OverlayMessage) bool { return msg.Type == api.MessageTracks })
	if strings.Join(tracks.Languages, ",") != "en,es" {
		t.Fatalf("tracks = %+v", tracks)
	}

	at := 1.5
	if err := conn.WriteJSON(api.OverlaySample{Time: &at}); err != nil {
		t.Fatalf("write: %v", err)
	}
	readUntil(t, conn, cueText("Hello", true))

	if err := conn.WriteJSON(api.OverlaySample{Language: "es"}); err != nil {
		t.Fatalf("write: %v", err)
	}
	change := readUntil(t, conn, cueText("Hola", true))
	if change.Change.Language != "es" {
		t.Fatalf("language = %q", change.Change.Language)
	}

	// Same cue again produces no message; the next one is the gap.
	for _, sample := range []float64{1.6, 2.5} {
		at := sample
		if err := conn.WriteJSON(api.OverlaySample{Time: &at}); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	gap := readUntil(t, conn, func(msg api.OverlayMessage) bool { return msg.Type == api.MessageCue })
	if gap.Change.Active {
		t.Fatalf("expected inactive change, got %+v", gap.Change)
	}
}

func TestOverlayReportsFatalPlayback(t *testing.T) {
	srv := newServer(t, api.Options{
		Playlists: fakePlaylists{url: "https://cdn.example/vid/playlist.m3u8"},
		Metrics:   metrics.New(),
	})
	conn := dialOverlay(t, srv, "")
	readUntil(t, conn, func(msg api.OverlayMessage) bool { return msg.Type == api.MessageTracks })

	if err := conn.WriteJSON(api.OverlaySample{Event: "error", Kind: "other", Fatal: true, Detail: "decode"}); err != nil {
		t.Fatalf("write: %v", err)
	}
	msg := readUntil(t, conn, func(msg api.OverlayMessage) bool { return msg.Type == api.MessageError })
	if msg.Error == "" {
		t.Fatal("expected error message")
	}
}

func TestOverlayRequiresPlaylists(t *testing.T) {
	srv := newServer(t, api.Options{})
	rec := do(t, srv.Handler(), http.MethodGet, "/videos/vid/overlay", nil)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestOverlayPlaylistFailure(t *testing.T) {
	srv := newServer(t, api.Options{Playlists: fakePlaylists{err: errBoom}})
	rec := do(t, srv.Handler(), http.MethodGet, "/videos/vid/overlay", nil)
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("status = %d", rec.Code)
	}
}
