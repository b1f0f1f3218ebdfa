package transcription

import (
	"context"
	"errors"
	"sync"
)

type fakeTranscriber struct {
	words []WordTimestamp
	err   error
	calls int
}

func (f *fakeTranscriber) Transcribe(context.Context, string, string) ([]WordTimestamp, error) {
	f.calls++
	return f.words, f.err
}

type memoryPublisher struct {
	mu    sync.Mutex
	files map[string]string
	fail  string
}

func (m *memoryPublisher) Put(_ context.Context, videoID, file string, body []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if file == m.fail {
		return errors.New("storage unavailable")
	}
	if m.files == nil {
		m.files = map[string]string{}
	}
	m.files[videoID+"/"+file] = string(body)
	return nil
}
