package transcription

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"

	"captionsync/internal/fileutil"
	"captionsync/internal/language"
	"captionsync/internal/logging"
)

// Decoder extracts word timestamps and an optional detected language from a
// stored transcription response.
type Decoder func(data []byte) ([]WordTimestamp, string, error)

// Watcher converts transcription responses (*.json) dropped into a directory
// into WebVTT files written beside them.
type Watcher struct {
	dir      string
	decode   Decoder
	language string
	logger   *slog.Logger
	// processed is invoked after each successful conversion; tests use it
	// to observe progress.
	processed func(vttPath string)
}

// NewWatcher creates a Watcher. fallbackLanguage tags documents whose
// response carries no detected language.
func NewWatcher(dir string, decode Decoder, fallbackLanguage string, logger *slog.Logger) *Watcher {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Watcher{
		dir:      dir,
		decode:   decode,
		language: language.Normalize(fallbackLanguage),
		logger:   logging.NewComponentLogger(logger, "transcription-watcher"),
	}
}

// OnProcessed registers a callback fired after each written VTT file.
func (w *Watcher) OnProcessed(fn func(vttPath string)) {
	w.processed = fn
}

// ProcessFile converts one response file and returns the VTT path.
func (w *Watcher) ProcessFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	words, detected, err := w.decode(data)
	if err != nil {
		return "", fmt.Errorf("decode %s: %w", filepath.Base(path), err)
	}
	lang := language.Normalize(detected)
	if lang == "" {
		lang = w.language
	}
	out := fileutil.ReplaceExt(path, ".vtt")
	if err := fileutil.WriteAtomic(out, []byte(Synthesize(words, lang)), 0o644); err != nil {
		return "", err
	}
	w.logger.Info("transcription converted",
		logging.String("source", filepath.Base(path)),
		logging.String("output", filepath.Base(out)),
		logging.Language(lang),
		logging.Int("words", len(words)),
	)
	if w.processed != nil {
		w.processed(out)
	}
	return out, nil
}

// Run converts any pending responses then watches the directory until ctx
// ends. A response is pending when no VTT file sits beside it.
func (w *Watcher) Run(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(w.dir); err != nil {
		return fmt.Errorf("watch dir %q: %w", w.dir, err)
	}
	w.scan()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			if !isResponseFile(event.Name) {
				continue
			}
			if _, err := w.ProcessFile(event.Name); err != nil {
				// Writers may still be flushing; the next write event retries.
				w.logger.Debug("transcription not ready", logging.String("source", filepath.Base(event.Name)), logging.Error(err))
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			return err
		}
	}
}

func (w *Watcher) scan() {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		w.logger.Warn("scan transcription dir failed", logging.Error(err))
		return
	}
	for _, entry := range entries {
		path := filepath.Join(w.dir, entry.Name())
		if entry.IsDir() || !isResponseFile(path) {
			continue
		}
		if _, err := os.Stat(fileutil.ReplaceExt(path, ".vtt")); err == nil {
			continue
		}
		if _, err := w.ProcessFile(path); err != nil {
			logging.WarnWithContext(w.logger, "transcription conversion failed", "transcription_convert_failed",
				logging.String("source", entry.Name()),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "verify the file is a complete transcription response"),
			)
		}
	}
}

func isResponseFile(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".json") && !fileutil.IsHidden(path)
}
