package logging

import (
	"context"
	"errors"
	"log/slog"
)

// teeHandler mirrors console output into the JSON log file. Each side keeps
// its own level so the file can stay at debug while the terminal is quieter.
type teeHandler struct {
	primary   slog.Handler
	secondary slog.Handler
}

func newTeeHandler(primary, secondary slog.Handler) slog.Handler {
	if secondary == nil {
		return primary
	}
	if primary == nil {
		return secondary
	}
	return teeHandler{primary: primary, secondary: secondary}
}

func (h teeHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.primary.Enabled(ctx, level) || h.secondary.Enabled(ctx, level)
}

func (h teeHandler) Handle(ctx context.Context, record slog.Record) error {
	var primaryErr, secondaryErr error
	if h.primary.Enabled(ctx, record.Level) {
		primaryErr = h.primary.Handle(ctx, record.Clone())
	}
	if h.secondary.Enabled(ctx, record.Level) {
		secondaryErr = h.secondary.Handle(ctx, record)
	}
	return errors.Join(primaryErr, secondaryErr)
}

func (h teeHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return teeHandler{primary: h.primary.WithAttrs(attrs), secondary: h.secondary.WithAttrs(attrs)}
}

func (h teeHandler) WithGroup(name string) slog.Handler {
	return teeHandler{primary: h.primary.WithGroup(name), secondary: h.secondary.WithGroup(name)}
}
