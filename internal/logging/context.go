package logging

import (
	"context"
	"log/slog"

	"captionsync/internal/services"
)

var contextFields = []struct {
	key    string
	lookup func(context.Context) (string, bool)
}{
	{FieldVideoID, services.VideoIDFromContext},
	{FieldLanguage, services.LanguageFromContext},
	{FieldCorrelationID, services.RequestIDFromContext},
}

// WithContext stamps logger with the video, language and request id carried
// by ctx. Absent values are skipped.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	if ctx == nil {
		return logger
	}
	var args []any
	for _, field := range contextFields {
		if value, ok := field.lookup(ctx); ok {
			args = append(args, slog.String(field.key, value))
		}
	}
	if len(args) == 0 {
		return logger
	}
	return logger.With(args...)
}
