package services

import "context"

type contextKey int

const (
	videoIDKey contextKey = iota
	languageKey
	requestIDKey
)

func withString(ctx context.Context, key contextKey, value string) context.Context {
	if value == "" {
		return ctx
	}
	return context.WithValue(ctx, key, value)
}

func stringFrom(ctx context.Context, key contextKey) (string, bool) {
	v, ok := ctx.Value(key).(string)
	return v, ok && v != ""
}

// WithVideoID annotates context with the vendor video identifier.
func WithVideoID(ctx context.Context, id string) context.Context {
	return withString(ctx, videoIDKey, id)
}

func VideoIDFromContext(ctx context.Context) (string, bool) { return stringFrom(ctx, videoIDKey) }

// WithLanguage annotates context with the caption language being processed.
func WithLanguage(ctx context.Context, lang string) context.Context {
	return withString(ctx, languageKey, lang)
}

func LanguageFromContext(ctx context.Context) (string, bool) { return stringFrom(ctx, languageKey) }

// WithRequestID annotates context with the HTTP correlation identifier.
func WithRequestID(ctx context.Context, id string) context.Context {
	return withString(ctx, requestIDKey, id)
}

func RequestIDFromContext(ctx context.Context) (string, bool) { return stringFrom(ctx, requestIDKey) }
