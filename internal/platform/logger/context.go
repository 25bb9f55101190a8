package logger

import (
	"context"
	"log/slog"
)

type contextKey struct{}

// WithLogger returns a copy of ctx carrying l.
func WithLogger(ctx context.Context, l *slog.Logger) context.Context {
	return context.WithValue(ctx, contextKey{}, l)
}

// FromContext returns the logger stored in ctx, or slog.Default().
func FromContext(ctx context.Context) *slog.Logger {
	return FromContextOrDefault(ctx, slog.Default())
}

// ComponentKey is the attribute naming the component that wrote a line.
const ComponentKey = "component"

// FromContextFor returns the request-scoped logger tagged with component.
// Without one it returns fallback, which is expected to carry the tag already.
func FromContextFor(ctx context.Context, fallback *slog.Logger, component string) *slog.Logger {
	if ctx != nil {
		if l, ok := ctx.Value(contextKey{}).(*slog.Logger); ok && l != nil {
			return l.With(slog.String(ComponentKey, component))
		}
	}
	if fallback == nil {
		return slog.Default()
	}
	return fallback
}

// FromContextOrDefault returns the logger stored in ctx, or fallback when
// there is none. Request-scoped loggers carry the trace id, so components
// prefer them over their own.
func FromContextOrDefault(ctx context.Context, fallback *slog.Logger) *slog.Logger {
	if ctx != nil {
		if l, ok := ctx.Value(contextKey{}).(*slog.Logger); ok && l != nil {
			return l
		}
	}
	if fallback == nil {
		return slog.Default()
	}
	return fallback
}
