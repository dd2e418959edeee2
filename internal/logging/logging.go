package logging

import (
	"context"
	"io"
	"log/slog"
)

type contextKey struct{}

// NewStructuredLogger returns a JSON logger writing to w at the given level.
func NewStructuredLogger(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}))
}

// WithLogger stores logger in ctx.
func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, contextKey{}, logger)
}

// FromContext returns the logger stored in ctx, or slog.Default.
func FromContext(ctx context.Context) *slog.Logger {
	if ctx != nil {
		if logger, ok := ctx.Value(contextKey{}).(*slog.Logger); ok && logger != nil {
			return logger
		}
	}
	return slog.Default()
}

// LogError logs msg at error level with err attached. A nil logger uses slog.Default.
func LogError(logger *slog.Logger, msg string, err error, attrs ...slog.Attr) {
	if logger == nil {
		logger = slog.Default()
	}
	args := make([]any, 0, len(attrs)+1)
	if err != nil {
		args = append(args, slog.String("error", err.Error()))
	}
	for _, attr := range attrs {
		args = append(args, attr)
	}
	logger.Error(msg, args...)
}

// LogOperation records a completed operation at info level.
func LogOperation(logger *slog.Logger, operation string, attrs ...slog.Attr) {
	if logger == nil {
		logger = slog.Default()
	}
	args := make([]any, 0, len(attrs)+1)
	args = append(args, slog.String("operation", operation))
	for _, attr := range attrs {
		args = append(args, attr)
	}
	logger.Info("operation completed", args...)
}

// Component returns a child of logger tagged with a component name.
func Component(logger *slog.Logger, name string) *slog.Logger {
	if logger == nil {
		logger = slog.Default()
	}
	return logger.With(slog.String("component", name))
}
