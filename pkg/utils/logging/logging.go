package logging

import (
	"context"
	"log/slog"
	"os"
	"sync/atomic"
)

var defaultLogger atomic.Pointer[slog.Logger]

func init() {
	defaultLogger.Store(slog.New(slog.NewJSONHandler(os.Stdout, nil)))
}

// Default returns the process-wide logger
func Default() *slog.Logger {
	return defaultLogger.Load()
}

// SetDefault replaces the process-wide logger. Called once from the CLI
// layer after flags are parsed.
func SetDefault(logger *slog.Logger) {
	if logger != nil {
		defaultLogger.Store(logger)
	}
}

type ctxLoggerKey struct{}

// With returns a context carrying the given logger
func With(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, ctxLoggerKey{}, logger)
}

// From extracts the logger from the context, falling back to Default
func From(ctx context.Context) *slog.Logger {
	if logger, ok := ctx.Value(ctxLoggerKey{}).(*slog.Logger); ok && logger != nil {
		return logger
	}
	return Default()
}
