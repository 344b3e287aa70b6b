package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"
)

// Logger wraps slog.Logger with the field names used across emojisearch.
type Logger struct {
	*slog.Logger
}

// New creates a Logger with the given handler.
// If handler is nil, uses a text handler to stderr at info level.
func New(handler slog.Handler) *Logger {
	if handler == nil {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo})
	}
	return &Logger{Logger: slog.New(handler)}
}

// NewWithFormat builds a Logger writing to w. format is "json" or "text".
func NewWithFormat(w io.Writer, format string, level slog.Level) *Logger {
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(format, "json") {
		return New(slog.NewJSONHandler(w, opts))
	}
	return New(slog.NewTextHandler(w, opts))
}

// NoopLogger discards all output.
func NoopLogger() *Logger {
	return New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.Level(1000)}))
}

// ParseLevel maps "debug", "info", "warn" and "error" to slog levels.
func ParseLevel(s string) (slog.Level, error) {
	var lvl slog.Level
	err := lvl.UnmarshalText([]byte(s))
	return lvl, err
}

// WithFamily tags the logger with an emoji family.
func (l *Logger) WithFamily(family string) *Logger {
	return &Logger{Logger: l.Logger.With("family", family)}
}

// WithRequestID tags the logger with an HTTP request id.
func (l *Logger) WithRequestID(id string) *Logger {
	return &Logger{Logger: l.Logger.With("request_id", id)}
}

// LogSearch logs a completed or failed search.
func (l *Logger) LogSearch(ctx context.Context, query, family string, results int, took time.Duration, err error) {
	if err != nil {
		l.InfoContext(ctx, "search rejected",
			"query", query,
			"family", family,
			"error", err,
		)
		return
	}
	l.DebugContext(ctx, "search completed",
		"query", query,
		"family", family,
		"results", results,
		"duration", took,
	)
}

// LogCatalogLoad logs a catalog file load. Tag the logger WithFamily first.
func (l *Logger) LogCatalogLoad(ctx context.Context, path string, count int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "catalog load failed",
			"path", path,
			"error", err,
		)
		return
	}
	l.InfoContext(ctx, "catalog loaded",
		"path", path,
		"count", count,
	)
}
