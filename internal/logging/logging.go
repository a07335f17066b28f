// Package logging provides structured logging using slog. The TUI owns the
// terminal, so logs go to a file; the JSON format is the one the file
// source reads back.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// Subsystem is the subsystem attribute stamped on every logsift log line.
const Subsystem = "logsift"

// New creates a logger writing to w with the given level and format.
func New(w io.Writer, level slog.Level, json bool) *slog.Logger {
	var handler slog.Handler

	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: level == slog.LevelDebug,
	}

	if json {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}

	return slog.New(handler).With("subsystem", Subsystem)
}

// Open creates a JSON logger appending to path, creating parent directories
// as needed. Close the returned closer on exit.
func Open(path string, level slog.Level) (*slog.Logger, io.Closer, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, nil, fmt.Errorf("create log dir: %w", err)
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("open log file: %w", err)
	}
	return New(file, level, true), file, nil
}

// Discard returns a logger that drops everything.
func Discard() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// WithCategory returns a logger tagged with the category attribute, which
// the log list shows as the record's category.
func WithCategory(l *slog.Logger, category string) *slog.Logger {
	if l == nil {
		l = Discard()
	}
	return l.With("category", category)
}

// ParseLevel maps a config level name onto slog. Unknown names are an error.
func ParseLevel(value string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "info":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("unknown log level %q", value)
}
