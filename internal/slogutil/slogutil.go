// Package slogutil provides the lair slog handler and level helpers.
package slogutil

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"sync"
)

// levelSilent sits above every standard level.
const levelSilent = slog.Level(100)

// NewLogger creates a new slog.Logger that writes lair's line format to w.
func NewLogger(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(NewHandler(w, &slog.HandlerOptions{Level: level}))
}

// NewDiscardLogger creates a logger that discards all output.
func NewDiscardLogger() *slog.Logger {
	return slog.New(NewHandler(io.Discard, &slog.HandlerOptions{Level: levelSilent}))
}

// Component returns a child logger tagged with the pipeline component name.
func Component(logger *slog.Logger, name string) *slog.Logger {
	if logger == nil {
		logger = NewDiscardLogger()
	}
	return logger.With("component", name)
}

// LevelFromString converts a string to a slog.Level.
// Supports: debug, info, warn, error, silent (case-insensitive).
// Returns slog.LevelInfo for unrecognized strings.
func LevelFromString(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	case "silent", "off":
		return levelSilent
	default:
		return slog.LevelInfo
	}
}

// LevelFromVerbosity converts CLI verbosity flags to a slog.Level.
// - quiet=true: suppresses all logs
// - verbosity=0: the configured fallback
// - verbosity=1: info
// - verbosity>=2: debug
func LevelFromVerbosity(verbosity int, quiet bool, fallback slog.Level) slog.Level {
	if quiet {
		return levelSilent
	}
	switch verbosity {
	case 0:
		return fallback
	case 1:
		return slog.LevelInfo
	default:
		return slog.LevelDebug
	}
}

// CountingHandler wraps a handler and counts records per level.
// Tests use it to assert that a degraded path logged a warning.
type CountingHandler struct {
	slog.Handler
	counts *levelCounts
}

type levelCounts struct {
	mu      sync.Mutex
	byLevel map[slog.Level]int
}

// NewCountingHandler wraps next; a nil next discards records after counting.
func NewCountingHandler(next slog.Handler) *CountingHandler {
	if next == nil {
		next = NewHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelDebug})
	}
	return &CountingHandler{Handler: next, counts: &levelCounts{byLevel: make(map[slog.Level]int)}}
}

// Enabled always reports true so every record is counted.
func (h *CountingHandler) Enabled(context.Context, slog.Level) bool { return true }

// Handle counts the record and forwards it when the wrapped handler accepts its level.
func (h *CountingHandler) Handle(ctx context.Context, r slog.Record) error {
	h.counts.mu.Lock()
	h.counts.byLevel[r.Level]++
	h.counts.mu.Unlock()
	if !h.Handler.Enabled(ctx, r.Level) {
		return nil
	}
	return h.Handler.Handle(ctx, r)
}

// WithAttrs keeps the shared counters.
func (h *CountingHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &CountingHandler{Handler: h.Handler.WithAttrs(attrs), counts: h.counts}
}

// WithGroup keeps the shared counters.
func (h *CountingHandler) WithGroup(name string) slog.Handler {
	return &CountingHandler{Handler: h.Handler.WithGroup(name), counts: h.counts}
}

// Count returns how many records were seen at level.
func (h *CountingHandler) Count(level slog.Level) int {
	h.counts.mu.Lock()
	defer h.counts.mu.Unlock()
	return h.counts.byLevel[level]
}
