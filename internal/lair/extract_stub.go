//go:build !cgo

package lair

import (
	"context"
	"log/slog"

	"lair/internal/grammar"
	"lair/internal/syntax"
)

// Extractor is a stub for non-CGO builds. Files are never parsed, so every
// file goes through ScanPlainText instead.
type Extractor struct{}

// NewExtractor creates an extractor.
func NewExtractor(registry *grammar.Registry, executor *syntax.Executor, logger *slog.Logger) *Extractor {
	return &Extractor{}
}

// Extract returns no elements.
func (x *Extractor) Extract(ctx context.Context, file *syntax.ParsedFile, keywords []string) ([]CodeElement, error) {
	return nil, ctx.Err()
}
