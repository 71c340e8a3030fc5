// Package search finds candidate files containing any of a set of keywords.
package search

import (
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"time"
)

// DefaultTimeout bounds a single search.
const DefaultTimeout = 60 * time.Second

// Request describes one search.
type Request struct {
	// Patterns are literal, case-insensitive keywords; a file matches if it contains any.
	Patterns []string
	Root     string
	// IgnoreGlobs use gitignore syntax.
	IgnoreGlobs []string
}

// Searcher lists files under Request.Root containing any pattern. Paths are
// absolute. A cancelled context yields its error; a search that finds
// nothing yields an empty slice and no error.
type Searcher interface {
	Search(ctx context.Context, req Request) ([]string, error)
}

// Backend names a Searcher implementation.
type Backend string

const (
	BackendAuto    Backend = "auto"
	BackendRipgrep Backend = "ripgrep"
	BackendWalk    Backend = "walk"
)

// Options configures New.
type Options struct {
	Backend     Backend
	RipgrepPath string
	Timeout     time.Duration
	MaxFileSize int64
	Logger      *slog.Logger
}

// New builds the searcher named by opts.Backend. Auto picks ripgrep when it
// is on PATH and the walker otherwise.
func New(opts Options) (Searcher, error) {
	if opts.RipgrepPath == "" {
		opts.RipgrepPath = "rg"
	}
	switch opts.Backend {
	case BackendRipgrep:
		path, err := exec.LookPath(opts.RipgrepPath)
		if err != nil {
			return nil, fmt.Errorf("ripgrep backend: %w", err)
		}
		return NewRipgrep(path, opts.Timeout, opts.Logger), nil
	case BackendWalk:
		return NewWalker(opts.MaxFileSize, opts.Logger), nil
	case BackendAuto, "":
		return Auto(opts), nil
	default:
		return nil, fmt.Errorf("unknown search backend %q", opts.Backend)
	}
}

// Auto returns ripgrep when available, else the walker.
func Auto(opts Options) Searcher {
	rg := opts.RipgrepPath
	if rg == "" {
		rg = "rg"
	}
	if path, err := exec.LookPath(rg); err == nil {
		return NewRipgrep(path, opts.Timeout, opts.Logger)
	}
	return NewWalker(opts.MaxFileSize, opts.Logger)
}
