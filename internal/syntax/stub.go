//go:build !cgo

package syntax

import (
	"context"
	"log/slog"

	"lair/internal/grammar"
	"lair/internal/slogutil"
)

// IsAvailable reports whether tree-sitter parsing is compiled in.
func IsAvailable() bool {
	return false
}

// ParsedFile is a parsed source file.
// This is a stub for non-CGO builds and never carries a tree.
type ParsedFile struct {
	Path     string
	Language string
	Content  []byte
}

// Dispose is a no-op.
func (f *ParsedFile) Dispose() error {
	return nil
}

// Parser is a stub for non-CGO builds.
type Parser struct {
	logger *slog.Logger
}

// NewParser returns a parser that never produces a tree.
func NewParser(registry *grammar.Registry, logger *slog.Logger) *Parser {
	return &Parser{logger: slogutil.Component(logger, "syntax")}
}

// Initialize always succeeds.
func (p *Parser) Initialize(ctx context.Context) error {
	return ctx.Err()
}

// Parse returns (nil, nil) so callers take the plain-text fallback.
func (p *Parser) Parse(ctx context.Context, path string, content []byte, languageID string) (*ParsedFile, error) {
	return nil, nil
}

// LoadedGrammars is always zero.
func (p *Parser) LoadedGrammars() int {
	return 0
}

// Capture is one named node of a match.
type Capture struct {
	Name string
}

// Match is one query match.
type Match struct {
	PatternIndex uint16
	Captures     []Capture
}

// Executor is a stub for non-CGO builds.
type Executor struct{}

// NewExecutor returns an executor that never matches.
func NewExecutor(logger *slog.Logger) *Executor {
	return &Executor{}
}

// Execute returns no matches.
func (e *Executor) Execute(file *ParsedFile, queryType grammar.QueryType, query string) []Match {
	return nil
}

// ExecuteMultiple returns an empty result per query type.
func (e *Executor) ExecuteMultiple(file *ParsedFile, specs []QuerySpec) map[grammar.QueryType][]Match {
	out := make(map[grammar.QueryType][]Match, len(specs))
	for _, s := range specs {
		out[s.Type] = nil
	}
	return out
}

// CachedQueries is always zero.
func (e *Executor) CachedQueries() int {
	return 0
}
