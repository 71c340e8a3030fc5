// Package syntax owns the tree-sitter engine: grammar loading, parsing
// source into syntax trees, and running structural queries against them.
//
// Builds without cgo compile a stub whose parser never produces a tree, so
// every file takes the plain-text fallback.
package syntax

import (
	"errors"

	"lair/internal/grammar"
)

// ErrGrammarUnavailable reports that no grammar is registered or loadable.
// Parse swallows it and returns no tree.
var ErrGrammarUnavailable = errors.New("grammar unavailable")

// QuerySpec is one query of a batch passed to ExecuteMultiple.
type QuerySpec struct {
	Type  grammar.QueryType
	Query string
}
