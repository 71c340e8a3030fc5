//go:build cgo

package syntax

import (
	"fmt"
	"log/slog"
	"sync"

	sitter "github.com/smacker/go-tree-sitter"

	lerrors "lair/internal/errors"
	"lair/internal/grammar"
	"lair/internal/slogutil"
)

// Capture is one named node of a match.
type Capture struct {
	Name string
	Node *sitter.Node
}

// Match is one query match with its captures in pattern order.
type Match struct {
	PatternIndex uint16
	Captures     []Capture
}

// Capture returns the first capture called name.
func (m Match) Capture(name string) (*sitter.Node, bool) {
	for _, c := range m.Captures {
		if c.Name == name {
			return c.Node, true
		}
	}
	return nil, false
}

type queryKey struct {
	language string
	text     string
}

type compiled struct {
	query *sitter.Query
	err   error
}

// Executor compiles and runs structural queries. Compiled queries are cached
// per language and query text, failures included, and shared across goroutines.
type Executor struct {
	logger *slog.Logger

	mu    sync.Mutex
	cache map[queryKey]compiled
}

// NewExecutor returns an executor with an empty query cache.
func NewExecutor(logger *slog.Logger) *Executor {
	return &Executor{
		logger: slogutil.Component(logger, "query"),
		cache:  make(map[queryKey]compiled),
	}
}

// Execute runs query against the root of file. A malformed query or a failed
// execution is logged against (queryType, language) and yields no matches.
func (e *Executor) Execute(file *ParsedFile, queryType grammar.QueryType, query string) []Match {
	if file == nil || query == "" {
		return nil
	}
	root := file.Root()
	if root == nil {
		return nil
	}

	q, err := e.compile(file, query)
	if err != nil {
		e.logFailure(file, queryType, err)
		return nil
	}

	matches, err := run(q, root, file.Content)
	if err != nil {
		e.logFailure(file, queryType, err)
		return nil
	}
	return matches
}

// ExecuteMultiple runs each spec independently. A failing query leaves its
// type with no matches and does not affect the others.
func (e *Executor) ExecuteMultiple(file *ParsedFile, specs []QuerySpec) map[grammar.QueryType][]Match {
	out := make(map[grammar.QueryType][]Match, len(specs))
	for _, s := range specs {
		out[s.Type] = append(out[s.Type], e.Execute(file, s.Type, s.Query)...)
	}
	return out
}

// CachedQueries returns how many compiled (or failed) queries are cached.
func (e *Executor) CachedQueries() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.cache)
}

func (e *Executor) compile(file *ParsedFile, text string) (*sitter.Query, error) {
	key := queryKey{language: file.Language, text: text}

	e.mu.Lock()
	defer e.mu.Unlock()
	if c, ok := e.cache[key]; ok {
		return c.query, c.err
	}
	q, err := sitter.NewQuery([]byte(text), file.lang)
	if err != nil {
		err = lerrors.New(lerrors.QueryFailed, "compile query", err)
	}
	e.cache[key] = compiled{query: q, err: err}
	return q, err
}

func run(q *sitter.Query, root *sitter.Node, content []byte) (matches []Match, err error) {
	defer func() {
		if r := recover(); r != nil {
			matches = nil
			err = lerrors.New(lerrors.QueryFailed, "execute query", fmt.Errorf("%v", r))
		}
	}()

	qc := sitter.NewQueryCursor()
	defer qc.Close()
	qc.Exec(q, root)

	for {
		m, ok := qc.NextMatch()
		if !ok {
			break
		}
		m = qc.FilterPredicates(m, content)
		if len(m.Captures) == 0 {
			continue
		}
		match := Match{
			PatternIndex: m.PatternIndex,
			Captures:     make([]Capture, 0, len(m.Captures)),
		}
		for _, c := range m.Captures {
			match.Captures = append(match.Captures, Capture{
				Name: q.CaptureNameForId(c.Index),
				Node: c.Node,
			})
		}
		matches = append(matches, match)
	}
	return matches, nil
}

func (e *Executor) logFailure(file *ParsedFile, queryType grammar.QueryType, err error) {
	e.logger.Warn("Query failed",
		"queryType", string(queryType),
		"language", file.Language,
		"path", file.Path,
		"error", err.Error(),
	)
}
