//go:build cgo

package lair

import (
	"context"
	"log/slog"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"lair/internal/grammar"
	"lair/internal/slogutil"
	"lair/internal/syntax"
)

const (
	captureName       = "name"
	captureDefinition = "definition."
	anonymous         = "<anonymous>"
)

// Extractor turns a parsed file into code elements using the structural
// queries registered for its language.
type Extractor struct {
	registry *grammar.Registry
	executor *syntax.Executor
	logger   *slog.Logger
}

// NewExtractor creates an extractor.
func NewExtractor(registry *grammar.Registry, executor *syntax.Executor, logger *slog.Logger) *Extractor {
	return &Extractor{
		registry: registry,
		executor: executor,
		logger:   slogutil.Component(logger, "extract"),
	}
}

// nodeKey identifies a syntax node within one tree.
type nodeKey struct {
	start, end uint32
	kind       string
}

func keyOf(n *sitter.Node) nodeKey {
	return nodeKey{start: n.StartByte(), end: n.EndByte(), kind: n.Type()}
}

// extraction is the state of one Extract call.
type extraction struct {
	file     *syntax.ParsedFile
	root     nodeKey
	classes  map[nodeKey]int
	seen     map[spanKey]bool
	elements []CodeElement
}

// Extract runs the class, method and function queries in that order and
// returns the resulting elements, keyword-filtered when keywords are given.
func (x *Extractor) Extract(ctx context.Context, file *syntax.ParsedFile, keywords []string) ([]CodeElement, error) {
	if file == nil {
		return nil, nil
	}
	root := file.Root()
	if root == nil {
		return nil, nil
	}
	cfg, ok := x.registry.Get(file.Language)
	if !ok {
		return nil, nil
	}

	st := &extraction{
		file:    file,
		root:    keyOf(root),
		classes: make(map[nodeKey]int),
		seen:    make(map[spanKey]bool),
	}

	for _, qt := range grammar.QueryTypes {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		query := cfg.Query(qt)
		if query == "" {
			continue
		}
		matches := x.executor.Execute(file, qt, query)
		switch qt {
		case grammar.QueryClass:
			st.addClasses(matches)
		case grammar.QueryMethod:
			st.addMethods(matches)
		case grammar.QueryFunction:
			st.addFunctions(matches)
		}
	}

	x.logger.Debug("Extracted elements",
		"path", file.Path,
		"language", file.Language,
		"count", len(st.elements),
	)

	if len(keywords) == 0 {
		return st.elements, nil
	}
	return FilterByKeywords(st.elements, keywords), nil
}

func (st *extraction) addClasses(matches []syntax.Match) {
	for _, m := range matches {
		def, name := split(m)
		if def == nil {
			continue
		}
		k := keyOf(def)
		if _, ok := st.classes[k]; ok {
			continue
		}
		idx, ok := st.add(def, name, TypeClass, "")
		if ok {
			st.classes[k] = idx
		}
	}
}

func (st *extraction) addMethods(matches []syntax.Match) {
	for _, m := range matches {
		def, name := split(m)
		if def == nil {
			continue
		}
		classIdx, found := st.enclosingClass(def)
		if !found {
			st.add(def, name, TypeFunction, "")
			continue
		}
		parentID := st.elements[classIdx].ID
		idx, ok := st.add(def, name, TypeMethod, parentID)
		if !ok {
			continue
		}
		st.elements[classIdx].Children = append(st.elements[classIdx].Children, st.elements[idx].ID)
	}
}

func (st *extraction) addFunctions(matches []syntax.Match) {
	for _, m := range matches {
		def, name := split(m)
		if def == nil {
			continue
		}
		st.add(def, name, TypeFunction, "")
	}
}

// enclosingClass walks from n's parent towards the root and returns the
// first ancestor recorded as a class.
func (st *extraction) enclosingClass(n *sitter.Node) (int, bool) {
	for p := n.Parent(); p != nil; p = p.Parent() {
		k := keyOf(p)
		if idx, ok := st.classes[k]; ok {
			return idx, true
		}
		if k == st.root {
			break
		}
	}
	return 0, false
}

// add appends an element for def unless one with the same span and type
// exists. It returns the element's index.
func (st *extraction) add(def, name *sitter.Node, typ ElementType, parent string) (int, bool) {
	sk := spanKey{path: st.file.Path, start: int(def.StartByte()), end: int(def.EndByte()), typ: typ}
	if st.seen[sk] {
		return 0, false
	}
	st.seen[sk] = true

	content := st.file.Content
	start, end := int(def.StartByte()), int(def.EndByte())
	if end > len(content) {
		end = len(content)
	}
	if start > end {
		start = end
	}

	elementName := anonymous
	if name != nil {
		if n := strings.TrimSpace(name.Content(content)); n != "" {
			elementName = n
		}
	}

	sp, ep := def.StartPoint(), def.EndPoint()
	st.elements = append(st.elements, CodeElement{
		ID:            newID(),
		Type:          typ,
		Name:          elementName,
		FilePath:      st.file.Path,
		Language:      st.file.Language,
		StartPosition: Position{Row: int(sp.Row), Column: int(sp.Column)},
		EndPosition:   Position{Row: int(ep.Row), Column: int(ep.Column)},
		StartIndex:    start,
		EndIndex:      end,
		CodeSnippet:   string(content[start:end]),
		Parent:        parent,
	})
	return len(st.elements) - 1, true
}

// split returns the definition and name captures of m.
func split(m syntax.Match) (def, name *sitter.Node) {
	for _, c := range m.Captures {
		switch {
		case c.Name == captureName && name == nil:
			name = c.Node
		case strings.HasPrefix(c.Name, captureDefinition) && def == nil:
			def = c.Node
		}
	}
	return def, name
}
