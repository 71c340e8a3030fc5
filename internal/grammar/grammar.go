// Package grammar declares, per language, where its tree-sitter grammar comes
// from and which structural queries locate its classes, methods and functions.
package grammar

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"lair/internal/slogutil"
)

//go:embed queries
var queryFS embed.FS

// QueryType names the structural construct a query locates.
type QueryType string

const (
	QueryClass    QueryType = "class"
	QueryMethod   QueryType = "method"
	QueryFunction QueryType = "function"
)

// QueryTypes lists query types in the order extraction runs them.
// Classes must be indexed before methods are resolved against them.
var QueryTypes = []QueryType{QueryClass, QueryMethod, QueryFunction}

// Grammar locations understood by the syntax package.
const (
	GrammarGo         = "github.com/smacker/go-tree-sitter/golang"
	GrammarJavaScript = "github.com/smacker/go-tree-sitter/javascript"
	GrammarTypeScript = "github.com/smacker/go-tree-sitter/typescript/typescript"
	GrammarTSX        = "github.com/smacker/go-tree-sitter/typescript/tsx"
	GrammarPython     = "github.com/smacker/go-tree-sitter/python"
	GrammarRust       = "github.com/smacker/go-tree-sitter/rust"
	GrammarJava       = "github.com/smacker/go-tree-sitter/java"
	GrammarKotlin     = "github.com/smacker/go-tree-sitter/kotlin"
	GrammarRuby       = "github.com/smacker/go-tree-sitter/ruby"
	GrammarCSharp     = "github.com/smacker/go-tree-sitter/csharp"
	GrammarPHP        = "github.com/smacker/go-tree-sitter/php"
	GrammarC          = "github.com/smacker/go-tree-sitter/c"
	GrammarCPP        = "github.com/smacker/go-tree-sitter/cpp"
)

var knownGrammars = map[string]bool{
	GrammarGo: true, GrammarJavaScript: true, GrammarTypeScript: true, GrammarTSX: true,
	GrammarPython: true, GrammarRust: true, GrammarJava: true, GrammarKotlin: true,
	GrammarRuby: true, GrammarCSharp: true, GrammarPHP: true, GrammarC: true, GrammarCPP: true,
}

// IsKnownGrammar reports whether location names a grammar lair can load.
func IsKnownGrammar(location string) bool {
	return knownGrammars[location]
}

// ErrNoGrammar is returned when a config does not say where its grammar lives.
var ErrNoGrammar = errors.New("language config has no grammar location")

// LanguageConfig is the declarative description of one language.
type LanguageConfig struct {
	ID         string
	Extensions []string
	// Aliases are editor language tags (e.g. "typescriptreact") that map to ID.
	Aliases []string
	// Grammar is the grammar location, one of the Grammar* constants.
	Grammar string
	Queries map[QueryType]string
}

// Query returns the query text for t, or "" when the language has none.
func (c LanguageConfig) Query(t QueryType) string {
	return c.Queries[t]
}

// clone copies slices and maps so callers cannot mutate registry state.
func (c LanguageConfig) clone() LanguageConfig {
	out := c
	out.Extensions = append([]string(nil), c.Extensions...)
	out.Aliases = append([]string(nil), c.Aliases...)
	out.Queries = make(map[QueryType]string, len(c.Queries))
	for k, v := range c.Queries {
		out.Queries[k] = v
	}
	return out
}

// Registry holds language configs in registration order.
type Registry struct {
	mu      sync.RWMutex
	order   []string
	configs map[string]LanguageConfig
	logger  *slog.Logger
}

// NewRegistry returns an empty registry.
func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{
		configs: make(map[string]LanguageConfig),
		logger:  slogutil.Component(logger, "grammar"),
	}
}

// Register validates and stores cfg. Re-registering an ID replaces the config
// but keeps its original lookup position.
func (r *Registry) Register(cfg LanguageConfig) error {
	if cfg.ID == "" {
		return errors.New("language config has no id")
	}
	if strings.TrimSpace(cfg.Grammar) == "" {
		return fmt.Errorf("%s: %w", cfg.ID, ErrNoGrammar)
	}
	cfg = cfg.clone()
	for i, ext := range cfg.Extensions {
		cfg.Extensions[i] = normalizeExt(ext)
	}
	if cfg.Query(QueryFunction) == "" && cfg.Query(QueryClass) == "" {
		r.logger.Warn("Language has neither function nor class query; extraction will find little",
			"language", cfg.ID,
		)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.configs[cfg.ID]; !exists {
		r.order = append(r.order, cfg.ID)
	}
	r.configs[cfg.ID] = cfg
	return nil
}

// Get returns the config registered under id.
func (r *Registry) Get(id string) (LanguageConfig, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	cfg, ok := r.configs[id]
	if !ok {
		return LanguageConfig{}, false
	}
	return cfg.clone(), true
}

// ForExtension maps a file extension (with or without the dot) to a language id.
// The first registered config listing the extension wins.
func (r *Registry) ForExtension(ext string) (string, bool) {
	ext = normalizeExt(ext)
	if ext == "." {
		return "", false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, id := range r.order {
		for _, e := range r.configs[id].Extensions {
			if e == ext {
				return id, true
			}
		}
	}
	return "", false
}

// ForPath maps a file path to a language id by its extension.
func (r *Registry) ForPath(p string) (string, bool) {
	return r.ForExtension(filepath.Ext(p))
}

// ForTag maps an editor language tag to a language id. A tag equal to a
// registered id matches before any alias.
func (r *Registry) ForTag(tag string) (string, bool) {
	tag = strings.ToLower(strings.TrimSpace(tag))
	r.mu.RLock()
	defer r.mu.RUnlock()
	if _, ok := r.configs[tag]; ok {
		return tag, true
	}
	for _, id := range r.order {
		for _, a := range r.configs[id].Aliases {
			if strings.EqualFold(a, tag) {
				return id, true
			}
		}
	}
	return "", false
}

// Languages returns the registered ids, sorted.
func (r *Registry) Languages() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := append([]string(nil), r.order...)
	sort.Strings(ids)
	return ids
}

func normalizeExt(ext string) string {
	ext = strings.ToLower(strings.TrimSpace(ext))
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}

type builtin struct {
	id         string
	grammar    string
	extensions []string
	aliases    []string
}

var builtins = []builtin{
	{"go", GrammarGo, []string{".go"}, nil},
	{"javascript", GrammarJavaScript, []string{".js", ".mjs", ".cjs", ".jsx"}, []string{"javascriptreact"}},
	{"typescript", GrammarTypeScript, []string{".ts", ".mts", ".cts"}, nil},
	{"tsx", GrammarTSX, []string{".tsx"}, []string{"typescriptreact"}},
	{"python", GrammarPython, []string{".py", ".pyw"}, nil},
	{"rust", GrammarRust, []string{".rs"}, nil},
	{"java", GrammarJava, []string{".java"}, nil},
	{"kotlin", GrammarKotlin, []string{".kt", ".kts"}, nil},
	{"ruby", GrammarRuby, []string{".rb"}, nil},
	{"csharp", GrammarCSharp, []string{".cs"}, nil},
	{"php", GrammarPHP, []string{".php"}, nil},
	{"c", GrammarC, []string{".c", ".h"}, nil},
	{"cpp", GrammarCPP, []string{".cpp", ".cc", ".cxx", ".hpp", ".hh"}, []string{"c++"}},
}

// DefaultRegistry returns a registry populated with the built-in languages.
func DefaultRegistry(logger *slog.Logger) *Registry {
	r := NewRegistry(logger)
	for _, b := range builtins {
		cfg := LanguageConfig{
			ID:         b.id,
			Extensions: b.extensions,
			Aliases:    b.aliases,
			Grammar:    b.grammar,
			Queries:    embeddedQueries(b.id),
		}
		if err := r.Register(cfg); err != nil {
			// Built-ins always carry a grammar; this only fires on a broken table.
			panic(err)
		}
	}
	return r
}

func embeddedQueries(id string) map[QueryType]string {
	queries := make(map[QueryType]string)
	for _, t := range QueryTypes {
		data, err := fs.ReadFile(queryFS, path.Join("queries", id, string(t)+".scm"))
		if err != nil {
			continue
		}
		queries[t] = string(data)
	}
	return queries
}
