//go:build cgo

package syntax

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/c"
	"github.com/smacker/go-tree-sitter/cpp"
	"github.com/smacker/go-tree-sitter/csharp"
	"github.com/smacker/go-tree-sitter/golang"
	"github.com/smacker/go-tree-sitter/java"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/kotlin"
	"github.com/smacker/go-tree-sitter/php"
	"github.com/smacker/go-tree-sitter/python"
	"github.com/smacker/go-tree-sitter/ruby"
	"github.com/smacker/go-tree-sitter/rust"
	"github.com/smacker/go-tree-sitter/typescript/tsx"
	"github.com/smacker/go-tree-sitter/typescript/typescript"
	"golang.org/x/sync/singleflight"

	lerrors "lair/internal/errors"
	"lair/internal/grammar"
	"lair/internal/slogutil"
)

var grammarLoaders = map[string]func() *sitter.Language{
	grammar.GrammarGo:         golang.GetLanguage,
	grammar.GrammarJavaScript: javascript.GetLanguage,
	grammar.GrammarTypeScript: typescript.GetLanguage,
	grammar.GrammarTSX:        tsx.GetLanguage,
	grammar.GrammarPython:     python.GetLanguage,
	grammar.GrammarRust:       rust.GetLanguage,
	grammar.GrammarJava:       java.GetLanguage,
	grammar.GrammarKotlin:     kotlin.GetLanguage,
	grammar.GrammarRuby:       ruby.GetLanguage,
	grammar.GrammarCSharp:     csharp.GetLanguage,
	grammar.GrammarPHP:        php.GetLanguage,
	grammar.GrammarC:          c.GetLanguage,
	grammar.GrammarCPP:        cpp.GetLanguage,
}

// IsAvailable reports whether tree-sitter parsing is compiled in.
func IsAvailable() bool {
	return true
}

// ParsedFile is a parsed source file. The tree is a native resource released
// by Dispose; after that Root returns nil.
type ParsedFile struct {
	Path     string
	Language string
	Content  []byte

	tree     *sitter.Tree
	lang     *sitter.Language
	once     sync.Once
	disposed bool
	mu       sync.RWMutex
}

// Root returns the root node of the tree, or nil once disposed.
func (f *ParsedFile) Root() *sitter.Node {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.disposed || f.tree == nil {
		return nil
	}
	return f.tree.RootNode()
}

// Dispose releases the native tree. Calls after the first are no-ops.
func (f *ParsedFile) Dispose() (err error) {
	f.once.Do(func() {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("closing tree for %s: %v", f.Path, r)
			}
		}()
		f.mu.Lock()
		defer f.mu.Unlock()
		f.disposed = true
		if f.tree != nil {
			f.tree.Close()
		}
	})
	return err
}

// EngineFactory builds the tree-sitter engine. Tests substitute failing factories.
type EngineFactory func() (*sitter.Parser, error)

func defaultEngine() (*sitter.Parser, error) {
	return sitter.NewParser(), nil
}

// Parser wraps one tree-sitter engine and the grammar cache. Construct one per
// process and share it; parse calls are serialized on the engine.
type Parser struct {
	registry *grammar.Registry
	logger   *slog.Logger
	factory  EngineFactory

	flight  singleflight.Group
	stateMu sync.RWMutex
	engine  *sitter.Parser

	parseMu sync.Mutex

	grammarMu sync.Mutex
	grammars  map[string]*sitter.Language
}

// NewParser creates an uninitialized parser. The engine is created on first use.
func NewParser(registry *grammar.Registry, logger *slog.Logger) *Parser {
	return NewParserWithFactory(registry, logger, defaultEngine)
}

// NewParserWithFactory is NewParser with a custom engine factory.
func NewParserWithFactory(registry *grammar.Registry, logger *slog.Logger, factory EngineFactory) *Parser {
	return &Parser{
		registry: registry,
		logger:   slogutil.Component(logger, "syntax"),
		factory:  factory,
		grammars: make(map[string]*sitter.Language),
	}
}

func (p *Parser) ready() bool {
	p.stateMu.RLock()
	defer p.stateMu.RUnlock()
	return p.engine != nil
}

// Initialize creates the engine. Concurrent callers share a single in-flight
// initialization; on failure the engine stays nil, every waiter gets the
// error, and the next call tries again.
func (p *Parser) Initialize(ctx context.Context) error {
	if p.ready() {
		return nil
	}
	ch := p.flight.DoChan("engine", func() (interface{}, error) {
		if p.ready() {
			return nil, nil
		}
		engine, err := p.newEngine()
		if err != nil {
			p.logger.Error("Parser initialization failed", "error", err.Error())
			return nil, err
		}
		p.stateMu.Lock()
		p.engine = engine
		p.stateMu.Unlock()
		p.logger.Debug("Parser initialized")
		return nil, nil
	})

	select {
	case <-ctx.Done():
		return ctx.Err()
	case res := <-ch:
		return res.Err
	}
}

func (p *Parser) newEngine() (engine *sitter.Parser, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("creating tree-sitter parser: %v", r)
		}
	}()
	engine, err = p.factory()
	if err == nil && engine == nil {
		err = fmt.Errorf("engine factory returned nil parser")
	}
	return engine, err
}

// Parse parses content as languageID. A language without a loadable grammar
// yields (nil, nil): callers fall back to a plain-text scan.
func (p *Parser) Parse(ctx context.Context, path string, content []byte, languageID string) (*ParsedFile, error) {
	if err := p.Initialize(ctx); err != nil {
		return nil, lerrors.New(lerrors.ParseFailed, "parser not initialized", err)
	}

	lang, err := p.loadGrammar(languageID)
	if err != nil {
		p.logger.Debug("No grammar, falling back to text scan",
			"language", languageID,
			"path", path,
			"code", string(lerrors.CodeOf(err)),
			"error", err.Error(),
		)
		return nil, nil
	}

	p.stateMu.RLock()
	engine := p.engine
	p.stateMu.RUnlock()

	p.parseMu.Lock()
	engine.SetLanguage(lang)
	tree, err := engine.ParseCtx(ctx, nil, content)
	p.parseMu.Unlock()
	if err != nil {
		return nil, lerrors.New(lerrors.ParseFailed, "parse "+path, err)
	}

	return &ParsedFile{
		Path:     path,
		Language: languageID,
		Content:  content,
		tree:     tree,
		lang:     lang,
	}, nil
}

// loadGrammar returns the cached grammar for languageID, loading it on first use.
// Failures are GRAMMAR_UNAVAILABLE errors wrapping ErrGrammarUnavailable.
func (p *Parser) loadGrammar(languageID string) (*sitter.Language, error) {
	p.grammarMu.Lock()
	defer p.grammarMu.Unlock()

	if lang, ok := p.grammars[languageID]; ok {
		return lang, nil
	}

	cfg, ok := p.registry.Get(languageID)
	if !ok {
		return nil, grammarUnavailable(languageID, fmt.Errorf("%w: no config for %q", ErrGrammarUnavailable, languageID))
	}
	loader, ok := grammarLoaders[cfg.Grammar]
	if !ok {
		return nil, grammarUnavailable(languageID, fmt.Errorf("%w: unknown grammar %q", ErrGrammarUnavailable, cfg.Grammar))
	}
	lang := loader()
	if lang == nil {
		return nil, grammarUnavailable(languageID, fmt.Errorf("%w: loader for %q returned nil", ErrGrammarUnavailable, cfg.Grammar))
	}
	p.grammars[languageID] = lang
	p.logger.Debug("Grammar loaded", "language", languageID)
	return lang, nil
}

func grammarUnavailable(languageID string, cause error) error {
	return lerrors.New(lerrors.GrammarUnavailable, "load grammar for "+languageID, cause)
}

// LoadedGrammars returns how many grammars have been loaded.
func (p *Parser) LoadedGrammars() int {
	p.grammarMu.Lock()
	defer p.grammarMu.Unlock()
	return len(p.grammars)
}
