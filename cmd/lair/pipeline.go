package main

import (
	"log/slog"
	"strings"
	"time"

	"lair/internal/analysis"
	"lair/internal/config"
	lerrors "lair/internal/errors"
	"lair/internal/grammar"
	"lair/internal/lair"
	"lair/internal/parsecache"
	"lair/internal/relevance"
	"lair/internal/search"
	"lair/internal/syntax"
)

// pipeline owns the long-lived collaborators of one CLI invocation.
type pipeline struct {
	registry     *grammar.Registry
	orchestrator *analysis.Orchestrator
	cache        *parsecache.Cache[*syntax.ParsedFile]
}

// Close releases every cached syntax tree.
func (p *pipeline) Close() {
	p.cache.Clear()
}

// newRegistry returns the built-in languages with the repository overrides applied.
func newRegistry(root string, cfg *config.Config, logger *slog.Logger) (*grammar.Registry, error) {
	registry := grammar.DefaultRegistry(logger)
	path := cfg.OverridesPath(root)
	n, err := registry.ApplyOverrides(path)
	if err != nil {
		return nil, lerrors.New(lerrors.ConfigInvalid, "language overrides "+path, err)
	}
	if n > 0 {
		logger.Debug("Applied language overrides", "path", path, "languages", n)
	}
	return registry, nil
}

func newPipeline(root string, cfg *config.Config, logger *slog.Logger) (*pipeline, error) {
	registry, err := newRegistry(root, cfg, logger)
	if err != nil {
		return nil, err
	}

	searcher, err := search.New(search.Options{
		Backend:     search.Backend(cfg.Search.Backend),
		RipgrepPath: cfg.Search.RipgrepPath,
		Timeout:     time.Duration(cfg.Search.TimeoutMs) * time.Millisecond,
		MaxFileSize: int64(cfg.Analysis.MaxFileSizeBytes),
		Logger:      logger,
	})
	if err != nil {
		return nil, lerrors.New(lerrors.SearchFailed, "configure search", err)
	}

	executor := syntax.NewExecutor(logger)
	cache := parsecache.New[*syntax.ParsedFile](cfg.Analysis.CacheCapacity, logger)

	orch, err := analysis.New(analysis.Deps{
		Searcher:  searcher,
		Reader:    analysis.OSReader{},
		Parser:    syntax.NewParser(registry, logger),
		Extractor: lair.NewExtractor(registry, executor, logger),
		Cache:     cache,
		Scorer:    newScorer(cfg.Scoring),
		Registry:  registry,
		Logger:    logger,
	}, analysis.Options{
		BatchSize:        cfg.Analysis.BatchSize,
		MaxFileSizeBytes: int64(cfg.Analysis.MaxFileSizeBytes),
		IgnoreGlobs:      cfg.Search.IgnoreGlobs,
	})
	if err != nil {
		return nil, err
	}

	return &pipeline{registry: registry, orchestrator: orch, cache: cache}, nil
}

// newScorer layers configured weights over the defaults.
func newScorer(sc config.ScoringConfig) *relevance.Scorer {
	s := relevance.NewScorer()
	for t, w := range sc.TypeWeights {
		s.TypeWeights[lair.ElementType(strings.ToLower(t))] = w
	}
	for k, w := range sc.KeywordWeights {
		s.KeywordWeights[strings.ToLower(strings.TrimSpace(k))] = w
	}
	if sc.DefaultKeywordWeight > 0 {
		s.DefaultKeywordWeight = sc.DefaultKeywordWeight
	}
	return s
}
