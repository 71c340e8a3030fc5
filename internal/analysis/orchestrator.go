// Package analysis runs the search, parse, extract, score and format
// pipeline for one topic over a source tree.
package analysis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	lerrors "lair/internal/errors"
	"lair/internal/grammar"
	"lair/internal/lair"
	"lair/internal/parsecache"
	"lair/internal/progress"
	"lair/internal/relevance"
	"lair/internal/search"
	"lair/internal/slogutil"
	"lair/internal/syntax"
)

// DefaultBatchSize is how many files are parsed concurrently.
const DefaultBatchSize = 10

// FileReader reads a file by absolute path.
type FileReader interface {
	ReadFile(path string) ([]byte, error)
}

// OSReader reads from the local filesystem.
type OSReader struct{}

// ReadFile implements FileReader.
func (OSReader) ReadFile(path string) ([]byte, error) {
	return os.ReadFile(path)
}

// Parser produces syntax trees. A nil file with a nil error means no
// grammar is available and the file should be scanned as plain text.
type Parser interface {
	Parse(ctx context.Context, path string, content []byte, languageID string) (*syntax.ParsedFile, error)
}

// Extractor turns a syntax tree into code elements.
type Extractor interface {
	Extract(ctx context.Context, file *syntax.ParsedFile, keywords []string) ([]lair.CodeElement, error)
}

// Deps are the collaborators of an Orchestrator. Cache may be nil, in which
// case every tree is disposed right after extraction. A shared Cache never
// disposes a tree another file or run is still extracting from.
type Deps struct {
	Searcher  search.Searcher
	Reader    FileReader
	Parser    Parser
	Extractor Extractor
	Cache     *parsecache.Cache[*syntax.ParsedFile]
	Scorer    *relevance.Scorer
	Registry  *grammar.Registry
	Logger    *slog.Logger
}

// Options tune a run.
type Options struct {
	BatchSize        int
	MaxFileSizeBytes int64
	// IgnoreGlobs are added to DefaultIgnoreGlobs.
	IgnoreGlobs []string
	// Relevance replaces the volume-based RecommendConfig when set.
	Relevance *relevance.Config
}

// Request is one analysis.
type Request struct {
	Root     string
	Keywords []string
	Reporter progress.Reporter
}

// Orchestrator runs analyses. Safe for concurrent use when its
// collaborators are.
type Orchestrator struct {
	deps   Deps
	opts   Options
	globs  []string
	logger *slog.Logger
}

// New creates an orchestrator. The batch size is capped at the cache
// capacity so a batch never evicts a tree another file of the same batch
// is still extracting from.
func New(deps Deps, opts Options) (*Orchestrator, error) {
	if deps.Searcher == nil || deps.Parser == nil || deps.Extractor == nil || deps.Registry == nil {
		return nil, errors.New("analysis: searcher, parser, extractor and registry are required")
	}
	if deps.Reader == nil {
		deps.Reader = OSReader{}
	}
	if deps.Scorer == nil {
		deps.Scorer = relevance.NewScorer()
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultBatchSize
	}
	if deps.Cache != nil && opts.BatchSize > deps.Cache.Capacity() {
		opts.BatchSize = deps.Cache.Capacity()
	}

	globs := append([]string(nil), DefaultIgnoreGlobs...)
	globs = append(globs, opts.IgnoreGlobs...)

	return &Orchestrator{
		deps:   deps,
		opts:   opts,
		globs:  globs,
		logger: slogutil.Component(deps.Logger, "analysis"),
	}, nil
}

// Run analyzes req.Root for req.Keywords. Cancellation is not an error: it
// yields a result with StatusCancelled. Only a failed search is returned as
// an error.
func (o *Orchestrator) Run(ctx context.Context, req Request) (*Result, error) {
	start := time.Now()
	tracker := progress.NewTracker(req.Reporter)
	keywords := lair.NormalizeKeywords(req.Keywords)
	res := &Result{Stage: StageSearching, Output: EmptyOutput()}

	paths, err := o.deps.Searcher.Search(ctx, search.Request{
		Patterns:    keywords,
		Root:        req.Root,
		IgnoreGlobs: o.globs,
	})
	if err != nil {
		if ctx.Err() != nil || errors.Is(err, context.Canceled) {
			return o.cancelled(res), nil
		}
		if lerrors.CodeOf(err) == "" {
			err = lerrors.New(lerrors.SearchFailed, "candidate search failed", err)
		}
		return nil, err
	}
	if ctx.Err() != nil {
		return o.cancelled(res), nil
	}
	paths = uniquePaths(paths)
	res.Candidates = len(paths)
	tracker.SearchDone(fmt.Sprintf("Found %d candidate files", len(paths)))

	if len(paths) == 0 {
		return o.finish(res, StatusNoCandidates, tracker, start), nil
	}

	res.Stage = StageParsing
	perFile, failed, err := o.processFiles(ctx, paths, keywords, tracker)
	res.FailedFiles = failed
	if err != nil {
		return o.cancelled(res), nil
	}

	res.Stage = StageExtracting
	var all []lair.CodeElement
	for _, elements := range perFile {
		all = append(all, elements...)
	}
	all = lair.Deduplicate(all)
	res.Extracted = len(all)
	if len(all) == 0 {
		return o.finish(res, StatusNoElements, tracker, start), nil
	}

	res.Stage = StageScoring
	cfg := relevance.RecommendConfig(len(all))
	if o.opts.Relevance != nil {
		cfg = *o.opts.Relevance
	}
	res.Config = cfg
	res.Scored = o.deps.Scorer.FilterByRelevance(all, keywords, cfg)
	tracker.ScoringDone(fmt.Sprintf("Kept %d of %d elements", len(res.Scored), len(all)))
	if ctx.Err() != nil {
		return o.cancelled(res), nil
	}

	res.Stage = StageFormatting
	kept := make([]lair.CodeElement, 0, len(res.Scored))
	for _, se := range res.Scored {
		kept = append(kept, se.Element)
	}
	res.Output = BuildOutput(kept)
	tracker.FormattingDone("Formatted output")

	return o.finish(res, StatusCompleted, tracker, start), nil
}

// processFiles parses and extracts paths in batches. Each batch completes
// before progress is reported and the next batch starts. It returns
// ErrCancelled when ctx was cancelled at any point.
func (o *Orchestrator) processFiles(ctx context.Context, paths []string, keywords []string, tracker *progress.Tracker) ([][]lair.CodeElement, int, error) {
	tracker.StartFiles(len(paths))
	results := make([][]lair.CodeElement, len(paths))
	var failed atomic.Int64

	batch := o.opts.BatchSize
	for lo := 0; lo < len(paths); lo += batch {
		hi := min(lo+batch, len(paths))

		var g errgroup.Group
		scheduled := 0
		for i := lo; i < hi; i++ {
			if ctx.Err() != nil {
				break
			}
			scheduled++
			g.Go(func() error {
				elements, ok := o.processFile(ctx, paths[i], keywords)
				if !ok {
					failed.Add(1)
				}
				results[i] = elements
				return nil
			})
		}
		_ = g.Wait()

		if ctx.Err() != nil {
			return nil, int(failed.Load()), lerrors.ErrCancelled
		}
		tracker.FilesDone(scheduled, fmt.Sprintf("Parsed %d/%d files", hi, len(paths)))
	}
	return results, int(failed.Load()), nil
}

// processFile returns the elements of one file. ok is false when the file
// failed and contributed nothing; failures never escape.
func (o *Orchestrator) processFile(ctx context.Context, path string, keywords []string) (elements []lair.CodeElement, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			o.logger.Error("File analysis panicked", "path", path, "panic", fmt.Sprint(r))
			elements, ok = nil, false
		}
	}()
	if ctx.Err() != nil {
		return nil, true
	}

	content, err := o.deps.Reader.ReadFile(path)
	if err != nil {
		o.logger.Warn("Failed to read file", "path", path, "error", err.Error())
		return nil, false
	}
	if o.opts.MaxFileSizeBytes > 0 && int64(len(content)) > o.opts.MaxFileSizeBytes {
		o.logger.Debug("Skipping oversized file", "path", path, "bytes", len(content))
		return nil, true
	}

	languageID, known := o.deps.Registry.ForPath(path)
	if !known {
		return lair.ScanPlainText(path, "", content, keywords), true
	}

	file, release, err := o.parse(ctx, path, content, languageID)
	if err != nil {
		if ctx.Err() != nil {
			return nil, true
		}
		o.logger.Warn("Failed to parse file",
			"path", path,
			"language", languageID,
			"code", string(lerrors.CodeOf(err)),
			"error", err.Error(),
		)
		return nil, false
	}
	if file == nil {
		return lair.ScanPlainText(path, languageID, content, keywords), true
	}
	defer release()

	elements, err = o.deps.Extractor.Extract(ctx, file, keywords)
	if err != nil {
		if ctx.Err() != nil {
			return nil, true
		}
		o.logger.Warn("Failed to extract elements", "path", path, "error", err.Error())
		return nil, false
	}
	return elements, true
}

// parse serves path from the cache or parses and caches it. The tree stays
// valid until release is called, whatever other runs do to the cache.
func (o *Orchestrator) parse(ctx context.Context, path string, content []byte, languageID string) (file *syntax.ParsedFile, release func(), err error) {
	if o.deps.Cache != nil {
		if file, release, hit := o.deps.Cache.Acquire(path, content); hit {
			return file, release, nil
		}
	}
	file, err = o.deps.Parser.Parse(ctx, path, content, languageID)
	if err != nil || file == nil {
		return nil, nil, err
	}
	if o.deps.Cache == nil {
		return file, func() { _ = file.Dispose() }, nil
	}
	return file, o.deps.Cache.Store(path, content, file), nil
}

// uniquePaths drops repeated candidates, comparing cleaned paths. Order is kept.
func uniquePaths(paths []string) []string {
	seen := make(map[string]bool, len(paths))
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		p = filepath.Clean(p)
		if seen[p] {
			continue
		}
		seen[p] = true
		out = append(out, p)
	}
	return out
}

func (o *Orchestrator) cancelled(res *Result) *Result {
	o.logger.Info("Analysis cancelled", "stage", string(res.Stage))
	res.Status = StatusCancelled
	res.Stage = StageCancelled
	res.Output = EmptyOutput()
	res.Scored = nil
	o.snapshotCache(res)
	return res
}

func (o *Orchestrator) finish(res *Result, status Status, tracker *progress.Tracker, start time.Time) *Result {
	res.Status = status
	res.Stage = StageDone
	tracker.Complete("Analysis complete")
	o.snapshotCache(res)
	o.logger.Info("Analysis finished",
		"status", string(status),
		"candidates", res.Candidates,
		"elements", res.Output.Summary.TotalElements,
		"failedFiles", res.FailedFiles,
		"duration", time.Since(start).String(),
	)
	return res
}

func (o *Orchestrator) snapshotCache(res *Result) {
	if o.deps.Cache != nil {
		res.Cache = o.deps.Cache.Stats()
	}
}
