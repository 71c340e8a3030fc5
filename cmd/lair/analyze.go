package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"lair/internal/analysis"
	"lair/internal/compression"
	"lair/internal/config"
	"lair/internal/lair"
	"lair/internal/progress"
	"lair/internal/relevance"
	"lair/internal/report"
)

const (
	formatHuman = "human"
	formatText  = "text"
)

var (
	analyzeFormat    string
	analyzeBudget    string
	analyzeMaxTokens int
	analyzeExport    string
	analyzeSearch    string
	analyzeBatchSize int
	analyzeProgress  bool
	analyzeReasons   bool
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <keywords...>",
	Short: "Extract code relevant to keywords",
	Long: `Search the repository for files mentioning any keyword, extract their
classes, methods and functions, score them for relevance and print the
most relevant ones.

Formats:
  human  per-file element tree (default)
  text   markdown for language models, cut to the token budget
  json, yaml, toml  structured output

Examples:
  lair analyze auth token
  lair analyze --format text --budget small auth
  lair analyze --format json --export auth.json.zst auth
  lair analyze --search walk --root ./services auth`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAnalyzeCmd,
}

func init() {
	analyzeCmd.Flags().StringVar(&analyzeFormat, "format", formatHuman, "Output format (human, text, json, yaml, toml)")
	analyzeCmd.Flags().StringVar(&analyzeBudget, "budget", "", "Token budget preset (small, standard, large)")
	analyzeCmd.Flags().IntVar(&analyzeMaxTokens, "max-tokens", 0, "Token limit, overrides --budget")
	analyzeCmd.Flags().StringVar(&analyzeExport, "export", "", "Also write the output zstd-compressed to this file")
	analyzeCmd.Flags().StringVar(&analyzeSearch, "search", "", "Search backend (auto, ripgrep, walk)")
	analyzeCmd.Flags().IntVar(&analyzeBatchSize, "batch-size", 0, "Files parsed concurrently")
	analyzeCmd.Flags().BoolVar(&analyzeProgress, "progress", false, "Print progress to stderr")
	analyzeCmd.Flags().BoolVar(&analyzeReasons, "reasons", false, "Show why each element scored (text format)")
	rootCmd.AddCommand(analyzeCmd)
}

// analyzeOptions are the resolved flags of one analyze invocation.
type analyzeOptions struct {
	Format    string
	Budget    string
	MaxTokens int
	Export    string
	Search    string
	BatchSize int
	Reasons   bool
	Progress  io.Writer
}

func runAnalyzeCmd(cmd *cobra.Command, args []string) error {
	ctx, cancel := newContext()
	defer cancel()

	root, err := repoRoot()
	if err != nil {
		return err
	}

	opts := analyzeOptions{
		Format:    analyzeFormat,
		Budget:    analyzeBudget,
		MaxTokens: analyzeMaxTokens,
		Export:    analyzeExport,
		Search:    analyzeSearch,
		BatchSize: analyzeBatchSize,
		Reasons:   analyzeReasons,
	}
	if analyzeProgress {
		opts.Progress = cmd.ErrOrStderr()
	}
	return runAnalyze(ctx, cmd.OutOrStdout(), cmd.ErrOrStderr(), root, args, opts)
}

// applyFlags copies explicit flag values over the loaded config.
func (o analyzeOptions) applyFlags(cfg *config.Config) error {
	if o.Search != "" {
		cfg.Search.Backend = o.Search
	}
	if o.BatchSize > 0 {
		cfg.Analysis.BatchSize = o.BatchSize
	}
	if o.Budget != "" {
		cfg.Budget.Preset = o.Budget
		cfg.Budget.MaxTokens = 0
	}
	if o.MaxTokens > 0 {
		cfg.Budget.MaxTokens = o.MaxTokens
	}
	return cfg.Validate()
}

func runAnalyze(ctx context.Context, stdout, stderr io.Writer, root string, keywords []string, o analyzeOptions) error {
	start := time.Now()

	cfg, err := loadConfig(root)
	if err != nil {
		return err
	}
	if err := o.applyFlags(cfg); err != nil {
		return err
	}
	budget, err := compression.NewBudgetFromConfig(cfg)
	if err != nil {
		return err
	}
	logger := newLogger(stderr, cfg)

	p, err := newPipeline(root, cfg, logger)
	if err != nil {
		return err
	}
	defer p.Close()

	req := analysis.Request{Root: root, Keywords: keywords, Reporter: progress.NewSlogReporter(logger)}
	if o.Progress != nil {
		req.Reporter = progress.NewWriterReporter(o.Progress)
	}

	res, err := p.orchestrator.Run(ctx, req)
	if err != nil {
		return err
	}

	view, metrics := applyBudget(res, budget)
	if metrics.WasTruncated() {
		logger.Info("Output reduced to budget",
			"input", metrics.InputCount,
			"output", metrics.OutputCount,
			"estimatedTokens", metrics.EstimatedTokens,
		)
	}

	if err := writeOutput(stdout, view, o.Format, budget, report.Options{
		Keywords:    keywords,
		Root:        root,
		ShowReasons: o.Reasons,
	}); err != nil {
		return err
	}

	if o.Export != "" {
		if err := exportOutput(o.Export, view, o.Format); err != nil {
			return fmt.Errorf("export %s: %w", o.Export, err)
		}
		logger.Debug("Exported output", "path", o.Export)
	}

	logger.Debug("Analyze completed",
		"status", string(res.Status),
		"elements", len(view.Scored),
		"duration", time.Since(start).Milliseconds(),
	)
	return nil
}

// applyBudget returns a copy of res holding only the elements within budget.
func applyBudget(res *analysis.Result, budget *compression.Budget) (*analysis.Result, *compression.CompressionMetrics) {
	kept := compression.TruncateElements(res.Scored, budget)
	view := *res
	view.Scored = kept.Elements
	if res.Status == analysis.StatusCompleted {
		view.Output = analysis.BuildOutput(elementsOf(kept.Elements))
	}
	return &view, kept.Metrics
}

func elementsOf(scored []relevance.ScoredElement) []lair.CodeElement {
	out := make([]lair.CodeElement, len(scored))
	for i, se := range scored {
		out[i] = se.Element
	}
	return out
}

func writeOutput(w io.Writer, res *analysis.Result, format string, budget *compression.Budget, opts report.Options) error {
	switch strings.ToLower(format) {
	case formatHuman, "":
		return report.RenderHuman(w, res, opts)
	case formatText:
		text := compression.TruncateReport(report.RenderText(res, opts), budget).Text
		_, err := io.WriteString(w, text)
		return err
	default:
		f, err := report.ParseFormat(format)
		if err != nil {
			return err
		}
		return report.Encode(w, res.Output, f)
	}
}

// exportOutput writes the structured output compressed. Human and text
// formats export JSON.
func exportOutput(path string, res *analysis.Result, format string) error {
	f, err := report.ParseFormat(format)
	if err != nil {
		f = report.FormatJSON
	}
	data, err := report.Marshal(res.Output, f)
	if err != nil {
		return err
	}
	return report.WriteCompressed(path, data)
}
