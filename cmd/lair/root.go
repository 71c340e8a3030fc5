package main

import (
	"context"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"lair/internal/config"
	lerrors "lair/internal/errors"
	"lair/internal/slogutil"
	"lair/internal/version"
)

var (
	verbosity int
	quiet     bool
	rootFlag  string
)

var rootCmd = &cobra.Command{
	Use:   "lair",
	Short: "lair - keyword-driven code context extraction",
	Long: `lair finds the classes, methods and functions of a repository that are
relevant to a set of keywords, ranks them, and renders them for people,
machines, or language models within a token budget.`,
	Version:       version.Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.SetVersionTemplate("lair version {{.Version}}\n")
	rootCmd.PersistentFlags().CountVarP(&verbosity, "verbose", "v", "Increase log verbosity (repeatable)")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "Only log errors")
	rootCmd.PersistentFlags().StringVar(&rootFlag, "root", "", "Repository root (default: current directory)")
}

// repoRoot resolves --root to an absolute path.
func repoRoot() (string, error) {
	if rootFlag == "" {
		return os.Getwd()
	}
	return filepath.Abs(rootFlag)
}

// loadConfig reads the repository config. An invalid file is an error, a
// missing one yields the defaults.
func loadConfig(root string) (*config.Config, error) {
	cfg, err := config.LoadConfig(root)
	if err != nil {
		return nil, lerrors.New(lerrors.ConfigInvalid, "load "+config.Path(root), err)
	}
	return cfg, nil
}

// newLogger builds the CLI logger. -v and -q win over the configured level.
func newLogger(w io.Writer, cfg *config.Config) *slog.Logger {
	fallback := slogutil.LevelFromString(cfg.Logging.Level)
	return slogutil.NewLogger(w, slogutil.LevelFromVerbosity(verbosity, quiet, fallback))
}

// newContext returns a context cancelled on interrupt.
func newContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}
