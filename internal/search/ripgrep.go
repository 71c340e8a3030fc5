package search

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"time"

	lerrors "lair/internal/errors"
	"lair/internal/slogutil"
)

// Ripgrep searches with the rg binary.
type Ripgrep struct {
	path    string
	timeout time.Duration
	logger  *slog.Logger
}

// NewRipgrep creates a ripgrep searcher. A non-positive timeout uses DefaultTimeout.
func NewRipgrep(path string, timeout time.Duration, logger *slog.Logger) *Ripgrep {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Ripgrep{
		path:    path,
		timeout: timeout,
		logger:  slogutil.Component(logger, "search"),
	}
}

// Args returns the rg arguments for req.
func (r *Ripgrep) Args(req Request, root string) []string {
	args := []string{"--files-with-matches", "--ignore-case", "--fixed-strings", "--no-messages"}
	for _, g := range req.IgnoreGlobs {
		args = append(args, "--glob", "!"+g)
	}
	for _, p := range req.Patterns {
		args = append(args, "-e", p)
	}
	return append(args, "--", root)
}

// Search implements Searcher.
func (r *Ripgrep) Search(ctx context.Context, req Request) ([]string, error) {
	if len(req.Patterns) == 0 {
		return nil, nil
	}
	root, err := filepath.Abs(req.Root)
	if err != nil {
		return nil, lerrors.New(lerrors.SearchFailed, "resolve search root", err)
	}

	runCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	args := r.Args(req, root)
	cmd := exec.CommandContext(runCtx, r.path, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.WaitDelay = time.Second

	start := time.Now()
	err = cmd.Run()
	r.logger.Debug("ripgrep finished",
		"root", root,
		"patterns", len(req.Patterns),
		"duration", time.Since(start).String(),
	)

	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, ctxErr
	}
	if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
		return nil, lerrors.New(lerrors.SearchTimeout, fmt.Sprintf("ripgrep exceeded %s", r.timeout), runCtx.Err())
	}
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && exitErr.ExitCode() == 1 {
			return nil, nil
		}
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = "ripgrep failed"
		}
		return nil, lerrors.New(lerrors.SearchFailed, msg, err)
	}

	return ParseOutput(stdout.String(), root), nil
}

// ParseOutput turns newline-separated rg output into sorted absolute paths.
// Relative lines are resolved against root.
func ParseOutput(out, root string) []string {
	var paths []string
	seen := make(map[string]bool)
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if !filepath.IsAbs(line) {
			line = filepath.Join(root, line)
		}
		line = filepath.Clean(line)
		if seen[line] {
			continue
		}
		seen[line] = true
		paths = append(paths, line)
	}
	sort.Strings(paths)
	return paths
}
