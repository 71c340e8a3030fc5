package search

import (
	"bytes"
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	ignore "github.com/sabhiram/go-gitignore"

	lerrors "lair/internal/errors"
	"lair/internal/slogutil"
)

// DefaultMaxFileSize skips files larger than this when walking.
const DefaultMaxFileSize = 1 << 20

// binarySniff is how many leading bytes are checked for NUL.
const binarySniff = 8000

// Walker searches by walking the tree in process. It honors the root
// .gitignore in addition to the request's globs.
type Walker struct {
	maxFileSize int64
	logger      *slog.Logger
}

// NewWalker creates a walker. A non-positive maxFileSize uses DefaultMaxFileSize.
func NewWalker(maxFileSize int64, logger *slog.Logger) *Walker {
	if maxFileSize <= 0 {
		maxFileSize = DefaultMaxFileSize
	}
	return &Walker{maxFileSize: maxFileSize, logger: slogutil.Component(logger, "search")}
}

// Search implements Searcher.
func (w *Walker) Search(ctx context.Context, req Request) ([]string, error) {
	needles := make([][]byte, 0, len(req.Patterns))
	for _, p := range req.Patterns {
		if p = strings.TrimSpace(p); p != "" {
			needles = append(needles, bytes.ToLower([]byte(p)))
		}
	}
	if len(needles) == 0 {
		return nil, nil
	}

	root, err := filepath.Abs(req.Root)
	if err != nil {
		return nil, lerrors.New(lerrors.SearchFailed, "resolve search root", err)
	}
	matcher := compileIgnores(root, req.IgnoreGlobs)

	var paths []string
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if err != nil {
			if path == root {
				return err
			}
			return nil
		}
		if path == root {
			return nil
		}

		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)

		if d.IsDir() {
			if matcher.MatchesPath(rel) || matcher.MatchesPath(rel+"/") {
				return filepath.SkipDir
			}
			return nil
		}
		if d.Type()&fs.ModeSymlink != 0 || !d.Type().IsRegular() {
			return nil
		}
		if matcher.MatchesPath(rel) {
			return nil
		}

		if w.matches(path, d, needles) {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		return nil, lerrors.New(lerrors.SearchFailed, "walk "+root, err)
	}

	sort.Strings(paths)
	w.logger.Debug("walk finished", "root", root, "matches", len(paths))
	return paths, nil
}

func (w *Walker) matches(path string, d fs.DirEntry, needles [][]byte) bool {
	info, err := d.Info()
	if err != nil || info.Size() > w.maxFileSize {
		return false
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return false
	}
	head := data
	if len(head) > binarySniff {
		head = head[:binarySniff]
	}
	if bytes.IndexByte(head, 0) >= 0 {
		return false
	}
	lower := bytes.ToLower(data)
	for _, n := range needles {
		if bytes.Contains(lower, n) {
			return true
		}
	}
	return false
}

func compileIgnores(root string, globs []string) *ignore.GitIgnore {
	gitignore := filepath.Join(root, ".gitignore")
	if _, err := os.Stat(gitignore); err == nil {
		if gi, err := ignore.CompileIgnoreFileAndLines(gitignore, globs...); err == nil {
			return gi
		}
	}
	return ignore.CompileIgnoreLines(globs...)
}
