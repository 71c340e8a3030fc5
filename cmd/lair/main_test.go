package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"

	"lair/internal/analysis"
	"lair/internal/config"
	"lair/internal/grammar"
	"lair/internal/lair"
	"lair/internal/report"
	"lair/internal/slogutil"
)

const authSource = `package auth

func validateAuthToken(token string) bool {
	return token != ""
}
`

func writeRepo(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, "auth"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(root, "auth", "token.go"), []byte(authSource), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(root, "README.md"), []byte("nothing here\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	return root
}

func TestRunAnalyze_JSON(t *testing.T) {
	root := writeRepo(t)
	var stdout, stderr bytes.Buffer

	err := runAnalyze(context.Background(), &stdout, &stderr, root, []string{"auth"}, analyzeOptions{
		Format: "json",
		Search: "walk",
	})
	if err != nil {
		t.Fatalf("runAnalyze: %v\nstderr: %s", err, stderr.String())
	}

	var out analysis.AnalysisOutput
	if err := json.Unmarshal(stdout.Bytes(), &out); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, stdout.String())
	}
	if out.Summary.FileCount != 1 {
		t.Errorf("FileCount = %d, want 1", out.Summary.FileCount)
	}
	if len(out.Files) != 1 || !strings.HasSuffix(out.Files[0].Path, filepath.Join("auth", "token.go")) {
		t.Fatalf("Files = %+v", out.Files)
	}
	if !strings.Contains(stdout.String(), "validateAuthToken") {
		t.Errorf("output should mention validateAuthToken:\n%s", stdout.String())
	}
}

func TestRunAnalyze_TextWithExport(t *testing.T) {
	root := writeRepo(t)
	export := filepath.Join(t.TempDir(), "out.json.zst")
	var stdout, stderr bytes.Buffer

	err := runAnalyze(context.Background(), &stdout, &stderr, root, []string{"auth"}, analyzeOptions{
		Format: "text",
		Search: "walk",
		Budget: "small",
		Export: export,
	})
	if err != nil {
		t.Fatalf("runAnalyze: %v", err)
	}
	if !strings.HasPrefix(stdout.String(), "# Code relevant to: auth") {
		t.Errorf("unexpected text output:\n%s", stdout.String())
	}

	data, err := report.ReadCompressed(export)
	if err != nil {
		t.Fatal(err)
	}
	var out analysis.AnalysisOutput
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("export is not JSON: %v", err)
	}
	if out.Summary.TotalElements == 0 {
		t.Error("export should contain the kept elements")
	}
}

func TestRunAnalyze_NoCandidates(t *testing.T) {
	root := writeRepo(t)
	var stdout, stderr bytes.Buffer

	err := runAnalyze(context.Background(), &stdout, &stderr, root, []string{"kubernetes"}, analyzeOptions{
		Format: "human",
		Search: "walk",
	})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(stdout.String(), "No files mention kubernetes.") {
		t.Errorf("got %q", stdout.String())
	}
}

func TestRunAnalyze_BadFormat(t *testing.T) {
	root := writeRepo(t)
	var stdout, stderr bytes.Buffer
	err := runAnalyze(context.Background(), &stdout, &stderr, root, []string{"auth"}, analyzeOptions{
		Format: "xml",
		Search: "walk",
	})
	if err == nil {
		t.Fatal("expected error for unknown format")
	}
}

func TestApplyFlags(t *testing.T) {
	t.Run("budget preset clears configured max tokens", func(t *testing.T) {
		cfg := config.DefaultConfig()
		cfg.Budget.MaxTokens = 500
		if err := (analyzeOptions{Budget: "small"}).applyFlags(cfg); err != nil {
			t.Fatal(err)
		}
		if cfg.Budget.Preset != "small" || cfg.Budget.MaxTokens != 0 {
			t.Errorf("Budget = %+v", cfg.Budget)
		}
	})

	t.Run("max tokens wins", func(t *testing.T) {
		cfg := config.DefaultConfig()
		if err := (analyzeOptions{Budget: "small", MaxTokens: 900, BatchSize: 4}).applyFlags(cfg); err != nil {
			t.Fatal(err)
		}
		if cfg.Budget.MaxTokens != 900 || cfg.Analysis.BatchSize != 4 {
			t.Errorf("cfg = %+v / %+v", cfg.Budget, cfg.Analysis)
		}
	})

	t.Run("invalid backend", func(t *testing.T) {
		cfg := config.DefaultConfig()
		if err := (analyzeOptions{Search: "grep"}).applyFlags(cfg); err == nil {
			t.Error("expected validation error")
		}
	})
}

func TestNewScorer(t *testing.T) {
	s := newScorer(config.ScoringConfig{
		TypeWeights:          map[string]float64{"Function": 12},
		KeywordWeights:       map[string]float64{" Auth ": 9},
		DefaultKeywordWeight: 0,
	})
	if got := s.TypeWeights[lair.TypeFunction]; got != 12 {
		t.Errorf("function weight = %v, want 12", got)
	}
	if got := s.TypeWeights[lair.TypeClass]; got != 10 {
		t.Errorf("class weight = %v, want default 10", got)
	}
	if got := s.KeywordWeights["auth"]; got != 9 {
		t.Errorf("auth weight = %v, want 9", got)
	}
	if s.DefaultKeywordWeight != 3 {
		t.Errorf("DefaultKeywordWeight = %v, want 3", s.DefaultKeywordWeight)
	}
}

func TestListLanguages(t *testing.T) {
	listing := listLanguages(grammar.DefaultRegistry(slogutil.NewDiscardLogger()))

	var buf bytes.Buffer
	if err := writeLanguages(&buf, listing, "json"); err != nil {
		t.Fatal(err)
	}
	var got languagesListing
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatal(err)
	}
	found := false
	for _, l := range got.Languages {
		if l.ID == "go" {
			found = true
			if len(l.Queries) == 0 {
				t.Error("go should have queries")
			}
		}
	}
	if !found {
		t.Errorf("go missing from %+v", got.Languages)
	}

	buf.Reset()
	if err := writeLanguages(&buf, listing, formatHuman); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "LANGUAGE") {
		t.Errorf("human listing missing header:\n%s", buf.String())
	}
}

func TestReadReport(t *testing.T) {
	got, err := readReport("-", strings.NewReader("## CRITICAL\n"))
	if err != nil || got != "## CRITICAL\n" {
		t.Errorf("stdin: got %q, %v", got, err)
	}

	path := filepath.Join(t.TempDir(), "r.md.zst")
	if err := report.WriteCompressed(path, []byte("# report\n")); err != nil {
		t.Fatal(err)
	}
	got, err = readReport(path, nil)
	if err != nil || got != "# report\n" {
		t.Errorf("zst: got %q, %v", got, err)
	}
}

func TestInitConfig(t *testing.T) {
	root := t.TempDir()
	cmd := &cobra.Command{}
	var out bytes.Buffer
	cmd.SetOut(&out)

	if err := initConfig(root, false, cmd); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), config.Path(root)) {
		t.Errorf("got %q", out.String())
	}
	if err := initConfig(root, false, cmd); err == nil {
		t.Error("second init without --force should fail")
	}
	if err := initConfig(root, true, cmd); err != nil {
		t.Errorf("forced init: %v", err)
	}
	if _, err := config.LoadConfig(root); err != nil {
		t.Errorf("written config does not load: %v", err)
	}
}
