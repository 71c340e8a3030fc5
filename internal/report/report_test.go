package report

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"gopkg.in/yaml.v3"

	"lair/internal/analysis"
	"lair/internal/compression"
	"lair/internal/lair"
	"lair/internal/relevance"
)

func element(id, name string, typ lair.ElementType, row int) lair.CodeElement {
	return lair.CodeElement{
		ID:            id,
		Type:          typ,
		Name:          name,
		FilePath:      "/repo/auth/token.go",
		Language:      "go",
		StartPosition: lair.Position{Row: row},
		EndPosition:   lair.Position{Row: row + 2},
		CodeSnippet:   "func " + name + "() {}\n",
	}
}

func sampleResult() *analysis.Result {
	scored := []relevance.ScoredElement{
		{Element: element("1", "refreshAuthToken", lair.TypeFunction, 3), Score: 31, Reasons: []string{"name matches auth"}},
		{Element: element("2", "AuthService", lair.TypeClass, 10), Score: 22},
		{Element: element("3", "validateAuthToken", lair.TypeFunction, 20), Score: 17},
		{Element: element("4", "helper", lair.TypeFunction, 30), Score: 4},
	}
	elems := make([]lair.CodeElement, len(scored))
	for i, se := range scored {
		elems[i] = se.Element
	}
	return &analysis.Result{
		Status:     analysis.StatusCompleted,
		Stage:      analysis.StageDone,
		Output:     analysis.BuildOutput(elems),
		Scored:     scored,
		Candidates: 1,
		Extracted:  4,
	}
}

func TestRenderText(t *testing.T) {
	got := RenderText(sampleResult(), Options{Keywords: []string{"auth"}, Root: "/repo", ShowReasons: true})

	for _, want := range []string{
		"# Code relevant to: auth",
		"## CRITICAL (1)",
		"### function `refreshAuthToken` (score 31)",
		"Why: name matches auth",
		"## IMPORTANT (1)",
		"## RELEVANT (1)",
		"### function `validateAuthToken` /repo/auth/token.go:21-23 (score 17)",
		"Omitted: 1 supplementary",
		"```go\nfunc refreshAuthToken() {}\n```",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("output missing %q\n%s", want, got)
		}
	}
	if strings.Contains(got, "helper") {
		t.Error("supplementary element should not be rendered")
	}
	crit := strings.Index(got, "## CRITICAL")
	imp := strings.Index(got, "## IMPORTANT")
	rel := strings.Index(got, "## RELEVANT")
	if !(crit < imp && imp < rel) {
		t.Errorf("section order wrong: critical=%d important=%d relevant=%d", crit, imp, rel)
	}
}

func TestRenderText_SnippetWithFenceLine(t *testing.T) {
	res := sampleResult()
	snippet := "// Usage:\n// ```\n// refreshAuthToken()\n// ```\nfunc refreshAuthToken() {}\n"
	res.Scored[0].Element.CodeSnippet = snippet

	got := RenderText(res, Options{Keywords: []string{"auth"}, Root: "/repo"})
	if want := "````go\n" + strings.TrimRight(snippet, "\n") + "\n````\n"; !strings.Contains(got, want) {
		t.Errorf("output missing %q\n%s", want, got)
	}

	// The truncator must still see the inner fence lines as code.
	trimmed := compression.TruncateReport(got, &compression.Budget{MaxTokens: compression.EstimateTokens(got) - 1})
	if !strings.Contains(trimmed.Text, "// refreshAuthToken()\n// ```\nfunc refreshAuthToken() {}") {
		t.Errorf("critical snippet was split apart:\n%s", trimmed.Text)
	}
}

func TestRenderText_Empty(t *testing.T) {
	res := &analysis.Result{Status: analysis.StatusNoCandidates, Output: analysis.EmptyOutput()}
	got := RenderText(res, Options{})
	if !strings.Contains(got, "No relevant code elements found.") {
		t.Errorf("got %q", got)
	}
	if strings.Contains(got, "### ") {
		t.Error("empty report should have no element blocks")
	}
}

func TestRenderHuman(t *testing.T) {
	res := sampleResult()
	method := element("5", "Check", lair.TypeMethod, 11)
	method.Parent = "2"
	res.Output = analysis.BuildOutput(append([]lair.CodeElement{res.Scored[1].Element}, method))

	var buf bytes.Buffer
	if err := RenderHuman(&buf, res, Options{Root: "/repo"}); err != nil {
		t.Fatal(err)
	}
	got := buf.String()
	if !strings.Contains(got, "2 elements in 1 files (1 class, 1 method)") {
		t.Errorf("missing summary line:\n%s", got)
	}
	if !strings.Contains(got, "\nauth/token.go [go]\n") {
		t.Errorf("path should be shown relative to root:\n%s", got)
	}
	if !strings.Contains(got, "    method   Check") {
		t.Errorf("method should be indented under its class:\n%s", got)
	}
}

func TestRenderHuman_Statuses(t *testing.T) {
	tests := []struct {
		status analysis.Status
		want   string
	}{
		{analysis.StatusCancelled, "Analysis cancelled."},
		{analysis.StatusNoCandidates, "No files mention auth."},
		{analysis.StatusNoElements, "no code elements matched"},
	}
	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			var buf bytes.Buffer
			res := &analysis.Result{Status: tt.status, Output: analysis.EmptyOutput()}
			if err := RenderHuman(&buf, res, Options{Keywords: []string{"auth"}}); err != nil {
				t.Fatal(err)
			}
			if !strings.Contains(buf.String(), tt.want) {
				t.Errorf("got %q, want it to contain %q", buf.String(), tt.want)
			}
		})
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{"json", FormatJSON, false},
		{" YAML ", FormatYAML, false},
		{"yml", FormatYAML, false},
		{"toml", FormatTOML, false},
		{"xml", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseFormat(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestEncode_EmptyOutputKeepsFiles(t *testing.T) {
	var buf bytes.Buffer
	if err := Encode(&buf, analysis.EmptyOutput(), FormatJSON); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), `"files": []`) {
		t.Errorf("empty output should encode files as []:\n%s", buf.String())
	}
}

func TestEncode_Formats(t *testing.T) {
	out := sampleResult().Output

	t.Run("json", func(t *testing.T) {
		data, err := Marshal(out, FormatJSON)
		if err != nil {
			t.Fatal(err)
		}
		var got analysis.AnalysisOutput
		if err := json.Unmarshal(data, &got); err != nil {
			t.Fatal(err)
		}
		if diff := cmp.Diff(*out, got); diff != "" {
			t.Errorf("json mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("yaml", func(t *testing.T) {
		data, err := Marshal(out, FormatYAML)
		if err != nil {
			t.Fatal(err)
		}
		var got analysis.AnalysisOutput
		if err := yaml.Unmarshal(data, &got); err != nil {
			t.Fatal(err)
		}
		if diff := cmp.Diff(*out, got); diff != "" {
			t.Errorf("yaml mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("toml", func(t *testing.T) {
		data, err := Marshal(out, FormatTOML)
		if err != nil {
			t.Fatal(err)
		}
		s := string(data)
		for _, want := range []string{"totalElements = 4", "[[files]]", "[[files.elements]]", "refreshAuthToken"} {
			if !strings.Contains(s, want) {
				t.Errorf("toml missing %q:\n%s", want, s)
			}
		}
	})
}

func TestCompressedRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.json.zst")
	data := bytes.Repeat([]byte(`{"name":"validateAuthToken"}`), 200)

	if err := WriteCompressed(path, data); err != nil {
		t.Fatal(err)
	}
	got, err := ReadCompressed(path)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, data) {
		t.Errorf("round trip changed data: got %d bytes, want %d", len(got), len(data))
	}
}

func TestReadCompressed_Missing(t *testing.T) {
	if _, err := ReadCompressed(filepath.Join(t.TempDir(), "nope.zst")); err == nil {
		t.Error("expected error for missing file")
	}
}
