// Package report renders analysis results for people and language models,
// and encodes them for machines.
package report

import (
	"fmt"
	"math"
	"strings"

	"lair/internal/analysis"
	"lair/internal/compression"
	"lair/internal/lair"
	"lair/internal/relevance"
)

// Options tune the text renderers.
type Options struct {
	Keywords []string
	Root     string
	// MaxSnippetLength shortens code blocks; 0 keeps them whole.
	MaxSnippetLength int
	ShowReasons      bool
}

// RenderText renders res as markdown for a language model. Critical and
// important elements carry their code, relevant ones get one line each,
// supplementary ones are only counted. Every element starts with "### ".
func RenderText(res *analysis.Result, opts Options) string {
	var b strings.Builder
	writeHeader(&b, res, opts)

	cats := relevance.CategorizeForLLM(res.Scored)
	if cats.Len() == 0 {
		b.WriteString("\nNo relevant code elements found.\n")
		return b.String()
	}

	if len(cats.Supplementary) > 0 {
		fmt.Fprintf(&b, "Omitted: %d supplementary elements scoring below %g.\n", len(cats.Supplementary), relevance.RelevantScore)
	}

	writeFull(&b, "CRITICAL", cats.Critical, opts)
	writeFull(&b, "IMPORTANT", cats.Important, opts)

	if len(cats.Relevant) > 0 {
		fmt.Fprintf(&b, "\n## RELEVANT (%d)\n\n", len(cats.Relevant))
		for _, se := range cats.Relevant {
			e := se.Element
			fmt.Fprintf(&b, "### %s `%s` %s (score %s)\n", e.Type, e.Name, location(e), formatScore(se.Score))
		}
	}
	return b.String()
}

func writeHeader(b *strings.Builder, res *analysis.Result, opts Options) {
	b.WriteString("# Code relevant to: ")
	if len(opts.Keywords) == 0 {
		b.WriteString("(no keywords)")
	} else {
		b.WriteString(strings.Join(opts.Keywords, ", "))
	}
	b.WriteString("\n\n")
	if opts.Root != "" {
		fmt.Fprintf(b, "Root: %s\n", opts.Root)
	}
	fmt.Fprintf(b, "Status: %s\n", res.Status)
	if res.Output != nil {
		fmt.Fprintf(b, "Elements: %d kept of %d extracted across %d files (%d candidates)\n",
			res.Output.Summary.TotalElements, res.Extracted, res.Output.Summary.FileCount, res.Candidates)
	}
}

func writeFull(b *strings.Builder, title string, elements []relevance.ScoredElement, opts Options) {
	if len(elements) == 0 {
		return
	}
	fmt.Fprintf(b, "\n## %s (%d)\n", title, len(elements))
	for _, se := range elements {
		e := se.Element
		fmt.Fprintf(b, "\n### %s `%s` (score %s)\n", e.Type, e.Name, formatScore(se.Score))
		fmt.Fprintf(b, "Location: %s\n", location(e))
		if e.Parent != "" {
			b.WriteString("Nested in a class\n")
		}
		if opts.ShowReasons && len(se.Reasons) > 0 {
			fmt.Fprintf(b, "Why: %s\n", strings.Join(se.Reasons, "; "))
		}
		snippet := compression.TruncateSnippet(e.CodeSnippet, opts.MaxSnippetLength)
		fence := compression.Fence(snippet)
		fmt.Fprintf(b, "\n%s%s\n%s\n%s\n", fence, e.Language, strings.TrimRight(snippet, "\n"), fence)
	}
}

// location is path:line or path:start-end, 1-indexed.
func location(e lair.CodeElement) string {
	start, end := e.StartPosition.Row+1, e.EndPosition.Row+1
	if end <= start {
		return fmt.Sprintf("%s:%d", e.FilePath, start)
	}
	return fmt.Sprintf("%s:%d-%d", e.FilePath, start, end)
}

func formatScore(s float64) string {
	return fmt.Sprintf("%g", math.Round(s*100)/100)
}
