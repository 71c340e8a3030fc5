package report

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"lair/internal/analysis"
	"lair/internal/lair"
	"lair/internal/relevance"
)

// RenderHuman writes a compact per-file tree of the kept elements.
func RenderHuman(w io.Writer, res *analysis.Result, opts Options) error {
	var b strings.Builder

	switch res.Status {
	case analysis.StatusCancelled:
		b.WriteString("Analysis cancelled.\n")
		_, err := io.WriteString(w, b.String())
		return err
	case analysis.StatusNoCandidates:
		fmt.Fprintf(&b, "No files mention %s.\n", strings.Join(opts.Keywords, ", "))
		_, err := io.WriteString(w, b.String())
		return err
	case analysis.StatusNoElements:
		b.WriteString("Candidate files found, but no code elements matched.\n")
		_, err := io.WriteString(w, b.String())
		return err
	}

	scores := make(map[string]float64, len(res.Scored))
	for _, se := range res.Scored {
		scores[se.Element.ID] = se.Score
	}

	out := res.Output
	fmt.Fprintf(&b, "%d elements in %d files", out.Summary.TotalElements, out.Summary.FileCount)
	if types := byTypeLine(out.Summary.ByType); types != "" {
		fmt.Fprintf(&b, " (%s)", types)
	}
	b.WriteString("\n")

	for _, g := range out.Files {
		b.WriteString("\n")
		b.WriteString(displayPath(g.Path, opts.Root))
		if g.Language != "" {
			fmt.Fprintf(&b, " [%s]", g.Language)
		}
		b.WriteString("\n")
		for _, root := range lair.Forest(g.Elements) {
			root.Walk(func(n *lair.Node, depth int) {
				e := n.Element
				score := scores[e.ID]
				fmt.Fprintf(&b, "%s%-8s %-40s L%-5d %6s  %s\n",
					strings.Repeat("  ", depth+1),
					e.Type,
					e.Name,
					e.StartPosition.Row+1,
					formatScore(score),
					relevance.BandFor(score),
				)
			})
		}
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func byTypeLine(byType map[lair.ElementType]int) string {
	var parts []string
	for _, t := range lair.ElementTypes {
		if n := byType[t]; n > 0 {
			parts = append(parts, fmt.Sprintf("%d %s", n, t))
		}
	}
	var extra []string
	for t, n := range byType {
		known := false
		for _, k := range lair.ElementTypes {
			if k == t {
				known = true
				break
			}
		}
		if !known && n > 0 {
			extra = append(extra, fmt.Sprintf("%d %s", n, t))
		}
	}
	sort.Strings(extra)
	return strings.Join(append(parts, extra...), ", ")
}

func displayPath(path, root string) string {
	if root == "" {
		return path
	}
	r := strings.TrimSuffix(root, "/") + "/"
	return strings.TrimPrefix(path, r)
}
