package compression

import (
	"strings"

	"lair/internal/relevance"
)

// SnippetMarker ends a shortened snippet.
const SnippetMarker = "\n... (truncated)"

// elementOverheadTokens approximates the header rendered around each snippet.
const elementOverheadTokens = 12

// TruncateSnippet limits s to max characters. It cuts at the last newline
// when that falls after 80% of max, and marks the cut.
func TruncateSnippet(s string, max int) string {
	if max <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	cut := string(runes[:max])
	if nl := strings.LastIndexByte(cut, '\n'); nl >= 0 && len([]rune(cut[:nl])) > max*8/10 {
		cut = cut[:nl]
	}
	return cut + SnippetMarker
}

// ElementTokens estimates the rendered size of one scored element.
func ElementTokens(se relevance.ScoredElement) int {
	return EstimateTokens(se.Element.CodeSnippet) +
		EstimateTokens(se.Element.Name+se.Element.FilePath) +
		elementOverheadTokens
}

// ElementsResult is the outcome of TruncateElements.
type ElementsResult struct {
	Elements []relevance.ScoredElement
	Metrics  *CompressionMetrics
}

// TruncateElements trims a ranked element list before formatting: priority
// cutoff, element cap, snippet length, then the token budget, in that order.
// The input is not modified.
func TruncateElements(scored []relevance.ScoredElement, b *Budget) ElementsResult {
	if b == nil {
		b = DefaultBudget()
	}
	metrics := ComputeMetrics(len(scored), len(scored), nil)

	kept := make([]relevance.ScoredElement, 0, len(scored))
	for _, se := range scored {
		if b.PriorityCutoff > 0 && se.Score < b.PriorityCutoff {
			continue
		}
		kept = append(kept, se)
	}
	metrics.AddTruncation(NewTruncationInfo(TruncPriority, len(scored), len(kept)))

	if b.MaxElements > 0 && len(kept) > b.MaxElements {
		metrics.AddTruncation(NewTruncationInfo(TruncMaxElements, len(kept), b.MaxElements))
		kept = kept[:b.MaxElements]
	}

	shortened := 0
	for i := range kept {
		s := TruncateSnippet(kept[i].Element.CodeSnippet, b.MaxSnippetLength)
		if s != kept[i].Element.CodeSnippet {
			kept[i].Element.CodeSnippet = s
			shortened++
		}
	}
	if shortened > 0 {
		metrics.AddTruncation(&TruncationInfo{
			Reason:        TruncSnippet,
			OriginalCount: len(kept),
			ReturnedCount: len(kept),
			DroppedCount:  shortened,
		})
	}

	used := 0
	n := 0
	for _, se := range kept {
		t := ElementTokens(se)
		if b.MaxTokens > 0 && used+t > b.MaxTokens {
			break
		}
		used += t
		n++
	}
	metrics.AddTruncation(NewTruncationInfo(TruncBudget, len(kept), n))
	kept = kept[:n]

	metrics.OutputCount = len(kept)
	if metrics.InputCount > 0 {
		metrics.CompressionRatio = float64(metrics.OutputCount) / float64(metrics.InputCount)
	}
	metrics.EstimatedTokens = used
	return ElementsResult{Elements: kept, Metrics: metrics}
}
