package compression

import "fmt"

// TruncationReason names the limit that removed content from a report.
type TruncationReason string

const (
	TruncNone        TruncationReason = ""
	TruncMaxElements TruncationReason = "max-elements"
	TruncPriority    TruncationReason = "priority-cutoff"
	// TruncSnippet shortens elements without removing them.
	TruncSnippet TruncationReason = "snippet-length"
	TruncSection TruncationReason = "section-budget"
	TruncBudget  TruncationReason = "budget-exceeded"
)

// TruncationInfo records one limit being applied.
type TruncationInfo struct {
	Reason        TruncationReason `json:"reason"`
	OriginalCount int              `json:"originalCount"`
	ReturnedCount int              `json:"returnedCount"`
	DroppedCount  int              `json:"droppedCount"`
}

// NewTruncationInfo derives the dropped count, never negative.
func NewTruncationInfo(reason TruncationReason, original, returned int) *TruncationInfo {
	return &TruncationInfo{
		Reason:        reason,
		OriginalCount: original,
		ReturnedCount: returned,
		DroppedCount:  max(original-returned, 0),
	}
}

// WasTruncated reports whether anything was dropped.
func (t *TruncationInfo) WasTruncated() bool {
	return t != nil && t.DroppedCount > 0
}

// IsEmpty reports whether t carries no reason.
func (t *TruncationInfo) IsEmpty() bool {
	return t == nil || t.Reason == TruncNone
}

func (t *TruncationInfo) String() string {
	if !t.WasTruncated() {
		return "no truncation"
	}
	return fmt.Sprintf("%s: dropped %d of %d items", t.Reason, t.DroppedCount, t.OriginalCount)
}

// CompressionMetrics summarizes a TruncateElements pass.
type CompressionMetrics struct {
	InputCount  int `json:"inputCount"`
	OutputCount int `json:"outputCount"`
	// CompressionRatio is OutputCount/InputCount, 0 for empty input.
	CompressionRatio float64          `json:"compressionRatio"`
	EstimatedTokens  int              `json:"estimatedTokens"`
	Truncations      []TruncationInfo `json:"truncations,omitempty"`
}

// ComputeMetrics starts metrics for input items of which output survived.
func ComputeMetrics(input, output int, truncations []TruncationInfo) *CompressionMetrics {
	m := &CompressionMetrics{InputCount: input, OutputCount: output, Truncations: truncations}
	if input > 0 {
		m.CompressionRatio = float64(output) / float64(input)
	}
	return m
}

// AddTruncation keeps t when it dropped something.
func (m *CompressionMetrics) AddTruncation(t *TruncationInfo) {
	if t.WasTruncated() {
		m.Truncations = append(m.Truncations, *t)
	}
}

func (m *CompressionMetrics) WasTruncated() bool {
	return len(m.Truncations) > 0
}

// TotalDropped counts removed elements. Shortened snippets are not counted.
func (m *CompressionMetrics) TotalDropped() int {
	total := 0
	for _, t := range m.Truncations {
		if t.Reason != TruncSnippet {
			total += t.DroppedCount
		}
	}
	return total
}

// HasTruncationReason reports whether a limit of kind reason applied.
func (m *CompressionMetrics) HasTruncationReason(reason TruncationReason) bool {
	for _, t := range m.Truncations {
		if t.Reason == reason {
			return true
		}
	}
	return false
}
