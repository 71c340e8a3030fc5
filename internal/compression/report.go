package compression

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

const (
	// laterSectionShare is the share of the budget that must remain before
	// a section after the critical one is started.
	laterSectionShare = 0.3
	// markerShare is the consumption above which the truncation marker is added.
	markerShare = 0.9
)

// TruncatedMarker heads the trailing notice of a truncated report.
const TruncatedMarker = "OUTPUT TRUNCATED"

// ReportResult is the outcome of TruncateReport.
type ReportResult struct {
	Text           string          `json:"text"`
	Truncated      bool            `json:"truncated"`
	OriginalTokens int             `json:"originalTokens"`
	FinalTokens    int             `json:"finalTokens"`
	Sections       *TruncationInfo `json:"sections,omitempty"`
	Blocks         *TruncationInfo `json:"blocks,omitempty"`
}

type section struct {
	header string
	intro  string
	blocks []string
}

func (s section) critical() bool {
	return strings.Contains(strings.ToUpper(s.header), "CRITICAL")
}

// TruncateReport cuts a markdown report to b.MaxTokens. Sections start at
// "## " lines and elements at "### " lines, both outside code fences. The
// critical section goes first; each later section starts only while more
// than 30% of the budget remains. Elements are added whole until the next
// would exceed the budget. A report already within budget is returned as is.
func TruncateReport(text string, b *Budget) ReportResult {
	if b == nil {
		b = DefaultBudget()
	}
	original := EstimateTokens(text)
	res := ReportResult{Text: text, OriginalTokens: original, FinalTokens: original}
	if b.MaxTokens <= 0 || original <= b.MaxTokens {
		return res
	}

	preamble, sections := splitSections(text)
	ordered := make([]section, 0, len(sections))
	for _, s := range sections {
		if s.critical() {
			ordered = append(ordered, s)
		}
	}
	for _, s := range sections {
		if !s.critical() {
			ordered = append(ordered, s)
		}
	}

	limit := b.MaxTokens
	budget := limit - EstimateTokens(marker(limit, limit)) - 1
	if budget < 0 {
		budget = 0
	}

	var out strings.Builder
	chars, used := 0, 0
	write := func(s string) {
		out.WriteString(s)
		chars += utf8.RuneCountInString(s)
		used = tokensForChars(chars)
	}
	fits := func(s string) bool {
		return tokensForChars(chars+utf8.RuneCountInString(s)) <= budget
	}

	if fits(preamble) {
		write(preamble)
	} else {
		write(cutToTokens(preamble, budget))
	}

	totalBlocks, keptBlocks, keptSections := 0, 0, 0
	for _, s := range sections {
		totalBlocks += len(s.blocks)
	}

	for i, s := range ordered {
		if i > 0 && float64(budget-used) <= laterSectionShare*float64(limit) {
			break
		}
		head := s.header + s.intro
		if !fits(head) {
			break
		}
		write(head)
		keptSections++
		for _, blk := range s.blocks {
			if !fits(blk) {
				break
			}
			write(blk)
			keptBlocks++
		}
	}

	final := strings.TrimRight(out.String(), "\n") + "\n"
	if float64(EstimateTokens(final)) > markerShare*float64(limit) || keptBlocks < totalBlocks {
		final += marker(EstimateTokens(final), limit)
	}

	res.Text = final
	res.Truncated = true
	res.FinalTokens = EstimateTokens(final)
	res.Sections = NewTruncationInfo(TruncSection, len(sections), keptSections)
	res.Blocks = NewTruncationInfo(TruncBudget, totalBlocks, keptBlocks)
	return res
}

func marker(used, limit int) string {
	return fmt.Sprintf("\n---\n%s: about %d of %d tokens used; lower-priority content was omitted.\n", TruncatedMarker, used, limit)
}

// splitSections parses text into a preamble and "## " sections with their
// "### " blocks. Lines inside backtick fences never start a section or
// block. A fence opened by n backticks closes only on a line of at least n
// backticks and nothing else.
func splitSections(text string) (string, []section) {
	lines := strings.SplitAfter(text, "\n")
	var (
		preamble strings.Builder
		sections []section
		cur      *section
		block    strings.Builder
		fence    string
	)
	flushBlock := func() {
		if cur != nil && block.Len() > 0 {
			cur.blocks = append(cur.blocks, block.String())
			block.Reset()
		}
	}

	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if fence == "" {
			if run := leadingBackticks(trimmed); run >= 3 {
				fence = trimmed[:run]
			}
		} else if closesFence(trimmed, fence) {
			fence = ""
		}
		inFence := fence != ""
		switch {
		case !inFence && strings.HasPrefix(line, "## "):
			flushBlock()
			if cur != nil {
				sections = append(sections, *cur)
			}
			cur = &section{header: line}
		case !inFence && strings.HasPrefix(line, "### ") && cur != nil:
			flushBlock()
			block.WriteString(line)
		case cur == nil:
			preamble.WriteString(line)
		case block.Len() > 0:
			block.WriteString(line)
		default:
			cur.intro += line
		}
	}
	flushBlock()
	if cur != nil {
		sections = append(sections, *cur)
	}
	return preamble.String(), sections
}

func leadingBackticks(s string) int {
	n := 0
	for n < len(s) && s[n] == '`' {
		n++
	}
	return n
}

func closesFence(trimmed, fence string) bool {
	n := leadingBackticks(trimmed)
	return n == len(trimmed) && n >= len(fence)
}

// Fence returns a backtick fence that can wrap code without any line of the
// code closing it early: at least three backticks and one more than the
// longest run inside code.
func Fence(code string) string {
	longest, run := 0, 0
	for i := 0; i < len(code); i++ {
		if code[i] == '`' {
			run++
			longest = max(longest, run)
			continue
		}
		run = 0
	}
	return strings.Repeat("`", max(3, longest+1))
}

// cutToTokens keeps a prefix of s of at most tokens estimated tokens.
func cutToTokens(s string, tokens int) string {
	runes := []rune(s)
	if max := tokens * 4; len(runes) > max {
		return string(runes[:max])
	}
	return s
}

func tokensForChars(n int) int {
	return (n + 3) / 4
}
