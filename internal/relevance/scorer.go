// Package relevance scores code elements against topic keywords and picks
// how strictly to filter them.
package relevance

import (
	"fmt"
	"unicode/utf8"

	"lair/internal/lair"
)

// DefaultKeywordWeight applies to keywords without a configured weight.
const DefaultKeywordWeight = 3.0

const (
	verboseSnippetChars = 1000
	verbosityPenalty    = 2.0
	architecturalBonus  = 3.0
	childBonus          = 2.0
	nameMultiplier      = 2.0
	multiKeywordMin     = 3
	multiKeywordFactor  = 0.5
	unknownTypeWeight   = 1.0
)

// DefaultTypeWeights is the base score per element type.
func DefaultTypeWeights() map[lair.ElementType]float64 {
	return map[lair.ElementType]float64{
		lair.TypeClass:    10,
		lair.TypeMethod:   8,
		lair.TypeFunction: 8,
		lair.TypeVariable: 4,
		lair.TypeOther:    2,
	}
}

// ScoredElement pairs an element with its score and the reasons behind it.
type ScoredElement struct {
	Element lair.CodeElement `json:"element" yaml:"element" toml:"element"`
	Score   float64          `json:"score" yaml:"score" toml:"score"`
	Reasons []string         `json:"reasons" yaml:"reasons" toml:"reasons"`
}

// Scorer computes additive relevance scores.
type Scorer struct {
	TypeWeights          map[lair.ElementType]float64
	KeywordWeights       map[string]float64
	DefaultKeywordWeight float64
}

// NewScorer returns a scorer with the default weights.
func NewScorer() *Scorer {
	return &Scorer{
		TypeWeights:          DefaultTypeWeights(),
		KeywordWeights:       map[string]float64{},
		DefaultKeywordWeight: DefaultKeywordWeight,
	}
}

func (s *Scorer) typeWeight(t lair.ElementType) float64 {
	if w, ok := s.TypeWeights[t]; ok {
		return w
	}
	return unknownTypeWeight
}

func (s *Scorer) keywordWeight(k string) float64 {
	if w, ok := s.KeywordWeights[k]; ok {
		return w
	}
	if s.DefaultKeywordWeight > 0 {
		return s.DefaultKeywordWeight
	}
	return DefaultKeywordWeight
}

func (s *Scorer) sumWeights(keywords []string) float64 {
	var total float64
	for _, k := range keywords {
		total += s.keywordWeight(k)
	}
	return total
}

// Score rates e against keywords.
func (s *Scorer) Score(e lair.CodeElement, keywords []string) ScoredElement {
	normalized := lair.NormalizeKeywords(keywords)
	var (
		score   float64
		reasons []string
	)
	add := func(v float64, format string, args ...interface{}) {
		score += v
		reasons = append(reasons, fmt.Sprintf(format, args...))
	}

	add(s.typeWeight(e.Type), "type %s: +%g", e.Type, s.typeWeight(e.Type))

	nameMatches := lair.MatchKeywords(e.Name, normalized)
	if len(nameMatches) > 0 {
		v := s.sumWeights(nameMatches) * nameMultiplier
		add(v, "name matches %v: +%g", nameMatches, v)
	}

	snippetMatches := lair.MatchKeywords(e.CodeSnippet, normalized)
	if len(snippetMatches) > 0 {
		v := s.sumWeights(snippetMatches)
		add(v, "snippet matches %v: +%g", snippetMatches, v)
	}

	if n := len(e.Children); n > 0 {
		v := childBonus * float64(n)
		add(v, "%d children: +%g", n, v)
	}

	if e.Type == lair.TypeClass || e.Type == lair.TypeMethod {
		add(architecturalBonus, "architectural element: +%g", architecturalBonus)
	}

	if utf8.RuneCountInString(e.CodeSnippet) > verboseSnippetChars {
		add(-verbosityPenalty, "snippet over %d chars: -%g", verboseSnippetChars, verbosityPenalty)
	}

	if combined := len(nameMatches) + len(snippetMatches); combined >= multiKeywordMin {
		v := multiKeywordFactor * float64(combined)
		add(v, "%d keyword hits: +%g", combined, v)
	}

	return ScoredElement{Element: e, Score: score, Reasons: reasons}
}

// ScoreAll scores every element, preserving order.
func (s *Scorer) ScoreAll(elements []lair.CodeElement, keywords []string) []ScoredElement {
	out := make([]ScoredElement, 0, len(elements))
	for _, e := range elements {
		out = append(out, s.Score(e, keywords))
	}
	return out
}
