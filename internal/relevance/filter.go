package relevance

import (
	"math"
	"sort"

	"lair/internal/lair"
)

// Config controls FilterByRelevance.
type Config struct {
	MinScore             float64            `json:"minScore" yaml:"minScore" toml:"minScore"`
	MaxElements          int                `json:"maxElements" yaml:"maxElements" toml:"maxElements"`
	PrioritizeTypes      []lair.ElementType `json:"prioritizeTypes" yaml:"prioritizeTypes" toml:"prioritizeTypes"`
	RequireKeywordInName bool               `json:"requireKeywordInName" yaml:"requireKeywordInName" toml:"requireKeywordInName"`
	IncludeChildren      bool               `json:"includeChildren" yaml:"includeChildren" toml:"includeChildren"`
}

// Unlimited is the MaxElements of a config that keeps everything.
const Unlimited = math.MaxInt32

var allTypes = []lair.ElementType{
	lair.TypeClass, lair.TypeFunction, lair.TypeMethod, lair.TypeVariable, lair.TypeOther,
}

// RecommendConfig picks a stricter filter as the element count grows.
// MinScore never decreases and MaxElements never increases with total.
func RecommendConfig(total int) Config {
	switch {
	case total < 50:
		return Config{
			MinScore:        5,
			MaxElements:     Unlimited,
			PrioritizeTypes: append([]lair.ElementType(nil), allTypes...),
			IncludeChildren: true,
		}
	case total < 200:
		return Config{
			MinScore:        10,
			MaxElements:     100,
			PrioritizeTypes: append([]lair.ElementType(nil), allTypes...),
			IncludeChildren: true,
		}
	case total < 500:
		return Config{
			MinScore:             15,
			MaxElements:          75,
			PrioritizeTypes:      []lair.ElementType{lair.TypeClass, lair.TypeFunction, lair.TypeMethod},
			RequireKeywordInName: true,
		}
	default:
		return Config{
			MinScore:             20,
			MaxElements:          50,
			PrioritizeTypes:      []lair.ElementType{lair.TypeClass, lair.TypeFunction},
			RequireKeywordInName: true,
		}
	}
}

// FilterByRelevance scores elements and applies cfg: minimum score, optional
// name-keyword requirement, type priority then score ordering, child
// exclusion and the element cap. Elements are expected to be deduplicated.
func (s *Scorer) FilterByRelevance(elements []lair.CodeElement, keywords []string, cfg Config) []ScoredElement {
	normalized := lair.NormalizeKeywords(keywords)
	scored := s.ScoreAll(elements, normalized)

	kept := scored[:0]
	for _, se := range scored {
		if se.Score < cfg.MinScore {
			continue
		}
		if cfg.RequireKeywordInName && len(lair.MatchKeywords(se.Element.Name, normalized)) == 0 {
			continue
		}
		if !cfg.IncludeChildren && se.Element.HasParent() {
			continue
		}
		kept = append(kept, se)
	}

	rank := make(map[lair.ElementType]int, len(cfg.PrioritizeTypes))
	for i, t := range cfg.PrioritizeTypes {
		if _, ok := rank[t]; !ok {
			rank[t] = i
		}
	}
	unlisted := len(cfg.PrioritizeTypes)
	rankOf := func(t lair.ElementType) int {
		if r, ok := rank[t]; ok {
			return r
		}
		return unlisted
	}

	sort.SliceStable(kept, func(i, j int) bool {
		ri, rj := rankOf(kept[i].Element.Type), rankOf(kept[j].Element.Type)
		if ri != rj {
			return ri < rj
		}
		return kept[i].Score > kept[j].Score
	})

	if cfg.MaxElements > 0 && len(kept) > cfg.MaxElements {
		kept = kept[:cfg.MaxElements]
	}
	return kept
}
