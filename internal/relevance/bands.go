package relevance

// Band is a presentation tier for scored elements.
type Band string

const (
	BandCritical      Band = "critical"
	BandImportant     Band = "important"
	BandRelevant      Band = "relevant"
	BandSupplementary Band = "supplementary"
)

// Band lower bounds, inclusive.
const (
	CriticalScore  = 30.0
	ImportantScore = 20.0
	RelevantScore  = 10.0
)

// BandFor returns the tier of score.
func BandFor(score float64) Band {
	switch {
	case score >= CriticalScore:
		return BandCritical
	case score >= ImportantScore:
		return BandImportant
	case score >= RelevantScore:
		return BandRelevant
	default:
		return BandSupplementary
	}
}

// Categories groups scored elements by band, preserving input order.
type Categories struct {
	Critical      []ScoredElement `json:"critical" yaml:"critical" toml:"critical"`
	Important     []ScoredElement `json:"important" yaml:"important" toml:"important"`
	Relevant      []ScoredElement `json:"relevant" yaml:"relevant" toml:"relevant"`
	Supplementary []ScoredElement `json:"supplementary" yaml:"supplementary" toml:"supplementary"`
}

// Len returns the number of categorized elements.
func (c Categories) Len() int {
	return len(c.Critical) + len(c.Important) + len(c.Relevant) + len(c.Supplementary)
}

// CategorizeForLLM buckets scored into bands.
func CategorizeForLLM(scored []ScoredElement) Categories {
	var c Categories
	for _, se := range scored {
		switch BandFor(se.Score) {
		case BandCritical:
			c.Critical = append(c.Critical, se)
		case BandImportant:
			c.Important = append(c.Important, se)
		case BandRelevant:
			c.Relevant = append(c.Relevant, se)
		default:
			c.Supplementary = append(c.Supplementary, se)
		}
	}
	return c
}
