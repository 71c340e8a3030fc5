// Package compression fits analysis output into a token budget.
package compression

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"unicode/utf8"

	"lair/internal/config"
)

// Named token budgets for consumers with different context windows.
const (
	PresetSmall    = "small"
	PresetStandard = "standard"
	PresetLarge    = "large"
)

// Presets maps preset names to token limits.
var Presets = map[string]int{
	PresetSmall:    6_000,
	PresetStandard: 100_000,
	PresetLarge:    150_000,
}

// DefaultMaxSnippetLength is the per-snippet character limit.
const DefaultMaxSnippetLength = 2000

// PresetNames returns the preset names, sorted.
func PresetNames() []string {
	names := make([]string, 0, len(Presets))
	for n := range Presets {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// PresetFor returns the token limit of a named preset.
func PresetFor(name string) (int, error) {
	tokens, ok := Presets[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return 0, fmt.Errorf("unknown budget preset %q (want one of %s)", name, strings.Join(PresetNames(), ", "))
	}
	return tokens, nil
}

// EstimateTokens approximates the token count of s as ceil(chars/4).
func EstimateTokens(s string) int {
	return int(math.Ceil(float64(utf8.RuneCountInString(s)) / 4))
}

// Budget bounds the size of a report.
type Budget struct {
	// MaxTokens is the estimated token limit of the whole report
	MaxTokens int

	// MaxElements caps the number of elements; 0 means no cap
	MaxElements int

	// MaxSnippetLength caps each code snippet in characters; 0 means no cap
	MaxSnippetLength int

	// PriorityCutoff drops elements scoring below it; 0 keeps everything
	PriorityCutoff float64
}

// DefaultBudget returns the standard preset budget
func DefaultBudget() *Budget {
	return &Budget{
		MaxTokens:        Presets[PresetStandard],
		MaxSnippetLength: DefaultMaxSnippetLength,
	}
}

// LoadFromConfig creates a Budget from configuration, using defaults for missing values.
// An explicit maxTokens wins over the preset.
func (b *Budget) LoadFromConfig(cfg *config.Config) (*Budget, error) {
	if cfg == nil {
		return DefaultBudget(), nil
	}

	budget := &Budget{
		MaxTokens:        cfg.Budget.MaxTokens,
		MaxElements:      cfg.Budget.MaxElements,
		MaxSnippetLength: cfg.Budget.MaxSnippetLength,
		PriorityCutoff:   cfg.Budget.PriorityCutoff,
	}

	// Apply defaults for zero values
	if budget.MaxTokens == 0 {
		preset := cfg.Budget.Preset
		if preset == "" {
			preset = PresetStandard
		}
		tokens, err := PresetFor(preset)
		if err != nil {
			return nil, err
		}
		budget.MaxTokens = tokens
	}
	if budget.MaxSnippetLength == 0 {
		budget.MaxSnippetLength = DefaultMaxSnippetLength
	}

	return budget, nil
}

// NewBudgetFromConfig creates a new Budget from a config file
func NewBudgetFromConfig(cfg *config.Config) (*Budget, error) {
	return DefaultBudget().LoadFromConfig(cfg)
}
