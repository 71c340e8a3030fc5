package relevance

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"lair/internal/lair"
)

func fn(id, name string, typ lair.ElementType) lair.CodeElement {
	return lair.CodeElement{ID: id, Type: typ, Name: name, FilePath: "/src/" + id, CodeSnippet: name + "() {}"}
}

func TestScore_ValidateAuthToken(t *testing.T) {
	s := NewScorer()
	e := lair.CodeElement{
		ID:          "1",
		Type:        lair.TypeFunction,
		Name:        "validateAuthToken",
		CodeSnippet: "function validateAuthToken(token) { return token.length > 0 }",
	}
	got := s.Score(e, []string{"auth"})

	// type 8 + name 3*2 + snippet 3
	if got.Score != 17 {
		t.Errorf("Score = %g, want 17", got.Score)
	}
	if BandFor(got.Score) != BandRelevant {
		t.Errorf("band = %s, want relevant", BandFor(got.Score))
	}
	if len(got.Reasons) != 3 {
		t.Errorf("reasons = %v, want 3 entries", got.Reasons)
	}
	if !strings.Contains(got.Reasons[1], "name matches") {
		t.Errorf("second reason = %q, want the name bonus", got.Reasons[1])
	}
}

func TestScore_Factors(t *testing.T) {
	s := NewScorer()
	s.KeywordWeights["login"] = 5

	tests := []struct {
		name     string
		element  lair.CodeElement
		keywords []string
		want     float64
	}{
		{
			name:    "unknown type",
			element: lair.CodeElement{Type: "macro", Name: "x"},
			want:    1,
		},
		{
			name:    "class with children gets architectural bonus",
			element: lair.CodeElement{Type: lair.TypeClass, Name: "Repo", Children: []string{"a", "b"}},
			want:    10 + 4 + 3,
		},
		{
			name:    "verbose snippet penalty",
			element: lair.CodeElement{Type: lair.TypeFunction, Name: "big", CodeSnippet: strings.Repeat("x", 1001)},
			want:    8 - 2,
		},
		{
			name:     "configured keyword weight, snippet counted once",
			element:  lair.CodeElement{Type: lair.TypeFunction, Name: "doLogin", CodeSnippet: "nothing here"},
			keywords: []string{"login"},
			want:     8 + 10,
		},
		{
			name:     "snippet uses its own matches",
			element:  lair.CodeElement{Type: lair.TypeOther, Name: "line", CodeSnippet: "session token"},
			keywords: []string{"token", "session"},
			want:     2 + 6,
		},
		{
			name: "multi keyword bonus",
			element: lair.CodeElement{
				Type: lair.TypeMethod, Name: "refreshAuthToken", CodeSnippet: "refreshAuthToken()",
			},
			keywords: []string{"auth", "token"},
			want:     8 + 12 + 6 + 3 + 2,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := s.Score(tt.element, tt.keywords).Score; got != tt.want {
				t.Errorf("Score = %g, want %g", got, tt.want)
			}
		})
	}
}

func TestScore_MonotonicInNameKeywords(t *testing.T) {
	s := NewScorer()
	keywords := []string{"auth", "token", "user"}
	names := []string{"x", "auth", "authToken", "authTokenUser"}

	prev := -1.0
	for _, n := range names {
		got := s.Score(lair.CodeElement{Type: lair.TypeFunction, Name: n, CodeSnippet: "body"}, keywords).Score
		if got < prev {
			t.Errorf("score for %q = %g dropped below %g", n, got, prev)
		}
		prev = got
	}
}

func TestRecommendConfig(t *testing.T) {
	tests := []struct {
		total       int
		minScore    float64
		maxElements int
		requireName bool
		children    bool
	}{
		{0, 5, Unlimited, false, true},
		{49, 5, Unlimited, false, true},
		{50, 10, 100, false, true},
		{199, 10, 100, false, true},
		{200, 15, 75, true, false},
		{499, 15, 75, true, false},
		{500, 20, 50, true, false},
		{10000, 20, 50, true, false},
	}
	for _, tt := range tests {
		cfg := RecommendConfig(tt.total)
		if cfg.MinScore != tt.minScore || cfg.MaxElements != tt.maxElements ||
			cfg.RequireKeywordInName != tt.requireName || cfg.IncludeChildren != tt.children {
			t.Errorf("RecommendConfig(%d) = %+v", tt.total, cfg)
		}
	}

	big := RecommendConfig(500)
	if diff := cmp.Diff([]lair.ElementType{lair.TypeClass, lair.TypeFunction}, big.PrioritizeTypes); diff != "" {
		t.Errorf("PrioritizeTypes mismatch (-want +got):\n%s", diff)
	}

	prev := RecommendConfig(0)
	for n := 1; n <= 1000; n++ {
		cur := RecommendConfig(n)
		if cur.MinScore < prev.MinScore {
			t.Fatalf("MinScore decreased at %d", n)
		}
		if cur.MaxElements > prev.MaxElements {
			t.Fatalf("MaxElements increased at %d", n)
		}
		prev = cur
	}
}

func TestFilterByRelevance(t *testing.T) {
	s := NewScorer()
	method := fn("m", "authorize", lair.TypeMethod)
	method.Parent = "c"
	elements := []lair.CodeElement{
		fn("f1", "render", lair.TypeFunction),
		fn("f2", "authenticate", lair.TypeFunction),
		fn("c", "AuthService", lair.TypeClass),
		method,
		fn("o", "auth = true", lair.TypeOther),
	}

	t.Run("permissive", func(t *testing.T) {
		got := s.FilterByRelevance(elements, []string{"auth"}, RecommendConfig(len(elements)))
		var order []string
		for _, se := range got {
			order = append(order, se.Element.ID)
		}
		// Everything clears 5; type priority first, then score.
		want := []string{"c", "f2", "f1", "m", "o"}
		if diff := cmp.Diff(want, order); diff != "" {
			t.Errorf("order mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("strict", func(t *testing.T) {
		cfg := Config{
			MinScore:             15,
			MaxElements:          2,
			PrioritizeTypes:      []lair.ElementType{lair.TypeFunction},
			RequireKeywordInName: true,
		}
		got := s.FilterByRelevance(elements, []string{"auth"}, cfg)
		var order []string
		for _, se := range got {
			order = append(order, se.Element.ID)
		}
		if diff := cmp.Diff([]string{"f2", "c"}, order); diff != "" {
			t.Errorf("order mismatch (-want +got):\n%s", diff)
		}
	})
}

func TestCategorizeForLLM(t *testing.T) {
	scored := []ScoredElement{
		{Score: 30}, {Score: 29.5}, {Score: 20}, {Score: 19}, {Score: 10}, {Score: 9.5}, {Score: -2},
	}
	c := CategorizeForLLM(scored)
	if len(c.Critical) != 1 || len(c.Important) != 2 || len(c.Relevant) != 2 || len(c.Supplementary) != 2 {
		t.Errorf("bands = %d/%d/%d/%d", len(c.Critical), len(c.Important), len(c.Relevant), len(c.Supplementary))
	}
	if c.Len() != len(scored) {
		t.Errorf("Len = %d, want %d", c.Len(), len(scored))
	}
}
