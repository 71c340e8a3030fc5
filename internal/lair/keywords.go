package lair

import "strings"

// NormalizeKeywords lower-cases and trims keywords, dropping blanks and repeats.
func NormalizeKeywords(keywords []string) []string {
	out := make([]string, 0, len(keywords))
	seen := make(map[string]bool, len(keywords))
	for _, k := range keywords {
		k = strings.ToLower(strings.TrimSpace(k))
		if k == "" || seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, k)
	}
	return out
}

// MatchKeywords returns the normalized keywords found in text. Matching is a
// case-insensitive substring test, so "auth" matches "OAuthClient".
func MatchKeywords(text string, normalized []string) []string {
	if text == "" || len(normalized) == 0 {
		return nil
	}
	lower := strings.ToLower(text)
	var matched []string
	for _, k := range normalized {
		if strings.Contains(lower, k) {
			matched = append(matched, k)
		}
	}
	return matched
}

func containsAny(text string, normalized []string) bool {
	lower := strings.ToLower(text)
	for _, k := range normalized {
		if strings.Contains(lower, k) {
			return true
		}
	}
	return false
}

// FilterByKeywords keeps elements whose name or snippet contains a keyword.
// The enclosing class of a kept method is kept too, so parent references
// stay resolvable. No keywords keeps everything.
func FilterByKeywords(elements []CodeElement, keywords []string) []CodeElement {
	normalized := NormalizeKeywords(keywords)
	if len(normalized) == 0 {
		return elements
	}

	keep := make(map[string]bool, len(elements))
	for _, e := range elements {
		if containsAny(e.Name, normalized) || containsAny(e.CodeSnippet, normalized) {
			keep[e.ID] = true
			if e.Parent != "" {
				keep[e.Parent] = true
			}
		}
	}

	out := make([]CodeElement, 0, len(keep))
	for _, e := range elements {
		if keep[e.ID] {
			out = append(out, e)
		}
	}
	return out
}
