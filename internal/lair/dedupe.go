package lair

type spanKey struct {
	path       string
	start, end int
	typ        ElementType
}

type identityKey struct {
	path string
	pos  Position
	typ  ElementType
	name string
}

// Deduplicate drops repeated elements, keeping the first occurrence. Two
// elements are the same when they share path, byte span and type, or when
// they share path, start position, type and name. Applying it to its own
// output changes nothing.
func Deduplicate(elements []CodeElement) []CodeElement {
	spans := make(map[spanKey]bool, len(elements))
	idents := make(map[identityKey]bool, len(elements))
	out := make([]CodeElement, 0, len(elements))

	for _, e := range elements {
		sk := spanKey{e.FilePath, e.StartIndex, e.EndIndex, e.Type}
		ik := identityKey{e.FilePath, e.StartPosition, e.Type, e.Name}
		if spans[sk] || idents[ik] {
			continue
		}
		spans[sk] = true
		idents[ik] = true
		out = append(out, e)
	}
	return out
}
