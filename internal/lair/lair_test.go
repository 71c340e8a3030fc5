package lair

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func el(id string, typ ElementType, name, path string, start, end int) CodeElement {
	return CodeElement{
		ID:            id,
		Type:          typ,
		Name:          name,
		FilePath:      path,
		StartPosition: Position{Row: start},
		EndPosition:   Position{Row: start + 1},
		StartIndex:    start * 10,
		EndIndex:      end * 10,
		CodeSnippet:   name + "()",
	}
}

func ids(elements []CodeElement) []string {
	out := make([]string, 0, len(elements))
	for _, e := range elements {
		out = append(out, e.ID)
	}
	return out
}

func TestDeduplicate(t *testing.T) {
	tests := []struct {
		name  string
		input []CodeElement
		want  []string
	}{
		{
			name: "same span and type",
			input: []CodeElement{
				el("a", TypeFunction, "login", "/x.go", 1, 5),
				el("b", TypeFunction, "login", "/x.go", 1, 5),
			},
			want: []string{"a"},
		},
		{
			name: "same span different type",
			input: []CodeElement{
				el("a", TypeFunction, "login", "/x.go", 1, 5),
				el("b", TypeMethod, "login", "/x.go", 1, 5),
			},
			want: []string{"a", "b"},
		},
		{
			name: "same start position type and name",
			input: []CodeElement{
				el("a", TypeClass, "Auth", "/x.py", 3, 9),
				el("b", TypeClass, "Auth", "/x.py", 3, 12),
			},
			want: []string{"a"},
		},
		{
			name: "different files",
			input: []CodeElement{
				el("a", TypeFunction, "login", "/x.go", 1, 5),
				el("b", TypeFunction, "login", "/y.go", 1, 5),
			},
			want: []string{"a", "b"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Deduplicate(tt.input)
			if diff := cmp.Diff(tt.want, ids(got)); diff != "" {
				t.Errorf("Deduplicate() mismatch (-want +got):\n%s", diff)
			}
			again := Deduplicate(got)
			if diff := cmp.Diff(got, again); diff != "" {
				t.Errorf("Deduplicate is not idempotent (-first +second):\n%s", diff)
			}
		})
	}
}

func TestFilterByKeywords(t *testing.T) {
	class := el("c", TypeClass, "Session", "/s.py", 0, 20)
	class.Children = []string{"m1", "m2"}
	m1 := el("m1", TypeMethod, "refresh_token", "/s.py", 2, 4)
	m1.Parent = "c"
	m2 := el("m2", TypeMethod, "close", "/s.py", 5, 6)
	m2.Parent = "c"
	author := el("f", TypeFunction, "authorName", "/a.py", 0, 2)
	other := el("o", TypeFunction, "render", "/r.py", 0, 2)

	elements := []CodeElement{class, m1, m2, author, other}

	t.Run("keeps parent of kept method", func(t *testing.T) {
		got := FilterByKeywords(elements, []string{"TOKEN"})
		if diff := cmp.Diff([]string{"c", "m1"}, ids(got)); diff != "" {
			t.Errorf("mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("substring match inside identifier", func(t *testing.T) {
		got := FilterByKeywords(elements, []string{"auth"})
		if diff := cmp.Diff([]string{"f"}, ids(got)); diff != "" {
			t.Errorf("mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("no keywords keeps all", func(t *testing.T) {
		got := FilterByKeywords(elements, []string{" ", ""})
		if len(got) != len(elements) {
			t.Errorf("got %d elements, want %d", len(got), len(elements))
		}
	})
}

func TestScanPlainText(t *testing.T) {
	content := []byte("# Config\r\nauth_mode = oauth\nport = 80\nAUTH_SECRET=x")
	got := ScanPlainText("/app.conf", "", content, []string{"auth"})

	if len(got) != 2 {
		t.Fatalf("got %d elements, want 2", len(got))
	}
	first := got[0]
	if first.Type != TypeOther {
		t.Errorf("Type = %q, want other", first.Type)
	}
	if first.CodeSnippet != "auth_mode = oauth" {
		t.Errorf("CodeSnippet = %q", first.CodeSnippet)
	}
	if first.StartPosition.Row != 1 || first.EndPosition.Row != 1 {
		t.Errorf("positions = %+v %+v, want row 1", first.StartPosition, first.EndPosition)
	}
	if string(content[first.StartIndex:first.EndIndex]) != first.CodeSnippet {
		t.Errorf("span %d:%d does not cover the line", first.StartIndex, first.EndIndex)
	}
	if got[1].StartPosition.Row != 3 || got[1].CodeSnippet != "AUTH_SECRET=x" {
		t.Errorf("second element = %+v", got[1])
	}

	if ScanPlainText("/app.conf", "", content, nil) != nil {
		t.Error("no keywords should produce no elements")
	}
}

func TestForest(t *testing.T) {
	class := el("c", TypeClass, "Session", "/s.py", 0, 20)
	m1 := el("m1", TypeMethod, "open", "/s.py", 2, 4)
	m1.Parent = "c"
	orphan := el("m2", TypeMethod, "close", "/s.py", 5, 6)
	orphan.Parent = "missing"
	fn := el("f", TypeFunction, "helper", "/s.py", 21, 22)

	roots := Forest([]CodeElement{class, m1, orphan, fn})

	var got []string
	for _, r := range roots {
		r.Walk(func(n *Node, depth int) {
			got = append(got, n.Element.ID+":"+string(rune('0'+depth)))
		})
	}
	want := []string{"c:0", "m1:1", "m2:0", "f:0"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Forest mismatch (-want +got):\n%s", diff)
	}
}

func TestMatchKeywords(t *testing.T) {
	kw := NormalizeKeywords([]string{"Auth", "token", "auth", ""})
	if diff := cmp.Diff([]string{"auth", "token"}, kw); diff != "" {
		t.Fatalf("NormalizeKeywords mismatch (-want +got):\n%s", diff)
	}
	got := MatchKeywords("validateAuthToken", kw)
	if diff := cmp.Diff([]string{"auth", "token"}, got); diff != "" {
		t.Errorf("MatchKeywords mismatch (-want +got):\n%s", diff)
	}
}
