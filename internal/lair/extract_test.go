//go:build cgo

package lair

import (
	"context"
	"testing"

	"lair/internal/grammar"
	"lair/internal/slogutil"
	"lair/internal/syntax"
)

type harness struct {
	parser    *syntax.Parser
	extractor *Extractor
}

func newHarness() harness {
	logger := slogutil.NewDiscardLogger()
	reg := grammar.DefaultRegistry(logger)
	return harness{
		parser:    syntax.NewParser(reg, logger),
		extractor: NewExtractor(reg, syntax.NewExecutor(logger), logger),
	}
}

func (h harness) extract(t *testing.T, path, lang, src string, keywords []string) []CodeElement {
	t.Helper()
	f, err := h.parser.Parse(context.Background(), path, []byte(src), lang)
	if err != nil || f == nil {
		t.Fatalf("Parse(%s) = %v, %v", path, f, err)
	}
	t.Cleanup(func() { _ = f.Dispose() })
	elements, err := h.extractor.Extract(context.Background(), f, keywords)
	if err != nil {
		t.Fatal(err)
	}
	return elements
}

func byName(elements []CodeElement, name string) *CodeElement {
	for i := range elements {
		if elements[i].Name == name {
			return &elements[i]
		}
	}
	return nil
}

func checkParents(t *testing.T, elements []CodeElement) {
	t.Helper()
	index := make(map[string]CodeElement, len(elements))
	for _, e := range elements {
		index[e.ID] = e
	}
	for _, e := range elements {
		if e.Parent == "" {
			continue
		}
		parent, ok := index[e.Parent]
		if !ok {
			t.Errorf("%s: parent %s not extracted", e.Name, e.Parent)
			continue
		}
		if parent.Type != TypeClass {
			t.Errorf("%s: parent type %s, want class", e.Name, parent.Type)
		}
		n := 0
		for _, c := range parent.Children {
			if c == e.ID {
				n++
			}
		}
		if n != 1 {
			t.Errorf("%s appears %d times in %s.Children, want 1", e.Name, n, parent.Name)
		}
	}
}

func TestExtract_Python(t *testing.T) {
	src := `class AuthService:
    def login(self, user):
        return True

    @staticmethod
    def logout():
        pass

def validate_auth_token(tok):
    return bool(tok)
`
	elements := newHarness().extract(t, "/svc/auth.py", "python", src, nil)
	checkParents(t, elements)

	tests := []struct {
		name   string
		typ    ElementType
		parent bool
	}{
		{"AuthService", TypeClass, false},
		{"login", TypeMethod, true},
		{"logout", TypeMethod, true},
		{"validate_auth_token", TypeFunction, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := byName(elements, tt.name)
			if e == nil {
				t.Fatalf("%s not extracted", tt.name)
			}
			if e.Type != tt.typ {
				t.Errorf("Type = %s, want %s", e.Type, tt.typ)
			}
			if e.HasParent() != tt.parent {
				t.Errorf("HasParent = %v, want %v", e.HasParent(), tt.parent)
			}
		})
	}
	if len(elements) != 4 {
		t.Errorf("got %d elements, want 4 (overlapping matches must collapse)", len(elements))
	}
}

func TestExtract_GoMethodsWithoutClassBody(t *testing.T) {
	src := `package auth

type Session struct{}

func (s *Session) Refresh() {}

func validateAuthToken(tok string) bool { return tok != "" }
`
	elements := newHarness().extract(t, "/auth/session.go", "go", src, nil)
	checkParents(t, elements)

	refresh := byName(elements, "Refresh")
	if refresh == nil {
		t.Fatal("Refresh not extracted")
	}
	// Go methods are declared outside the type, so no class encloses them.
	if refresh.Type != TypeFunction || refresh.HasParent() {
		t.Errorf("Refresh = %s parent=%q, want unparented function", refresh.Type, refresh.Parent)
	}
	fn := byName(elements, "validateAuthToken")
	if fn == nil || fn.Type != TypeFunction {
		t.Fatalf("validateAuthToken = %+v", fn)
	}
	if fn.StartPosition.Row != 6 || fn.StartPosition.Column != 0 {
		t.Errorf("StartPosition = %+v, want row 6 col 0", fn.StartPosition)
	}
	if src[fn.StartIndex:fn.EndIndex] != fn.CodeSnippet {
		t.Error("CodeSnippet does not match the source span")
	}
}

func TestExtract_KeywordFilter(t *testing.T) {
	src := `class Session {
  refreshToken() {}
  close() {}
}
function render() {}
`
	elements := newHarness().extract(t, "/web/session.js", "javascript", src, []string{"token"})
	checkParents(t, elements)

	if byName(elements, "render") != nil || byName(elements, "close") != nil {
		t.Error("unmatched elements should be filtered out")
	}
	m := byName(elements, "refreshToken")
	if m == nil || m.Type != TypeMethod {
		t.Fatalf("refreshToken = %+v", m)
	}
	if byName(elements, "Session") == nil {
		t.Error("enclosing class of a kept method should be kept")
	}
}

func TestExtract_Cancelled(t *testing.T) {
	h := newHarness()
	f, err := h.parser.Parse(context.Background(), "/a.go", []byte("package a\nfunc A() {}\n"), "go")
	if err != nil || f == nil {
		t.Fatal(err)
	}
	defer f.Dispose()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := h.extractor.Extract(ctx, f, nil); err == nil {
		t.Error("expected context error")
	}
}
