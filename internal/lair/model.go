// Package lair defines the language-agnostic intermediate representation of
// code elements and turns query matches into it.
package lair

import "github.com/google/uuid"

// ElementType classifies a code element.
type ElementType string

const (
	TypeFunction ElementType = "function"
	TypeClass    ElementType = "class"
	TypeMethod   ElementType = "method"
	TypeVariable ElementType = "variable"
	TypeBlock    ElementType = "block"
	TypeImport   ElementType = "import"
	TypeCall     ElementType = "call"
	TypeOther    ElementType = "other"
)

// ElementTypes lists every element type in display order.
var ElementTypes = []ElementType{
	TypeClass, TypeMethod, TypeFunction, TypeVariable,
	TypeBlock, TypeImport, TypeCall, TypeOther,
}

// Position is a 0-indexed row and column.
type Position struct {
	Row    int `json:"row" yaml:"row" toml:"row"`
	Column int `json:"column" yaml:"column" toml:"column"`
}

// CodeElement is one structural unit of a source file.
//
// A method's Parent, when set, is the ID of a class element from the same
// extraction pass, and that class lists the method in Children exactly once.
type CodeElement struct {
	ID            string      `json:"id" yaml:"id" toml:"id"`
	Type          ElementType `json:"type" yaml:"type" toml:"type"`
	Name          string      `json:"name" yaml:"name" toml:"name"`
	FilePath      string      `json:"filePath" yaml:"filePath" toml:"filePath"`
	Language      string      `json:"language,omitempty" yaml:"language,omitempty" toml:"language,omitempty"`
	StartPosition Position    `json:"startPosition" yaml:"startPosition" toml:"startPosition"`
	EndPosition   Position    `json:"endPosition" yaml:"endPosition" toml:"endPosition"`
	StartIndex    int         `json:"startIndex" yaml:"startIndex" toml:"startIndex"`
	EndIndex      int         `json:"endIndex" yaml:"endIndex" toml:"endIndex"`
	CodeSnippet   string      `json:"codeSnippet" yaml:"codeSnippet" toml:"codeSnippet"`
	Parent        string      `json:"parent,omitempty" yaml:"parent,omitempty" toml:"parent,omitempty"`
	Children      []string    `json:"children,omitempty" yaml:"children,omitempty" toml:"children,omitempty"`
}

// HasParent reports whether the element is nested in a class.
func (e CodeElement) HasParent() bool {
	return e.Parent != ""
}

// Lines returns the number of source lines the element spans.
func (e CodeElement) Lines() int {
	return e.EndPosition.Row - e.StartPosition.Row + 1
}

func newID() string {
	return uuid.NewString()
}
