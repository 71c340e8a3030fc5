package analysis

import (
	"sort"

	"lair/internal/lair"
	"lair/internal/parsecache"
	"lair/internal/relevance"
)

// Stage is a step of a run.
type Stage string

const (
	StageSearching  Stage = "searching"
	StageParsing    Stage = "parsing"
	StageExtracting Stage = "extracting"
	StageScoring    Stage = "scoring"
	StageFormatting Stage = "formatting"
	StageDone       Stage = "done"
	StageCancelled  Stage = "cancelled"
)

// Status is how a run ended.
type Status string

const (
	StatusCompleted    Status = "completed"
	StatusCancelled    Status = "cancelled"
	StatusNoCandidates Status = "no_candidates"
	StatusNoElements   Status = "no_elements"
)

// Summary holds aggregate counts of an output.
type Summary struct {
	TotalElements int                      `json:"totalElements" yaml:"totalElements" toml:"totalElements"`
	FileCount     int                      `json:"fileCount" yaml:"fileCount" toml:"fileCount"`
	ByType        map[lair.ElementType]int `json:"byType" yaml:"byType" toml:"byType"`
}

// FileGroup is the elements of one file.
type FileGroup struct {
	Path     string             `json:"path" yaml:"path" toml:"path"`
	Language string             `json:"language,omitempty" yaml:"language,omitempty" toml:"language,omitempty"`
	Elements []lair.CodeElement `json:"elements" yaml:"elements" toml:"elements"`
}

// AnalysisOutput is the result of a run, grouped by file.
type AnalysisOutput struct {
	Summary Summary     `json:"summary" yaml:"summary" toml:"summary"`
	Files   []FileGroup `json:"files" yaml:"files" toml:"files"`
}

// EmptyOutput returns an output with zero counts and no files.
func EmptyOutput() *AnalysisOutput {
	return &AnalysisOutput{
		Summary: Summary{ByType: map[lair.ElementType]int{}},
		Files:   []FileGroup{},
	}
}

// BuildOutput groups elements by file. Files are sorted by path; elements
// keep their input order within a file.
func BuildOutput(elements []lair.CodeElement) *AnalysisOutput {
	out := EmptyOutput()
	groups := make(map[string]*FileGroup)
	for _, e := range elements {
		g, ok := groups[e.FilePath]
		if !ok {
			g = &FileGroup{Path: e.FilePath, Language: e.Language}
			groups[e.FilePath] = g
		}
		g.Elements = append(g.Elements, e)
		out.Summary.ByType[e.Type]++
	}

	paths := make([]string, 0, len(groups))
	for p := range groups {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	for _, p := range paths {
		out.Files = append(out.Files, *groups[p])
	}
	out.Summary.TotalElements = len(elements)
	out.Summary.FileCount = len(out.Files)
	return out
}

// Result is what Run returns.
type Result struct {
	Status Status          `json:"status"`
	Stage  Stage           `json:"stage"`
	Output *AnalysisOutput `json:"output"`
	// Scored is the filtered, ranked element list behind Output.
	Scored []relevance.ScoredElement `json:"scored,omitempty"`
	Config relevance.Config          `json:"config"`

	Candidates  int              `json:"candidates"`
	Extracted   int              `json:"extracted"`
	FailedFiles int              `json:"failedFiles"`
	Cache       parsecache.Stats `json:"cache"`
}
