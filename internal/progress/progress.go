// Package progress distributes a run's 100% across its stages and forwards
// increments to a Reporter.
package progress

import (
	"fmt"
	"io"
	"log/slog"
	"sync"

	"lair/internal/slogutil"
)

// Stage shares of the total, in percent.
const (
	ShareSearch     = 10.0
	ShareParsing    = 70.0
	ShareScoring    = 10.0
	ShareFormatting = 10.0
)

// Reporter receives progress increments in percent.
type Reporter interface {
	Report(increment float64, message string)
}

// ReporterFunc adapts a function to Reporter.
type ReporterFunc func(increment float64, message string)

// Report implements Reporter.
func (f ReporterFunc) Report(increment float64, message string) { f(increment, message) }

// Nop discards progress.
type Nop struct{}

// Report implements Reporter.
func (Nop) Report(float64, string) {}

// Tracker hands out stage shares. The reported total only grows and never
// exceeds 100. Safe for concurrent use.
type Tracker struct {
	mu      sync.Mutex
	r       Reporter
	total   float64
	perFile float64
}

// NewTracker wraps r; nil reports nowhere.
func NewTracker(r Reporter) *Tracker {
	if r == nil {
		r = Nop{}
	}
	return &Tracker{r: r}
}

// SearchDone reports the search share.
func (t *Tracker) SearchDone(message string) {
	t.advance(ShareSearch, message)
}

// StartFiles splits the parsing share evenly over n files.
func (t *Tracker) StartFiles(n int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if n > 0 {
		t.perFile = ShareParsing / float64(n)
	}
}

// FilesDone reports n finished files.
func (t *Tracker) FilesDone(n int, message string) {
	t.mu.Lock()
	inc := t.perFile * float64(n)
	t.mu.Unlock()
	t.advance(inc, message)
}

// ScoringDone reports the scoring share.
func (t *Tracker) ScoringDone(message string) {
	t.advance(ShareScoring, message)
}

// FormattingDone reports the formatting share.
func (t *Tracker) FormattingDone(message string) {
	t.advance(ShareFormatting, message)
}

// Complete reports whatever remains up to 100.
func (t *Tracker) Complete(message string) {
	t.mu.Lock()
	rest := 100 - t.total
	t.mu.Unlock()
	t.advance(rest, message)
}

// Total returns the percentage reported so far.
func (t *Tracker) Total() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.total
}

func (t *Tracker) advance(inc float64, message string) {
	t.mu.Lock()
	if inc < 0 {
		inc = 0
	}
	if t.total+inc > 100 {
		inc = 100 - t.total
	}
	t.total += inc
	t.mu.Unlock()
	if inc > 0 {
		t.r.Report(inc, message)
	}
}

// SlogReporter logs each increment at debug level.
type SlogReporter struct {
	logger *slog.Logger
}

// NewSlogReporter creates a reporter logging to logger.
func NewSlogReporter(logger *slog.Logger) *SlogReporter {
	return &SlogReporter{logger: slogutil.Component(logger, "progress")}
}

// Report implements Reporter.
func (s *SlogReporter) Report(increment float64, message string) {
	s.logger.Debug(message, "increment", fmt.Sprintf("%.1f", increment))
}

// WriterReporter prints a running percentage per increment, e.g. to stderr.
type WriterReporter struct {
	mu    sync.Mutex
	w     io.Writer
	total float64
}

// NewWriterReporter creates a reporter writing to w.
func NewWriterReporter(w io.Writer) *WriterReporter {
	return &WriterReporter{w: w}
}

// Report implements Reporter.
func (p *WriterReporter) Report(increment float64, message string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.total += increment
	if p.total > 100 {
		p.total = 100
	}
	fmt.Fprintf(p.w, "[%3.0f%%] %s\n", p.total, message)
}
