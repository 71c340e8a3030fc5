package progress

import (
	"bytes"
	"math"
	"strings"
	"sync"
	"testing"
)

type recorder struct {
	mu    sync.Mutex
	incs  []float64
	total float64
}

func (r *recorder) Report(inc float64, _ string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.incs = append(r.incs, inc)
	r.total += inc
}

func TestTracker_FullRun(t *testing.T) {
	rec := &recorder{}
	tr := NewTracker(rec)

	tr.SearchDone("found 3 files")
	tr.StartFiles(3)
	tr.FilesDone(2, "parsed 2/3")
	tr.FilesDone(1, "parsed 3/3")
	tr.ScoringDone("scored")
	tr.FormattingDone("formatted")
	tr.Complete("done")

	if math.Abs(rec.total-100) > 1e-9 {
		t.Errorf("total = %g, want 100", rec.total)
	}
	for i, inc := range rec.incs {
		if inc <= 0 {
			t.Errorf("increment %d = %g, want positive", i, inc)
		}
	}
}

func TestTracker_NeverExceeds100(t *testing.T) {
	rec := &recorder{}
	tr := NewTracker(rec)
	tr.StartFiles(1)
	for i := 0; i < 5; i++ {
		tr.FilesDone(1, "again")
	}
	tr.SearchDone("late")
	tr.ScoringDone("")
	tr.FormattingDone("")
	tr.Complete("")

	if tr.Total() > 100 || rec.total > 100+1e-9 {
		t.Errorf("total = %g / %g, want <= 100", tr.Total(), rec.total)
	}
}

func TestTracker_Concurrent(t *testing.T) {
	rec := &recorder{}
	tr := NewTracker(rec)
	tr.StartFiles(100)

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tr.FilesDone(1, "")
		}()
	}
	wg.Wait()

	if math.Abs(tr.Total()-ShareParsing) > 1e-6 {
		t.Errorf("total = %g, want %g", tr.Total(), ShareParsing)
	}
}

func TestWriterReporter(t *testing.T) {
	var buf bytes.Buffer
	tr := NewTracker(NewWriterReporter(&buf))
	tr.SearchDone("searching")
	tr.Complete("done")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("lines = %q", lines)
	}
	if lines[0] != "[ 10%] searching" || lines[1] != "[100%] done" {
		t.Errorf("lines = %q", lines)
	}
}
