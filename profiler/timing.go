// Package profiler - Stage timing for the detection pipeline.
package profiler

import (
	"fmt"
	"io"
	"sort"
	"sync"
	"time"
)

// StageStats summarizes the recorded durations of one pipeline stage.
type StageStats struct {
	Name  string        `json:"name"`
	Count int64         `json:"count"`
	Total time.Duration `json:"total"`
	Min   time.Duration `json:"min"`
	Max   time.Duration `json:"max"`
}

// Avg returns the mean duration, or zero when nothing was recorded.
func (s StageStats) Avg() time.Duration {
	if s.Count == 0 {
		return 0
	}
	return s.Total / time.Duration(s.Count)
}

// String returns a one-line summary of the stage.
func (s StageStats) String() string {
	return fmt.Sprintf("%s: avg=%v, min=%v, max=%v, count=%d",
		s.Name,
		s.Avg().Truncate(time.Microsecond),
		s.Min.Truncate(time.Microsecond),
		s.Max.Truncate(time.Microsecond),
		s.Count)
}

// StageTimer records how long named pipeline stages take.
//
// It is safe for concurrent use.
type StageTimer struct {
	mu     sync.Mutex
	order  []string
	stages map[string]*StageStats
	now    func() time.Time
}

// NewStageTimer creates an empty stage timer.
func NewStageTimer() *StageTimer {
	return &StageTimer{
		stages: make(map[string]*StageStats),
		now:    time.Now,
	}
}

// Start begins timing a stage.
//
// Arguments:
// - name: The name of the stage to track.
//
// Returns:
// - A function to call when the stage completes.
func (t *StageTimer) Start(name string) func() time.Duration {
	start := t.now()
	return func() time.Duration {
		d := t.now().Sub(start)
		t.Record(name, d)
		return d
	}
}

// Track runs fn and records its duration under name, returning fn's error.
func (t *StageTimer) Track(name string, fn func() error) error {
	stop := t.Start(name)
	defer stop()
	return fn()
}

// Record adds one duration to the named stage.
func (t *StageTimer) Record(name string, d time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()

	s, ok := t.stages[name]
	if !ok {
		s = &StageStats{Name: name, Min: d, Max: d}
		t.stages[name] = s
		t.order = append(t.order, name)
	}

	s.Count++
	s.Total += d
	if d < s.Min {
		s.Min = d
	}
	if d > s.Max {
		s.Max = d
	}
}

// Report returns a snapshot of every stage in the order it was first recorded.
func (t *StageTimer) Report() []StageStats {
	t.mu.Lock()
	defer t.mu.Unlock()

	report := make([]StageStats, 0, len(t.order))
	for _, name := range t.order {
		report = append(report, *t.stages[name])
	}
	return report
}

// Slowest returns the stages sorted by total time, longest first.
func (t *StageTimer) Slowest() []StageStats {
	report := t.Report()
	sort.SliceStable(report, func(i, j int) bool {
		return report[i].Total > report[j].Total
	})
	return report
}

// WriteTo writes one line per stage to w.
func (t *StageTimer) WriteTo(w io.Writer) (int64, error) {
	var written int64
	for _, s := range t.Report() {
		n, err := fmt.Fprintf(w, "  %s\n", s)
		written += int64(n)
		if err != nil {
			return written, err
		}
	}
	return written, nil
}
