// Package observ measures wall-clock phases of a brick run.
package observ

import (
	"fmt"
	"strings"
	"sync"
	"time"
)

// Phase is one measured interval.
type Phase struct {
	Name  string
	Start time.Time
	Dur   time.Duration
	Note  string
}

// Timer collects phases. It is safe for concurrent use so per-function
// checks running in parallel can record into one timer.
type Timer struct {
	mu     sync.Mutex
	phases []Phase
}

// NewTimer returns an empty Timer.
func NewTimer() *Timer { return &Timer{phases: make([]Phase, 0, 8)} }

// Begin starts a phase and returns its handle. A nil Timer records nothing.
func (t *Timer) Begin(name string) int {
	if t == nil {
		return -1
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.phases = append(t.phases, Phase{Name: name, Start: time.Now()})
	return len(t.phases) - 1
}

// End closes the phase started by Begin.
func (t *Timer) End(idx int, note string) {
	if t == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if idx < 0 || idx >= len(t.phases) {
		return
	}
	p := &t.phases[idx]
	p.Dur = time.Since(p.Start)
	p.Note = note
}

// Track runs fn as a phase.
func (t *Timer) Track(name string, fn func() error) error {
	idx := t.Begin(name)
	err := fn()
	note := ""
	if err != nil {
		note = "error"
	}
	t.End(idx, note)
	return err
}

// PhaseReport is the serialisable form of a Phase.
type PhaseReport struct {
	Name       string  `json:"name"`
	DurationMS float64 `json:"duration_ms"`
	Note       string  `json:"note,omitempty"`
}

// Report aggregates all phases.
type Report struct {
	TotalMS float64       `json:"total_ms"`
	Phases  []PhaseReport `json:"phases"`
}

// Report snapshots the phases in the order they began.
func (t *Timer) Report() Report {
	if t == nil {
		return Report{}
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	r := Report{Phases: make([]PhaseReport, len(t.phases))}
	var total time.Duration
	for i, p := range t.phases {
		total += p.Dur
		r.Phases[i] = PhaseReport{Name: p.Name, DurationMS: ms(p.Dur), Note: p.Note}
	}
	r.TotalMS = ms(total)
	return r
}

// Summary renders the report as an aligned table.
func (t *Timer) Summary() string {
	r := t.Report()
	var sb strings.Builder
	sb.WriteString("timings:\n")
	for _, p := range r.Phases {
		fmt.Fprintf(&sb, "  %-24s %8.2f ms", p.Name, p.DurationMS)
		if p.Note != "" {
			sb.WriteString("  // " + p.Note)
		}
		sb.WriteByte('\n')
	}
	fmt.Fprintf(&sb, "  %-24s %8.2f ms\n", "total", r.TotalMS)
	return sb.String()
}

func ms(d time.Duration) float64 { return float64(d) / float64(time.Millisecond) }
