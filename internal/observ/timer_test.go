package observ

import (
	"errors"
	"strings"
	"testing"
)

func TestTimerReport(t *testing.T) {
	tm := NewTimer()
	idx := tm.Begin("load")
	tm.End(idx, "2 funcs")
	err := tm.Track("check", func() error { return errors.New("boom") })
	if err == nil {
		t.Fatalf("Track must return fn's error")
	}
	r := tm.Report()
	if len(r.Phases) != 2 || r.Phases[0].Name != "load" || r.Phases[1].Note != "error" {
		t.Fatalf("unexpected report %+v", r)
	}
	s := tm.Summary()
	if !strings.Contains(s, "// 2 funcs") || !strings.Contains(s, "total") {
		t.Fatalf("summary %q", s)
	}
}

func TestNilTimerIsInert(t *testing.T) {
	var tm *Timer
	tm.End(tm.Begin("x"), "")
	if len(tm.Report().Phases) != 0 {
		t.Fatalf("nil timer recorded phases")
	}
}
