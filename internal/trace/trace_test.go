package trace

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
)

func TestLevelFiltersScopes(t *testing.T) {
	tests := []struct {
		level Level
		scope Scope
		want  bool
	}{
		{LevelOff, ScopeDriver, false},
		{LevelPhase, ScopeModule, true},
		{LevelPhase, ScopeFunc, false},
		{LevelDetail, ScopeFunc, true},
		{LevelDetail, ScopePhase, false},
		{LevelDebug, ScopePhase, true},
	}
	for _, tt := range tests {
		if got := tt.level.ShouldEmit(tt.scope); got != tt.want {
			t.Fatalf("%s.ShouldEmit(%s) = %v, want %v", tt.level, tt.scope, got, tt.want)
		}
	}
}

func TestSpansNestThroughContext(t *testing.T) {
	ring := NewRingTracer(16, LevelDebug)
	ctx := WithTracer(context.Background(), ring)

	mod := Begin(FromContext(ctx), ScopeModule, "module", 0)
	ctx = WithSpan(ctx, mod)
	fn := Begin(FromContext(ctx), ScopeFunc, "borrowck:main", CurrentSpan(ctx).SpanID)
	fn.WithExtra("blocks", "3").End("ok")
	mod.End("")

	events := ring.Snapshot()
	if len(events) != 4 {
		t.Fatalf("expected 4 events, got %d", len(events))
	}
	if events[1].ParentID != mod.ID() {
		t.Fatalf("function span parent = %d, want %d", events[1].ParentID, mod.ID())
	}
	if events[2].Kind != KindSpanEnd || events[2].Extra["blocks"] != "3" || events[2].Detail != "ok" {
		t.Fatalf("unexpected end event %+v", events[2])
	}
}

func TestSuppressedSpanKeepsParent(t *testing.T) {
	ring := NewRingTracer(16, LevelPhase)
	sp := Begin(ring, ScopePhase, "borrowck_cfg", 7)
	if sp.ID() != 7 {
		t.Fatalf("suppressed span id = %d, want parent 7", sp.ID())
	}
	sp.End("")
	if n := len(ring.Snapshot()); n != 0 {
		t.Fatalf("expected no events, got %d", n)
	}
}

func TestRingWrapsOldestFirst(t *testing.T) {
	ring := NewRingTracer(3, LevelDebug)
	for _, name := range []string{"a", "b", "c", "d", "e"} {
		Point(ring, ScopeModule, name, "", 0)
	}
	var names []string
	for _, ev := range ring.Snapshot() {
		names = append(names, ev.Name)
	}
	if strings.Join(names, ",") != "c,d,e" {
		t.Fatalf("snapshot = %v", names)
	}
}

func TestStreamNDJSON(t *testing.T) {
	var buf bytes.Buffer
	tr, err := New(Config{Level: LevelDetail, Mode: ModeStream, Format: FormatNDJSON, Output: &buf})
	if err != nil {
		t.Fatal(err)
	}
	Begin(tr, ScopeFunc, "borrowck:f", 0).End("done")
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %q", buf.String())
	}
	var ev map[string]any
	if err := json.Unmarshal([]byte(lines[1]), &ev); err != nil {
		t.Fatalf("bad json %q: %v", lines[1], err)
	}
	if ev["kind"] != "end" || ev["name"] != "borrowck:f" || ev["detail"] != "done" {
		t.Fatalf("unexpected event %v", ev)
	}
}

func TestBothModeExposesRing(t *testing.T) {
	var buf bytes.Buffer
	tr, err := New(Config{Level: LevelPhase, Mode: ModeBoth, Output: &buf})
	if err != nil {
		t.Fatal(err)
	}
	Point(tr, ScopeDriver, "check", "", 0)
	r := Ring(tr)
	if r == nil || len(r.Snapshot()) != 1 {
		t.Fatalf("ring missing or empty")
	}
	if !strings.Contains(buf.String(), "• check") {
		t.Fatalf("stream output %q", buf.String())
	}
	if Ring(Nop) != nil {
		t.Fatalf("nop tracer has no ring")
	}
}
