package driver

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"brick/internal/diag"
	"brick/internal/hir"
	"brick/internal/hir/hirtest"
	"brick/internal/hirio"
	"brick/internal/observ"
)

type recordingSink struct {
	mu     sync.Mutex
	events []Event
}

func (s *recordingSink) OnEvent(ev Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, ev)
}

func (s *recordingSink) count(fn string, status Status) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, ev := range s.events {
		if ev.Func == fn && ev.Status == status {
			n++
		}
	}
	return n
}

func brokenModule(t *testing.T) *hir.Module {
	t.Helper()
	tk := hirtest.NewToken("broken")
	b := tk.B
	x := b.Var("t", tk.R)
	b.Func("main", b.Unit, nil,
		x.Let(tk.New()),
		tk.Consume(x.Ref()),
		tk.Consume(x.Ref()),
	)
	m, err := b.Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	return m
}

func TestCheckModuleAnnotatesEveryFunction(t *testing.T) {
	m, err := hirtest.NestedDrops()
	if err != nil {
		t.Fatalf("fixture: %v", err)
	}
	sink := &recordingSink{}
	timer := observ.NewTimer()
	res, err := CheckModule(context.Background(), m, Options{Jobs: 2, Progress: sink, Timer: timer})
	if err != nil {
		t.Fatalf("CheckModule: %v", err)
	}
	if res.HasErrors() || res.Annotated == nil {
		t.Fatalf("expected clean module, got %v", res.Diagnostics)
	}
	if len(res.Annotated.Funcs) != len(m.Funcs) {
		t.Fatalf("annotated module has %d funcs, want %d", len(res.Annotated.Funcs), len(m.Funcs))
	}
	for i, fn := range res.Annotated.Funcs {
		if fn == nil || fn.Name != m.Funcs[i].Name {
			t.Fatalf("function %d not annotated in order", i)
		}
		if fn == m.Funcs[i] {
			t.Fatalf("%s: annotated function aliases the input", fn.Name)
		}
	}
	if sink.count("main", StatusDone) != 1 {
		t.Fatalf("expected one done event for main")
	}
	if len(timer.Report().Phases) != 1 {
		t.Fatalf("expected the borrowck phase to be timed")
	}
}

func TestCheckModuleMergesDiagnostics(t *testing.T) {
	res, err := CheckModule(context.Background(), brokenModule(t), Options{Jobs: 1})
	if err != nil {
		t.Fatalf("CheckModule: %v", err)
	}
	if !res.HasErrors() || res.Annotated != nil {
		t.Fatalf("expected errors and no annotated module")
	}
	if res.Diagnostics[0].Code != diag.BrkUseAfterMove {
		t.Fatalf("first diagnostic = %s", res.Diagnostics[0].Code.ID())
	}
}

func TestCacheServesSecondRun(t *testing.T) {
	cache, err := OpenDiskCache(t.TempDir())
	if err != nil {
		t.Fatalf("open cache: %v", err)
	}
	opts := Options{Cache: cache}

	m, err := hirtest.Reassign()
	if err != nil {
		t.Fatalf("fixture: %v", err)
	}
	first, err := CheckModule(context.Background(), m, opts)
	if err != nil {
		t.Fatalf("first run: %v", err)
	}
	if first.CacheHits() != 0 {
		t.Fatalf("cold cache reported %d hits", first.CacheHits())
	}

	second, err := CheckModule(context.Background(), m, opts)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if second.CacheHits() != len(m.Funcs) {
		t.Fatalf("warm cache hits = %d, want %d", second.CacheHits(), len(m.Funcs))
	}
	for i := range first.Funcs {
		a := hir.DumpFunc(first.Funcs[i].Func, m.Facts())
		b := hir.DumpFunc(second.Funcs[i].Func, m.Facts())
		if a != b {
			t.Fatalf("%s: cached annotation differs:\n%s\n---\n%s", first.Funcs[i].Name, a, b)
		}
	}

	// a different iteration limit is a different environment
	third, err := CheckModule(context.Background(), m, Options{Cache: cache, MaxIterations: 7})
	if err != nil {
		t.Fatalf("third run: %v", err)
	}
	if third.CacheHits() != 0 {
		t.Fatalf("changed options must miss the cache")
	}

	if err := cache.DropAll(); err != nil {
		t.Fatalf("DropAll: %v", err)
	}
	if _, ok, _ := cache.Get(Digest{}); ok {
		t.Fatalf("empty key must miss")
	}
}

func TestCheckFileReportsLoadErrors(t *testing.T) {
	dir := t.TempDir()
	res, err := CheckFile(context.Background(), filepath.Join(dir, "missing.yaml"), Options{})
	if err != nil {
		t.Fatalf("CheckFile: %v", err)
	}
	if len(res.Diagnostics) != 1 || res.Diagnostics[0].Code != diag.IOLoadFileError {
		t.Fatalf("expected IOLoadFileError, got %v", res.Diagnostics)
	}

	m, err := hirtest.NestedDrops()
	if err != nil {
		t.Fatalf("fixture: %v", err)
	}
	m.Version = "3.1.0"
	path := filepath.Join(dir, "future.mp")
	if err := hirio.Save(path, m, hirio.FormatAuto); err != nil {
		t.Fatalf("save: %v", err)
	}
	res, err = CheckFile(context.Background(), path, Options{})
	if err != nil {
		t.Fatalf("CheckFile: %v", err)
	}
	if len(res.Diagnostics) != 1 || res.Diagnostics[0].Code != diag.IRSchemaMismatch {
		t.Fatalf("expected IRSchemaMismatch, got %v", res.Diagnostics)
	}

	bad := filepath.Join(dir, "bad.yaml")
	if err := os.WriteFile(bad, []byte("version: 1.0.0\nfuncs: 12\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	res, err = CheckFile(context.Background(), bad, Options{})
	if err != nil {
		t.Fatalf("CheckFile: %v", err)
	}
	if len(res.Diagnostics) != 1 || res.Diagnostics[0].Code != diag.IRMalformed {
		t.Fatalf("expected IRMalformed, got %v", res.Diagnostics)
	}
}

func TestCheckModuleHonoursCancellation(t *testing.T) {
	m, err := hirtest.NestedDrops()
	if err != nil {
		t.Fatalf("fixture: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := CheckModule(ctx, m, Options{}); err == nil {
		t.Fatalf("expected cancellation error")
	}
}
