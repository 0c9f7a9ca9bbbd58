package vm

import (
	"context"
	"errors"
	"testing"

	"brick/internal/borrowck"
	"brick/internal/hir"
	"brick/internal/hir/hirtest"
)

// annotate checks every function and replaces it with its annotated copy.
func annotate(t *testing.T, m *hir.Module) *hir.Module {
	t.Helper()
	out := m.ShallowCopy()
	for i, fn := range m.Funcs {
		res, err := borrowck.Check(context.Background(), m, fn, borrowck.Options{})
		if err != nil {
			t.Fatalf("check %s: %v", fn.Name, err)
		}
		if res.Func == nil {
			for _, d := range res.Diagnostics {
				t.Logf("%s: %s", d.Code, d.Message)
			}
			t.Fatalf("check %s reported errors", fn.Name)
		}
		out.Funcs[i] = res.Func
	}
	return out
}

func run(t *testing.T, m *hir.Module) *VM {
	t.Helper()
	machine := New(m, Options{})
	if _, err := machine.Run(context.Background(), "main"); err != nil {
		t.Fatalf("run: %v", err)
	}
	return machine
}

func global(t *testing.T, machine *VM, name string) int64 {
	t.Helper()
	v, ok := machine.Global(name)
	if !ok {
		t.Fatalf("global %q not found", name)
	}
	return v
}

func TestNestedDropsRunParentFirst(t *testing.T) {
	m, err := hirtest.NestedDrops()
	if err != nil {
		t.Fatalf("fixture: %v", err)
	}
	machine := run(t, annotate(t, m))
	if got := global(t, machine, "counter"); got != 4 {
		t.Fatalf("counter = %d, want 4", got)
	}
	if got := global(t, machine, "order"); got != 9123 {
		t.Fatalf("order = %d, want 9123", got)
	}
}

func TestReassignmentDropsOldValue(t *testing.T) {
	m, err := hirtest.Reassign()
	if err != nil {
		t.Fatalf("fixture: %v", err)
	}
	machine := run(t, annotate(t, m))
	if got := global(t, machine, "counter"); got != 4 {
		t.Fatalf("counter = %d, want 4", got)
	}
	if got := global(t, machine, "iterations"); got != 0 {
		t.Fatalf("loop ran %d iterations, want 0", got)
	}
}

func TestUnannotatedProgramLeaks(t *testing.T) {
	m, err := hirtest.NestedDrops()
	if err != nil {
		t.Fatalf("fixture: %v", err)
	}
	_, err = New(m, Options{}).Run(context.Background(), "main")
	var vmErr *VMError
	if !errors.As(err, &vmErr) || vmErr.Code != PanicLeak {
		t.Fatalf("expected leak panic, got %v", err)
	}
	if len(vmErr.Backtrace) == 0 || vmErr.Backtrace[0].FuncName != "main" {
		t.Fatalf("expected backtrace starting at main, got %+v", vmErr.Backtrace)
	}
}

func TestJoinDropsRunExactlyOnce(t *testing.T) {
	for _, taken := range []int64{0, 1} {
		tk := hirtest.NewToken("join")
		b := tk.B
		x := b.Var("t", tk.R)
		b.Func("main", b.Unit, nil,
			x.Let(tk.New()),
			hir.If(hir.Lit(b.Bool, taken), hir.Blk(tk.Consume(x.Ref())), nil),
		)
		m, err := b.Build()
		if err != nil {
			t.Fatalf("build: %v", err)
		}
		machine := run(t, annotate(t, m))
		// R's destructor plus both Res fields, whichever branch ran.
		if got := global(t, machine, "drops"); got != 3 {
			t.Fatalf("taken=%d: drops = %d, want 3", taken, got)
		}
	}
}

func TestPartialMoveDropsRemainder(t *testing.T) {
	tk := hirtest.NewToken("partial")
	b := tk.B
	x := b.Var("t", tk.R)
	b.Func("main", b.Unit, nil,
		x.Let(tk.New()),
		tk.ConsumeRes(hir.FieldOf(x.Ref(), 0, tk.Res)),
	)
	m, err := b.Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	machine := run(t, annotate(t, m))
	// t.a dropped inside consume_res, t.b by the remainder drop; R's own
	// destructor never runs.
	if got := global(t, machine, "drops"); got != 2 {
		t.Fatalf("drops = %d, want 2", got)
	}
}

func TestLoopWithBreakDropsEachIteration(t *testing.T) {
	tk := hirtest.NewToken("loop")
	b := tk.B
	b.Global("i", 0)
	u := b.Var("u", tk.R)
	b.Func("main", b.Unit, nil,
		hir.While(hir.Lit(b.Bool, 1), hir.Blk(
			u.Let(tk.New()),
			hirtest.Incr(b.G("i"), 1),
			hir.If(hir.Binary(hir.OpGe, b.G("i"), hir.Lit(b.Int, 3), b.Bool), hir.Blk(hir.Break()), nil),
		)),
	)
	m, err := b.Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	machine := run(t, annotate(t, m))
	if got := global(t, machine, "drops"); got != 9 {
		t.Fatalf("drops = %d, want 9", got)
	}
}

func TestStepLimit(t *testing.T) {
	b := hirtest.New("spin")
	b.Func("main", b.Unit, nil, hir.While(hir.Lit(b.Bool, 1), hir.Blk()))
	m, err := b.Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	_, err = New(m, Options{MaxSteps: 100}).Run(context.Background(), "main")
	var vmErr *VMError
	if !errors.As(err, &vmErr) || vmErr.Code != PanicStepLimit {
		t.Fatalf("expected step limit panic, got %v", err)
	}
}
