package borrowck

import (
	"testing"

	"brick/internal/cfg"
	"brick/internal/hir"
	"brick/internal/hir/hirtest"
	"brick/internal/source"
)

func newStateFixture(t *testing.T) (*PathTable, PathID, PathID, PathID) {
	t.Helper()
	tk := hirtest.NewToken("state")
	b := tk.B
	x := b.Var("t", tk.R)
	fn := b.Func("main", b.Unit, nil, x.Let(tk.New()))
	m, err := b.Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	pt := NewPathTable(fn, m.Facts())
	root := pt.Root(0)
	a, _ := pt.Normalize(hir.FieldOf(x.Ref(), 0, tk.Res))
	bf, _ := pt.Normalize(hir.FieldOf(x.Ref(), 1, tk.Res))
	return pt, root, a, bf
}

func TestMarkMovedKeepsSetMinimal(t *testing.T) {
	pt, root, a, bf := newStateFixture(t)
	st := newFlowState(pt.Slots())
	st.declare(pt, 0, true, source.Span{})

	st.markMoved(pt, a, moveEntry{})
	st.markMoved(pt, bf, moveEntry{})
	if n := len(st.locals[0].moved); n != 2 {
		t.Fatalf("expected two entries, got %d", n)
	}
	st.markMoved(pt, root, moveEntry{})
	if n := len(st.locals[0].moved); n != 1 || st.locals[0].moved[0].path != root {
		t.Fatalf("moving the root must absorb field entries, got %+v", st.locals[0].moved)
	}
	st.reinit(pt, root)
	if len(st.locals[0].moved) != 0 {
		t.Fatalf("reinit must clear the moved set")
	}
}

func TestJoinOrigins(t *testing.T) {
	pt, root, a, _ := newStateFixture(t)
	owned := newFlowState(pt.Slots())
	owned.declare(pt, 0, true, source.Span{})
	moved := owned.clone()
	moved.markMoved(pt, a, moveEntry{})

	both := join(pt, []*flowState{moved, moved.clone()}, []bool{false, false}, false, cfg.NoLoop)
	if e, ok := both.covering(pt, a); !ok || e.origin != originMoved {
		t.Fatalf("agreeing edges must keep the move, got %+v", e)
	}

	some := join(pt, []*flowState{owned, moved}, []bool{false, false}, false, cfg.NoLoop)
	if e, ok := some.covering(pt, a); !ok || e.origin != originConditional {
		t.Fatalf("disagreeing edges must yield a conditional move, got %+v", e)
	}
	if e, _ := some.covering(pt, a); e.joinLoop != cfg.NoLoop {
		t.Fatalf("join outside loops must record NoLoop, got %d", e.joinLoop)
	}
	inLoop := join(pt, []*flowState{owned, moved}, []bool{false, false}, false, 3)
	if e, _ := inLoop.covering(pt, a); e.joinLoop != 3 {
		t.Fatalf("conditional join must remember its loop, got %d", e.joinLoop)
	}
	later := join(pt, []*flowState{some, some.clone()}, []bool{false, false}, false, 3)
	if e, _ := later.covering(pt, a); e.origin != originConditional || e.joinLoop != cfg.NoLoop {
		t.Fatalf("agreeing edges must keep the original join loop, got %+v", e)
	}
	if _, ok := some.covering(pt, root); ok {
		t.Fatalf("the root itself is not moved")
	}

	header := join(pt, []*flowState{owned, moved}, []bool{false, true}, true, 0)
	if e, ok := header.covering(pt, a); !ok || e.origin != originLoopCarried {
		t.Fatalf("back-edge-only move at a loop header must be loop-carried, got %+v", e)
	}
}
