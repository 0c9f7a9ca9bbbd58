package borrowck

import (
	"context"
	"strings"
	"testing"

	"brick/internal/diag"
	"brick/internal/hir"
	"brick/internal/hir/hirtest"
	"brick/internal/types"
)

func checkFunc(t *testing.T, m *hir.Module, name string) *Result {
	t.Helper()
	fn := m.Func(name)
	if fn == nil {
		t.Fatalf("function %q not found", name)
	}
	res, err := Check(context.Background(), m, fn, Options{})
	if err != nil {
		t.Fatalf("Check(%s): %v", name, err)
	}
	return res
}

func expectClean(t *testing.T, res *Result) {
	t.Helper()
	if res.HasErrors() || res.Func == nil {
		for _, d := range res.Diagnostics {
			t.Logf("%s: %s", d.Code, d.Message)
		}
		t.Fatalf("expected no diagnostics, got %d", len(res.Diagnostics))
	}
}

func expectCode(t *testing.T, res *Result, code diag.Code) diag.Diagnostic {
	t.Helper()
	for _, d := range res.Diagnostics {
		if d.Code == code {
			if res.Func != nil {
				t.Fatalf("annotated function returned despite %s", code)
			}
			return d
		}
	}
	for _, d := range res.Diagnostics {
		t.Logf("%s: %s", d.Code, d.Message)
	}
	t.Fatalf("expected %s, got %d other diagnostics", code, len(res.Diagnostics))
	return diag.Diagnostic{}
}

// allDrops lists every drop recorded in b in statement order.
func allDrops(b *hir.Block) []hir.Drop {
	var out []hir.Drop
	hir.WalkStmts(b, func(s *hir.Stmt) {
		out = append(out, s.Drops...)
		out = append(out, s.ExitDrops...)
		out = append(out, s.BackDrops...)
	})
	return out
}

func destructors(ops []hir.DropOp) []string {
	var out []string
	for _, op := range ops {
		switch op.Kind {
		case hir.DropOpDestructor:
			out = append(out, op.Func)
		case hir.DropOpVariant:
			for _, c := range op.Cases {
				out = append(out, destructors(c.Ops)...)
			}
		}
	}
	return out
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestNestedDropOrder(t *testing.T) {
	m, err := hirtest.NestedDrops()
	if err != nil {
		t.Fatalf("fixture: %v", err)
	}
	res := checkFunc(t, m, "main")
	expectClean(t, res)

	last := res.Func.Body.LastStmt()
	if last == nil || last.Kind != hir.StmtDrop || len(last.Drops) != 1 {
		t.Fatalf("expected a trailing drop statement, got %+v", last)
	}
	d := last.Drops[0]
	if d.Reason != hir.DropScopeExit || d.Partial {
		t.Fatalf("unexpected drop %+v", d)
	}
	want := []string{"drop_outer", "drop_inner", "drop_inner", "drop_inner"}
	if got := destructors(d.Ops); !equalStrings(got, want) {
		t.Fatalf("drop order = %v, want %v", got, want)
	}
	for i, op := range d.Ops[1:] {
		if len(op.Place.Proj) != 1 || op.Place.Proj[0].Index != i {
			t.Fatalf("op %d drops %+v, want field %d", i+1, op.Place, i)
		}
	}
}

func TestReassignDropsBeforeStore(t *testing.T) {
	m, err := hirtest.Reassign()
	if err != nil {
		t.Fatalf("fixture: %v", err)
	}
	res := checkFunc(t, m, "main")
	expectClean(t, res)

	nested := res.Func.Body.Stmts[1]
	if nested.Kind != hir.StmtBlock {
		t.Fatalf("expected nested block, got %s", nested.Kind)
	}
	for i, s := range nested.Body.Stmts {
		if s.Kind != hir.StmtAssign {
			t.Fatalf("stmt %d: expected assign, got %s", i, s.Kind)
		}
		if len(s.Drops) != 1 || s.Drops[0].Reason != hir.DropReassign {
			t.Fatalf("stmt %d: expected one reassign drop, got %+v", i, s.Drops)
		}
		if got := destructors(s.Drops[0].Ops); !equalStrings(got, []string{"drop_data"}) {
			t.Fatalf("stmt %d: drop ops %v", i, got)
		}
		if read := s.Value.Args[0]; read.Access != hir.AccessCopy {
			t.Fatalf("stmt %d: x.x read has access %s, want copy", i, read.Access)
		}
	}
	var scopeExit int
	for _, d := range allDrops(res.Func.Body) {
		if d.Reason == hir.DropScopeExit {
			scopeExit++
		}
	}
	if scopeExit != 1 {
		t.Fatalf("expected exactly one scope-exit drop of x, got %d", scopeExit)
	}
}

func TestUseAfterMove(t *testing.T) {
	tk := hirtest.NewToken("uam")
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
	d := expectCode(t, checkFunc(t, m, "main"), diag.BrkUseAfterMove)
	if len(d.Notes) == 0 {
		t.Fatalf("expected a note pointing at the first move")
	}
}

func TestUninitializedUse(t *testing.T) {
	tk := hirtest.NewToken("uninit")
	b := tk.B
	x := b.Var("t", tk.R)
	b.Func("main", b.Unit, nil,
		x.Let(nil),
		tk.Consume(x.Ref()),
	)
	m, err := b.Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	expectCode(t, checkFunc(t, m, "main"), diag.BrkUseAfterMove)
}

func TestDeferredInitIsDropped(t *testing.T) {
	tk := hirtest.NewToken("deferred")
	b := tk.B
	x := b.Var("t", tk.R)
	b.Func("main", b.Unit, nil,
		x.Let(nil),
		hir.Assign(x.Ref(), tk.New()),
	)
	m, err := b.Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	res := checkFunc(t, m, "main")
	expectClean(t, res)
	assign := res.Func.Body.Stmts[1]
	if len(assign.Drops) != 0 {
		t.Fatalf("assignment to uninitialized local must not drop, got %+v", assign.Drops)
	}
	if last := res.Func.Body.LastStmt(); last.Kind != hir.StmtDrop {
		t.Fatalf("expected scope-exit drop, got %s", last.Kind)
	}
}

func TestPartialMove(t *testing.T) {
	tk := hirtest.NewToken("partial")
	b := tk.B
	x := b.Var("t", tk.R)
	b.Func("main", b.Unit, nil,
		x.Let(tk.New()),
		tk.ConsumeRes(hir.FieldOf(x.Ref(), 0, tk.Res)),
	)
	y := b.Var("u", tk.R)
	b.Func("whole", b.Unit, nil,
		y.Let(tk.New()),
		tk.ConsumeRes(hir.FieldOf(y.Ref(), 0, tk.Res)),
		tk.Consume(y.Ref()),
	)
	m, err := b.Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	res := checkFunc(t, m, "main")
	expectClean(t, res)
	last := res.Func.Body.LastStmt()
	if last.Kind != hir.StmtDrop || len(last.Drops) != 1 {
		t.Fatalf("expected remainder drop, got %+v", last)
	}
	d := last.Drops[0]
	if !d.Partial {
		t.Fatalf("expected partial drop")
	}
	if got := destructors(d.Ops); !equalStrings(got, []string{"drop_res"}) {
		t.Fatalf("remainder ops = %v, want only t.b", got)
	}
	if pl := d.Ops[0].Place; len(pl.Proj) != 1 || pl.Proj[0].Index != 1 {
		t.Fatalf("remainder drops %+v, want t.b", pl)
	}

	expectCode(t, checkFunc(t, m, "whole"), diag.BrkPartialMoveViolation)
}

func TestBorrowExclusivity(t *testing.T) {
	tk := hirtest.NewToken("excl")
	b := tk.B
	shared := b.Ref(tk.R, false)
	unique := b.Ref(tk.R, true)

	x := b.Var("t", tk.R)
	r1, r2 := b.Var("r1", shared), b.Var("r2", unique)
	b.Func("conflict", b.Unit, nil,
		x.Let(tk.New()),
		r1.Let(hir.Borrow(x.Ref(), false, shared)),
		r2.Let(hir.Borrow(x.Ref(), true, unique)),
	)

	y := b.Var("t", tk.R)
	s1, s2 := b.Var("s1", shared), b.Var("s2", shared)
	b.Func("shared", b.Unit, nil,
		y.Let(tk.New()),
		s1.Let(hir.Borrow(y.Ref(), false, shared)),
		s2.Let(hir.Borrow(y.Ref(), false, shared)),
	)

	z := b.Var("t", tk.R)
	u1 := b.Var("u1", unique)
	b.Func("readWhileUnique", b.Int, nil,
		z.Let(tk.New()),
		u1.Let(hir.Borrow(z.Ref(), true, unique)),
		hir.Return(hir.FieldOf(z.Ref(), 2, b.Int)),
	)
	m, err := b.Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	d := expectCode(t, checkFunc(t, m, "conflict"), diag.BrkBorrowConflict)
	if len(d.Notes) == 0 {
		t.Fatalf("expected a note at the earlier borrow")
	}
	res := checkFunc(t, m, "shared")
	expectClean(t, res)
	if got := res.Func.Body.Stmts[1].Value.X.Access; got != hir.AccessShared {
		t.Fatalf("borrowed place access = %s, want shared", got)
	}
	expectCode(t, checkFunc(t, m, "readWhileUnique"), diag.BrkBorrowConflict)
}

func TestDisjointFields(t *testing.T) {
	tk := hirtest.NewToken("disjoint")
	b := tk.B
	ures := b.Ref(tk.Res, true)
	x := b.Var("t", tk.R)
	ra, rb := b.Var("ra", ures), b.Var("rb", ures)
	b.Func("borrows", b.Unit, nil,
		x.Let(tk.New()),
		ra.Let(hir.Borrow(hir.FieldOf(x.Ref(), 0, tk.Res), true, ures)),
		rb.Let(hir.Borrow(hir.FieldOf(x.Ref(), 1, tk.Res), true, ures)),
	)
	y := b.Var("u", tk.R)
	rk := b.Var("rk", ures)
	b.Func("moveBesideBorrow", b.Unit, nil,
		y.Let(tk.New()),
		rk.Let(hir.Borrow(hir.FieldOf(y.Ref(), 1, tk.Res), true, ures)),
		tk.ConsumeRes(hir.FieldOf(y.Ref(), 0, tk.Res)),
	)
	z := b.Var("w", tk.R)
	rw := b.Var("rw", ures)
	b.Func("moveUnderBorrow", b.Unit, nil,
		z.Let(tk.New()),
		rw.Let(hir.Borrow(hir.FieldOf(z.Ref(), 1, tk.Res), true, ures)),
		tk.Consume(z.Ref()),
	)
	m, err := b.Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	expectClean(t, checkFunc(t, m, "borrows"))
	expectClean(t, checkFunc(t, m, "moveBesideBorrow"))
	expectCode(t, checkFunc(t, m, "moveUnderBorrow"), diag.BrkBorrowWhileLent)
}

func TestConditionalMoveInLoopIsUnstable(t *testing.T) {
	tk := hirtest.NewToken("loop")
	b := tk.B
	x := b.Var("t", tk.R)
	n := b.Var("n", b.Int)
	b.Func("main", b.Unit, nil,
		x.Let(tk.New()),
		hir.While(hir.Lit(b.Bool, 1), hir.Blk(
			hir.If(hir.Lit(b.Bool, 1), hir.Blk(tk.Consume(x.Ref())), nil),
			n.Let(hir.FieldOf(x.Ref(), 2, b.Int)),
		)),
	)
	m, err := b.Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	expectCode(t, checkFunc(t, m, "main"), diag.BrkUnstableLoopOwnership)
}

func TestLoopCarriedMove(t *testing.T) {
	tk := hirtest.NewToken("carried")
	b := tk.B
	x := b.Var("t", tk.R)
	b.Func("main", b.Unit, nil,
		x.Let(tk.New()),
		hir.While(hir.Lit(b.Bool, 1), hir.Blk(tk.Consume(x.Ref()))),
	)
	m, err := b.Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	expectCode(t, checkFunc(t, m, "main"), diag.BrkUnstableLoopOwnership)
}

func TestMoveAndReinitInLoop(t *testing.T) {
	tk := hirtest.NewToken("reinit")
	b := tk.B
	x := b.Var("t", tk.R)
	b.Func("main", b.Unit, nil,
		x.Let(tk.New()),
		hir.While(hir.Lit(b.Bool, 1), hir.Blk(
			tk.Consume(x.Ref()),
			hir.Assign(x.Ref(), hir.Call("make", tk.R)),
		)),
	)
	m, err := b.Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	res := checkFunc(t, m, "main")
	expectClean(t, res)
	loop := res.Func.Body.Stmts[1]
	if d := loop.Body.Stmts[1].Drops; len(d) != 0 {
		t.Fatalf("store into moved local must not drop, got %+v", d)
	}
}

func TestConditionalMoveGetsJoinDrop(t *testing.T) {
	tk := hirtest.NewToken("join")
	b := tk.B
	x := b.Var("t", tk.R)
	b.Func("main", b.Unit, nil,
		x.Let(tk.New()),
		hir.If(hir.Lit(b.Bool, 1), hir.Blk(tk.Consume(x.Ref())), nil),
	)
	m, err := b.Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	res := checkFunc(t, m, "main")
	expectClean(t, res)

	ifs := res.Func.Body.Stmts[1]
	if ifs.Else == nil || len(ifs.Else.Stmts) != 1 || ifs.Else.Stmts[0].Kind != hir.StmtDrop {
		t.Fatalf("expected synthesized else branch with a drop, got %+v", ifs.Else)
	}
	if d := ifs.Else.Stmts[0].Drops[0]; d.Reason != hir.DropJoin {
		t.Fatalf("else drop reason = %s, want join", d.Reason)
	}
	for _, d := range allDrops(res.Func.Body) {
		if d.Reason == hir.DropScopeExit {
			t.Fatalf("moved-on-some-path local must not be dropped again at scope exit")
		}
	}
}

func TestBreakExitsScopes(t *testing.T) {
	tk := hirtest.NewToken("brk")
	b := tk.B
	u := b.Var("u", tk.R)
	b.Func("main", b.Unit, nil,
		hir.While(hir.Lit(b.Bool, 1), hir.Blk(
			u.Let(tk.New()),
			hir.If(hir.Lit(b.Bool, 1), hir.Blk(hir.Break()), nil),
		)),
	)
	m, err := b.Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	res := checkFunc(t, m, "main")
	expectClean(t, res)
	then := res.Func.Body.Stmts[0].Body.Stmts[1].Then
	if len(then.Stmts) != 2 || then.Stmts[0].Kind != hir.StmtDrop || then.Stmts[1].Kind != hir.StmtBreak {
		t.Fatalf("expected drop before break, got %d stmts", len(then.Stmts))
	}
}

func TestNotAPath(t *testing.T) {
	tk := hirtest.NewToken("nap")
	b := tk.B
	shared := b.Ref(tk.R, false)
	r := b.Var("r", shared)
	b.Func("refTemp", b.Unit, nil,
		r.Let(hir.Borrow(hir.Call("make", tk.R), false, shared)),
	)
	b.Func("moveFieldOfTemp", b.Unit, nil,
		tk.ConsumeRes(hir.FieldOf(hir.Call("make", tk.R), 0, tk.Res)),
	)
	m, err := b.Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	expectCode(t, checkFunc(t, m, "refTemp"), diag.BrkNotAPath)
	expectCode(t, checkFunc(t, m, "moveFieldOfTemp"), diag.BrkNotAPath)
}

func TestReferenceEscapes(t *testing.T) {
	tk := hirtest.NewToken("escape")
	b := tk.B
	shared := b.Ref(tk.R, false)
	x := b.Var("t", tk.R)
	b.Func("returnRef", shared, nil,
		x.Let(tk.New()),
		hir.Return(hir.Borrow(x.Ref(), false, shared)),
	)
	r := b.Var("r", shared)
	y := b.Var("t", tk.R)
	b.Func("outlive", b.Unit, nil,
		r.Let(nil),
		hir.Nested(hir.Blk(
			y.Let(tk.New()),
			hir.Assign(r.Ref(), hir.Borrow(y.Ref(), false, shared)),
		)),
	)
	p := b.Var("p", shared)
	b.Func("passThrough", shared, []hirtest.Var{p},
		hir.Return(hir.Borrow(hir.Deref(p.Ref(), tk.R), false, shared)),
	)
	m, err := b.Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	expectCode(t, checkFunc(t, m, "returnRef"), diag.BrkBorrowWhileLent)
	expectCode(t, checkFunc(t, m, "outlive"), diag.BrkBorrowWhileLent)
	expectClean(t, checkFunc(t, m, "passThrough"))
}

func TestWriteThroughReference(t *testing.T) {
	tk := hirtest.NewToken("write")
	b := tk.B
	shared := b.Ref(tk.R, false)
	unique := b.Ref(tk.R, true)
	s := b.Var("s", shared)
	b.Func("viaShared", b.Unit, []hirtest.Var{s},
		hir.Assign(hir.FieldOf(s.Ref(), 2, b.Int), hir.Lit(b.Int, 1)),
	)
	u := b.Var("u", unique)
	b.Func("viaUnique", b.Unit, []hirtest.Var{u},
		hir.Assign(hir.FieldOf(u.Ref(), 2, b.Int), hir.Lit(b.Int, 1)),
		hir.Assign(hir.FieldOf(u.Ref(), 0, tk.Res), hir.StructLit(tk.Res)),
	)
	m, err := b.Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	expectCode(t, checkFunc(t, m, "viaShared"), diag.BrkBorrowConflict)
	res := checkFunc(t, m, "viaUnique")
	expectClean(t, res)
	d := res.Func.Body.Stmts[1].Drops
	if len(d) != 1 || !d[0].Place.Deref {
		t.Fatalf("expected reassign drop through the reference, got %+v", d)
	}
}

func TestDiscardedTemporaryIsDropped(t *testing.T) {
	tk := hirtest.NewToken("discard")
	b := tk.B
	b.Func("main", b.Unit, nil, hir.ExprStmt(hir.Call("make", tk.R)))
	m, err := b.Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	res := checkFunc(t, m, "main")
	expectClean(t, res)
	d := res.Func.Body.Stmts[0].Drops
	if len(d) != 1 || d[0].Reason != hir.DropDiscard || d[0].Place.Root != hir.RootTemp {
		t.Fatalf("expected discard drop, got %+v", d)
	}
}

func TestUnionDropSwitchesOnVariant(t *testing.T) {
	tk := hirtest.NewToken("union")
	b := tk.B
	u := b.Union("Either", types.Field{Name: "res", Type: tk.Res}, types.Field{Name: "n", Type: b.Int})
	x := b.Var("e", u)
	b.Func("main", b.Unit, nil, x.Let(hir.UnionLit(u, 0, hir.StructLit(tk.Res))))
	m, err := b.Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	res := checkFunc(t, m, "main")
	expectClean(t, res)
	last := res.Func.Body.LastStmt()
	if last.Kind != hir.StmtDrop {
		t.Fatalf("expected drop of union local")
	}
	ops := last.Drops[0].Ops
	if len(ops) != 1 || ops[0].Kind != hir.DropOpVariant || len(ops[0].Cases) != 1 || ops[0].Cases[0].Variant != 0 {
		t.Fatalf("unexpected union drop ops %+v", ops)
	}
}

func TestDeterministicOutput(t *testing.T) {
	m, err := hirtest.Reassign()
	if err != nil {
		t.Fatalf("fixture: %v", err)
	}
	first := checkFunc(t, m, "main")
	second := checkFunc(t, m, "main")
	a := hir.DumpFunc(first.Func, m.Facts())
	b := hir.DumpFunc(second.Func, m.Facts())
	if a != b {
		t.Fatalf("annotated output differs between runs:\n%s\n---\n%s", a, b)
	}
	if len(m.Func("main").Body.Stmts[1].Body.Stmts[0].Drops) != 0 {
		t.Fatalf("Check modified its input")
	}
}

func TestEventsRecorded(t *testing.T) {
	tk := hirtest.NewToken("events")
	b := tk.B
	shared := b.Ref(tk.R, false)
	x := b.Var("t", tk.R)
	r := b.Var("r", shared)
	b.Func("main", b.Unit, nil,
		x.Let(tk.New()),
		hir.Nested(hir.Blk(r.Let(hir.Borrow(x.Ref(), false, shared)))),
		tk.Consume(x.Ref()),
	)
	m, err := b.Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	res := checkFunc(t, m, "main")
	expectClean(t, res)
	var kinds []string
	for _, e := range res.Events {
		kinds = append(kinds, e.Kind.String())
	}
	want := []string{"borrow_start", "borrow_end", "move"}
	if !equalStrings(kinds, want) {
		t.Fatalf("events = %v, want %v", kinds, want)
	}
}

// newHolder registers `Holder{r: &R, n: int}`, a Value struct keeping a
// shared reference.
func newHolder(tk *hirtest.Token) (holder, shared types.TypeID) {
	b := tk.B
	shared = b.Ref(tk.R, false)
	holder = b.Struct("Holder",
		types.Field{Name: "r", Type: shared},
		types.Field{Name: "n", Type: b.Int},
	)
	return holder, shared
}

func TestMoveThroughStoredReference(t *testing.T) {
	tk := hirtest.NewToken("stored")
	b := tk.B
	holder, shared := newHolder(tk)
	x := b.Var("x", tk.R)
	h := b.Var("h", holder)
	through := func(field int, ty types.TypeID) *hir.Expr {
		return hir.FieldOf(hir.FieldOf(h.Ref(), 0, shared), field, ty)
	}
	b.Func("moveOut", b.Unit, nil,
		x.Let(tk.New()),
		h.Let(hir.StructLit(holder, hir.Borrow(x.Ref(), false, shared), hir.Lit(b.Int, 0))),
		tk.ConsumeRes(through(0, tk.Res)),
	)
	x2 := b.Var("x", tk.R)
	h2 := b.Var("h", holder)
	n := b.Var("n", b.Int)
	b.Func("copyOut", b.Unit, nil,
		x2.Let(tk.New()),
		h2.Let(hir.StructLit(holder, hir.Borrow(x2.Ref(), false, shared), hir.Lit(b.Int, 0))),
		n.Let(hir.FieldOf(hir.FieldOf(h2.Ref(), 0, shared), 2, b.Int)),
	)
	m, err := b.Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	d := expectCode(t, checkFunc(t, m, "moveOut"), diag.BrkBorrowConflict)
	if !strings.Contains(d.Message, "h.r.a") {
		t.Fatalf("message should name the place: %q", d.Message)
	}
	expectClean(t, checkFunc(t, m, "copyOut"))
}

func TestReferenceEscapesInAggregate(t *testing.T) {
	tk := hirtest.NewToken("wrapped")
	b := tk.B
	holder, shared := newHolder(tk)

	x := b.Var("x", tk.R)
	b.Func("literal", holder, nil,
		x.Let(tk.New()),
		hir.Return(hir.StructLit(holder, hir.Borrow(x.Ref(), false, shared), hir.Lit(b.Int, 0))),
	)
	y := b.Var("y", tk.R)
	h := b.Var("h", holder)
	b.Func("viaLocal", holder, nil,
		y.Let(tk.New()),
		h.Let(hir.StructLit(holder, hir.Borrow(y.Ref(), false, shared), hir.Lit(b.Int, 0))),
		hir.Return(h.Ref()),
	)
	z := b.Var("z", tk.R)
	h2 := b.Var("h", holder)
	b.Func("plainField", b.Int, nil,
		z.Let(tk.New()),
		h2.Let(hir.StructLit(holder, hir.Borrow(z.Ref(), false, shared), hir.Lit(b.Int, 7))),
		hir.Return(hir.FieldOf(h2.Ref(), 1, b.Int)),
	)
	p := b.Var("p", shared)
	b.Func("forwardParam", holder, []hirtest.Var{p},
		hir.Return(hir.StructLit(holder, p.Ref(), hir.Lit(b.Int, 0))),
	)
	m, err := b.Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	expectCode(t, checkFunc(t, m, "literal"), diag.BrkBorrowWhileLent)
	expectCode(t, checkFunc(t, m, "viaLocal"), diag.BrkBorrowWhileLent)
	expectClean(t, checkFunc(t, m, "plainField"))
	expectClean(t, checkFunc(t, m, "forwardParam"))
}

func TestConditionalMoveBeforeLoop(t *testing.T) {
	tk := hirtest.NewToken("before")
	b := tk.B
	x := b.Var("x", tk.R)
	n := b.Var("n", b.Int)
	b.Func("main", b.Unit, nil,
		x.Let(tk.New()),
		n.Let(hir.Lit(b.Int, 0)),
		hir.If(hir.Lit(b.Bool, 1), hir.Blk(tk.Consume(x.Ref())), nil),
		hir.While(hir.Lit(b.Bool, 1), hir.Blk(
			hir.Assign(n.Ref(), hir.FieldOf(x.Ref(), 2, b.Int)),
		)),
	)
	m, err := b.Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	res := checkFunc(t, m, "main")
	d := expectCode(t, res, diag.BrkUseAfterMove)
	if !strings.Contains(d.Message, "possibly moved") {
		t.Fatalf("unexpected message %q", d.Message)
	}
	for _, d := range res.Diagnostics {
		if d.Code == diag.BrkUnstableLoopOwnership {
			t.Fatalf("a move joined before the loop is not iteration dependent: %s", d.Message)
		}
	}
}

func TestReceiverModes(t *testing.T) {
	cases := []struct {
		name string
		body func(tk *hirtest.Token) []*hir.Stmt
		want diag.Code // UnknownCode means clean
	}{
		{
			name: "ref receiver leases only for the call",
			body: func(tk *hirtest.Token) []*hir.Stmt {
				x := tk.B.Var("x", tk.R)
				return []*hir.Stmt{
					x.Let(tk.New()),
					hir.ExprStmt(hir.MethodCall("peek", tk.B.Unit, x.Ref(), hir.RecvRef)),
					tk.Consume(x.Ref()),
				}
			},
		},
		{
			name: "unique receiver under a shared lease",
			body: func(tk *hirtest.Token) []*hir.Stmt {
				x := tk.B.Var("x", tk.R)
				r := tk.B.Var("r", tk.B.Ref(tk.R, false))
				return []*hir.Stmt{
					x.Let(tk.New()),
					r.Let(hir.Borrow(x.Ref(), false, r.Type)),
					hir.ExprStmt(hir.MethodCall("finish", tk.B.Unit, x.Ref(), hir.RecvUnique)),
				}
			},
			want: diag.BrkBorrowWhileLent,
		},
		{
			name: "unique receiver consumes",
			body: func(tk *hirtest.Token) []*hir.Stmt {
				x := tk.B.Var("x", tk.R)
				return []*hir.Stmt{
					x.Let(tk.New()),
					hir.ExprStmt(hir.MethodCall("finish", tk.B.Unit, x.Ref(), hir.RecvUnique)),
					hir.ExprStmt(hir.MethodCall("peek", tk.B.Unit, x.Ref(), hir.RecvRef)),
				}
			},
			want: diag.BrkUseAfterMove,
		},
		{
			name: "value receiver moves",
			body: func(tk *hirtest.Token) []*hir.Stmt {
				x := tk.B.Var("x", tk.R)
				return []*hir.Stmt{
					x.Let(tk.New()),
					hir.ExprStmt(hir.MethodCall("take", tk.B.Unit, x.Ref(), hir.RecvValue)),
					tk.Consume(x.Ref()),
				}
			},
			want: diag.BrkUseAfterMove,
		},
		{
			name: "ref receiver on a temporary",
			body: func(tk *hirtest.Token) []*hir.Stmt {
				return []*hir.Stmt{
					hir.ExprStmt(hir.MethodCall("peek", tk.B.Unit, tk.New(), hir.RecvRef)),
				}
			},
			want: diag.BrkNotAPath,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tk := hirtest.NewToken("recv")
			b := tk.B
			b.Func("peek", b.Unit, []hirtest.Var{b.Var("self", b.Ref(tk.R, false))})
			b.Func("finish", b.Unit, []hirtest.Var{b.Var("self", tk.R)})
			b.Func("take", b.Unit, []hirtest.Var{b.Var("self", tk.R)})
			b.Func("main", b.Unit, nil, tc.body(tk)...)
			m, err := b.Build()
			if err != nil {
				t.Fatalf("build: %v", err)
			}
			res := checkFunc(t, m, "main")
			if tc.want == diag.UnknownCode {
				expectClean(t, res)
				return
			}
			expectCode(t, res, tc.want)
		})
	}
}
