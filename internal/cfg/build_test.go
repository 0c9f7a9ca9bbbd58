package cfg

import (
	"errors"
	"testing"

	"brick/internal/hir"
	"brick/internal/hir/hirtest"
)

func mustBuild(t *testing.T, fn *hir.Func) *Graph {
	t.Helper()
	g, err := Build(fn)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	return g
}

func lt(b *hirtest.Builder, x *hir.Expr, n int64) *hir.Expr {
	return hir.Binary(hir.OpLt, x, hir.Lit(b.Int, n), b.Bool)
}

func TestWhileWithBreak(t *testing.T) {
	b := hirtest.New("loop")
	i := b.Var("i", b.Int)
	brk := hir.Break()
	fn := &hir.Func{Name: "main", Result: b.Unit, Body: hir.Blk(
		i.Let(hir.Lit(b.Int, 0)),
		hir.While(lt(b, i.Ref(), 3), hir.Blk(
			hir.If(hir.Binary(hir.OpEq, i.Ref(), hir.Lit(b.Int, 1), b.Bool), hir.Blk(brk), nil),
			hirtest.Incr(i.Ref(), 1),
		)),
	)}
	g := mustBuild(t, fn)

	if len(g.Loops) != 1 {
		t.Fatalf("want 1 loop, got %d", len(g.Loops))
	}
	header := g.Loops[0].Header
	if !g.Block(header).LoopHeader {
		t.Fatalf("loop header b%d not marked", header)
	}

	var back int
	for _, blk := range g.Blocks {
		if blk.BackEdge {
			back++
			if !blk.Pad || blk.Term.Target != header {
				t.Fatalf("back edge b%d must be a pad into the header", blk.ID)
			}
		}
	}
	if back != 1 {
		t.Fatalf("want 1 back edge, got %d", back)
	}

	if g.RPO[0] != g.Entry {
		t.Fatalf("RPO must start at entry, got b%d", g.RPO[0])
	}
	if len(g.RPO) != len(g.Blocks) {
		t.Fatalf("every block is reachable here: RPO %d, blocks %d", len(g.RPO), len(g.Blocks))
	}

	// break leaves the then scope, then the loop body scope.
	var exits []Op
	for _, blk := range g.Blocks {
		for _, op := range blk.Ops {
			if op.Anchor.Stmt == brk {
				exits = append(exits, op)
			}
		}
	}
	if len(exits) != 2 {
		t.Fatalf("want 2 scope exits before break, got %d", len(exits))
	}
	for _, op := range exits {
		if op.Kind != OpScopeExit || op.Anchor.Kind != AnchorBefore {
			t.Fatalf("unexpected op before break: %s/%s", op.Kind, op.Anchor.Kind)
		}
	}
	if g.Scopes[exits[0].Scope].Parent != exits[1].Scope {
		t.Fatalf("scope exits must run innermost first")
	}
}

func TestCodeAfterReturnIsUnreachable(t *testing.T) {
	b := hirtest.New("dead")
	x := b.Var("x", b.Int)
	fn := &hir.Func{Name: "main", Result: b.Unit, Body: hir.Blk(
		hir.Return(nil),
		x.Let(hir.Lit(b.Int, 1)),
	)}
	g := mustBuild(t, fn)

	if got := g.Block(g.Entry).Term.Kind; got != TermReturn {
		t.Fatalf("entry must end in return, got %d", got)
	}
	dead := 0
	for id, ok := range g.Reachable {
		if !ok {
			dead++
			for _, r := range g.RPO {
				if int(r) == id {
					t.Fatalf("unreachable b%d listed in RPO", id)
				}
			}
		}
	}
	if dead == 0 {
		t.Fatalf("expected an unreachable block for the trailing let")
	}
}

func TestNestedLoops(t *testing.T) {
	b := hirtest.New("nested")
	i := b.Var("i", b.Int)
	j := b.Var("j", b.Int)
	fn := &hir.Func{Name: "main", Result: b.Unit, Body: hir.Blk(
		i.Let(hir.Lit(b.Int, 0)),
		hir.While(lt(b, i.Ref(), 2), hir.Blk(
			j.Let(hir.Lit(b.Int, 0)),
			hir.While(lt(b, j.Ref(), 2), hir.Blk(hirtest.Incr(j.Ref(), 1))),
			hirtest.Incr(i.Ref(), 1),
		)),
	)}
	g := mustBuild(t, fn)

	if len(g.Loops) != 2 || g.Loops[1].Parent != 0 {
		t.Fatalf("unexpected loop tree %+v", g.Loops)
	}
	if !g.LoopContains(0, 1) || g.LoopContains(1, 0) || !g.LoopContains(NoLoop, 0) {
		t.Fatalf("LoopContains disagrees with the loop tree")
	}
	if g.LocalLoop[i.ID] != NoLoop || g.LocalLoop[j.ID] != 0 {
		t.Fatalf("local loops: i=%d j=%d", g.LocalLoop[i.ID], g.LocalLoop[j.ID])
	}
	if g.LocalScope[i.ID] != g.FuncScope {
		t.Fatalf("i must live in the function scope")
	}
}

func TestForContinueReachesPost(t *testing.T) {
	b := hirtest.New("for")
	i := b.Var("i", b.Int)
	cont := hir.Continue()
	loop := hir.For(
		i.Let(hir.Lit(b.Int, 0)),
		lt(b, i.Ref(), 4),
		hirtest.Incr(i.Ref(), 1),
		hir.Blk(cont),
	)
	fn := &hir.Func{Name: "main", Result: b.Unit, Body: hir.Blk(loop)}
	g := mustBuild(t, fn)

	var contPad, backPad *Block
	for _, blk := range g.Blocks {
		if !blk.Pad {
			continue
		}
		switch {
		case blk.Anchor.Stmt == cont:
			contPad = blk
		case blk.Anchor.Kind == AnchorLoopBack && blk.Anchor.Stmt == loop:
			backPad = blk
		}
	}
	if contPad == nil || backPad == nil {
		t.Fatalf("missing pads: continue=%v back=%v", contPad != nil, backPad != nil)
	}
	if contPad.BackEdge {
		t.Fatalf("continue in a for loop goes to the post block, not the header")
	}
	if !backPad.BackEdge || backPad.Term.Target != g.Loops[0].Header {
		t.Fatalf("post block must jump back to the header")
	}
	if g.LocalScope[i.ID] == g.FuncScope {
		t.Fatalf("for-init locals live in the loop's own scope")
	}
}

func TestIfWithoutElseGetsElsePad(t *testing.T) {
	b := hirtest.New("if")
	x := b.Var("x", b.Int)
	ifs := hir.If(hir.Lit(b.Bool, 1), hir.Blk(x.Let(hir.Lit(b.Int, 2))), nil)
	g := mustBuild(t, &hir.Func{Name: "main", Result: b.Unit, Body: hir.Blk(ifs)})

	entry := g.Block(g.Entry)
	if entry.Term.Kind != TermBranch {
		t.Fatalf("entry must branch, got %d", entry.Term.Kind)
	}
	pad := g.Block(entry.Term.Else)
	if !pad.Pad || pad.Anchor.Kind != AnchorElse || pad.Anchor.Stmt != ifs {
		t.Fatalf("else edge must be a pad anchored on the if")
	}
	join := g.Block(pad.Term.Target)
	if len(join.Preds) != 2 {
		t.Fatalf("join has %d preds, want 2", len(join.Preds))
	}
	if g.Dump() == "" {
		t.Fatalf("empty dump")
	}
}

func TestBuildRejectsMalformed(t *testing.T) {
	if _, err := Build(nil); !errors.Is(err, hir.ErrMalformed) {
		t.Fatalf("nil func: %v", err)
	}
	b := hirtest.New("drop")
	x := b.Var("x", b.Int)
	fn := &hir.Func{Name: "main", Result: b.Unit, Body: hir.Blk(
		x.Let(hir.Lit(b.Int, 1)),
		&hir.Stmt{Kind: hir.StmtDrop},
	)}
	if _, err := Build(fn); !errors.Is(err, hir.ErrMalformed) {
		t.Fatalf("drop in input: %v", err)
	}
	if _, err := Build(&hir.Func{Name: "f", Body: hir.Blk(hir.Break())}); !errors.Is(err, hir.ErrMalformed) {
		t.Fatalf("break outside loop: %v", err)
	}
}
