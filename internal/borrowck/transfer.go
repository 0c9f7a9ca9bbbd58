package borrowck

import (
	"fmt"
	"strconv"

	"brick/internal/cfg"
	"brick/internal/diag"
	"brick/internal/hir"
	"brick/internal/source"
	"brick/internal/types"
)

// evalCtx names who keeps references created while evaluating an
// expression alive.
type evalCtx struct {
	holder int
	scope  cfg.ScopeID
}

var tempCtx = evalCtx{holder: noHolder, scope: tempScope}

func (c *checker) holderCtx(slot int) evalCtx {
	return evalCtx{holder: slot, scope: c.g.LocalScope[c.paths.Local(slot).ID]}
}

func (c *checker) transferOp(st *flowState, op *cfg.Op) {
	var sp source.Span
	switch op.Kind {
	case cfg.OpStmt:
		sp = op.Stmt.Span
		switch op.Stmt.Kind {
		case hir.StmtLet:
			c.let(st, op.Stmt)
		case hir.StmtAssign:
			c.assign(st, op.Stmt, op.Anchor)
		case hir.StmtExpr:
			c.discard(st, op.Stmt, op.Anchor)
		}
	case cfg.OpCond:
		sp = op.Expr.Span
		c.evalValue(st, op.Expr, tempCtx)
	case cfg.OpReturnValue:
		sp = op.Stmt.Span
		c.returnValue(st, op.Stmt)
	case cfg.OpScopeExit:
		sp = c.anchorSpan(op.Anchor)
		c.exitScope(st, op.Scope, op.Anchor)
	}
	c.releaseScope(st, tempScope, sp)
}

func (c *checker) let(st *flowState, s *hir.Stmt) {
	slot, ok := c.paths.Slot(s.Local)
	if !ok {
		return
	}
	if s.Value != nil {
		c.evalValue(st, s.Value, c.holderCtx(slot))
	}
	st.declare(c.paths, slot, s.Value != nil, s.Span)
}

// assign performs a two-phase store: the right-hand side is evaluated
// first, then the superseded value is dropped and the new one installed.
func (c *checker) assign(st *flowState, s *hir.Stmt, at cfg.Anchor) {
	target := s.Target
	if target.Kind == hir.ExprGlobal {
		c.evalValue(st, s.Value, tempCtx)
		return
	}
	p, ok := c.paths.Normalize(target)
	if !ok {
		c.evalValue(st, s.Value, tempCtx)
		c.errorf(diag.BrkNotAPath, target.Span, "cannot assign to a temporary value")
		return
	}
	slot := c.paths.RootOf(p)
	root := c.paths.Root(slot)

	c.touched = c.touched[:0]
	c.evalValue(st, s.Value, c.holderCtx(slot))
	if s.Op != hir.AssignSet {
		c.readPlace(st, target, p, false)
	}
	c.releaseScope(st, tempScope, s.Span)

	if c.paths.Indirect(p) {
		c.storeIndirect(st, s, p, at)
		return
	}
	if e, moved := st.covering(c.paths, p); moved && e.path != p {
		what := "moved"
		if e.uninit {
			what = "uninitialized"
		}
		c.report(diag.BrkUseAfterMove, target.Span,
			fmt.Sprintf("cannot assign to `%s`: `%s` is %s", c.paths.String(p), c.paths.String(e.path), what),
			c.moveNote(e))
		return
	}
	if l, lent := c.anyLease(st, p); lent {
		ops, _ := c.remainderOps(st, p)
		code, why := diag.BrkBorrowConflict, ""
		if len(ops) > 0 {
			code, why = diag.BrkBorrowWhileLent, ": the old value would be dropped"
		}
		c.report(code, target.Span,
			fmt.Sprintf("cannot assign to `%s` while it is borrowed%s", c.paths.String(p), why),
			diag.Note{Span: l.span, Msg: fmt.Sprintf("%s borrow of `%s` created here", l.kindWord(), c.paths.String(l.path))})
	}
	c.dropRemainder(st, p, hir.DropReassign, at)
	if p == root {
		c.releaseHolder(st, slot, c.touched, s.Span)
	}
	st.reinit(c.paths, p)
}

func (c *checker) storeIndirect(st *flowState, s *hir.Stmt, p PathID, at cfg.Anchor) {
	slot := c.paths.RootOf(p)
	root := c.paths.Root(slot)
	if e, moved := st.covering(c.paths, root); moved {
		c.reportMoved(root, e, s.Target.Span, "use")
		return
	}
	if !c.facts.IsUniqueReference(c.paths.Type(root)) {
		c.errorf(diag.BrkBorrowConflict, s.Target.Span, "cannot assign to `%s` through shared reference `%s`",
			c.paths.String(p), c.paths.String(root))
		return
	}
	if l, lent := c.anyLease(st, p); lent {
		c.report(diag.BrkBorrowConflict, s.Target.Span,
			fmt.Sprintf("cannot assign to `%s` while it is borrowed", c.paths.String(p)),
			diag.Note{Span: l.span, Msg: "borrow created here"})
	}
	if !c.emit {
		return
	}
	ty := c.paths.Type(p)
	if ops := c.fullOps(c.paths.Place(p), ty); len(ops) > 0 {
		c.addDrop(at, hir.Drop{Reason: hir.DropReassign, Place: c.paths.Place(p), Type: ty, Ops: ops})
		c.event(EvDrop, p, s.Span, -1, hir.DropReassign.String())
	}
}

// discard evaluates an expression statement; a Resource result is a
// temporary destroyed right away.
func (c *checker) discard(st *flowState, s *hir.Stmt, at cfg.Anchor) {
	c.evalValue(st, s.Value, tempCtx)
	if !c.emit || s.Value == nil {
		return
	}
	ty := s.Value.Type
	if ops := c.fullOps(hir.Place{Root: hir.RootTemp}, ty); len(ops) > 0 {
		c.addDrop(at, hir.Drop{Reason: hir.DropDiscard, Place: hir.Place{Root: hir.RootTemp}, Type: ty, Ops: ops})
		c.events = append(c.events, Event{Kind: EvDrop, Path: "<temp>", Span: s.Span, Lease: -1, Detail: hir.DropDiscard.String()})
	}
}

// returnHolder owns leases created while evaluating a return value. Any
// such lease of local storage would outlive its lender.
const returnHolder = -2

func (c *checker) returnValue(st *flowState, s *hir.Stmt) {
	v := s.Value
	if v == nil {
		return
	}
	for _, slot := range c.returnedLocals(v, nil) {
		for _, id := range c.leasesHeldBy(st, slot) {
			l := c.leases.get(id)
			if c.paths.Indirect(l.path) {
				continue
			}
			c.report(diag.BrkBorrowWhileLent, v.Span,
				fmt.Sprintf("cannot return `%s`: it refers to local `%s`", c.paths.String(c.paths.Root(slot)), c.paths.String(l.path)),
				diag.Note{Span: l.span, Msg: "borrowed here"})
			break
		}
	}
	c.touched = c.touched[:0]
	c.evalValue(st, v, evalCtx{holder: returnHolder, scope: tempScope})
	for _, id := range c.touched {
		l := c.leases.get(id)
		if l.holder != returnHolder || c.paths.Indirect(l.path) {
			continue
		}
		c.errorf(diag.BrkBorrowWhileLent, l.span, "cannot return a reference to local `%s`", c.paths.String(l.path))
	}
}

// returnedLocals lists the locals whose storage, or references they hold,
// flows into the returned value. Call results are not tied to their
// arguments, and arithmetic yields plain values.
func (c *checker) returnedLocals(e *hir.Expr, out []int) []int {
	if e == nil || !c.holdsReference(e.Type, nil) {
		return out
	}
	switch e.Kind {
	case hir.ExprLocal:
		if slot, ok := c.paths.Slot(e.Local); ok {
			out = append(out, slot)
		}
	case hir.ExprField:
		return c.returnedLocals(e.X, out)
	case hir.ExprStruct:
		for _, a := range e.Args {
			out = c.returnedLocals(a, out)
		}
	case hir.ExprUnion:
		return c.returnedLocals(e.X, out)
	}
	return out
}

// exitScope ends the leases owned by scope, then discharges its locals in
// reverse declaration order.
func (c *checker) exitScope(st *flowState, scope cfg.ScopeID, at cfg.Anchor) {
	sp := c.anchorSpan(at)
	c.releaseScope(st, scope, sp)
	locals := c.g.Scopes[scope].Locals
	for i := len(locals) - 1; i >= 0; i-- {
		slot, ok := c.paths.Slot(locals[i])
		if !ok || !st.locals[slot].live {
			continue
		}
		root := c.paths.Root(slot)
		dangling := st.removeLeases(func(id LeaseID) bool {
			return c.paths.IsPrefix(root, c.leases.get(id).path)
		})
		if len(dangling) > 0 {
			l := c.leases.get(dangling[0])
			c.report(diag.BrkBorrowWhileLent, l.span,
				fmt.Sprintf("`%s` does not live long enough", c.paths.String(root)),
				diag.Note{Span: sp, Msg: fmt.Sprintf("`%s` goes out of scope here while still borrowed", c.paths.String(root))})
		}
		c.dropRemainder(st, root, hir.DropScopeExit, at)
		st.kill(slot)
	}
}

// evalValue evaluates e for its value.
func (c *checker) evalValue(st *flowState, e *hir.Expr, ctx evalCtx) {
	if e == nil {
		return
	}
	switch e.Kind {
	case hir.ExprLit, hir.ExprGlobal:
	case hir.ExprLocal, hir.ExprField, hir.ExprDeref:
		c.evalPlace(st, e, ctx)
	case hir.ExprStruct:
		for _, a := range e.Args {
			c.evalValue(st, a, ctx)
		}
	case hir.ExprUnion:
		c.evalValue(st, e.X, ctx)
	case hir.ExprCall:
		c.evalCall(st, e)
	case hir.ExprRef:
		c.borrow(st, e, ctx)
	case hir.ExprUnary:
		c.evalValue(st, e.X, tempCtx)
	case hir.ExprBinary:
		c.evalValue(st, e.X, tempCtx)
		c.evalValue(st, e.Y, tempCtx)
	}
}

func (c *checker) evalPlace(st *flowState, e *hir.Expr, ctx evalCtx) {
	if p, ok := c.paths.Normalize(e); ok {
		c.readPlace(st, e, p, c.facts.IsResource(e.Type))
		return
	}
	switch e.Kind {
	case hir.ExprField:
		if e.X.IsPlace() {
			// Projection through a reference stored in a field. Value reads
			// copy untracked memory; Resources cannot leave the reference.
			c.evalValue(st, e.X, ctx)
			if c.facts.IsResource(e.Type) {
				e.Access = hir.AccessMove
				c.errorf(diag.BrkBorrowConflict, e.Span, "cannot move `%s` out of a reference", c.describe(e))
				return
			}
			e.Access = hir.AccessCopy
			return
		}
		c.evalValue(st, e.X, ctx)
		if c.facts.IsResource(e.X.Type) {
			c.errorf(diag.BrkNotAPath, e.Span, "cannot move a field out of a temporary value")
		}
	case hir.ExprDeref:
		c.evalValue(st, e.X, ctx)
		if c.facts.IsResource(e.Type) {
			c.errorf(diag.BrkNotAPath, e.Span, "cannot move out of a dereferenced temporary")
		}
	}
}

// readPlace checks a read of p and applies its effect: Resource reads move,
// everything else copies.
func (c *checker) readPlace(st *flowState, e *hir.Expr, p PathID, move bool) {
	if entry, moved := st.covering(c.paths, p); moved {
		c.reportMoved(p, entry, e.Span, "use")
		if move {
			e.Access = hir.AccessMove
		}
		return
	}
	if !move {
		if l, lent := c.uniqueLease(st, p); lent {
			c.report(diag.BrkBorrowConflict, e.Span,
				fmt.Sprintf("cannot use `%s` while it is uniquely borrowed", c.paths.String(p)),
				diag.Note{Span: l.span, Msg: "unique borrow created here"})
		}
		e.Access = hir.AccessCopy
		return
	}
	e.Access = hir.AccessMove
	if c.paths.Indirect(p) {
		c.errorf(diag.BrkBorrowConflict, e.Span, "cannot move `%s` out of a reference", c.paths.String(p))
		return
	}
	if below, partly := st.movedBelow(c.paths, p); partly {
		c.report(diag.BrkPartialMoveViolation, e.Span,
			fmt.Sprintf("use of partially moved value `%s`", c.paths.String(p)),
			diag.Note{Span: below.span, Msg: fmt.Sprintf("`%s` moved here", c.paths.String(below.path))})
	}
	if l, lent := c.anyLease(st, p); lent {
		c.report(diag.BrkBorrowWhileLent, e.Span,
			fmt.Sprintf("cannot move `%s` while it is borrowed", c.paths.String(p)),
			diag.Note{Span: l.span, Msg: fmt.Sprintf("%s borrow of `%s` created here", l.kindWord(), c.paths.String(l.path))})
	}
	st.markMoved(c.paths, p, moveEntry{origin: originMoved, span: e.Span})
	c.event(EvMove, p, e.Span, -1, "")
}

// evalCall evaluates the receiver, then arguments left to right. References
// passed to a call live until the end of the statement.
func (c *checker) evalCall(st *flowState, e *hir.Expr) {
	if recv := e.X; recv != nil {
		switch e.Recv {
		case hir.RecvRef:
			if p, ok := c.paths.Normalize(recv); ok {
				c.borrowPath(st, recv, recv, p, false, tempCtx)
				break
			}
			c.evalValue(st, recv, tempCtx)
			if c.facts.IsResource(recv.Type) {
				c.errorf(diag.BrkNotAPath, recv.Span, "cannot borrow a temporary value as receiver of `%s`", e.Name)
			}
		default:
			c.evalValue(st, recv, tempCtx)
		}
	}
	for _, a := range e.Args {
		c.evalValue(st, a, tempCtx)
	}
}

func (c *checker) borrow(st *flowState, e *hir.Expr, ctx evalCtx) {
	target := e.X
	p, ok := c.paths.Normalize(target)
	if !ok {
		if target != nil && target.Kind == hir.ExprGlobal {
			c.errorf(diag.BrkNotAPath, e.Span, "cannot borrow global `%s`", target.Name)
			return
		}
		c.evalValue(st, target, tempCtx)
		c.errorf(diag.BrkNotAPath, e.Span, "cannot borrow a temporary value")
		return
	}
	c.borrowPath(st, e, target, p, e.Unique, ctx)
}

// requireOwned reports when p cannot be borrowed because it or a part of it
// no longer holds a value.
func (c *checker) requireOwned(st *flowState, p PathID, sp source.Span, verb string) bool {
	if entry, moved := st.covering(c.paths, p); moved {
		c.reportMoved(p, entry, sp, verb)
		return false
	}
	if below, partly := st.movedBelow(c.paths, p); partly {
		c.report(diag.BrkPartialMoveViolation, sp,
			fmt.Sprintf("cannot %s partially moved value `%s`", verb, c.paths.String(p)),
			diag.Note{Span: below.span, Msg: fmt.Sprintf("`%s` moved here", c.paths.String(below.path))})
		return false
	}
	return true
}

// reportMoved explains why p holds no value. Moves that depend on which
// loop iteration runs are reported as unstable loop ownership.
func (c *checker) reportMoved(p PathID, e moveEntry, sp source.Span, verb string) {
	name := c.paths.String(p)
	what := "moved"
	if e.uninit {
		what = "uninitialized"
	}
	code := diag.BrkUseAfterMove
	var msg string
	switch e.origin {
	case originLoopCarried:
		code = diag.BrkUnstableLoopOwnership
		msg = fmt.Sprintf("`%s` is %s in a previous iteration of the loop", name, what)
	case originConditional:
		if c.unstableHere(p, e) {
			code = diag.BrkUnstableLoopOwnership
			msg = fmt.Sprintf("ownership of `%s` depends on the loop iteration", name)
		} else {
			msg = fmt.Sprintf("%s of possibly %s value `%s`", verb, what, name)
		}
	default:
		msg = fmt.Sprintf("%s of %s value `%s`", verb, what, name)
	}
	c.report(code, sp, msg, c.moveNote(e))
}

// unstableHere reports whether a conditional move of p depends on the loop
// iteration: the join that made it conditional lies in the loop being
// checked (or one enclosing it), and p's root outlives that loop.
func (c *checker) unstableHere(p PathID, e moveEntry) bool {
	if c.loop == cfg.NoLoop || e.joinLoop == cfg.NoLoop || !c.g.LoopContains(e.joinLoop, c.loop) {
		return false
	}
	decl := c.g.LocalLoop[c.paths.Local(c.paths.RootOf(p)).ID]
	return !c.g.LoopContains(e.joinLoop, decl)
}

func (c *checker) moveNote(e moveEntry) diag.Note {
	if e.uninit {
		return diag.Note{Span: e.span, Msg: fmt.Sprintf("`%s` declared here without a value", c.paths.String(e.path))}
	}
	return diag.Note{Span: e.span, Msg: fmt.Sprintf("`%s` moved here", c.paths.String(e.path))}
}

// holdsReference reports whether values of ty can carry a reference.
func (c *checker) holdsReference(ty types.TypeID, seen map[types.TypeID]bool) bool {
	if c.facts.IsReference(ty) {
		return true
	}
	if seen[ty] {
		return false
	}
	if seen == nil {
		seen = make(map[types.TypeID]bool)
	}
	seen[ty] = true
	for _, f := range c.facts.Fields(ty) {
		if c.holdsReference(f.Type, seen) {
			return true
		}
	}
	return false
}

// describe renders a place expression that has no path, such as a field
// reached through a reference stored in another field.
func (c *checker) describe(e *hir.Expr) string {
	if p, ok := c.paths.Normalize(e); ok {
		return c.paths.String(p)
	}
	if e.Kind != hir.ExprField || e.X == nil {
		return "value"
	}
	base := e.X.Type
	if c.facts.IsReference(base) {
		base = c.facts.Elem(base)
	}
	name := strconv.Itoa(e.Index)
	if f, ok := c.facts.Field(base, e.Index); ok && f.Name != "" {
		name = f.Name
	}
	return c.describe(e.X) + "." + name
}
