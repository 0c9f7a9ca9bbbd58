package cfg

import (
	"fmt"

	"fortio.org/safecast"

	"brick/internal/hir"
)

type loopCtx struct {
	id       LoopID
	cont     BlockID
	contBack bool
	brk      BlockID
	depth    int
}

type builder struct {
	g      *Graph
	cur    BlockID
	scopes []ScopeID
	loops  []loopCtx
}

// Build lowers fn into a Graph. The HIR must have passed hir.Validate.
func Build(fn *hir.Func) (*Graph, error) {
	if fn == nil || fn.Body == nil {
		return nil, fmt.Errorf("%w: function without body", hir.ErrMalformed)
	}
	b := &builder{
		g: &Graph{
			Func:       fn,
			LocalScope: make(map[hir.LocalID]ScopeID),
			LocalLoop:  make(map[hir.LocalID]LoopID),
		},
		cur: NoBlock,
	}
	fnScope := b.pushScope()
	b.g.FuncScope = fnScope
	for _, p := range fn.Params {
		b.declare(p.Local)
	}
	b.g.Entry = b.newBlock()
	b.cur = b.g.Entry
	for _, s := range fn.Body.Stmts {
		if err := b.lowerStmt(s); err != nil {
			return nil, err
		}
	}
	if b.reachable() {
		b.emit(Op{Kind: OpScopeExit, Scope: fnScope, Anchor: Anchor{Kind: AnchorBlockEnd, Block: fn.Body}})
		b.block().Term = Terminator{Kind: TermExit}
		b.cur = NoBlock
	}
	b.popScope()
	b.g.computeOrder()
	return b.g, nil
}

func (b *builder) newBlock() BlockID {
	n, err := safecast.Conv[int32](len(b.g.Blocks))
	if err != nil {
		panic(fmt.Errorf("block count overflow: %w", err))
	}
	id := BlockID(n)
	b.g.Blocks = append(b.g.Blocks, &Block{ID: id, Loop: b.innerLoop()})
	return id
}

func (b *builder) block() *Block {
	return b.g.Blocks[b.cur]
}

func (b *builder) reachable() bool {
	return b.cur != NoBlock
}

// ensure starts a fresh block for code that follows a jump. Such blocks
// have no predecessors and are skipped by the analysis.
func (b *builder) ensure() {
	if b.cur == NoBlock {
		b.cur = b.newBlock()
	}
}

func (b *builder) emit(op Op) {
	b.ensure()
	blk := b.block()
	blk.Ops = append(blk.Ops, op)
}

// pad creates an edge block from -> to carrying anchor.
func (b *builder) pad(from, to BlockID, anchor Anchor, back bool) BlockID {
	id := b.newBlock()
	p := b.g.Blocks[id]
	p.Pad = true
	p.Anchor = anchor
	p.BackEdge = back
	p.Preds = []BlockID{from}
	p.Term = Terminator{Kind: TermGoto, Target: to}
	b.g.Blocks[to].Preds = append(b.g.Blocks[to].Preds, id)
	return id
}

// jump ends the current block with an edge to target.
func (b *builder) jump(target BlockID, anchor Anchor, back bool) {
	if !b.reachable() {
		return
	}
	from := b.cur
	p := b.pad(from, target, anchor, back)
	b.g.Blocks[from].Term = Terminator{Kind: TermGoto, Target: p}
	b.cur = NoBlock
}

// resume continues lowering at join, or in dead code if nothing reaches it.
func (b *builder) resume(join BlockID) {
	if len(b.g.Blocks[join].Preds) > 0 {
		b.cur = join
		return
	}
	b.cur = NoBlock
}

func (b *builder) innerLoop() LoopID {
	if len(b.loops) == 0 {
		return NoLoop
	}
	return b.loops[len(b.loops)-1].id
}

func (b *builder) pushScope() ScopeID {
	parent := NoScope
	if len(b.scopes) > 0 {
		parent = b.scopes[len(b.scopes)-1]
	}
	n, err := safecast.Conv[int32](len(b.g.Scopes))
	if err != nil {
		panic(fmt.Errorf("scope count overflow: %w", err))
	}
	id := ScopeID(n)
	b.g.Scopes = append(b.g.Scopes, Scope{ID: id, Parent: parent, Loop: b.innerLoop()})
	b.scopes = append(b.scopes, id)
	return id
}

func (b *builder) popScope() {
	b.scopes = b.scopes[:len(b.scopes)-1]
}

func (b *builder) declare(local hir.LocalID) {
	s := b.scopes[len(b.scopes)-1]
	b.g.Scopes[s].Locals = append(b.g.Scopes[s].Locals, local)
	b.g.LocalScope[local] = s
	b.g.LocalLoop[local] = b.innerLoop()
}

// exitScopes emits exits for every scope above depth, innermost first.
func (b *builder) exitScopes(depth int, anchor Anchor) {
	for i := len(b.scopes) - 1; i >= depth; i-- {
		b.emit(Op{Kind: OpScopeExit, Scope: b.scopes[i], Anchor: anchor})
	}
}

func (b *builder) lowerScoped(blk *hir.Block) error {
	s := b.pushScope()
	defer b.popScope()
	for _, st := range blk.Stmts {
		if err := b.lowerStmt(st); err != nil {
			return err
		}
	}
	if b.reachable() {
		b.emit(Op{Kind: OpScopeExit, Scope: s, Anchor: Anchor{Kind: AnchorBlockEnd, Block: blk}})
	}
	return nil
}

func (b *builder) lowerStmt(s *hir.Stmt) error {
	switch s.Kind {
	case hir.StmtLet:
		b.emit(Op{Kind: OpStmt, Stmt: s, Anchor: Anchor{Kind: AnchorStmt, Stmt: s}})
		b.declare(s.Local)
	case hir.StmtAssign, hir.StmtExpr:
		b.emit(Op{Kind: OpStmt, Stmt: s, Anchor: Anchor{Kind: AnchorStmt, Stmt: s}})
	case hir.StmtDrop:
		return fmt.Errorf("%w: input already contains drop statements", hir.ErrMalformed)
	case hir.StmtReturn:
		b.emit(Op{Kind: OpReturnValue, Stmt: s, Expr: s.Value, Anchor: Anchor{Kind: AnchorStmt, Stmt: s}})
		b.exitScopes(0, Anchor{Kind: AnchorStmt, Stmt: s})
		b.block().Term = Terminator{Kind: TermReturn}
		b.cur = NoBlock
	case hir.StmtBreak, hir.StmtContinue:
		if len(b.loops) == 0 {
			return fmt.Errorf("%w: %s outside of a loop", hir.ErrMalformed, s.Kind)
		}
		l := b.loops[len(b.loops)-1]
		anchor := Anchor{Kind: AnchorBefore, Stmt: s}
		b.exitScopes(l.depth, anchor)
		if s.Kind == hir.StmtBreak {
			b.jump(l.brk, anchor, false)
		} else {
			b.jump(l.cont, anchor, l.contBack)
		}
	case hir.StmtBlock:
		b.ensure()
		return b.lowerScoped(s.Body)
	case hir.StmtIf:
		return b.lowerIf(s)
	case hir.StmtWhile:
		return b.lowerWhile(s)
	case hir.StmtFor:
		return b.lowerFor(s)
	default:
		return fmt.Errorf("%w: unknown statement kind %d", hir.ErrMalformed, s.Kind)
	}
	return nil
}

func (b *builder) lowerIf(s *hir.Stmt) error {
	b.emit(Op{Kind: OpCond, Stmt: s, Expr: s.Cond})
	cond := b.cur
	thenEntry := b.newBlock()
	join := b.newBlock()
	var elseEntry BlockID
	if s.Else != nil {
		elseEntry = b.newBlock()
	} else {
		elseEntry = b.pad(cond, join, Anchor{Kind: AnchorElse, Stmt: s}, false)
	}
	b.g.Blocks[cond].Term = Terminator{Kind: TermBranch, Then: thenEntry, Else: elseEntry}
	b.g.Blocks[thenEntry].Preds = []BlockID{cond}

	b.cur = thenEntry
	if err := b.lowerScoped(s.Then); err != nil {
		return err
	}
	b.jump(join, Anchor{Kind: AnchorBlockEnd, Block: s.Then}, false)

	if s.Else != nil {
		b.g.Blocks[elseEntry].Preds = []BlockID{cond}
		b.cur = elseEntry
		if err := b.lowerScoped(s.Else); err != nil {
			return err
		}
		b.jump(join, Anchor{Kind: AnchorBlockEnd, Block: s.Else}, false)
	}
	b.resume(join)
	return nil
}

func (b *builder) newLoop(s *hir.Stmt) LoopID {
	n, err := safecast.Conv[int32](len(b.g.Loops))
	if err != nil {
		panic(fmt.Errorf("loop count overflow: %w", err))
	}
	id := LoopID(n)
	b.g.Loops = append(b.g.Loops, Loop{ID: id, Parent: b.innerLoop(), Header: NoBlock, Stmt: s})
	return id
}

func (b *builder) lowerWhile(s *hir.Stmt) error {
	b.ensure()
	loop := b.newLoop(s)
	exit := b.newBlock()
	b.loops = append(b.loops, loopCtx{id: loop, brk: exit, contBack: true, depth: len(b.scopes)})
	header := b.newBlock()
	b.g.Blocks[header].LoopHeader = true
	b.g.Loops[loop].Header = header
	b.loops[len(b.loops)-1].cont = header

	b.jump(header, Anchor{Kind: AnchorBefore, Stmt: s}, false)
	b.cur = header
	b.emit(Op{Kind: OpCond, Stmt: s, Expr: s.Cond})
	body := b.newBlock()
	exitPad := b.pad(header, exit, Anchor{Kind: AnchorLoopExit, Stmt: s}, false)
	b.g.Blocks[header].Term = Terminator{Kind: TermBranch, Then: body, Else: exitPad}
	b.g.Blocks[body].Preds = []BlockID{header}

	b.cur = body
	if err := b.lowerScoped(s.Body); err != nil {
		return err
	}
	b.jump(header, Anchor{Kind: AnchorBlockEnd, Block: s.Body}, true)
	b.loops = b.loops[:len(b.loops)-1]
	b.g.Blocks[exit].Loop = b.innerLoop()
	b.resume(exit)
	return nil
}

func (b *builder) lowerFor(s *hir.Stmt) error {
	b.ensure()
	scope := b.pushScope()
	defer b.popScope()
	if s.Init != nil {
		if err := b.lowerStmt(s.Init); err != nil {
			return err
		}
	}
	b.ensure()
	loop := b.newLoop(s)
	exit := b.newBlock()
	b.loops = append(b.loops, loopCtx{id: loop, brk: exit, depth: len(b.scopes)})
	header := b.newBlock()
	post := b.newBlock()
	b.g.Blocks[header].LoopHeader = true
	b.g.Loops[loop].Header = header
	b.loops[len(b.loops)-1].cont = post

	b.jump(header, Anchor{Kind: AnchorBefore, Stmt: s}, false)
	b.cur = header
	body := b.newBlock()
	if s.Cond != nil {
		b.emit(Op{Kind: OpCond, Stmt: s, Expr: s.Cond})
		exitPad := b.pad(header, exit, Anchor{Kind: AnchorLoopExit, Stmt: s}, false)
		b.g.Blocks[header].Term = Terminator{Kind: TermBranch, Then: body, Else: exitPad}
	} else {
		b.g.Blocks[header].Term = Terminator{Kind: TermGoto, Target: body}
	}
	b.g.Blocks[body].Preds = []BlockID{header}

	b.cur = body
	if err := b.lowerScoped(s.Body); err != nil {
		return err
	}
	b.jump(post, Anchor{Kind: AnchorBlockEnd, Block: s.Body}, false)

	b.resume(post)
	if b.reachable() && s.Post != nil {
		if err := b.lowerStmt(s.Post); err != nil {
			return err
		}
	}
	b.jump(header, Anchor{Kind: AnchorLoopBack, Stmt: s}, true)
	b.loops = b.loops[:len(b.loops)-1]
	b.g.Blocks[exit].Loop = b.innerLoop()

	b.resume(exit)
	if b.reachable() {
		b.emit(Op{Kind: OpScopeExit, Scope: scope, Anchor: Anchor{Kind: AnchorAfter, Stmt: s}})
	}
	return nil
}
