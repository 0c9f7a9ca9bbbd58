// Package cfg lowers structured HIR function bodies into basic blocks for
// the ownership dataflow.
//
// Every edge that enters a join point (if merge, loop header, loop exit,
// for-loop post block) goes through a pad block. A pad carries an Anchor
// naming the structured HIR location where drops that belong to that edge
// are written back, so the annotated output keeps its tree shape.
package cfg

import (
	"brick/internal/hir"
)

// BlockID indexes Graph.Blocks.
type BlockID int32

// ScopeID indexes Graph.Scopes.
type ScopeID int32

// LoopID indexes Graph.Loops.
type LoopID int32

const (
	NoBlock BlockID = -1
	NoScope ScopeID = -1
	NoLoop  LoopID  = -1
)

// OpKind enumerates block operations.
type OpKind uint8

const (
	// OpStmt executes a let, assign or expression statement.
	OpStmt OpKind = iota
	// OpCond evaluates a branch or loop condition.
	OpCond
	// OpReturnValue evaluates the value of a return statement.
	OpReturnValue
	// OpScopeExit discharges the locals of Scope.
	OpScopeExit
)

func (k OpKind) String() string {
	switch k {
	case OpStmt:
		return "stmt"
	case OpCond:
		return "cond"
	case OpReturnValue:
		return "return-value"
	case OpScopeExit:
		return "scope-exit"
	}
	return "op?"
}

// AnchorKind selects where drops computed for an op or edge are written.
type AnchorKind uint8

const (
	AnchorNone AnchorKind = iota
	// AnchorBefore inserts a drop statement before Stmt.
	AnchorBefore
	// AnchorAfter inserts a drop statement after Stmt.
	AnchorAfter
	// AnchorBlockEnd appends a drop statement to Block.
	AnchorBlockEnd
	// AnchorElse appends to the else branch of Stmt, creating it if needed.
	AnchorElse
	// AnchorLoopExit fills Stmt.ExitDrops.
	AnchorLoopExit
	// AnchorLoopBack fills Stmt.BackDrops.
	AnchorLoopBack
	// AnchorStmt fills Stmt.Drops (assign, return, discarded temporaries).
	AnchorStmt
)

func (k AnchorKind) String() string {
	switch k {
	case AnchorBefore:
		return "before"
	case AnchorAfter:
		return "after"
	case AnchorBlockEnd:
		return "block-end"
	case AnchorElse:
		return "else"
	case AnchorLoopExit:
		return "loop-exit"
	case AnchorLoopBack:
		return "loop-back"
	case AnchorStmt:
		return "stmt"
	}
	return "none"
}

// Anchor names an HIR location that receives drops.
type Anchor struct {
	Kind  AnchorKind
	Stmt  *hir.Stmt
	Block *hir.Block
}

// Op is one operation of a basic block.
type Op struct {
	Kind   OpKind
	Stmt   *hir.Stmt
	Expr   *hir.Expr
	Scope  ScopeID
	Anchor Anchor
}

type TermKind uint8

const (
	TermNone TermKind = iota
	TermGoto
	TermBranch
	TermReturn
	TermExit
)

type Terminator struct {
	Kind   TermKind
	Target BlockID
	Then   BlockID
	Else   BlockID
}

// Block is a basic block. Pads have no ops and a single successor.
type Block struct {
	ID    BlockID
	Ops   []Op
	Term  Terminator
	Preds []BlockID

	Pad      bool
	Anchor   Anchor
	BackEdge bool

	LoopHeader bool
	Loop       LoopID // innermost loop containing the block
}

func (b *Block) Terminated() bool {
	if b == nil {
		return true
	}
	return b.Term.Kind != TermNone
}

// Successors returns the successor blocks in branch order.
func (b *Block) Successors() []BlockID {
	switch b.Term.Kind {
	case TermGoto:
		return []BlockID{b.Term.Target}
	case TermBranch:
		return []BlockID{b.Term.Then, b.Term.Else}
	}
	return nil
}

// Scope is a lexical region; Locals are in declaration order.
type Scope struct {
	ID     ScopeID
	Parent ScopeID
	Locals []hir.LocalID
	Loop   LoopID
}

// Loop is a while or for statement.
type Loop struct {
	ID     LoopID
	Parent LoopID
	Header BlockID
	Stmt   *hir.Stmt
}

// Graph is the control-flow graph of one function.
type Graph struct {
	Func      *hir.Func
	Blocks    []*Block
	Entry     BlockID
	FuncScope ScopeID
	Scopes    []Scope
	Loops     []Loop

	// RPO lists reachable blocks in reverse post-order.
	RPO       []BlockID
	Reachable []bool

	LocalScope map[hir.LocalID]ScopeID
	LocalLoop  map[hir.LocalID]LoopID
}

// Block returns the block with id.
func (g *Graph) Block(id BlockID) *Block {
	return g.Blocks[id]
}

// LoopContains reports whether loop inner is outer or nested in it.
func (g *Graph) LoopContains(outer, inner LoopID) bool {
	if outer == NoLoop {
		return true
	}
	for l := inner; l != NoLoop; l = g.Loops[l].Parent {
		if l == outer {
			return true
		}
	}
	return false
}
