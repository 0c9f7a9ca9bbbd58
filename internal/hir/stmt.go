package hir

import (
	"brick/internal/source"
	"brick/internal/types"
)

// StmtKind enumerates HIR statement kinds.
type StmtKind uint8

const (
	// StmtLet declares Local; Value is the initializer or nil for `let x: T;`.
	StmtLet StmtKind = iota
	// StmtExpr evaluates Value and discards the result.
	StmtExpr
	// StmtAssign stores Value into the place Target (Op selects = += -=).
	StmtAssign
	// StmtReturn leaves the function with Value (nil for unit).
	StmtReturn
	// StmtBreak leaves the innermost loop.
	StmtBreak
	// StmtContinue jumps to the next iteration of the innermost loop.
	StmtContinue
	// StmtIf branches on Cond to Then or Else.
	StmtIf
	// StmtWhile loops over Body while Cond holds.
	StmtWhile
	// StmtFor runs Init once, then Body and Post while Cond holds.
	StmtFor
	// StmtBlock opens a nested scope around Body.
	StmtBlock
	// StmtDrop is inserted by the checker and runs Drops.
	StmtDrop
)

var stmtKindNames = []string{
	StmtLet:      "let",
	StmtExpr:     "expr",
	StmtAssign:   "assign",
	StmtReturn:   "return",
	StmtBreak:    "break",
	StmtContinue: "continue",
	StmtIf:       "if",
	StmtWhile:    "while",
	StmtFor:      "for",
	StmtBlock:    "block",
	StmtDrop:     "drop",
}

// String returns a human-readable name for the statement kind.
func (k StmtKind) String() string { return enumString(k, stmtKindNames) }

// MarshalText implements encoding.TextMarshaler.
func (k StmtKind) MarshalText() ([]byte, error) {
	return marshalEnum(k, stmtKindNames, "stmt kind")
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *StmtKind) UnmarshalText(b []byte) error {
	return unmarshalEnum(k, b, stmtKindNames, "stmt kind")
}

// AssignOp selects plain or compound assignment.
type AssignOp uint8

const (
	AssignSet AssignOp = iota
	AssignAdd
	AssignSub
)

var assignOpNames = []string{AssignSet: "=", AssignAdd: "+=", AssignSub: "-="}

func (o AssignOp) String() string { return enumString(o, assignOpNames) }

// MarshalText implements encoding.TextMarshaler.
func (o AssignOp) MarshalText() ([]byte, error) {
	return marshalEnum(o, assignOpNames, "assign op")
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (o *AssignOp) UnmarshalText(b []byte) error {
	return unmarshalEnum(o, b, assignOpNames, "assign op")
}

// Stmt represents an HIR statement. Drops, ExitDrops and BackDrops are
// written by the checker:
//
//   - assign: Drops run after Value is evaluated and before the store;
//   - return: Drops run after Value is evaluated;
//   - expr: Drops destroy a discarded resource temporary;
//   - drop: Drops is the whole statement;
//   - while/for: ExitDrops run when Cond turns false;
//   - for: BackDrops run after Post, before Cond is re-tested.
type Stmt struct {
	Kind      StmtKind     `yaml:"kind" msgpack:"kind"`
	Span      source.Span  `yaml:"span,omitempty" msgpack:"span,omitempty"`
	Local     LocalID      `yaml:"local,omitempty" msgpack:"local,omitempty"`
	Name      string       `yaml:"name,omitempty" msgpack:"name,omitempty"`
	Type      types.TypeID `yaml:"type,omitempty" msgpack:"type,omitempty"`
	Target    *Expr        `yaml:"target,omitempty" msgpack:"target,omitempty"`
	Op        AssignOp     `yaml:"op,omitempty" msgpack:"op,omitempty"`
	Value     *Expr        `yaml:"value,omitempty" msgpack:"value,omitempty"`
	Cond      *Expr        `yaml:"cond,omitempty" msgpack:"cond,omitempty"`
	Then      *Block       `yaml:"then,omitempty" msgpack:"then,omitempty"`
	Else      *Block       `yaml:"else,omitempty" msgpack:"else,omitempty"`
	Body      *Block       `yaml:"body,omitempty" msgpack:"body,omitempty"`
	Init      *Stmt        `yaml:"init,omitempty" msgpack:"init,omitempty"`
	Post      *Stmt        `yaml:"post,omitempty" msgpack:"post,omitempty"`
	Drops     []Drop       `yaml:"drops,omitempty" msgpack:"drops,omitempty"`
	ExitDrops []Drop       `yaml:"exit_drops,omitempty" msgpack:"exit_drops,omitempty"`
	BackDrops []Drop       `yaml:"back_drops,omitempty" msgpack:"back_drops,omitempty"`
}

// IsLoop reports whether the statement is a while or for loop.
func (s *Stmt) IsLoop() bool {
	return s != nil && (s.Kind == StmtWhile || s.Kind == StmtFor)
}

// Block represents a sequence of statements in HIR.
type Block struct {
	Stmts []*Stmt     `yaml:"stmts" msgpack:"stmts"`
	Span  source.Span `yaml:"span,omitempty" msgpack:"span,omitempty"`
}

// IsEmpty returns true if the block has no statements.
func (b *Block) IsEmpty() bool {
	return b == nil || len(b.Stmts) == 0
}

// LastStmt returns the last statement in the block, or nil if empty.
func (b *Block) LastStmt() *Stmt {
	if b.IsEmpty() {
		return nil
	}
	return b.Stmts[len(b.Stmts)-1]
}
