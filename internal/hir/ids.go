// Package hir provides the typed, control-flow-explicit intermediate form
// consumed by the ownership checker.
//
// Every expression carries the TypeID assigned upstream, locals are
// numbered per function, and calls name their callee directly. The checker
// returns the same tree annotated with access markers on reads (copy, move,
// shared or unique borrow) and explicit drop nodes, so code generation needs
// no liveness analysis of its own.
package hir

// FuncID identifies a function within an HIR module.
type FuncID uint32

// LocalID identifies a local variable or parameter within a function.
type LocalID uint32

// Invalid ID constants (zero is sentinel).
const (
	NoFuncID  FuncID  = 0
	NoLocalID LocalID = 0
)

// IsValid returns true if the ID is valid (non-zero).
func (id FuncID) IsValid() bool  { return id != NoFuncID }
func (id LocalID) IsValid() bool { return id != NoLocalID }
