package hir

import (
	"strings"

	"brick/internal/source"
	"brick/internal/types"
)

// FuncFlags represents function modifiers as a bitmask.
type FuncFlags uint32

const (
	// FuncDestructor marks the drop function of a type; its only parameter
	// is `self: unique ref T`.
	FuncDestructor FuncFlags = 1 << iota
	// FuncEntrypoint indicates the program entry point.
	FuncEntrypoint
)

// HasFlag returns true if the given flag is set.
func (f FuncFlags) HasFlag(flag FuncFlags) bool {
	return f&flag != 0
}

// String returns a human-readable representation of flags.
func (f FuncFlags) String() string {
	var parts []string
	if f.HasFlag(FuncDestructor) {
		parts = append(parts, "@drop")
	}
	if f.HasFlag(FuncEntrypoint) {
		parts = append(parts, "@entrypoint")
	}
	return strings.Join(parts, " ")
}

// Param is a function parameter. Reference-typed parameters are borrowed
// from the caller; everything else is owned by the callee.
type Param struct {
	Local LocalID      `yaml:"local" msgpack:"local"`
	Name  string       `yaml:"name" msgpack:"name"`
	Type  types.TypeID `yaml:"type" msgpack:"type"`
	Span  source.Span  `yaml:"span,omitempty" msgpack:"span,omitempty"`
}

// Func is a function with a structured body.
type Func struct {
	ID     FuncID       `yaml:"id,omitempty" msgpack:"id,omitempty"`
	Name   string       `yaml:"name" msgpack:"name"`
	Span   source.Span  `yaml:"span,omitempty" msgpack:"span,omitempty"`
	Flags  FuncFlags    `yaml:"flags,omitempty" msgpack:"flags,omitempty"`
	Params []Param      `yaml:"params,omitempty" msgpack:"params,omitempty"`
	Result types.TypeID `yaml:"result,omitempty" msgpack:"result,omitempty"`
	Body   *Block       `yaml:"body" msgpack:"body"`
}

// IsDestructor reports whether f is a type's drop function.
func (f *Func) IsDestructor() bool {
	return f != nil && f.Flags.HasFlag(FuncDestructor)
}

// LocalInfo describes one local binding.
type LocalInfo struct {
	ID    LocalID
	Name  string
	Type  types.TypeID
	Param bool
}

// Locals lists parameters and let-bound locals in declaration order.
func (f *Func) Locals() []LocalInfo {
	if f == nil {
		return nil
	}
	out := make([]LocalInfo, 0, len(f.Params)+8)
	for _, p := range f.Params {
		out = append(out, LocalInfo{ID: p.Local, Name: p.Name, Type: p.Type, Param: true})
	}
	WalkStmts(f.Body, func(s *Stmt) {
		if s.Kind == StmtLet {
			out = append(out, LocalInfo{ID: s.Local, Name: s.Name, Type: s.Type})
		}
	})
	return out
}

// WalkStmts visits every statement under b in source order, including for
// loop Init and Post statements.
func WalkStmts(b *Block, fn func(*Stmt)) {
	if b == nil {
		return
	}
	for _, s := range b.Stmts {
		walkStmt(s, fn)
	}
}

func walkStmt(s *Stmt, fn func(*Stmt)) {
	if s == nil {
		return
	}
	fn(s)
	if s.Init != nil {
		walkStmt(s.Init, fn)
	}
	WalkStmts(s.Then, fn)
	WalkStmts(s.Else, fn)
	WalkStmts(s.Body, fn)
	if s.Post != nil {
		walkStmt(s.Post, fn)
	}
}
