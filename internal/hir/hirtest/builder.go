// Package hirtest builds small HIR modules for tests.
package hirtest

import (
	"fmt"

	"brick/internal/hir"
	"brick/internal/source"
	"brick/internal/types"
)

// Builder assembles a module. Types are registered first; Build finalizes
// the type table, assigns spans and validates the result.
type Builder struct {
	Facts *types.Interner
	Mod   *hir.Module

	Unit types.TypeID
	Bool types.TypeID
	Int  types.TypeID

	next hir.LocalID
}

// New returns a builder for a module called name with one source file.
func New(name string) *Builder {
	facts := types.NewInterner()
	m := hir.NewModule(name, facts)
	m.Files = []string{name + ".brk"}
	bi := facts.Builtins()
	return &Builder{Facts: facts, Mod: m, Unit: bi.Unit, Bool: bi.Bool, Int: bi.Int}
}

// Var is a local binding handle.
type Var struct {
	ID   hir.LocalID
	Name string
	Type types.TypeID
}

// Ref reads the variable.
func (v Var) Ref() *hir.Expr { return hir.LocalRef(v.ID, v.Type) }

// Let declares the variable with init, which may be nil.
func (v Var) Let(init *hir.Expr) *hir.Stmt { return hir.Let(v.ID, v.Name, v.Type, init) }

// Param turns the variable into a function parameter.
func (v Var) Param() hir.Param { return hir.Param{Local: v.ID, Name: v.Name, Type: v.Type} }

// Var allocates a fresh local.
func (b *Builder) Var(name string, ty types.TypeID) Var {
	b.next++
	return Var{ID: b.next, Name: name, Type: ty}
}

// Struct registers a struct type.
func (b *Builder) Struct(name string, fields ...types.Field) types.TypeID {
	return b.Facts.Add(types.MakeStruct(name, fields...))
}

// Union registers a union type.
func (b *Builder) Union(name string, variants ...types.Field) types.TypeID {
	return b.Facts.Add(types.MakeUnion(name, variants...))
}

// Resource registers a fieldless Resource struct without a destructor.
func (b *Builder) Resource(name string) types.TypeID {
	return b.Facts.Add(types.MakeStruct(name).WithClass(types.ClassResource))
}

// Ref returns the shared or unique reference type to elem.
func (b *Builder) Ref(elem types.TypeID, unique bool) types.TypeID {
	return b.Facts.Reference(elem, unique)
}

// Global declares an int global.
func (b *Builder) Global(name string, init int64) {
	b.Mod.Globals = append(b.Mod.Globals, hir.Global{Name: name, Type: b.Int, Init: init})
}

// G reads an int global. Every call returns a fresh node.
func (b *Builder) G(name string) *hir.Expr {
	return hir.GlobalRef(name, b.Int)
}

// Func adds a function.
func (b *Builder) Func(name string, result types.TypeID, params []Var, body ...*hir.Stmt) *hir.Func {
	fn := &hir.Func{Name: name, Result: result, Body: hir.Blk(body...)}
	for _, p := range params {
		fn.Params = append(fn.Params, p.Param())
	}
	return b.Mod.AddFunc(fn)
}

// Destructor registers fn as the destructor of ty. body receives `self`.
func (b *Builder) Destructor(ty types.TypeID, name string, body func(self Var) []*hir.Stmt) *hir.Func {
	self := b.Var("self", b.Ref(ty, true))
	fn := b.Func(name, b.Unit, []Var{self}, body(self)...)
	fn.Flags |= hir.FuncDestructor
	b.Facts.SetDestructor(ty, name)
	return fn
}

// Sink adds `name(x: ty)` with an empty body, a function that consumes its
// argument.
func (b *Builder) Sink(name string, ty types.TypeID) *hir.Func {
	return b.Func(name, b.Unit, []Var{b.Var("x", ty)})
}

// Build finalizes types, fills spans and validates the module.
func (b *Builder) Build() (*hir.Module, error) {
	if err := b.Facts.Finalize(); err != nil {
		return nil, fmt.Errorf("finalize types: %w", err)
	}
	b.Mod.SyncTypes()
	for _, fn := range b.Mod.Funcs {
		hir.FillSpans(fn, source.FileID(1))
	}
	if err := hir.Validate(b.Mod); err != nil {
		return nil, err
	}
	return b.Mod, nil
}

// Incr is `target += n`.
func Incr(target *hir.Expr, n int64) *hir.Stmt {
	return hir.AssignWith(hir.AssignAdd, target, hir.Lit(target.Type, n))
}
