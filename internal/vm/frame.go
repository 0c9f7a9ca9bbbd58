package vm

import (
	"brick/internal/hir"
	"brick/internal/source"
)

// Frame represents a function activation record on the call stack.
type Frame struct {
	Func   *hir.Func
	Locals map[hir.LocalID]*Cell
	Span   source.Span // current statement, for error reporting

	temp  *Cell   // discarded value of the current expression statement
	owned []*Cell // every cell the frame created, checked for leaks on return
	ret   Value
}

// NewFrame creates a frame for fn with args bound to its parameters.
func NewFrame(fn *hir.Func, args []Value) *Frame {
	f := &Frame{
		Func:   fn,
		Locals: make(map[hir.LocalID]*Cell, len(fn.Params)+8),
		Span:   fn.Span,
	}
	for i, p := range fn.Params {
		c := &Cell{}
		if i < len(args) {
			c.V = args[i]
		} else {
			c.Uninit = true
		}
		f.bind(p.Local, c)
	}
	return f
}

func (f *Frame) bind(id hir.LocalID, c *Cell) {
	f.Locals[id] = c
	f.owned = append(f.owned, c)
}
