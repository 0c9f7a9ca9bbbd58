package vm

import (
	"brick/internal/hir"
)

func (vm *VM) eval(f *Frame, e *hir.Expr) (Value, error) {
	switch e.Kind {
	case hir.ExprLit:
		return vm.scalar(e.Type, e.Value), nil
	case hir.ExprGlobal:
		c, ok := vm.Globals[e.Name]
		if !ok {
			return Value{}, vm.panicf(PanicTypeMismatch, "unknown global %q", e.Name)
		}
		return c.V, nil
	case hir.ExprLocal, hir.ExprField, hir.ExprDeref:
		c, err := vm.place(f, e)
		if err != nil {
			return Value{}, err
		}
		if code, ok := readable(c); !ok {
			return Value{}, vm.panicf(code, "cannot read %s", e.Kind)
		}
		v := c.V.clone()
		if e.Access == hir.AccessMove {
			markMoved(c)
		}
		return v, nil
	case hir.ExprStruct:
		v := Value{Kind: VKStruct, Type: e.Type, Fields: make([]*Cell, len(e.Args))}
		for i, a := range e.Args {
			fv, err := vm.eval(f, a)
			if err != nil {
				return Value{}, err
			}
			v.Fields[i] = &Cell{V: fv}
		}
		return v, nil
	case hir.ExprUnion:
		payload := Value{Kind: VKUnit}
		if e.X != nil {
			var err error
			if payload, err = vm.eval(f, e.X); err != nil {
				return Value{}, err
			}
		}
		return Value{Kind: VKUnion, Type: e.Type, Variant: e.Index, Fields: []*Cell{{V: payload}}}, nil
	case hir.ExprCall:
		return vm.evalCall(f, e)
	case hir.ExprRef:
		c, err := vm.place(f, e.X)
		if err != nil {
			return Value{}, err
		}
		return Value{Kind: VKRef, Type: e.Type, Ref: c}, nil
	case hir.ExprUnary:
		x, err := vm.eval(f, e.X)
		if err != nil {
			return Value{}, err
		}
		if e.Op == hir.OpNot {
			return BoolValue(!x.Truthy()), nil
		}
		return Value{Kind: VKInt, Type: e.Type, Int: -x.Int}, nil
	case hir.ExprBinary:
		return vm.evalBinary(f, e)
	}
	return Value{}, vm.panicf(PanicUnimplemented, "expression %s", e.Kind)
}

func (vm *VM) evalCall(f *Frame, e *hir.Expr) (Value, error) {
	callee := vm.M.Func(e.Name)
	if callee == nil {
		return Value{}, vm.panicf(PanicUnknownFunc, "call to undefined function %q", e.Name)
	}
	args := make([]Value, 0, len(e.Args)+1)
	if e.X != nil {
		if e.Recv == hir.RecvRef {
			c, err := vm.place(f, e.X)
			if err != nil {
				return Value{}, err
			}
			args = append(args, Value{Kind: VKRef, Ref: c})
		} else {
			v, err := vm.eval(f, e.X)
			if err != nil {
				return Value{}, err
			}
			args = append(args, v)
		}
	}
	for _, a := range e.Args {
		v, err := vm.eval(f, a)
		if err != nil {
			return Value{}, err
		}
		args = append(args, v)
	}
	return vm.call(callee, args)
}

func (vm *VM) evalBinary(f *Frame, e *hir.Expr) (Value, error) {
	x, err := vm.eval(f, e.X)
	if err != nil {
		return Value{}, err
	}
	// && and || short-circuit.
	switch e.Op {
	case hir.OpAnd:
		if !x.Truthy() {
			return BoolValue(false), nil
		}
	case hir.OpOr:
		if x.Truthy() {
			return BoolValue(true), nil
		}
	}
	y, err := vm.eval(f, e.Y)
	if err != nil {
		return Value{}, err
	}
	a, b := x.Int, y.Int
	arith := func(n int64) (Value, error) { return Value{Kind: VKInt, Type: e.Type, Int: n}, nil }
	switch e.Op {
	case hir.OpAdd:
		return arith(a + b)
	case hir.OpSub:
		return arith(a - b)
	case hir.OpMul:
		return arith(a * b)
	case hir.OpDiv, hir.OpMod:
		if b == 0 {
			return Value{}, vm.panicf(PanicDivideByZero, "integer division by zero")
		}
		if e.Op == hir.OpDiv {
			return arith(a / b)
		}
		return arith(a % b)
	case hir.OpEq:
		return BoolValue(a == b), nil
	case hir.OpNe:
		return BoolValue(a != b), nil
	case hir.OpLt:
		return BoolValue(a < b), nil
	case hir.OpLe:
		return BoolValue(a <= b), nil
	case hir.OpGt:
		return BoolValue(a > b), nil
	case hir.OpGe:
		return BoolValue(a >= b), nil
	case hir.OpAnd, hir.OpOr:
		return BoolValue(y.Truthy()), nil
	}
	return Value{}, vm.panicf(PanicUnimplemented, "operator %s", e.Op)
}

// place resolves a place expression to its storage. Projections out of a
// temporary evaluate the base into a fresh cell.
func (vm *VM) place(f *Frame, e *hir.Expr) (*Cell, error) {
	switch e.Kind {
	case hir.ExprLocal:
		c, ok := f.Locals[e.Local]
		if !ok {
			return nil, vm.panicf(PanicUseBeforeInit, "local %d is not bound", e.Local)
		}
		return c, nil
	case hir.ExprGlobal:
		c, ok := vm.Globals[e.Name]
		if !ok {
			return nil, vm.panicf(PanicTypeMismatch, "unknown global %q", e.Name)
		}
		return c, nil
	case hir.ExprField:
		base, err := vm.place(f, e.X)
		if err != nil {
			return nil, err
		}
		if base.V.Kind == VKRef {
			base = base.V.Ref
		}
		if e.Index < 0 || e.Index >= len(base.V.Fields) {
			if base.Uninit || base.Moved {
				return nil, vm.panicf(PanicUseAfterMove, "field of a value that is gone")
			}
			return nil, vm.panicf(PanicTypeMismatch, "field %d of %s", e.Index, base.V)
		}
		return base.V.Fields[e.Index], nil
	case hir.ExprDeref:
		base, err := vm.place(f, e.X)
		if err != nil {
			return nil, err
		}
		if base.V.Kind != VKRef {
			return nil, vm.panicf(PanicTypeMismatch, "dereference of %s", base.V)
		}
		return base.V.Ref, nil
	}
	v, err := vm.eval(f, e)
	if err != nil {
		return nil, err
	}
	c := &Cell{V: v}
	f.owned = append(f.owned, c)
	return c, nil
}
