package vm

import (
	"fmt"

	"brick/internal/hir"
)

func (vm *VM) runDrops(f *Frame, ds []hir.Drop) error {
	for _, d := range ds {
		for _, op := range d.Ops {
			if err := vm.runOp(f, op); err != nil {
				return err
			}
		}
	}
	return nil
}

func (vm *VM) runOp(f *Frame, op hir.DropOp) error {
	c, err := vm.resolve(f, op.Place)
	if err != nil {
		return err
	}
	switch op.Kind {
	case hir.DropOpDestructor:
		switch {
		case c.Dropped:
			return vm.panicf(PanicDoubleDrop, "%s destroyed twice", op.Func)
		case c.Moved:
			return vm.panicf(PanicDropMoved, "%s called on moved-out value", op.Func)
		case c.Uninit:
			return vm.panicf(PanicUseBeforeInit, "%s called on uninitialized value", op.Func)
		}
		fn := vm.M.Func(op.Func)
		if fn == nil {
			return vm.panicf(PanicUnknownFunc, "destructor %q is not defined", op.Func)
		}
		if _, err := vm.call(fn, []Value{{Kind: VKRef, Ref: c}}); err != nil {
			return err
		}
		c.Dropped = true
	case hir.DropOpVariant:
		for _, cs := range op.Cases {
			if cs.Variant != c.V.Variant {
				continue
			}
			for _, sub := range cs.Ops {
				if err := vm.runOp(f, sub); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// resolve maps a drop place to its storage.
func (vm *VM) resolve(f *Frame, pl hir.Place) (*Cell, error) {
	var c *Cell
	switch pl.Root {
	case hir.RootTemp:
		c = f.temp
	default:
		c = f.Locals[pl.Local]
	}
	if c == nil {
		return nil, vm.panicf(PanicUseBeforeInit, "drop place %s has no storage", placeString(pl))
	}
	if pl.Deref {
		if c.V.Kind != VKRef {
			return nil, vm.panicf(PanicTypeMismatch, "drop place %s is not a reference", placeString(pl))
		}
		c = c.V.Ref
	}
	for _, pr := range pl.Proj {
		switch pr.Kind {
		case hir.ProjField:
			if pr.Index >= len(c.V.Fields) {
				return nil, vm.panicf(PanicTypeMismatch, "drop place %s: no field %d", placeString(pl), pr.Index)
			}
			c = c.V.Fields[pr.Index]
		case hir.ProjVariant:
			if c.V.Kind != VKUnion || c.V.Variant != pr.Index {
				return nil, vm.panicf(PanicTypeMismatch, "drop place %s: inactive variant %d", placeString(pl), pr.Index)
			}
			c = c.V.Fields[0]
		}
	}
	return c, nil
}

func placeString(pl hir.Place) string {
	s := fmt.Sprintf("_%d", pl.Local)
	if pl.Root == hir.RootTemp {
		s = "<temp>"
	}
	if pl.Deref {
		s = "*" + s
	}
	for _, pr := range pl.Proj {
		s += fmt.Sprintf(".%d", pr.Index)
	}
	return s
}

// checkLeaks verifies that every value the frame created was moved out or
// destroyed. A value whose parts were moved out legitimately skips its own
// destructor.
func (vm *VM) checkLeaks(f *Frame) error {
	for _, c := range f.owned {
		if err := vm.leaked(c); err != nil {
			return err
		}
	}
	return nil
}

func (vm *VM) leaked(c *Cell) error {
	if c.Moved || c.Uninit || c.V.Kind == VKRef {
		return nil
	}
	if d := vm.Types.Destructor(c.V.Type); d != "" && !c.Dropped && !movedBelow(c) {
		return vm.panicf(PanicLeak, "value of %s was never destroyed", vm.Types.Name(c.V.Type))
	}
	if c.V.Kind == VKUnion {
		return vm.leaked(c.V.Fields[0])
	}
	for _, fc := range c.V.Fields {
		if err := vm.leaked(fc); err != nil {
			return err
		}
	}
	return nil
}
