package vm

import (
	"brick/internal/hir"
)

// flow is how a statement left control.
type flow uint8

const (
	flowNext flow = iota
	flowBreak
	flowContinue
	flowReturn
)

func (vm *VM) execBlock(f *Frame, b *hir.Block) (flow, error) {
	if b == nil {
		return flowNext, nil
	}
	for _, s := range b.Stmts {
		fl, err := vm.execStmt(f, s)
		if err != nil || fl != flowNext {
			return fl, err
		}
	}
	return flowNext, nil
}

func (vm *VM) execStmt(f *Frame, s *hir.Stmt) (flow, error) {
	if err := vm.step(); err != nil {
		return flowNext, err
	}
	f.Span = s.Span
	switch s.Kind {
	case hir.StmtLet:
		c := &Cell{Uninit: s.Value == nil}
		if s.Value != nil {
			v, err := vm.eval(f, s.Value)
			if err != nil {
				return flowNext, err
			}
			c.V = v
		}
		f.bind(s.Local, c)
	case hir.StmtAssign:
		return flowNext, vm.assign(f, s)
	case hir.StmtExpr:
		v, err := vm.eval(f, s.Value)
		if err != nil {
			return flowNext, err
		}
		f.temp = &Cell{V: v}
		f.owned = append(f.owned, f.temp)
		err = vm.runDrops(f, s.Drops)
		f.temp = nil
		return flowNext, err
	case hir.StmtReturn:
		if s.Value != nil {
			v, err := vm.eval(f, s.Value)
			if err != nil {
				return flowNext, err
			}
			f.ret = v
		}
		return flowReturn, vm.runDrops(f, s.Drops)
	case hir.StmtBreak:
		return flowBreak, nil
	case hir.StmtContinue:
		return flowContinue, nil
	case hir.StmtIf:
		cond, err := vm.eval(f, s.Cond)
		if err != nil {
			return flowNext, err
		}
		if cond.Truthy() {
			return vm.execBlock(f, s.Then)
		}
		return vm.execBlock(f, s.Else)
	case hir.StmtWhile, hir.StmtFor:
		return vm.loop(f, s)
	case hir.StmtBlock:
		return vm.execBlock(f, s.Body)
	case hir.StmtDrop:
		return flowNext, vm.runDrops(f, s.Drops)
	default:
		return flowNext, vm.panicf(PanicUnimplemented, "statement %s", s.Kind)
	}
	return flowNext, nil
}

// assign evaluates the value, runs the drops of the superseded value and
// only then stores.
func (vm *VM) assign(f *Frame, s *hir.Stmt) error {
	v, err := vm.eval(f, s.Value)
	if err != nil {
		return err
	}
	dst, err := vm.place(f, s.Target)
	if err != nil {
		return err
	}
	if s.Op != hir.AssignSet {
		if code, ok := readable(dst); !ok {
			return vm.panicf(code, "compound assignment reads unusable value")
		}
		switch s.Op {
		case hir.AssignAdd:
			v = Value{Kind: dst.V.Kind, Type: dst.V.Type, Int: dst.V.Int + v.Int}
		case hir.AssignSub:
			v = Value{Kind: dst.V.Kind, Type: dst.V.Type, Int: dst.V.Int - v.Int}
		}
	}
	if err := vm.runDrops(f, s.Drops); err != nil {
		return err
	}
	if len(dst.V.Fields) > 0 {
		// The superseded aggregate stays reachable for the leak check.
		f.owned = append(f.owned, &Cell{V: dst.V, Moved: dst.Moved, Dropped: dst.Dropped})
	}
	*dst = Cell{V: v}
	return nil
}

func (vm *VM) loop(f *Frame, s *hir.Stmt) (flow, error) {
	if s.Kind == hir.StmtFor && s.Init != nil {
		if _, err := vm.execStmt(f, s.Init); err != nil {
			return flowNext, err
		}
	}
	for {
		if s.Cond != nil {
			cond, err := vm.eval(f, s.Cond)
			if err != nil {
				return flowNext, err
			}
			if !cond.Truthy() {
				return flowNext, vm.runDrops(f, s.ExitDrops)
			}
		}
		fl, err := vm.execBlock(f, s.Body)
		if err != nil {
			return flowNext, err
		}
		switch fl {
		case flowBreak:
			return flowNext, nil
		case flowReturn:
			return flowReturn, nil
		}
		if err := vm.step(); err != nil {
			return flowNext, err
		}
		if s.Kind == hir.StmtFor {
			if s.Post != nil {
				if _, err := vm.execStmt(f, s.Post); err != nil {
					return flowNext, err
				}
			}
			if err := vm.runDrops(f, s.BackDrops); err != nil {
				return flowNext, err
			}
		}
	}
}
