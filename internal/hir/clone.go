package hir

// Clone returns a deep copy of f. The checker annotates clones so the input
// module is never mutated.
func (f *Func) Clone() *Func {
	if f == nil {
		return nil
	}
	cp := *f
	cp.Params = append([]Param(nil), f.Params...)
	cp.Body = f.Body.Clone()
	return &cp
}

// Clone returns a deep copy of b.
func (b *Block) Clone() *Block {
	if b == nil {
		return nil
	}
	cp := &Block{Span: b.Span, Stmts: make([]*Stmt, len(b.Stmts))}
	for i, s := range b.Stmts {
		cp.Stmts[i] = s.Clone()
	}
	return cp
}

// Clone returns a deep copy of s.
func (s *Stmt) Clone() *Stmt {
	if s == nil {
		return nil
	}
	cp := *s
	cp.Target = s.Target.Clone()
	cp.Value = s.Value.Clone()
	cp.Cond = s.Cond.Clone()
	cp.Then = s.Then.Clone()
	cp.Else = s.Else.Clone()
	cp.Body = s.Body.Clone()
	cp.Init = s.Init.Clone()
	cp.Post = s.Post.Clone()
	cp.Drops = cloneDrops(s.Drops)
	cp.ExitDrops = cloneDrops(s.ExitDrops)
	cp.BackDrops = cloneDrops(s.BackDrops)
	return &cp
}

// Clone returns a deep copy of e.
func (e *Expr) Clone() *Expr {
	if e == nil {
		return nil
	}
	cp := *e
	cp.X = e.X.Clone()
	cp.Y = e.Y.Clone()
	if e.Args != nil {
		cp.Args = make([]*Expr, len(e.Args))
		for i, a := range e.Args {
			cp.Args[i] = a.Clone()
		}
	}
	return &cp
}

func cloneDrops(ds []Drop) []Drop {
	if ds == nil {
		return nil
	}
	out := make([]Drop, len(ds))
	for i, d := range ds {
		d.Place = clonePlace(d.Place)
		d.Ops = cloneOps(d.Ops)
		out[i] = d
	}
	return out
}

func cloneOps(ops []DropOp) []DropOp {
	if ops == nil {
		return nil
	}
	out := make([]DropOp, len(ops))
	for i, op := range ops {
		op.Place = clonePlace(op.Place)
		if op.Cases != nil {
			cases := make([]DropCase, len(op.Cases))
			for j, c := range op.Cases {
				cases[j] = DropCase{Variant: c.Variant, Ops: cloneOps(c.Ops)}
			}
			op.Cases = cases
		}
		out[i] = op
	}
	return out
}

func clonePlace(p Place) Place {
	p.Proj = append([]Proj(nil), p.Proj...)
	return p
}
