package hir

import "brick/internal/source"

// FillSpans gives every statement and expression without a span a unique
// one-byte span in file, numbered in source order. Hand-written fixtures
// rely on it so diagnostics stay distinguishable.
func FillSpans(f *Func, file source.FileID) {
	if f == nil {
		return
	}
	var next uint32
	maxEnd := func(sp source.Span) {
		if sp.File == file && sp.End > next {
			next = sp.End
		}
	}
	maxEnd(f.Span)
	for _, p := range f.Params {
		maxEnd(p.Span)
	}
	WalkStmts(f.Body, func(s *Stmt) {
		maxEnd(s.Span)
		eachExpr(s, func(e *Expr) { e.Walk(func(x *Expr) { maxEnd(x.Span) }) })
	})

	fill := func(sp *source.Span) {
		if *sp != (source.Span{}) {
			return
		}
		*sp = source.Span{File: file, Start: next, End: next + 1}
		next++
	}
	fill(&f.Span)
	for i := range f.Params {
		fill(&f.Params[i].Span)
	}
	WalkStmts(f.Body, func(s *Stmt) {
		fill(&s.Span)
		eachExpr(s, func(e *Expr) { e.Walk(func(x *Expr) { fill(&x.Span) }) })
	})
}

// eachExpr calls fn for the top-level expressions owned directly by s.
func eachExpr(s *Stmt, fn func(*Expr)) {
	for _, e := range []*Expr{s.Target, s.Value, s.Cond} {
		if e != nil {
			fn(e)
		}
	}
}
