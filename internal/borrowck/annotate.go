package borrowck

import (
	"brick/internal/cfg"
	"brick/internal/hir"
	"brick/internal/source"
)

// annotate writes the recorded drops back into the structured body.
func (c *checker) annotate() {
	c.rewriteBlock(c.fn.Body)
}

func (c *checker) rewriteBlock(b *hir.Block) {
	if b == nil {
		return
	}
	out := make([]*hir.Stmt, 0, len(b.Stmts))
	for _, s := range b.Stmts {
		if ds := c.drops[cfg.Anchor{Kind: cfg.AnchorBefore, Stmt: s}]; len(ds) > 0 {
			out = append(out, dropStmt(s.Span, ds))
		}
		c.rewriteStmt(s)
		out = append(out, s)
		if ds := c.drops[cfg.Anchor{Kind: cfg.AnchorAfter, Stmt: s}]; len(ds) > 0 {
			out = append(out, dropStmt(s.Span, ds))
		}
	}
	if ds := c.drops[cfg.Anchor{Kind: cfg.AnchorBlockEnd, Block: b}]; len(ds) > 0 {
		out = append(out, dropStmt(b.Span, ds))
	}
	b.Stmts = out
}

func (c *checker) rewriteStmt(s *hir.Stmt) {
	if s == nil {
		return
	}
	s.Drops = append(s.Drops, c.drops[cfg.Anchor{Kind: cfg.AnchorStmt, Stmt: s}]...)
	s.ExitDrops = append(s.ExitDrops, c.drops[cfg.Anchor{Kind: cfg.AnchorLoopExit, Stmt: s}]...)
	s.BackDrops = append(s.BackDrops, c.drops[cfg.Anchor{Kind: cfg.AnchorLoopBack, Stmt: s}]...)
	c.rewriteStmt(s.Init)
	c.rewriteStmt(s.Post)
	c.rewriteBlock(s.Then)
	c.rewriteBlock(s.Else)
	c.rewriteBlock(s.Body)
	if ds := c.drops[cfg.Anchor{Kind: cfg.AnchorElse, Stmt: s}]; len(ds) > 0 {
		if s.Else == nil {
			s.Else = &hir.Block{Span: s.Span}
		}
		s.Else.Stmts = append(s.Else.Stmts, dropStmt(s.Span, ds))
	}
}

func dropStmt(sp source.Span, ds []hir.Drop) *hir.Stmt {
	return &hir.Stmt{Kind: hir.StmtDrop, Span: sp, Drops: ds}
}

// anchorSpan returns a span for events recorded at an anchor.
func (c *checker) anchorSpan(at cfg.Anchor) source.Span {
	switch {
	case at.Stmt != nil:
		return at.Stmt.Span
	case at.Block != nil:
		return at.Block.Span
	}
	return c.fn.Span
}
