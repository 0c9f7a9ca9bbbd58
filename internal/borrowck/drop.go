package borrowck

import (
	"brick/internal/cfg"
	"brick/internal/hir"
	"brick/internal/types"
)

// fullOps returns the drop glue for a whole value of type ty at place: the
// type's destructor first, then every Resource field in declaration order.
// A union switches on its active variant and drops only that payload.
func (c *checker) fullOps(place hir.Place, ty types.TypeID) []hir.DropOp {
	if !c.facts.IsResource(ty) {
		return nil
	}
	t, ok := c.facts.Lookup(ty)
	if !ok {
		return nil
	}
	var ops []hir.DropOp
	if t.Destructor != "" {
		ops = append(ops, hir.DropOp{Kind: hir.DropOpDestructor, Place: place, Type: ty, Func: t.Destructor})
	}
	switch t.Kind {
	case types.KindStruct:
		for i, f := range t.Fields {
			ops = append(ops, c.fullOps(place.Field(i), f.Type)...)
		}
	case types.KindUnion:
		var cases []hir.DropCase
		for i, f := range t.Fields {
			if sub := c.fullOps(place.Variant(i), f.Type); len(sub) > 0 {
				cases = append(cases, hir.DropCase{Variant: i, Ops: sub})
			}
		}
		if len(cases) > 0 {
			ops = append(ops, hir.DropOp{Kind: hir.DropOpVariant, Place: place, Type: ty, Cases: cases})
		}
	}
	return ops
}

// remainderOps returns what st still owns at p. When nothing below p was
// moved this is the full drop; otherwise the parent destructor is skipped
// and only the remaining Resource fields are dropped.
func (c *checker) remainderOps(st *flowState, p PathID) (ops []hir.DropOp, partial bool) {
	if _, moved := st.covering(c.paths, p); moved {
		return nil, false
	}
	ty := c.paths.Type(p)
	if _, below := st.movedBelow(c.paths, p); !below {
		return c.fullOps(c.paths.Place(p), ty), false
	}
	for i, f := range c.facts.Fields(ty) {
		if !c.facts.IsResource(f.Type) {
			continue
		}
		sub, _ := c.remainderOps(st, c.paths.Field(p, i))
		ops = append(ops, sub...)
	}
	return ops, true
}

// dropRemainder records a drop of whatever st still owns at p.
func (c *checker) dropRemainder(st *flowState, p PathID, reason hir.DropReason, at cfg.Anchor) {
	if !c.emit || !c.facts.IsResource(c.paths.Type(p)) {
		return
	}
	ops, partial := c.remainderOps(st, p)
	if len(ops) == 0 {
		return
	}
	c.addDrop(at, hir.Drop{
		Reason:  reason,
		Place:   c.paths.Place(p),
		Type:    c.paths.Type(p),
		Partial: partial,
		Ops:     ops,
	})
	c.event(EvDrop, p, c.anchorSpan(at), -1, reason.String())
}

func (c *checker) addDrop(at cfg.Anchor, d hir.Drop) {
	c.drops[at] = append(c.drops[at], d)
}
