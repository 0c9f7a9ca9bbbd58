package borrowck

import (
	"fmt"
	"strings"

	"fortio.org/safecast"

	"brick/internal/hir"
	"brick/internal/types"
)

// PathID indexes a PathTable. Paths are interned, so equal paths share an ID.
type PathID int32

// NoPath marks a failed normalization.
const NoPath PathID = -1

// derefStep is the projection from a reference local to its referent.
const derefStep = -1

type pathRec struct {
	root     int // local slot
	parent   PathID
	step     int // field index or derefStep
	depth    int
	ty       types.TypeID
	indirect bool
}

type pathKey struct {
	parent PathID
	step   int
}

// PathTable interns the places of one function: a root local followed by
// field projections, with an optional dereference right after a
// reference-typed root. Paths below a dereference are indirect and never
// carry ownership.
type PathTable struct {
	facts *types.Interner
	recs  []pathRec
	index map[pathKey]PathID
	roots []PathID
	slots map[hir.LocalID]int
	info  []hir.LocalInfo
}

// NewPathTable builds the table for fn's locals.
func NewPathTable(fn *hir.Func, facts *types.Interner) *PathTable {
	locals := fn.Locals()
	t := &PathTable{
		facts: facts,
		index: make(map[pathKey]PathID),
		roots: make([]PathID, len(locals)),
		slots: make(map[hir.LocalID]int, len(locals)),
		info:  locals,
	}
	for i, l := range locals {
		t.slots[l.ID] = i
		t.roots[i] = t.add(pathRec{root: i, parent: NoPath, ty: l.Type})
	}
	return t
}

func (t *PathTable) add(rec pathRec) PathID {
	n, err := safecast.Conv[int32](len(t.recs))
	if err != nil {
		panic(fmt.Errorf("path arena overflow: %w", err))
	}
	id := PathID(n)
	t.recs = append(t.recs, rec)
	if rec.parent != NoPath {
		t.index[pathKey{parent: rec.parent, step: rec.step}] = id
	}
	return id
}

// Slots returns the number of locals.
func (t *PathTable) Slots() int { return len(t.roots) }

// Slot maps a LocalID to its dense slot.
func (t *PathTable) Slot(id hir.LocalID) (int, bool) {
	s, ok := t.slots[id]
	return s, ok
}

// Local returns the declaration info of slot.
func (t *PathTable) Local(slot int) hir.LocalInfo { return t.info[slot] }

// Root returns the path of the whole local in slot.
func (t *PathTable) Root(slot int) PathID { return t.roots[slot] }

// RootOf returns the slot a path starts at.
func (t *PathTable) RootOf(p PathID) int { return t.recs[p].root }

// Type returns the type of the value at p.
func (t *PathTable) Type(p PathID) types.TypeID { return t.recs[p].ty }

// Indirect reports whether p reaches through a reference.
func (t *PathTable) Indirect(p PathID) bool { return t.recs[p].indirect }

// Parent returns the enclosing path, or NoPath for roots.
func (t *PathTable) Parent(p PathID) PathID { return t.recs[p].parent }

// Field returns p extended by field i, interning it if needed.
func (t *PathTable) Field(p PathID, i int) PathID {
	ft := types.NoTypeID
	if f, ok := t.facts.Field(t.recs[p].ty, i); ok {
		ft = f.Type
	}
	return t.child(p, i, ft)
}

// Deref returns the referent path of a reference-typed root.
func (t *PathTable) Deref(p PathID) PathID {
	return t.child(p, derefStep, t.facts.Elem(t.recs[p].ty))
}

func (t *PathTable) child(p PathID, step int, ty types.TypeID) PathID {
	if id, ok := t.index[pathKey{parent: p, step: step}]; ok {
		return id
	}
	parent := t.recs[p]
	return t.add(pathRec{
		root:     parent.root,
		parent:   p,
		step:     step,
		depth:    parent.depth + 1,
		ty:       ty,
		indirect: parent.indirect || step == derefStep,
	})
}

// Normalize maps a place expression to its path. It fails for expressions
// that denote temporaries: literals, calls, aggregates, operators, globals
// and projections out of any of those.
func (t *PathTable) Normalize(e *hir.Expr) (PathID, bool) {
	if e == nil {
		return NoPath, false
	}
	switch e.Kind {
	case hir.ExprLocal:
		slot, ok := t.slots[e.Local]
		if !ok {
			return NoPath, false
		}
		return t.roots[slot], true
	case hir.ExprField:
		base, ok := t.Normalize(e.X)
		if !ok {
			return NoPath, false
		}
		if t.facts.IsReference(t.recs[base].ty) {
			if t.recs[base].parent != NoPath {
				// References stored in fields are not tracked.
				return NoPath, false
			}
			base = t.Deref(base)
		}
		return t.Field(base, e.Index), true
	case hir.ExprDeref:
		if e.X == nil || e.X.Kind != hir.ExprLocal {
			return NoPath, false
		}
		base, ok := t.Normalize(e.X)
		if !ok {
			return NoPath, false
		}
		return t.Deref(base), true
	}
	return NoPath, false
}

// IsPrefix reports whether q equals p or extends it with more projections.
func (t *PathTable) IsPrefix(p, q PathID) bool {
	rp, rq := t.recs[p], t.recs[q]
	if rp.root != rq.root || rp.depth > rq.depth {
		return false
	}
	for t.recs[q].depth > rp.depth {
		q = t.recs[q].parent
	}
	return p == q
}

// Disjoint reports whether neither path is a prefix of the other. Sibling
// fields of one parent are disjoint.
func (t *PathTable) Disjoint(p, q PathID) bool {
	return !t.IsPrefix(p, q) && !t.IsPrefix(q, p)
}

// Overlaps is the negation of Disjoint.
func (t *PathTable) Overlaps(p, q PathID) bool {
	return !t.Disjoint(p, q)
}

// Place converts p into an HIR drop place.
func (t *PathTable) Place(p PathID) hir.Place {
	var steps []int
	for cur := p; t.recs[cur].parent != NoPath; cur = t.recs[cur].parent {
		steps = append(steps, t.recs[cur].step)
	}
	rec := t.recs[p]
	pl := hir.Place{Root: hir.RootLocal, Local: t.info[rec.root].ID}
	for i := len(steps) - 1; i >= 0; i-- {
		if steps[i] == derefStep {
			pl.Deref = true
			continue
		}
		pl.Proj = append(pl.Proj, hir.Proj{Kind: hir.ProjField, Index: steps[i]})
	}
	return pl
}

// String renders p as written in source, e.g. `x.a.b` or `*r`.
func (t *PathTable) String(p PathID) string {
	rec := t.recs[p]
	if rec.parent == NoPath {
		if name := t.info[rec.root].Name; name != "" {
			return name
		}
		return fmt.Sprintf("_%d", t.info[rec.root].ID)
	}
	parent := t.String(rec.parent)
	if rec.step == derefStep {
		return "*" + parent
	}
	ptype := t.recs[rec.parent].ty
	name := fmt.Sprintf("%d", rec.step)
	if f, ok := t.facts.Field(ptype, rec.step); ok && f.Name != "" {
		name = f.Name
	}
	return strings.TrimPrefix(parent, "*") + "." + name
}
