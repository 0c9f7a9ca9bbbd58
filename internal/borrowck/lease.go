package borrowck

import (
	"fmt"

	"fortio.org/safecast"

	"brick/internal/cfg"
	"brick/internal/diag"
	"brick/internal/hir"
	"brick/internal/source"
)

// LeaseID indexes the lease arena.
type LeaseID int32

// tempScope owns leases created for call arguments, receivers and
// conditions; they end with the statement that created them.
const tempScope cfg.ScopeID = -2

// noHolder marks a temporary lease.
const noHolder = -1

type lease struct {
	path   PathID
	holder int // local slot keeping the reference, or noHolder
	unique bool
	scope  cfg.ScopeID
	span   source.Span
}

// leaseTable is an arena of leases. A lease is keyed by the borrow
// expression that creates it, so re-evaluating that expression during the
// fixed-point iteration yields the same LeaseID.
type leaseTable struct {
	recs   []lease
	byExpr map[*hir.Expr]LeaseID
}

func newLeaseTable() *leaseTable {
	return &leaseTable{byExpr: make(map[*hir.Expr]LeaseID)}
}

func (t *leaseTable) intern(key *hir.Expr, l lease) LeaseID {
	if id, ok := t.byExpr[key]; ok {
		t.recs[id] = l
		return id
	}
	n, err := safecast.Conv[int32](len(t.recs))
	if err != nil {
		panic(fmt.Errorf("lease arena overflow: %w", err))
	}
	id := LeaseID(n)
	t.recs = append(t.recs, l)
	t.byExpr[key] = id
	return id
}

func (t *leaseTable) get(id LeaseID) lease {
	return t.recs[id]
}

// kindWord names the lease kind for diagnostics.
func (l lease) kindWord() string {
	return kindOf(l.unique)
}

// conflicting returns the first active lease that forbids a new lease of
// the given kind on p.
func (c *checker) conflicting(st *flowState, p PathID, unique bool, self LeaseID) (lease, bool) {
	for _, id := range st.leases {
		if id == self {
			continue
		}
		l := c.leases.get(id)
		if !c.paths.Overlaps(l.path, p) {
			continue
		}
		if unique || l.unique {
			return l, true
		}
	}
	return lease{}, false
}

// anyLease returns the first active lease overlapping p.
func (c *checker) anyLease(st *flowState, p PathID) (lease, bool) {
	for _, id := range st.leases {
		l := c.leases.get(id)
		if c.paths.Overlaps(l.path, p) {
			return l, true
		}
	}
	return lease{}, false
}

// uniqueLease returns the first active unique lease overlapping p.
func (c *checker) uniqueLease(st *flowState, p PathID) (lease, bool) {
	for _, id := range st.leases {
		l := c.leases.get(id)
		if l.unique && c.paths.Overlaps(l.path, p) {
			return l, true
		}
	}
	return lease{}, false
}

// borrowPath registers a lease of p created by expression key. target is
// the borrowed place expression; it is marked with the access kind.
func (c *checker) borrowPath(st *flowState, key, target *hir.Expr, p PathID, unique bool, ctx evalCtx) {
	sp := key.Span
	if !c.requireOwned(st, p, sp, "borrow") {
		return
	}
	if c.paths.Indirect(p) {
		root := c.paths.Root(c.paths.RootOf(p))
		if unique && !c.facts.IsUniqueReference(c.paths.Type(root)) {
			c.errorf(diag.BrkBorrowConflict, sp, "cannot borrow `%s` as unique: `%s` is a shared reference",
				c.paths.String(p), c.paths.String(root))
		}
	}
	id := c.leases.intern(key, lease{path: p, holder: ctx.holder, unique: unique, scope: ctx.scope, span: sp})
	if other, bad := c.conflicting(st, p, unique, id); bad {
		c.report(diag.BrkBorrowConflict, sp,
			fmt.Sprintf("cannot borrow `%s` as %s: it is %s", c.paths.String(p), kindOf(unique), c.stateOf(st, p)),
			diag.Note{Span: other.span, Msg: fmt.Sprintf("%s borrow of `%s` is still active here", other.kindWord(), c.paths.String(other.path))})
	}
	st.addLease(id)
	c.touched = append(c.touched, id)
	if unique {
		target.Access = hir.AccessUnique
	} else {
		target.Access = hir.AccessShared
	}
	c.event(EvBorrowStart, p, sp, id, kindOf(unique))
}

func kindOf(unique bool) string {
	if unique {
		return "unique"
	}
	return "shared"
}

// releaseScope ends every lease owned by scope.
func (c *checker) releaseScope(st *flowState, scope cfg.ScopeID, sp source.Span) {
	for _, id := range st.removeLeases(func(id LeaseID) bool { return c.leases.get(id).scope == scope }) {
		c.event(EvBorrowEnd, c.leases.get(id).path, sp, id, "scope")
	}
}

// releaseHolder ends leases kept alive by slot except those in keep.
func (c *checker) releaseHolder(st *flowState, slot int, keep []LeaseID, sp source.Span) {
	removed := st.removeLeases(func(id LeaseID) bool {
		if c.leases.get(id).holder != slot {
			return false
		}
		for _, k := range keep {
			if k == id {
				return false
			}
		}
		return true
	})
	for _, id := range removed {
		c.event(EvBorrowEnd, c.leases.get(id).path, sp, id, "reassigned")
	}
}

func (c *checker) leasesHeldBy(st *flowState, slot int) []LeaseID {
	var out []LeaseID
	for _, id := range st.leases {
		if c.leases.get(id).holder == slot {
			out = append(out, id)
		}
	}
	return out
}
