package borrowck

import (
	"fmt"
	"slices"

	"brick/internal/cfg"
	"brick/internal/source"
)

// origin records how a moved entry came to be.
type origin uint8

const (
	// originMoved is an unconditional move on every incoming path.
	originMoved origin = iota
	// originConditional is a move on some but not all incoming paths.
	originConditional
	// originLoopCarried is a move that reaches a loop header only along a
	// back edge, i.e. it happened in a previous iteration.
	originLoopCarried
)

// moveEntry says the whole subtree at path no longer holds an owned value.
type moveEntry struct {
	path   PathID
	origin origin
	uninit bool
	span   source.Span
	// joinLoop is the innermost loop around the join that made a
	// conditional entry; NoLoop when that join is outside every loop.
	// Other origins leave it zero and never read it.
	joinLoop cfg.LoopID
}

// localState tracks one root. moved is kept minimal (no entry is a prefix of
// another) and sorted by path, so comparisons are cheap and deterministic.
type localState struct {
	live  bool
	moved []moveEntry
}

type flowState struct {
	locals []localState
	leases []LeaseID // sorted
}

func newFlowState(slots int) *flowState {
	return &flowState{locals: make([]localState, slots)}
}

func (s *flowState) clone() *flowState {
	cp := &flowState{
		locals: make([]localState, len(s.locals)),
		leases: slices.Clone(s.leases),
	}
	for i, l := range s.locals {
		cp.locals[i] = localState{live: l.live, moved: slices.Clone(l.moved)}
	}
	return cp
}

func (s *flowState) equal(o *flowState) bool {
	if o == nil || !slices.Equal(s.leases, o.leases) {
		return false
	}
	for i := range s.locals {
		a, b := s.locals[i], o.locals[i]
		if a.live != b.live || len(a.moved) != len(b.moved) {
			return false
		}
		for j := range a.moved {
			x, y := a.moved[j], b.moved[j]
			if x.path != y.path || x.origin != y.origin || x.uninit != y.uninit || x.joinLoop != y.joinLoop {
				return false
			}
		}
	}
	return true
}

// declare makes slot live, owned (init) or uninitialized.
func (s *flowState) declare(pt *PathTable, slot int, init bool, sp source.Span) {
	l := &s.locals[slot]
	l.live = true
	l.moved = l.moved[:0]
	if !init {
		l.moved = append(l.moved, moveEntry{path: pt.Root(slot), uninit: true, span: sp})
	}
}

// kill ends the lifetime of slot.
func (s *flowState) kill(slot int) {
	s.locals[slot] = localState{}
}

// covering returns the entry whose path is a prefix of p, if any.
func (s *flowState) covering(pt *PathTable, p PathID) (moveEntry, bool) {
	for _, e := range s.locals[pt.RootOf(p)].moved {
		if pt.IsPrefix(e.path, p) {
			return e, true
		}
	}
	return moveEntry{}, false
}

// movedBelow returns the first entry strictly inside p.
func (s *flowState) movedBelow(pt *PathTable, p PathID) (moveEntry, bool) {
	for _, e := range s.locals[pt.RootOf(p)].moved {
		if e.path != p && pt.IsPrefix(p, e.path) {
			return e, true
		}
	}
	return moveEntry{}, false
}

// markMoved records p as moved, absorbing entries inside it.
func (s *flowState) markMoved(pt *PathTable, p PathID, e moveEntry) {
	l := &s.locals[pt.RootOf(p)]
	l.moved = slices.DeleteFunc(l.moved, func(x moveEntry) bool { return pt.IsPrefix(p, x.path) })
	e.path = p
	l.moved = append(l.moved, e)
	slices.SortFunc(l.moved, func(a, b moveEntry) int { return int(a.path) - int(b.path) })
}

// reinit installs a fresh owned value at p.
func (s *flowState) reinit(pt *PathTable, p PathID) {
	l := &s.locals[pt.RootOf(p)]
	l.moved = slices.DeleteFunc(l.moved, func(x moveEntry) bool { return pt.IsPrefix(p, x.path) })
}

func (s *flowState) addLease(id LeaseID) {
	if i, found := slices.BinarySearch(s.leases, id); !found {
		s.leases = slices.Insert(s.leases, i, id)
	}
}

func (s *flowState) removeLeases(drop func(LeaseID) bool) []LeaseID {
	var removed []LeaseID
	s.leases = slices.DeleteFunc(s.leases, func(id LeaseID) bool {
		if drop(id) {
			removed = append(removed, id)
			return true
		}
		return false
	})
	return removed
}

// join merges predecessor states at a block entry. An entry moved on every
// predecessor keeps its origin; otherwise it becomes conditional, or
// loop-carried at a loop header when only back edges bring it. loop is the
// innermost loop containing the joining block.
func join(pt *PathTable, preds []*flowState, back []bool, header bool, loop cfg.LoopID) *flowState {
	out := newFlowState(len(preds[0].locals))
	for _, st := range preds {
		for _, id := range st.leases {
			out.addLease(id)
		}
	}
	for slot := range out.locals {
		var all []moveEntry
		live := false
		for _, st := range preds {
			live = live || st.locals[slot].live
			all = append(all, st.locals[slot].moved...)
		}
		if !live {
			continue
		}
		out.locals[slot].live = true
		// Shortest paths first so that prefixes absorb their extensions.
		slices.SortStableFunc(all, func(a, b moveEntry) int {
			if d := pt.recs[a.path].depth - pt.recs[b.path].depth; d != 0 {
				return d
			}
			return int(a.path) - int(b.path)
		})
		var merged []moveEntry
		for _, e := range all {
			if slices.ContainsFunc(merged, func(m moveEntry) bool { return pt.IsPrefix(m.path, e.path) }) {
				continue
			}
			merged = append(merged, mergeEntry(pt, e, preds, back, header, loop))
		}
		slices.SortFunc(merged, func(a, b moveEntry) int { return int(a.path) - int(b.path) })
		out.locals[slot].moved = merged
	}
	return out
}

func mergeEntry(pt *PathTable, e moveEntry, preds []*flowState, back []bool, header bool, loop cfg.LoopID) moveEntry {
	res := moveEntry{path: e.path, origin: originMoved, span: e.span, uninit: e.uninit}
	coveredAll := true
	coveredForward := false
	first := true
	inherited := false
	for i, st := range preds {
		c, ok := st.covering(pt, e.path)
		if !ok {
			coveredAll = false
			continue
		}
		if !back[i] {
			coveredForward = true
		}
		if first {
			res.span, res.uninit = c.span, c.uninit
			first = false
		}
		if c.origin == originConditional && !inherited {
			res.joinLoop = c.joinLoop
			inherited = true
		}
		if c.origin > res.origin {
			res.origin = c.origin
		}
	}
	if !coveredAll {
		switch {
		case header && !coveredForward:
			res.origin = originLoopCarried
		case res.origin < originConditional:
			res.origin = originConditional
			res.joinLoop = loop
		}
	}
	if res.origin != originConditional {
		res.joinLoop = 0
	}
	return res
}

// StateKind is the ownership state of a path at a program point.
type StateKind uint8

const (
	Uninitialized StateKind = iota
	Owned
	Moved
	PartiallyMoved
	BorrowedShared
	BorrowedUnique
)

func (k StateKind) String() string {
	switch k {
	case Uninitialized:
		return "Uninitialized"
	case Owned:
		return "Owned"
	case Moved:
		return "Moved"
	case PartiallyMoved:
		return "PartiallyMoved"
	case BorrowedShared:
		return "BorrowedShared"
	case BorrowedUnique:
		return "BorrowedUnique"
	}
	return "Unknown"
}

// OwnershipState is the derived state of one path: ownership from the moved
// set, borrow states from the active leases overlapping it.
type OwnershipState struct {
	Kind  StateKind
	Count int // number of shared leases for BorrowedShared
}

func (o OwnershipState) String() string {
	if o.Kind == BorrowedShared {
		return fmt.Sprintf("BorrowedShared(%d)", o.Count)
	}
	return o.Kind.String()
}

func (c *checker) stateOf(st *flowState, p PathID) OwnershipState {
	slot := c.paths.RootOf(p)
	if !st.locals[slot].live {
		return OwnershipState{Kind: Uninitialized}
	}
	if e, ok := st.covering(c.paths, p); ok {
		if e.uninit {
			return OwnershipState{Kind: Uninitialized}
		}
		return OwnershipState{Kind: Moved}
	}
	shared := 0
	for _, id := range st.leases {
		l := c.leases.get(id)
		if !c.paths.Overlaps(l.path, p) {
			continue
		}
		if l.unique {
			return OwnershipState{Kind: BorrowedUnique}
		}
		shared++
	}
	if shared > 0 {
		return OwnershipState{Kind: BorrowedShared, Count: shared}
	}
	if _, ok := st.movedBelow(c.paths, p); ok {
		return OwnershipState{Kind: PartiallyMoved}
	}
	return OwnershipState{Kind: Owned}
}
