package diag

import (
	"cmp"
	"slices"

	"fortio.org/safecast"
)

// Bag collects diagnostics up to a fixed limit.
type Bag struct {
	items []Diagnostic
	max   uint16
}

// NewBag returns a bag holding at most limit diagnostics. Limits that do
// not fit a uint16 saturate.
func NewBag(limit int) *Bag {
	capacity, err := safecast.Conv[uint16](limit)
	if err != nil {
		capacity = ^uint16(0)
	}
	return &Bag{
		items: make([]Diagnostic, 0, min(max(limit, 0), 64)),
		max:   capacity,
	}
}

// Add stores d and returns false once the limit is reached.
func (b *Bag) Add(d Diagnostic) bool {
	if len(b.items) >= int(b.max) {
		return false
	}
	b.items = append(b.items, d)
	return true
}

func (b *Bag) Cap() uint16 {
	return b.max
}

func (b *Bag) HasErrors() bool {
	return slices.ContainsFunc(b.items, func(d Diagnostic) bool {
		return d.Severity.AtLeast(SevError)
	})
}

func (b *Bag) Len() int {
	return len(b.items)
}

// Items exposes the bag's backing slice. Callers must not modify it.
func (b *Bag) Items() []Diagnostic {
	return b.items
}

// Merge appends other's diagnostics until the limit is hit.
func (b *Bag) Merge(other *Bag) {
	if other == nil {
		return
	}
	for _, d := range other.items {
		if !b.Add(d) {
			return
		}
	}
}

// Sort orders by file, start, end, then severity (errors first), code and
// message, so output does not depend on the order functions finished in.
func (b *Bag) Sort() {
	slices.SortStableFunc(b.items, func(x, y Diagnostic) int {
		return cmp.Or(
			cmp.Compare(x.Primary.File, y.Primary.File),
			cmp.Compare(x.Primary.Start, y.Primary.Start),
			cmp.Compare(x.Primary.End, y.Primary.End),
			cmp.Compare(y.Severity, x.Severity),
			cmp.Compare(x.Code, y.Code),
			cmp.Compare(x.Message, y.Message),
		)
	})
}
