package vm

import (
	"fmt"
	"strings"

	"brick/internal/types"
)

// ValueKind discriminates runtime values.
type ValueKind uint8

const (
	VKUnit ValueKind = iota
	VKInt
	VKBool
	VKStruct
	VKUnion
	VKRef
)

// Value is a runtime value. Aggregates own their field cells, so references
// into fields stay valid while the aggregate lives. A union keeps its
// payload in Fields[0].
type Value struct {
	Kind    ValueKind
	Type    types.TypeID
	Int     int64
	Fields  []*Cell
	Variant int
	Ref     *Cell
}

// Cell is one storage location with the runtime ownership flags used to
// verify drop placement.
type Cell struct {
	V       Value
	Uninit  bool
	Moved   bool
	Dropped bool
}

// IntValue builds an int.
func IntValue(n int64) Value { return Value{Kind: VKInt, Int: n} }

// BoolValue builds a bool.
func BoolValue(b bool) Value {
	if b {
		return Value{Kind: VKBool, Int: 1}
	}
	return Value{Kind: VKBool}
}

// Truthy reports whether v is a true bool or a non-zero int.
func (v Value) Truthy() bool { return v.Int != 0 }

// clone copies v into fresh cells. References are copied, not followed.
func (v Value) clone() Value {
	if len(v.Fields) == 0 {
		return v
	}
	cp := v
	cp.Fields = make([]*Cell, len(v.Fields))
	for i, c := range v.Fields {
		cp.Fields[i] = &Cell{V: c.V.clone()}
	}
	return cp
}

func (v Value) String() string {
	switch v.Kind {
	case VKUnit:
		return "()"
	case VKInt:
		return fmt.Sprintf("%d", v.Int)
	case VKBool:
		return fmt.Sprintf("%t", v.Int != 0)
	case VKRef:
		return "&" + v.Ref.V.String()
	case VKUnion:
		return fmt.Sprintf("#%d(%s)", v.Variant, v.Fields[0].V)
	}
	parts := make([]string, len(v.Fields))
	for i, c := range v.Fields {
		parts[i] = c.V.String()
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

// markMoved flags c and everything below it as moved out.
func markMoved(c *Cell) {
	c.Moved = true
	for _, f := range c.V.Fields {
		markMoved(f)
	}
}

// movedBelow reports whether any storage under c was moved out.
func movedBelow(c *Cell) bool {
	for _, f := range c.V.Fields {
		if f.Moved || movedBelow(f) {
			return true
		}
	}
	return false
}

// readable returns the first flag that forbids reading c as a whole.
func readable(c *Cell) (PanicCode, bool) {
	switch {
	case c.Uninit:
		return PanicUseBeforeInit, false
	case c.Moved:
		return PanicUseAfterMove, false
	case c.Dropped:
		return PanicUseAfterDrop, false
	}
	for _, f := range c.V.Fields {
		if code, ok := readable(f); !ok {
			return code, false
		}
	}
	return 0, true
}
