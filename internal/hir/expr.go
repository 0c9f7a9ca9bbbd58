package hir

import (
	"brick/internal/source"
	"brick/internal/types"
)

// ExprKind enumerates HIR expression kinds.
type ExprKind uint8

const (
	// ExprLit is an integer or boolean literal (booleans use 0/1).
	ExprLit ExprKind = iota
	// ExprLocal reads a local or parameter.
	ExprLocal
	// ExprGlobal reads a module-level global of Value type.
	ExprGlobal
	// ExprField projects field Index of X. Through a reference it auto-derefs.
	ExprField
	// ExprDeref reads the referent of the reference X.
	ExprDeref
	// ExprStruct builds a struct; Args hold the fields in declaration order.
	ExprStruct
	// ExprUnion builds variant Index of a union with payload X (nil for unit).
	ExprUnion
	// ExprCall calls Name with Args; X is the receiver for method calls.
	ExprCall
	// ExprRef borrows the place X (Unique selects unique ref).
	ExprRef
	// ExprUnary applies Op to X.
	ExprUnary
	// ExprBinary applies Op to X and Y.
	ExprBinary
)

var exprKindNames = []string{
	ExprLit:    "lit",
	ExprLocal:  "local",
	ExprGlobal: "global",
	ExprField:  "field",
	ExprDeref:  "deref",
	ExprStruct: "struct",
	ExprUnion:  "union",
	ExprCall:   "call",
	ExprRef:    "ref",
	ExprUnary:  "unary",
	ExprBinary: "binary",
}

func (k ExprKind) String() string { return enumString(k, exprKindNames) }

// MarshalText implements encoding.TextMarshaler.
func (k ExprKind) MarshalText() ([]byte, error) { return marshalEnum(k, exprKindNames, "expr kind") }

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *ExprKind) UnmarshalText(b []byte) error {
	return unmarshalEnum(k, b, exprKindNames, "expr kind")
}

// Access is the checker's marker on a read: how the value leaves its place.
type Access uint8

const (
	AccessNone Access = iota
	AccessCopy
	AccessMove
	AccessShared
	AccessUnique
)

var accessNames = []string{
	AccessNone:   "none",
	AccessCopy:   "copy",
	AccessMove:   "move",
	AccessShared: "shared",
	AccessUnique: "unique",
}

func (a Access) String() string { return enumString(a, accessNames) }

// MarshalText implements encoding.TextMarshaler.
func (a Access) MarshalText() ([]byte, error) { return marshalEnum(a, accessNames, "access") }

// UnmarshalText implements encoding.TextUnmarshaler.
func (a *Access) UnmarshalText(b []byte) error { return unmarshalEnum(a, b, accessNames, "access") }

// Op is a unary or binary operator on Value types.
type Op uint8

const (
	OpAdd Op = iota
	OpSub
	OpMul
	OpDiv
	OpMod
	OpEq
	OpNe
	OpLt
	OpLe
	OpGt
	OpGe
	OpAnd
	OpOr
	OpNeg
	OpNot
)

var opNames = []string{
	OpAdd: "+", OpSub: "-", OpMul: "*", OpDiv: "/", OpMod: "%",
	OpEq: "==", OpNe: "!=", OpLt: "<", OpLe: "<=", OpGt: ">", OpGe: ">=",
	OpAnd: "&&", OpOr: "||", OpNeg: "neg", OpNot: "!",
}

func (o Op) String() string { return enumString(o, opNames) }

// MarshalText implements encoding.TextMarshaler.
func (o Op) MarshalText() ([]byte, error) { return marshalEnum(o, opNames, "operator") }

// UnmarshalText implements encoding.TextUnmarshaler.
func (o *Op) UnmarshalText(b []byte) error { return unmarshalEnum(o, b, opNames, "operator") }

// IsUnary reports whether the operator takes a single operand.
func (o Op) IsUnary() bool { return o == OpNeg || o == OpNot }

// ReceiverMode is how a method call receives X.
type ReceiverMode uint8

const (
	// RecvNone marks a plain call without a receiver.
	RecvNone ReceiverMode = iota
	// RecvValue passes the receiver by value (moves resources).
	RecvValue
	// RecvRef leases the receiver for the duration of the call.
	RecvRef
	// RecvUnique consumes the receiver.
	RecvUnique
)

var recvNames = []string{
	RecvNone:   "none",
	RecvValue:  "value",
	RecvRef:    "ref",
	RecvUnique: "unique",
}

func (m ReceiverMode) String() string { return enumString(m, recvNames) }

// MarshalText implements encoding.TextMarshaler.
func (m ReceiverMode) MarshalText() ([]byte, error) { return marshalEnum(m, recvNames, "receiver") }

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *ReceiverMode) UnmarshalText(b []byte) error {
	return unmarshalEnum(m, b, recvNames, "receiver")
}

// Expr represents a typed HIR expression. Which fields are meaningful
// depends on Kind; see the ExprKind constants.
type Expr struct {
	Kind   ExprKind     `yaml:"kind" msgpack:"kind"`
	Type   types.TypeID `yaml:"type,omitempty" msgpack:"type,omitempty"`
	Span   source.Span  `yaml:"span,omitempty" msgpack:"span,omitempty"`
	Access Access       `yaml:"access,omitempty" msgpack:"access,omitempty"`
	Value  int64        `yaml:"value,omitempty" msgpack:"value,omitempty"`
	Local  LocalID      `yaml:"local,omitempty" msgpack:"local,omitempty"`
	Name   string       `yaml:"name,omitempty" msgpack:"name,omitempty"`
	Index  int          `yaml:"index,omitempty" msgpack:"index,omitempty"`
	Op     Op           `yaml:"op,omitempty" msgpack:"op,omitempty"`
	Unique bool         `yaml:"unique,omitempty" msgpack:"unique,omitempty"`
	Recv   ReceiverMode `yaml:"recv,omitempty" msgpack:"recv,omitempty"`
	X      *Expr        `yaml:"x,omitempty" msgpack:"x,omitempty"`
	Y      *Expr        `yaml:"y,omitempty" msgpack:"y,omitempty"`
	Args   []*Expr      `yaml:"args,omitempty" msgpack:"args,omitempty"`
}

// IsPlace reports whether e syntactically denotes a storage location.
func (e *Expr) IsPlace() bool {
	if e == nil {
		return false
	}
	switch e.Kind {
	case ExprLocal:
		return true
	case ExprField:
		return e.X.IsPlace()
	case ExprDeref:
		return e.X != nil && e.X.Kind == ExprLocal
	}
	return false
}

// Walk visits e and its operands in evaluation order.
func (e *Expr) Walk(fn func(*Expr)) {
	if e == nil {
		return
	}
	fn(e)
	e.X.Walk(fn)
	e.Y.Walk(fn)
	for _, a := range e.Args {
		a.Walk(fn)
	}
}
