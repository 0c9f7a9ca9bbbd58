package types

import "fmt"

// TypeID uniquely identifies a type inside the interner.
type TypeID uint32

// NoTypeID marks the absence of a type.
const NoTypeID TypeID = 0

// Kind enumerates the shapes of types the ownership checker distinguishes.
type Kind uint8

const (
	KindInvalid Kind = iota
	KindUnit
	KindBool
	KindInt
	KindStruct
	KindUnion
	KindReference
)

var kindNames = [...]string{
	KindInvalid:   "invalid",
	KindUnit:      "unit",
	KindBool:      "bool",
	KindInt:       "int",
	KindStruct:    "struct",
	KindUnion:     "union",
	KindReference: "reference",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", k)
}

// MarshalText implements encoding.TextMarshaler.
func (k Kind) MarshalText() ([]byte, error) {
	if int(k) >= len(kindNames) {
		return nil, fmt.Errorf("unknown type kind %d", k)
	}
	return []byte(kindNames[k]), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *Kind) UnmarshalText(text []byte) error {
	for i, name := range kindNames {
		if name == string(text) {
			*k = Kind(i)
			return nil
		}
	}
	return fmt.Errorf("unknown type kind %q", text)
}

// Class is the Resource/Value tag of a nominal type. ClassAuto lets the
// interner derive it from destructors and field types.
type Class uint8

const (
	ClassAuto Class = iota
	ClassValue
	ClassResource
)

func (c Class) String() string {
	switch c {
	case ClassValue:
		return "value"
	case ClassResource:
		return "resource"
	default:
		return "auto"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (c Class) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (c *Class) UnmarshalText(text []byte) error {
	switch string(text) {
	case "", "auto":
		*c = ClassAuto
	case "value":
		*c = ClassValue
	case "resource":
		*c = ClassResource
	default:
		return fmt.Errorf("unknown type class %q", text)
	}
	return nil
}

// Field is a struct field or a union variant. Variants with no payload use
// the unit type.
type Field struct {
	Name string `yaml:"name" msgpack:"name"`
	Type TypeID `yaml:"type" msgpack:"type"`
}

// Type is a compact descriptor for any supported type.
type Type struct {
	Kind       Kind    `yaml:"kind" msgpack:"kind"`
	Name       string  `yaml:"name,omitempty" msgpack:"name,omitempty"`
	Class      Class   `yaml:"class,omitempty" msgpack:"class,omitempty"`
	Fields     []Field `yaml:"fields,omitempty" msgpack:"fields,omitempty"`
	Elem       TypeID  `yaml:"elem,omitempty" msgpack:"elem,omitempty"`         // for references
	Unique     bool    `yaml:"unique,omitempty" msgpack:"unique,omitempty"`     // for references
	Destructor string  `yaml:"destructor,omitempty" msgpack:"destructor,omitempty"` // name of the drop function
}

// Descriptor helpers ---------------------------------------------------------

// MakeStruct describes a nominal struct with fields in declaration order.
func MakeStruct(name string, fields ...Field) Type {
	return Type{Kind: KindStruct, Name: name, Fields: fields}
}

// MakeUnion describes a nominal tagged union with variants in declaration order.
func MakeUnion(name string, variants ...Field) Type {
	return Type{Kind: KindUnion, Name: name, Fields: variants}
}

// MakeReference describes ref T or unique ref T.
func MakeReference(elem TypeID, unique bool) Type {
	return Type{Kind: KindReference, Elem: elem, Unique: unique}
}

// WithDestructor returns t with fn registered as its destructor.
func (t Type) WithDestructor(fn string) Type {
	t.Destructor = fn
	return t
}

// WithClass returns t with an explicit Resource/Value tag.
func (t Type) WithClass(c Class) Type {
	t.Class = c
	return t
}

func (t Type) nominal() bool {
	return t.Kind == KindStruct || t.Kind == KindUnion
}
