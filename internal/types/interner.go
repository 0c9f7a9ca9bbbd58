package types

import (
	"errors"
	"fmt"
	"strings"

	"fortio.org/safecast"
	"golang.org/x/text/unicode/norm"
)

var (
	// ErrRecursiveType reports a nominal type that contains itself by value.
	ErrRecursiveType = errors.New("recursive value type")
	// ErrClassMismatch reports a Value-tagged type that owns a Resource.
	ErrClassMismatch = errors.New("value type contains a resource")
	// ErrUnknownType reports a dangling TypeID.
	ErrUnknownType = errors.New("unknown type")
)

type refKey struct {
	elem   TypeID
	unique bool
}

// Builtins stores TypeIDs for primitive types.
type Builtins struct {
	Unit TypeID
	Bool TypeID
	Int  TypeID
}

// Interner stores the TypeFacts of one IR module. Nominal types are never
// deduplicated; references are interned structurally.
type Interner struct {
	types    []Type
	class    []Class
	byName   map[string]TypeID
	refs     map[refKey]TypeID
	builtins Builtins
	final    bool
}

// NewInterner constructs an interner seeded with built-in primitives.
func NewInterner() *Interner {
	in := &Interner{
		types:  []Type{{Kind: KindInvalid}}, // reserve 0 as invalid sentinel
		byName: make(map[string]TypeID, 16),
		refs:   make(map[refKey]TypeID, 8),
	}
	in.builtins.Unit = in.Add(Type{Kind: KindUnit})
	in.builtins.Bool = in.Add(Type{Kind: KindBool})
	in.builtins.Int = in.Add(Type{Kind: KindInt})
	return in
}

// FromTypes rebuilds an interner from a serialised type list, where
// TypeID(i+1) names list[i]. The result is finalized.
func FromTypes(list []Type) (*Interner, error) {
	in := &Interner{
		types:  make([]Type, 1, len(list)+1),
		byName: make(map[string]TypeID, len(list)),
		refs:   make(map[refKey]TypeID, 8),
	}
	for _, t := range list {
		id := in.Add(t)
		if in.builtins.Unit == NoTypeID && t.Kind == KindUnit {
			in.builtins.Unit = id
		}
		if in.builtins.Bool == NoTypeID && t.Kind == KindBool {
			in.builtins.Bool = id
		}
		if in.builtins.Int == NoTypeID && t.Kind == KindInt {
			in.builtins.Int = id
		}
	}
	if err := in.Finalize(); err != nil {
		return nil, err
	}
	return in, nil
}

// Builtins returns TypeIDs for primitive types.
func (in *Interner) Builtins() Builtins {
	return in.builtins
}

// Add appends a descriptor and returns its TypeID. Names are NFC-normalised
// so lookups are stable across encodings of the same identifier.
func (in *Interner) Add(t Type) TypeID {
	t.Name = norm.NFC.String(t.Name)
	if len(t.Fields) > 0 {
		fields := make([]Field, len(t.Fields))
		for i, f := range t.Fields {
			fields[i] = Field{Name: norm.NFC.String(f.Name), Type: f.Type}
		}
		t.Fields = fields
	}
	n, err := safecast.Conv[uint32](len(in.types))
	if err != nil {
		panic(fmt.Errorf("len(types) overflow: %w", err))
	}
	id := TypeID(n)
	in.types = append(in.types, t)
	if t.Name != "" {
		if _, dup := in.byName[t.Name]; !dup {
			in.byName[t.Name] = id
		}
	}
	if t.Kind == KindReference {
		key := refKey{elem: t.Elem, unique: t.Unique}
		if _, dup := in.refs[key]; !dup {
			in.refs[key] = id
		}
	}
	in.final = false
	return id
}

// Reference returns the interned ref/unique ref type to elem.
func (in *Interner) Reference(elem TypeID, unique bool) TypeID {
	key := refKey{elem: elem, unique: unique}
	if id, ok := in.refs[key]; ok {
		return id
	}
	return in.Add(MakeReference(elem, unique))
}

// SetDestructor registers fn as the destructor of a nominal type.
func (in *Interner) SetDestructor(id TypeID, fn string) {
	if !in.valid(id) {
		return
	}
	in.types[id].Destructor = fn
	in.final = false
}

// Lookup returns the descriptor for a TypeID.
func (in *Interner) Lookup(id TypeID) (Type, bool) {
	if !in.valid(id) {
		return Type{}, false
	}
	return in.types[id], true
}

// ByName finds a nominal type.
func (in *Interner) ByName(name string) (TypeID, bool) {
	id, ok := in.byName[norm.NFC.String(name)]
	return id, ok
}

// Len returns the number of types, excluding the sentinel.
func (in *Interner) Len() int {
	return len(in.types) - 1
}

// Types returns the serialisable list for FromTypes.
func (in *Interner) Types() []Type {
	out := make([]Type, len(in.types)-1)
	copy(out, in.types[1:])
	return out
}

func (in *Interner) valid(id TypeID) bool {
	return id != NoTypeID && int(id) < len(in.types)
}

// Finalize resolves the Resource/Value class of every type and validates
// the nominal graph. It must run before classification queries.
func (in *Interner) Finalize() error {
	const (
		unvisited = iota
		visiting
		done
	)
	in.class = make([]Class, len(in.types))
	state := make([]uint8, len(in.types))

	var visit func(id TypeID, stack []string) error
	visit = func(id TypeID, stack []string) error {
		if !in.valid(id) {
			return fmt.Errorf("%w: %d", ErrUnknownType, id)
		}
		switch state[id] {
		case done:
			return nil
		case visiting:
			return fmt.Errorf("%w: %s", ErrRecursiveType, strings.Join(append(stack, in.Name(id)), " -> "))
		}
		state[id] = visiting
		t := in.types[id]
		cls := ClassValue
		switch t.Kind {
		case KindReference:
			if !in.valid(t.Elem) {
				return fmt.Errorf("%w: reference to %d", ErrUnknownType, t.Elem)
			}
		case KindStruct, KindUnion:
			if t.Destructor != "" {
				cls = ClassResource
			}
			for _, f := range t.Fields {
				if err := visit(f.Type, append(stack, in.Name(id))); err != nil {
					return err
				}
				if in.class[f.Type] == ClassResource {
					cls = ClassResource
				}
			}
			switch t.Class {
			case ClassValue:
				if cls == ClassResource {
					return fmt.Errorf("%w: %s", ErrClassMismatch, in.Name(id))
				}
			case ClassResource:
				cls = ClassResource
			}
		case KindInvalid:
			return fmt.Errorf("%w: invalid kind at %d", ErrUnknownType, id)
		}
		in.class[id] = cls
		state[id] = done
		return nil
	}

	for i := 1; i < len(in.types); i++ {
		if err := visit(TypeID(i), nil); err != nil { //nolint:gosec // bounded by len(in.types)
			return err
		}
	}
	in.final = true
	return nil
}
