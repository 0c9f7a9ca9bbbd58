package types

import "fmt"

// IsResource reports whether values of id carry a drop/move-once obligation.
func (in *Interner) IsResource(id TypeID) bool {
	in.mustFinal()
	if !in.valid(id) {
		return false
	}
	return in.class[id] == ClassResource
}

// IsReference reports whether id is ref T or unique ref T.
func (in *Interner) IsReference(id TypeID) bool {
	t, ok := in.Lookup(id)
	return ok && t.Kind == KindReference
}

// IsUniqueReference reports whether id is unique ref T.
func (in *Interner) IsUniqueReference(id TypeID) bool {
	t, ok := in.Lookup(id)
	return ok && t.Kind == KindReference && t.Unique
}

// Elem returns the referent of a reference type.
func (in *Interner) Elem(id TypeID) TypeID {
	t, ok := in.Lookup(id)
	if !ok || t.Kind != KindReference {
		return NoTypeID
	}
	return t.Elem
}

// Destructor returns the destructor function name, or "".
func (in *Interner) Destructor(id TypeID) string {
	t, ok := in.Lookup(id)
	if !ok {
		return ""
	}
	return t.Destructor
}

// Fields returns struct fields or union variants in declaration order.
// The slice must not be modified.
func (in *Interner) Fields(id TypeID) []Field {
	t, ok := in.Lookup(id)
	if !ok || !t.nominal() {
		return nil
	}
	return t.Fields
}

// Field returns field i of a struct or variant i of a union.
func (in *Interner) Field(id TypeID, i int) (Field, bool) {
	fields := in.Fields(id)
	if i < 0 || i >= len(fields) {
		return Field{}, false
	}
	return fields[i], true
}

// Name renders a TypeID for diagnostics and dumps.
func (in *Interner) Name(id TypeID) string {
	t, ok := in.Lookup(id)
	if !ok {
		return fmt.Sprintf("<type %d>", id)
	}
	switch t.Kind {
	case KindReference:
		if t.Unique {
			return "unique ref " + in.Name(t.Elem)
		}
		return "ref " + in.Name(t.Elem)
	case KindStruct, KindUnion:
		if t.Name != "" {
			return t.Name
		}
		return fmt.Sprintf("%s#%d", t.Kind, id)
	default:
		return t.Kind.String()
	}
}

func (in *Interner) mustFinal() {
	if !in.final {
		panic("types: classification query before Finalize")
	}
}
