package types

import (
	"errors"
	"testing"
)

func newOuterInner(t *testing.T) (in *Interner, outer, inner TypeID) {
	t.Helper()
	in = NewInterner()
	b := in.Builtins()
	inner = in.Add(MakeStruct("Inner", Field{Name: "v", Type: b.Int}).WithDestructor("Inner.drop"))
	outer = in.Add(MakeStruct("Outer",
		Field{Name: "a", Type: inner},
		Field{Name: "n", Type: b.Int},
		Field{Name: "b", Type: inner},
	))
	if err := in.Finalize(); err != nil {
		t.Fatalf("finalize: %v", err)
	}
	return in, outer, inner
}

func TestClassDerivation(t *testing.T) {
	in, outer, inner := newOuterInner(t)
	if !in.IsResource(inner) {
		t.Fatalf("type with destructor must be a resource")
	}
	if !in.IsResource(outer) {
		t.Fatalf("type containing a resource must be a resource")
	}
	if in.IsResource(in.Builtins().Int) {
		t.Fatalf("int must be a value type")
	}
	ref := in.Reference(outer, true)
	if err := in.Finalize(); err != nil {
		t.Fatalf("finalize: %v", err)
	}
	if in.IsResource(ref) || !in.IsUniqueReference(ref) {
		t.Fatalf("references are non-owning values")
	}
	if again := in.Reference(outer, true); again != ref {
		t.Fatalf("reference types must be interned, got %d and %d", ref, again)
	}
	if in.Name(ref) != "unique ref Outer" {
		t.Fatalf("unexpected name %q", in.Name(ref))
	}
}

func TestValueTagRejectsResourceField(t *testing.T) {
	in := NewInterner()
	inner := in.Add(MakeStruct("Inner").WithDestructor("Inner.drop"))
	in.Add(MakeStruct("Bad", Field{Name: "x", Type: inner}).WithClass(ClassValue))
	if err := in.Finalize(); !errors.Is(err, ErrClassMismatch) {
		t.Fatalf("expected ErrClassMismatch, got %v", err)
	}
}

func TestExplicitResourceWithoutDestructor(t *testing.T) {
	in := NewInterner()
	tok := in.Add(MakeStruct("Token").WithClass(ClassResource))
	if err := in.Finalize(); err != nil {
		t.Fatalf("finalize: %v", err)
	}
	if !in.IsResource(tok) {
		t.Fatalf("explicit resource tag must be honoured")
	}
}

func TestRecursiveValueType(t *testing.T) {
	in := NewInterner()
	id := in.Add(MakeStruct("Loop"))
	in.types[id].Fields = []Field{{Name: "self", Type: id}}
	if err := in.Finalize(); !errors.Is(err, ErrRecursiveType) {
		t.Fatalf("expected ErrRecursiveType, got %v", err)
	}
}

func TestFromTypesRoundTrip(t *testing.T) {
	in, outer, _ := newOuterInner(t)
	back, err := FromTypes(in.Types())
	if err != nil {
		t.Fatalf("FromTypes: %v", err)
	}
	if got, ok := back.ByName("Outer"); !ok || got != outer {
		t.Fatalf("expected Outer at %d, got %d (%v)", outer, got, ok)
	}
	if back.Builtins() != in.Builtins() {
		t.Fatalf("builtins differ: %+v vs %+v", back.Builtins(), in.Builtins())
	}
	if !back.IsResource(outer) {
		t.Fatalf("class must be recomputed")
	}
}

func TestNamesAreNFCNormalised(t *testing.T) {
	in := NewInterner()
	// "é" written as e + combining acute accent.
	id := in.Add(MakeStruct("Cafe\u0301"))
	if got, ok := in.ByName("Caf\u00e9"); !ok || got != id {
		t.Fatalf("lookup by precomposed name failed")
	}
}
