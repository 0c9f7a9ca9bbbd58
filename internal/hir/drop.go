package hir

import "brick/internal/types"

// PlaceRoot selects where a drop place starts.
type PlaceRoot uint8

const (
	// RootLocal starts at Place.Local.
	RootLocal PlaceRoot = iota
	// RootTemp starts at the discarded temporary of the enclosing statement.
	RootTemp
)

var placeRootNames = []string{RootLocal: "local", RootTemp: "temp"}

// MarshalText implements encoding.TextMarshaler.
func (r PlaceRoot) MarshalText() ([]byte, error) {
	return marshalEnum(r, placeRootNames, "place root")
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (r *PlaceRoot) UnmarshalText(b []byte) error {
	return unmarshalEnum(r, b, placeRootNames, "place root")
}

// ProjKind is a field projection or a union payload projection.
type ProjKind uint8

const (
	ProjField ProjKind = iota
	ProjVariant
)

var projKindNames = []string{ProjField: "field", ProjVariant: "variant"}

// MarshalText implements encoding.TextMarshaler.
func (k ProjKind) MarshalText() ([]byte, error) {
	return marshalEnum(k, projKindNames, "projection")
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *ProjKind) UnmarshalText(b []byte) error {
	return unmarshalEnum(k, b, projKindNames, "projection")
}

// Proj is one step of a Place.
type Proj struct {
	Kind  ProjKind `yaml:"kind,omitempty" msgpack:"kind,omitempty"`
	Index int      `yaml:"index" msgpack:"index"`
}

// Place addresses storage that a drop operation destroys. Deref means the
// root local holds a reference and projections apply to its referent.
type Place struct {
	Root  PlaceRoot `yaml:"root,omitempty" msgpack:"root,omitempty"`
	Local LocalID   `yaml:"local,omitempty" msgpack:"local,omitempty"`
	Deref bool      `yaml:"deref,omitempty" msgpack:"deref,omitempty"`
	Proj  []Proj    `yaml:"proj,omitempty" msgpack:"proj,omitempty"`
}

// Field returns p extended by a field projection.
func (p Place) Field(i int) Place {
	return p.extend(Proj{Kind: ProjField, Index: i})
}

// Variant returns p extended by a union payload projection.
func (p Place) Variant(i int) Place {
	return p.extend(Proj{Kind: ProjVariant, Index: i})
}

func (p Place) extend(pr Proj) Place {
	proj := make([]Proj, len(p.Proj), len(p.Proj)+1)
	copy(proj, p.Proj)
	p.Proj = append(proj, pr)
	return p
}

// DropReason records why the checker inserted a drop.
type DropReason uint8

const (
	// DropScopeExit destroys a local leaving its scope.
	DropScopeExit DropReason = iota
	// DropReassign destroys the value superseded by an assignment.
	DropReassign
	// DropJoin destroys what one control-flow edge still owns before a join
	// where other edges have moved it.
	DropJoin
	// DropDiscard destroys an unused resource temporary.
	DropDiscard
)

var dropReasonNames = []string{
	DropScopeExit: "scope-exit",
	DropReassign:  "reassign",
	DropJoin:      "join",
	DropDiscard:   "discard",
}

func (r DropReason) String() string { return enumString(r, dropReasonNames) }

// MarshalText implements encoding.TextMarshaler.
func (r DropReason) MarshalText() ([]byte, error) {
	return marshalEnum(r, dropReasonNames, "drop reason")
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (r *DropReason) UnmarshalText(b []byte) error {
	return unmarshalEnum(r, b, dropReasonNames, "drop reason")
}

// DropOpKind enumerates drop operations.
type DropOpKind uint8

const (
	// DropOpDestructor calls Func with a unique reference to Place.
	DropOpDestructor DropOpKind = iota
	// DropOpVariant switches on the active variant of the union at Place.
	DropOpVariant
)

var dropOpKindNames = []string{DropOpDestructor: "destructor", DropOpVariant: "variant"}

// MarshalText implements encoding.TextMarshaler.
func (k DropOpKind) MarshalText() ([]byte, error) {
	return marshalEnum(k, dropOpKindNames, "drop op")
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *DropOpKind) UnmarshalText(b []byte) error {
	return unmarshalEnum(k, b, dropOpKindNames, "drop op")
}

// DropOp is one step of a drop sequence.
type DropOp struct {
	Kind  DropOpKind   `yaml:"kind,omitempty" msgpack:"kind,omitempty"`
	Place Place        `yaml:"place" msgpack:"place"`
	Type  types.TypeID `yaml:"type" msgpack:"type"`
	Func  string       `yaml:"func,omitempty" msgpack:"func,omitempty"`
	Cases []DropCase   `yaml:"cases,omitempty" msgpack:"cases,omitempty"`
}

// DropCase holds the ops for one union variant.
type DropCase struct {
	Variant int      `yaml:"variant" msgpack:"variant"`
	Ops     []DropOp `yaml:"ops" msgpack:"ops"`
}

// Drop is a drop obligation discharged at one program point. Partial marks a
// remainder drop of a partially moved aggregate (no parent destructor).
type Drop struct {
	Reason  DropReason   `yaml:"reason" msgpack:"reason"`
	Place   Place        `yaml:"place" msgpack:"place"`
	Type    types.TypeID `yaml:"type" msgpack:"type"`
	Partial bool         `yaml:"partial,omitempty" msgpack:"partial,omitempty"`
	Ops     []DropOp     `yaml:"ops" msgpack:"ops"`
}
