package hir

import (
	"fmt"

	"brick/internal/source"
	"brick/internal/types"
)

// SchemaVersion is the IR schema this build reads and writes.
const SchemaVersion = "1.0.0"

// Global is a module-level variable of Value type with a constant
// initializer. Globals are how programs make drop effects observable.
type Global struct {
	Name string       `yaml:"name" msgpack:"name"`
	Type types.TypeID `yaml:"type" msgpack:"type"`
	Init int64        `yaml:"init,omitempty" msgpack:"init,omitempty"`
	Span source.Span  `yaml:"span,omitempty" msgpack:"span,omitempty"`
}

// Module represents one IR unit: type facts, globals and functions.
type Module struct {
	Version string       `yaml:"version" msgpack:"version"`
	Name    string       `yaml:"name" msgpack:"name"`
	Files   []string     `yaml:"files,omitempty" msgpack:"files,omitempty"`
	Types   []types.Type `yaml:"types" msgpack:"types"`
	Globals []Global     `yaml:"globals,omitempty" msgpack:"globals,omitempty"`
	Funcs   []*Func      `yaml:"funcs" msgpack:"funcs"`

	facts *types.Interner
}

// NewModule creates an empty module bound to facts.
func NewModule(name string, facts *types.Interner) *Module {
	return &Module{Version: SchemaVersion, Name: name, facts: facts}
}

// Facts returns the bound type table, or nil before Bind.
func (m *Module) Facts() *types.Interner {
	return m.facts
}

// Bind rebuilds the type table from the serialised Types list.
func (m *Module) Bind() error {
	in, err := types.FromTypes(m.Types)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	m.facts = in
	return nil
}

// SyncTypes copies the bound type table into the serialised Types list.
func (m *Module) SyncTypes() {
	if m.facts != nil {
		m.Types = m.facts.Types()
	}
}

// AddFunc appends fn and assigns it the next FuncID.
func (m *Module) AddFunc(fn *Func) *Func {
	fn.ID = FuncID(len(m.Funcs) + 1) //nolint:gosec // function count is small
	m.Funcs = append(m.Funcs, fn)
	return fn
}

// Func returns the function called name, or nil.
func (m *Module) Func(name string) *Func {
	for _, fn := range m.Funcs {
		if fn.Name == name {
			return fn
		}
	}
	return nil
}

// Global returns the global called name.
func (m *Module) Global(name string) (Global, bool) {
	for _, g := range m.Globals {
		if g.Name == name {
			return g, true
		}
	}
	return Global{}, false
}

// ShallowCopy returns a module sharing types and globals whose function list
// may be replaced independently.
func (m *Module) ShallowCopy() *Module {
	cp := *m
	cp.Funcs = append([]*Func(nil), m.Funcs...)
	return &cp
}

// FileSet builds a source.FileSet whose ids match the module's file table.
func (m *Module) FileSet() *source.FileSet {
	fs := source.NewFileSet()
	for _, f := range m.Files {
		fs.Add(f)
	}
	return fs
}
