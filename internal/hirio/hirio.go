// Package hirio reads and writes HIR modules. YAML is the hand-written
// fixture format; msgpack is the compact interchange format produced by
// front ends and used by the driver cache.
package hirio

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/vmihailenco/msgpack/v5"
	"gopkg.in/yaml.v3"

	"brick/internal/hir"
)

// Format selects an encoding.
type Format uint8

const (
	FormatAuto Format = iota
	FormatYAML
	FormatMsgpack
)

func (f Format) String() string {
	switch f {
	case FormatYAML:
		return "yaml"
	case FormatMsgpack:
		return "msgpack"
	}
	return "auto"
}

var (
	// ErrUnknownFormat reports an unsupported encoding name or extension.
	ErrUnknownFormat = errors.New("unknown IR format")
	// ErrSchemaMismatch reports IR written for an incompatible schema.
	ErrSchemaMismatch = errors.New("IR schema mismatch")
)

// SupportedSchemas is the semver constraint on Module.Version.
const SupportedSchemas = ">= 1.0.0, < 2.0.0"


// ParseFormat converts a CLI name to a Format.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "", "auto":
		return FormatAuto, nil
	case "yaml", "yml":
		return FormatYAML, nil
	case "msgpack", "mp":
		return FormatMsgpack, nil
	}
	return FormatAuto, fmt.Errorf("%w: %q (expected yaml|msgpack)", ErrUnknownFormat, s)
}

// FormatForPath picks the format from a file extension.
func FormatForPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".mp", ".msgpack":
		return FormatMsgpack, nil
	}
	return FormatAuto, fmt.Errorf("%w: %s", ErrUnknownFormat, path)
}

// CheckVersion verifies that v satisfies SupportedSchemas.
func CheckVersion(v string) error {
	if v == "" {
		return fmt.Errorf("%w: missing version", ErrSchemaMismatch)
	}
	ver, err := semver.NewVersion(v)
	if err != nil {
		return fmt.Errorf("%w: %q: %w", ErrSchemaMismatch, v, err)
	}
	c, err := semver.NewConstraint(SupportedSchemas)
	if err != nil {
		return err
	}
	if !c.Check(ver) {
		return fmt.Errorf("%w: version %s does not satisfy %s", ErrSchemaMismatch, ver, SupportedSchemas)
	}
	return nil
}

// Decode reads a module, checks its schema version, binds its type table
// and validates it.
func Decode(r io.Reader, f Format) (*hir.Module, error) {
	var m hir.Module
	switch f {
	case FormatYAML:
		dec := yaml.NewDecoder(r)
		dec.KnownFields(true)
		if err := dec.Decode(&m); err != nil {
			return nil, fmt.Errorf("%w: yaml: %w", hir.ErrMalformed, err)
		}
	case FormatMsgpack:
		if err := msgpack.NewDecoder(r).Decode(&m); err != nil {
			return nil, fmt.Errorf("%w: msgpack: %w", hir.ErrMalformed, err)
		}
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownFormat, f)
	}
	if err := CheckVersion(m.Version); err != nil {
		return nil, err
	}
	if err := m.Bind(); err != nil {
		return nil, err
	}
	if err := hir.Validate(&m); err != nil {
		return nil, err
	}
	return &m, nil
}

// Encode writes m. The serialised type list is refreshed from the bound
// type table first.
func Encode(w io.Writer, m *hir.Module, f Format) error {
	m.SyncTypes()
	if m.Version == "" {
		m.Version = hir.SchemaVersion
	}
	switch f {
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(m); err != nil {
			return err
		}
		return enc.Close()
	case FormatMsgpack:
		return msgpack.NewEncoder(w).Encode(m)
	}
	return fmt.Errorf("%w: %s", ErrUnknownFormat, f)
}

// Load reads a module from path, choosing the format by extension.
func Load(path string) (*hir.Module, error) {
	f, err := FormatForPath(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	m, err := Decode(bytes.NewReader(data), f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if len(m.Files) == 0 {
		m.Files = []string{path}
	}
	return m, nil
}

// Save writes m to path atomically.
func Save(path string, m *hir.Module, f Format) error {
	if f == FormatAuto {
		var err error
		if f, err = FormatForPath(path); err != nil {
			return err
		}
	}
	var buf bytes.Buffer
	if err := Encode(&buf, m, f); err != nil {
		return err
	}
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".brick-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
