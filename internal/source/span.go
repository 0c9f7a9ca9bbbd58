package source

import (
	"fmt"
)

// Span is a half-open byte range inside one file of the IR's file table.
type Span struct {
	File  FileID `yaml:"file,omitempty" msgpack:"file"`
	Start uint32 `yaml:"start" msgpack:"start"` // byte offset, inclusive
	End   uint32 `yaml:"end" msgpack:"end"`     // byte offset, exclusive
}

func (s Span) Empty() bool {
	return s.Start == s.End
}

func (s Span) Len() uint32 {
	if s.End < s.Start {
		return 0
	}
	return s.End - s.Start
}

func (s Span) String() string {
	return fmt.Sprintf("%d:%d-%d", s.File, s.Start, s.End)
}

// Cover returns the smallest span containing both s and other.
// Spans from different files are not merged.
func (s Span) Cover(other Span) Span {
	if s.File != other.File {
		return s
	}
	if other.Start < s.Start {
		s.Start = other.Start
	}
	if other.End > s.End {
		s.End = other.End
	}
	return s
}

// Before reports whether s starts strictly before other (same file first).
func (s Span) Before(other Span) bool {
	if s.File != other.File {
		return s.File < other.File
	}
	if s.Start != other.Start {
		return s.Start < other.Start
	}
	return s.End < other.End
}
