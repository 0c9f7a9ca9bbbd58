package borrowck

import (
	"fmt"
	"io"

	"brick/internal/source"
)

// EventKind classifies ownership events recorded by the final pass.
type EventKind uint8

const (
	EvMove EventKind = iota
	EvBorrowStart
	EvBorrowEnd
	EvDrop
)

func (k EventKind) String() string {
	switch k {
	case EvMove:
		return "move"
	case EvBorrowStart:
		return "borrow_start"
	case EvBorrowEnd:
		return "borrow_end"
	case EvDrop:
		return "drop"
	}
	return "event?"
}

// Event is one ownership step, listed by `brick check --emit-annotated`.
type Event struct {
	Kind   EventKind   `msgpack:"kind"`
	Path   string      `msgpack:"path"`
	Span   source.Span `msgpack:"span"`
	Lease  LeaseID     `msgpack:"lease"`
	Detail string      `msgpack:"detail,omitempty"`
}

func (e Event) String() string {
	s := fmt.Sprintf("%-12s %-16s %s", e.Kind, e.Path, e.Span)
	if e.Lease >= 0 {
		s += fmt.Sprintf(" L%d", e.Lease)
	}
	if e.Detail != "" {
		s += " " + e.Detail
	}
	return s
}

// WriteEvents prints one event per line.
func WriteEvents(w io.Writer, events []Event) error {
	for _, e := range events {
		if _, err := fmt.Fprintln(w, e.String()); err != nil {
			return err
		}
	}
	return nil
}

func (c *checker) event(kind EventKind, p PathID, sp source.Span, id LeaseID, detail string) {
	if !c.emit {
		return
	}
	c.events = append(c.events, Event{Kind: kind, Path: c.paths.String(p), Span: sp, Lease: id, Detail: detail})
}
