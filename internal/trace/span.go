package trace

import (
	"sync/atomic"
	"time"
)

var (
	seqCounter  atomic.Uint64
	spanCounter atomic.Uint64
)

// NextSeq returns the next global sequence number.
func NextSeq() uint64 { return seqCounter.Add(1) }

// Span is an open interval of work. A nil or disabled span is inert.
type Span struct {
	tracer  Tracer
	id      uint64
	parent  uint64
	scope   Scope
	name    string
	started time.Time
	extra   map[string]string
}

// Begin opens a span and emits its begin event.
func Begin(t Tracer, scope Scope, name string, parent uint64) *Span {
	if t == nil || !t.Enabled() || !t.Level().ShouldEmit(scope) {
		return &Span{tracer: Nop, id: parent}
	}
	s := &Span{
		tracer:  t,
		id:      spanCounter.Add(1),
		parent:  parent,
		scope:   scope,
		name:    name,
		started: time.Now(),
	}
	t.Emit(&Event{
		Time:     s.started,
		Kind:     KindSpanBegin,
		Scope:    scope,
		SpanID:   s.id,
		ParentID: parent,
		Name:     name,
	})
	return s
}

// End emits the end event and returns the span's duration.
func (s *Span) End(detail string) time.Duration {
	if s == nil || !s.tracer.Enabled() {
		return 0
	}
	dur := time.Since(s.started)
	s.tracer.Emit(&Event{
		Time:     time.Now(),
		Kind:     KindSpanEnd,
		Scope:    s.scope,
		SpanID:   s.id,
		ParentID: s.parent,
		Name:     s.name,
		Detail:   detail,
		Extra:    s.extra,
	})
	return dur
}

// WithExtra attaches key=value to the end event.
func (s *Span) WithExtra(key, value string) *Span {
	if s == nil || !s.tracer.Enabled() {
		return s
	}
	if s.extra == nil {
		s.extra = make(map[string]string)
	}
	s.extra[key] = value
	return s
}

// ID returns the span id. Suppressed spans return their parent's id so
// children still attach to the nearest emitted ancestor.
func (s *Span) ID() uint64 {
	if s == nil {
		return 0
	}
	return s.id
}
