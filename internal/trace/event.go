package trace

import "time"

// Kind is the type of a trace event.
type Kind uint8

const (
	KindSpanBegin Kind = iota + 1
	KindSpanEnd
	KindPoint
)

func (k Kind) String() string {
	switch k {
	case KindSpanBegin:
		return "begin"
	case KindSpanEnd:
		return "end"
	case KindPoint:
		return "point"
	}
	return "unknown"
}

// Scope is the granularity of an event. Smaller values are coarser.
type Scope uint8

const (
	ScopeDriver Scope = iota + 1 // CLI command
	ScopeModule                  // one IR module: load, check, cache
	ScopeFunc                    // one function through the checker
	ScopePhase                   // cfg, dataflow, annotate inside a function
)

func (s Scope) String() string {
	switch s {
	case ScopeDriver:
		return "driver"
	case ScopeModule:
		return "module"
	case ScopeFunc:
		return "func"
	case ScopePhase:
		return "phase"
	}
	return "unknown"
}

// Event is a single trace record.
type Event struct {
	Time     time.Time
	Seq      uint64
	Kind     Kind
	Scope    Scope
	SpanID   uint64
	ParentID uint64
	Name     string
	Detail   string
	Extra    map[string]string
}

// Point emits an instant event under parent.
func Point(t Tracer, scope Scope, name, detail string, parent uint64) {
	if t == nil || !t.Enabled() || !t.Level().ShouldEmit(scope) {
		return
	}
	t.Emit(&Event{
		Time:     time.Now(),
		Kind:     KindPoint,
		Scope:    scope,
		ParentID: parent,
		Name:     name,
		Detail:   detail,
	})
}
