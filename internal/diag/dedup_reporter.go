package diag

import "brick/internal/source"

type dedupKey struct {
	code Code
	sev  Severity
	span source.Span
	msg  string
}

// DedupReporter forwards each distinct (code, severity, span, message)
// once. Dataflow revisits blocks until a fixed point, so the same finding
// can be raised several times.
type DedupReporter struct {
	next       Reporter
	seen       map[dedupKey]struct{}
	suppressed int
}

func NewDedupReporter(next Reporter) *DedupReporter {
	return &DedupReporter{next: next, seen: make(map[dedupKey]struct{})}
}

func (r *DedupReporter) Report(code Code, sev Severity, primary source.Span, msg string, notes []Note) {
	if r == nil {
		return
	}
	key := dedupKey{code: code, sev: sev, span: primary, msg: msg}
	if _, dup := r.seen[key]; dup {
		r.suppressed++
		return
	}
	r.seen[key] = struct{}{}
	if r.next != nil {
		r.next.Report(code, sev, primary, msg, notes)
	}
}

// Suppressed returns how many duplicates were dropped.
func (r *DedupReporter) Suppressed() int {
	if r == nil {
		return 0
	}
	return r.suppressed
}
