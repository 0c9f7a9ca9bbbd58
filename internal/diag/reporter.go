package diag

import "brick/internal/source"

// Reporter receives diagnostics from the checking passes.
// BagReporter stores them; DedupReporter filters repeats.
type Reporter interface {
	Report(code Code, sev Severity, primary source.Span, msg string, notes []Note)
}

// BagReporter adds every report to Bag. Reports past the bag's limit are
// dropped silently.
type BagReporter struct{ Bag *Bag }

func (r BagReporter) Report(code Code, sev Severity, primary source.Span, msg string, notes []Note) {
	if r.Bag == nil {
		return
	}
	r.Bag.Add(Diagnostic{
		Severity: sev, Code: code, Message: msg,
		Primary: primary, Notes: notes,
	})
}

