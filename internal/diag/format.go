package diag

import (
	"fmt"
	"strings"

	"brick/internal/source"
)

// FormatShort renders diagnostics one per line as
// "path:start-end: SEVERITY ID message", followed by indented notes when
// includeNotes is set. The input order is preserved; callers sort first.
func FormatShort(items []Diagnostic, fs *source.FileSet, includeNotes bool) string {
	var sb strings.Builder
	for _, d := range items {
		fmt.Fprintf(&sb, "%s: %s %s %s\n", fs.Format(d.Primary), d.Severity, d.Code.ID(), d.Message)
		if !includeNotes {
			continue
		}
		for _, n := range d.Notes {
			fmt.Fprintf(&sb, "  note: %s: %s\n", fs.Format(n.Span), n.Msg)
		}
	}
	return sb.String()
}
