package trace

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"
)

// Format is the rendering of trace events.
type Format uint8

const (
	FormatText Format = iota
	FormatNDJSON
)

// ParseFormat converts a flag value to a Format.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "text", "":
		return FormatText, nil
	case "ndjson", "json":
		return FormatNDJSON, nil
	}
	return FormatText, fmt.Errorf("invalid trace format: %q (expected: text|ndjson)", s)
}

// FormatEvent renders ev as one line.
func FormatEvent(ev *Event, format Format) []byte {
	if format == FormatNDJSON {
		return formatNDJSON(ev)
	}
	return formatText(ev)
}

type jsonEvent struct {
	Time     string            `json:"time"`
	Seq      uint64            `json:"seq"`
	Kind     string            `json:"kind"`
	Scope    string            `json:"scope"`
	SpanID   uint64            `json:"span_id,omitempty"`
	ParentID uint64            `json:"parent_id,omitempty"`
	Name     string            `json:"name"`
	Detail   string            `json:"detail,omitempty"`
	Extra    map[string]string `json:"extra,omitempty"`
}

func formatNDJSON(ev *Event) []byte {
	data, err := json.Marshal(jsonEvent{
		Time:     ev.Time.Format("2006-01-02T15:04:05.000000Z07:00"),
		Seq:      ev.Seq,
		Kind:     ev.Kind.String(),
		Scope:    ev.Scope.String(),
		SpanID:   ev.SpanID,
		ParentID: ev.ParentID,
		Name:     ev.Name,
		Detail:   ev.Detail,
		Extra:    ev.Extra,
	})
	if err != nil {
		return nil
	}
	return append(data, '\n')
}

// formatText: "#seq  <indent>→ name (detail) {k=v}". Indentation follows scope.
func formatText(ev *Event) []byte {
	var sb strings.Builder
	fmt.Fprintf(&sb, "#%-6d ", ev.Seq)
	if ev.Scope > ScopeDriver {
		sb.WriteString(strings.Repeat("  ", int(ev.Scope-ScopeDriver)))
	}
	switch ev.Kind {
	case KindSpanBegin:
		sb.WriteString("→ ")
	case KindSpanEnd:
		sb.WriteString("← ")
	case KindPoint:
		sb.WriteString("• ")
	}
	sb.WriteString(ev.Name)
	if ev.Detail != "" {
		fmt.Fprintf(&sb, " (%s)", ev.Detail)
	}
	if len(ev.Extra) > 0 {
		keys := make([]string, 0, len(ev.Extra))
		for k := range ev.Extra {
			keys = append(keys, k)
		}
		slices.Sort(keys)
		sb.WriteString(" {")
		for i, k := range keys {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(k + "=" + ev.Extra[k])
		}
		sb.WriteString("}")
	}
	sb.WriteByte('\n')
	return []byte(sb.String())
}
