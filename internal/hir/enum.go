package hir

import "fmt"

// Enum kinds serialise by name so YAML fixtures stay readable and msgpack
// payloads survive reordering of the constants.

func marshalEnum[T ~uint8](v T, names []string, what string) ([]byte, error) {
	if int(v) >= len(names) || names[v] == "" {
		return nil, fmt.Errorf("unknown %s %d", what, v)
	}
	return []byte(names[v]), nil
}

func unmarshalEnum[T ~uint8](dst *T, text []byte, names []string, what string) error {
	for i, name := range names {
		if name != "" && name == string(text) {
			*dst = T(i) //nolint:gosec // bounded by len(names)
			return nil
		}
	}
	return fmt.Errorf("unknown %s %q", what, text)
}

func enumString[T ~uint8](v T, names []string) string {
	if int(v) < len(names) && names[v] != "" {
		return names[v]
	}
	return fmt.Sprintf("?%d", v)
}
