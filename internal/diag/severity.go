package diag

// Severity orders diagnostics; larger is more severe.
type Severity uint8

const (
	// SevInfo is for informational diagnostics.
	SevInfo Severity = iota
	// SevWarning is for warning diagnostics.
	SevWarning
	// SevError makes the function's checked result unusable.
	SevError
)

func (s Severity) String() string {
	switch s {
	case SevInfo:
		return "INFO"
	case SevWarning:
		return "WARNING"
	case SevError:
		return "ERROR"
	}
	return "UNKNOWN"
}

// AtLeast reports whether s is as severe as floor.
func (s Severity) AtLeast(floor Severity) bool {
	return s >= floor
}
