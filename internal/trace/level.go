package trace

import (
	"fmt"
	"strings"
)

// Level controls tracing verbosity.
type Level uint8

const (
	LevelOff    Level = iota
	LevelPhase        // driver and module spans
	LevelDetail       // plus one span per function
	LevelDebug        // plus checker phases inside each function
)

func (l Level) String() string {
	switch l {
	case LevelOff:
		return "off"
	case LevelPhase:
		return "phase"
	case LevelDetail:
		return "detail"
	case LevelDebug:
		return "debug"
	}
	return "unknown"
}

// ParseLevel converts a flag value to a Level.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(s) {
	case "off", "":
		return LevelOff, nil
	case "phase":
		return LevelPhase, nil
	case "detail":
		return LevelDetail, nil
	case "debug":
		return LevelDebug, nil
	}
	return LevelOff, fmt.Errorf("invalid trace level: %q (expected: off|phase|detail|debug)", s)
}

// ShouldEmit reports whether events at scope pass this level.
func (l Level) ShouldEmit(scope Scope) bool {
	switch l {
	case LevelPhase:
		return scope <= ScopeModule
	case LevelDetail:
		return scope <= ScopeFunc
	case LevelDebug:
		return true
	}
	return false
}
