package trace

import (
	"fmt"
	"io"
	"os"
	"strings"
)

// Tracer receives trace events. Implementations must be goroutine-safe:
// the driver checks functions in parallel.
type Tracer interface {
	Emit(ev *Event)
	Flush() error
	Close() error
	Level() Level
	Enabled() bool
}

// StorageMode determines where events go.
type StorageMode uint8

const (
	ModeStream StorageMode = iota + 1 // write immediately
	ModeRing                          // keep the tail in memory
	ModeBoth
)

func (m StorageMode) String() string {
	switch m {
	case ModeStream:
		return "stream"
	case ModeRing:
		return "ring"
	case ModeBoth:
		return "both"
	}
	return "unknown"
}

// ParseMode converts a flag value to a StorageMode.
func ParseMode(s string) (StorageMode, error) {
	switch strings.ToLower(s) {
	case "stream", "":
		return ModeStream, nil
	case "ring":
		return ModeRing, nil
	case "both":
		return ModeBoth, nil
	}
	return ModeStream, fmt.Errorf("invalid trace mode: %q (expected: stream|ring|both)", s)
}

// Config describes a tracer.
type Config struct {
	Level      Level
	Mode       StorageMode
	Format     Format
	Output     io.Writer // takes precedence over OutputPath
	OutputPath string    // "-" or empty means stderr; *.ndjson selects NDJSON
	RingSize   int
}

// New builds a tracer from cfg. LevelOff yields Nop.
func New(cfg Config) (Tracer, error) {
	if cfg.Level == LevelOff {
		return Nop, nil
	}
	if cfg.RingSize <= 0 {
		cfg.RingSize = 4096
	}
	if cfg.Format == FormatText && strings.HasSuffix(cfg.OutputPath, ".ndjson") {
		cfg.Format = FormatNDJSON
	}
	switch cfg.Mode {
	case ModeRing:
		return NewRingTracer(cfg.RingSize, cfg.Level), nil
	case ModeStream, ModeBoth:
		w, err := openOutput(cfg)
		if err != nil {
			return nil, err
		}
		stream := NewStreamTracer(w, cfg.Level, cfg.Format)
		if cfg.Mode == ModeStream {
			return stream, nil
		}
		return NewMultiTracer(cfg.Level, stream, NewRingTracer(cfg.RingSize, cfg.Level)), nil
	}
	return nil, fmt.Errorf("unknown trace mode: %v", cfg.Mode)
}

func openOutput(cfg Config) (io.Writer, error) {
	if cfg.Output != nil {
		return cfg.Output, nil
	}
	if cfg.OutputPath == "" || cfg.OutputPath == "-" {
		return uncloseable{os.Stderr}, nil
	}
	f, err := os.Create(cfg.OutputPath)
	if err != nil {
		return nil, fmt.Errorf("open trace output: %w", err)
	}
	return f, nil
}

// uncloseable hides Close so the tracer never closes stderr.
type uncloseable struct{ io.Writer }

// Ring returns the ring buffer behind t, if any.
func Ring(t Tracer) *RingTracer {
	switch t := t.(type) {
	case *RingTracer:
		return t
	case *MultiTracer:
		for _, inner := range t.tracers {
			if r := Ring(inner); r != nil {
				return r
			}
		}
	}
	return nil
}
