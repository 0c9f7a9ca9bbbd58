package trace

import (
	"io"
	"sync"
)

// StreamTracer writes each event as it arrives.
type StreamTracer struct {
	mu     sync.Mutex
	w      io.Writer
	level  Level
	format Format
}

// NewStreamTracer writes events to w.
func NewStreamTracer(w io.Writer, level Level, format Format) *StreamTracer {
	return &StreamTracer{w: w, level: level, format: format}
}

func (t *StreamTracer) Emit(ev *Event) {
	if !t.level.ShouldEmit(ev.Scope) {
		return
	}
	ev.Seq = NextSeq()
	data := FormatEvent(ev, t.format)
	t.mu.Lock()
	defer t.mu.Unlock()
	// trace output is best effort
	_, _ = t.w.Write(data) //nolint:errcheck
}

func (t *StreamTracer) Flush() error {
	if f, ok := t.w.(interface{ Flush() error }); ok {
		return f.Flush()
	}
	return nil
}

func (t *StreamTracer) Close() error {
	if err := t.Flush(); err != nil {
		return err
	}
	if c, ok := t.w.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

func (t *StreamTracer) Level() Level  { return t.level }
func (t *StreamTracer) Enabled() bool { return t.level > LevelOff }
