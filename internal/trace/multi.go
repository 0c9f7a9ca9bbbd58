package trace

// MultiTracer fans events out to several tracers.
type MultiTracer struct {
	tracers []Tracer
	level   Level
}

// NewMultiTracer combines tracers under one level.
func NewMultiTracer(level Level, tracers ...Tracer) *MultiTracer {
	return &MultiTracer{tracers: tracers, level: level}
}

func (t *MultiTracer) Emit(ev *Event) {
	for _, tr := range t.tracers {
		cp := *ev
		tr.Emit(&cp)
	}
}

func (t *MultiTracer) Flush() error {
	var first error
	for _, tr := range t.tracers {
		if err := tr.Flush(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func (t *MultiTracer) Close() error {
	var first error
	for _, tr := range t.tracers {
		if err := tr.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func (t *MultiTracer) Level() Level  { return t.level }
func (t *MultiTracer) Enabled() bool { return t.level > LevelOff }
