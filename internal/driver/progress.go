package driver

import "time"

// Stage is the phase a unit of work is in.
type Stage string

const (
	StageLoad  Stage = "load"
	StageCheck Stage = "check"
	StageCache Stage = "cache"
)

// Status is the progress of one unit within a stage.
type Status string

const (
	StatusQueued  Status = "queued"
	StatusWorking Status = "working"
	StatusDone    Status = "done"
	StatusError   Status = "error"
)

// Event reports progress for one function, or for the whole module when
// Func is empty.
type Event struct {
	Func    string
	Stage   Stage
	Status  Status
	Elapsed time.Duration
}

// ProgressSink consumes progress events. Implementations must be
// goroutine-safe.
type ProgressSink interface {
	OnEvent(Event)
}

// ChannelSink forwards events into a channel.
type ChannelSink struct {
	Ch chan<- Event
}

func (s ChannelSink) OnEvent(ev Event) {
	if s.Ch == nil {
		return
	}
	s.Ch <- ev
}

func notify(s ProgressSink, ev Event) {
	if s != nil {
		s.OnEvent(ev)
	}
}
