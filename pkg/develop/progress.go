package develop

import "log"

// An Event is one progress report from a develop call. Events are
// emitted and forgotten; the job id lets a consumer discard events
// from requests it has since superseded.
type Event struct {
	Job       string
	Phase     string // "unpack", "demosaic", "tone", "sharpen", "pack", "appearance", "orient", "fallback"
	Step      string
	Iteration int
	Total     int
}

// A Sink receives progress events. Report is fire-and-forget and is
// called on whatever worker is running the develop call; a consumer
// wanting main-thread delivery must redispatch itself.
type Sink interface {
	Report(Event)
}

// SinkFunc adapts a plain function to the Sink interface.
type SinkFunc func(Event)

func (f SinkFunc) Report(e Event) { f(e) }

// NopSink discards everything.
var NopSink = SinkFunc(func(Event) {})

// LogSink writes events through the standard logger, which is what
// the CLI wants.
var LogSink = SinkFunc(func(e Event) {
	if e.Total > 0 {
		log.Printf("[%s] %s/%s %d/%d", e.Job, e.Phase, e.Step, e.Iteration, e.Total)
	} else {
		log.Printf("[%s] %s/%s", e.Job, e.Phase, e.Step)
	}
})
