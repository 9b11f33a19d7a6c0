// Package events implements the EventStream sink the Orchestrator pushes
// stage lifecycle events through (spec.md §4.8). It is a push-only,
// single-subscriber channel, narrowed from the teacher-of-teacher
// (jordanhubbard-tokenhub) internal/events.Bus's multi-subscriber pub/sub
// shape: one run has exactly one client, so there is no subscriber set to
// manage, only a buffered channel and a disconnect signal.
package events

import (
	"encoding/json"
	"sync"

	"github.com/modelcouncil/council/pkg/trace"
)

// Type is the closed set of event types a run may emit, in the order
// spec.md §5 mandates.
type Type string

const (
	Stage1Start    Type = "stage1_start"
	Stage1Complete Type = "stage1_complete"
	Stage2Start    Type = "stage2_start"
	Stage2Complete Type = "stage2_complete"
	Stage3Start    Type = "stage3_start"
	Stage3Complete Type = "stage3_complete"
	TitleComplete  Type = "title_complete"
	Complete       Type = "complete"
	Error          Type = "error"
)

// Event is one line of the streaming wire format: a required Type, an
// optional stage payload, and — for stage2_complete only — the
// DecisionTrace accumulated so far.
type Event struct {
	Type     Type                 `json:"type"`
	Data     any                  `json:"data,omitempty"`
	Metadata *trace.DecisionTrace `json:"metadata,omitempty"`
}

// JSON marshals the event. Marshal errors are not expected (Data is always
// a JSON-safe struct the orchestrator built) so they are swallowed into an
// empty-data fallback rather than panicking the run.
func (e Event) JSON() []byte {
	b, err := json.Marshal(e)
	if err != nil {
		b, _ = json.Marshal(Event{Type: e.Type})
	}
	return b
}

// Sink is a single run's event stream. The Orchestrator calls Emit; an
// HTTP handler (or a local caller, e.g. the CLI's `run` subcommand)
// drains Events() and writes each one to the client in the wire format.
type Sink struct {
	events    chan Event
	done      chan struct{}
	closeOnce sync.Once
	abortOnce sync.Once
}

// NewSink constructs a Sink with a buffer large enough to hold every event
// a single run ever emits (nine event types, each emitted at most once)
// without the Orchestrator ever blocking on a slow or absent reader.
func NewSink() *Sink {
	return &Sink{
		events: make(chan Event, 16),
		done:   make(chan struct{}),
	}
}

// Emit pushes an event. It never blocks the caller past the buffer filling,
// which given NewSink's sizing only happens if a caller emits more events
// than one run ever does.
func (s *Sink) Emit(eventType Type, data any) {
	s.events <- Event{Type: eventType, Data: data}
}

// EmitWithTrace pushes a stage2_complete-shaped event carrying the
// DecisionTrace accumulated so far, per spec.md §6.
func (s *Sink) EmitWithTrace(eventType Type, data any, dt trace.DecisionTrace) {
	s.events <- Event{Type: eventType, Data: data, Metadata: &dt}
}

// Events returns the channel the HTTP/CLI boundary reads from.
func (s *Sink) Events() <-chan Event {
	return s.events
}

// Close signals no further events will be emitted. Only the Orchestrator
// calls this, exactly once, after assembling and persisting the
// DecisionTrace.
func (s *Sink) Close() {
	s.closeOnce.Do(func() { close(s.events) })
}

// Abort reports a client disconnect. The Orchestrator selects on Done() and
// propagates it into the run's cancellation token; in-flight StageRunner
// tasks are signaled to stop, but the DecisionTrace is still assembled and
// persisted from whatever completed (spec.md §4.8: results are not lost
// just because the client left).
func (s *Sink) Abort() {
	s.abortOnce.Do(func() { close(s.done) })
}

// Done returns the channel closed by Abort.
func (s *Sink) Done() <-chan struct{} {
	return s.done
}
