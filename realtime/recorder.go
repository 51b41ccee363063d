package realtime

import (
	"sync"

	"github.com/google/uuid"
)

// RecordedEvent is a single call captured by Recorder
type RecordedEvent struct {
	Event   string
	TableID uuid.UUID
	Payload interface{}
}

// Recorder is a Broadcaster that keeps every event in memory (for testing)
type Recorder struct {
	mu     sync.Mutex
	events []RecordedEvent
}

// NewRecorder creates an empty recorder
func NewRecorder() *Recorder {
	return &Recorder{}
}

// Broadcast records the event
func (r *Recorder) Broadcast(event string, tableID uuid.UUID, payload interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, RecordedEvent{Event: event, TableID: tableID, Payload: payload})
}

// Events returns a copy of every recorded event in order
func (r *Recorder) Events() []RecordedEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]RecordedEvent, len(r.events))
	copy(out, r.events)
	return out
}

// Named returns the recorded events with the given name
func (r *Recorder) Named(event string) []RecordedEvent {
	var out []RecordedEvent
	for _, e := range r.Events() {
		if e.Event == event {
			out = append(out, e)
		}
	}
	return out
}

// Reset discards all recorded events
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
}
