package event

import "sync"

// Recorder captures every event published on a bus. Used by tests and the console.
type Recorder struct {
	mu     sync.Mutex
	events []Event
	stop   func()
}

// NewRecorder subscribes a Recorder to all events on b.
func NewRecorder(b *Bus) *Recorder {
	r := &Recorder{}
	r.stop = b.SubscribeAll(func(e Event) {
		r.mu.Lock()
		r.events = append(r.events, e)
		r.mu.Unlock()
	})
	return r
}

// Events returns a copy of everything recorded so far.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// Count returns how many events of kind k were recorded.
func (r *Recorder) Count(k Kind) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.events {
		if e.Kind() == k {
			n++
		}
	}
	return n
}

// Reset drops recorded events.
func (r *Recorder) Reset() {
	r.mu.Lock()
	r.events = r.events[:0]
	r.mu.Unlock()
}

// Close detaches the recorder from its bus.
func (r *Recorder) Close() {
	if r.stop != nil {
		r.stop()
	}
}

// All returns recorded events of type E in publish order.
func All[E Event](r *Recorder) []E {
	var out []E
	for _, e := range r.Events() {
		if typed, ok := e.(E); ok {
			out = append(out, typed)
		}
	}
	return out
}

// Last returns the most recent event of type E.
func Last[E Event](r *Recorder) (E, bool) {
	all := All[E](r)
	if len(all) == 0 {
		var zero E
		return zero, false
	}
	return all[len(all)-1], true
}
