package event

import (
	"log/slog"
	"sync"
)

// Handler receives a published event.
type Handler func(Event)

type subscription struct {
	id uint64
	fn Handler
}

// Bus dispatches events synchronously, in subscription order.
// A panicking handler is logged and skipped; Publish never panics.
//
// Thread-safe: handlers may subscribe or unsubscribe while being dispatched.
type Bus struct {
	mu     sync.RWMutex
	nextID uint64
	byKind map[Kind][]subscription
	all    []subscription
}

// NewBus creates an empty Bus.
func NewBus() *Bus {
	return &Bus{byKind: make(map[Kind][]subscription, kindCount)}
}

// Subscribe registers fn for events of kind k.
// The returned func removes the subscription; calling it twice is a no-op.
func (b *Bus) Subscribe(k Kind, fn Handler) func() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	id := b.nextID
	b.byKind[k] = append(b.byKind[k], subscription{id: id, fn: fn})

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		b.byKind[k] = removeSub(b.byKind[k], id)
	}
}

// SubscribeAll registers fn for every event.
func (b *Bus) SubscribeAll(fn Handler) func() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	id := b.nextID
	b.all = append(b.all, subscription{id: id, fn: fn})

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		b.all = removeSub(b.all, id)
	}
}

// Publish delivers e to kind subscribers first, then to catch-all subscribers.
// Nil bus is allowed and drops the event.
func (b *Bus) Publish(e Event) {
	if b == nil || e == nil {
		return
	}

	b.mu.RLock()
	subs := make([]subscription, 0, len(b.byKind[e.Kind()])+len(b.all))
	subs = append(subs, b.byKind[e.Kind()]...)
	subs = append(subs, b.all...)
	b.mu.RUnlock()

	for _, s := range subs {
		dispatch(s.fn, e)
	}
}

// On subscribes a handler typed to a single event struct.
func On[E Event](b *Bus, fn func(E)) func() {
	var zero E
	return b.Subscribe(zero.Kind(), func(e Event) {
		if typed, ok := e.(E); ok {
			fn(typed)
		}
	})
}

func dispatch(fn Handler, e Event) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("event handler panicked",
				"event", e.Kind().String(),
				"panic", r)
		}
	}()
	fn(e)
}

func removeSub(subs []subscription, id uint64) []subscription {
	for i, s := range subs {
		if s.id == id {
			out := make([]subscription, 0, len(subs)-1)
			out = append(out, subs[:i]...)
			return append(out, subs[i+1:]...)
		}
	}
	return subs
}
