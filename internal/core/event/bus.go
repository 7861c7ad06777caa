package event

import (
	"reflect"
	"sync"
)

// Bus is a double-buffered event bus. Events emitted in tick N are readable
// in tick N+1. SwapBuffers() is called at tick start by EventDispatchSystem.
type Bus struct {
	mu       sync.Mutex // only protects handler registration
	front    map[reflect.Type][]any
	back     map[reflect.Type][]any
	handlers map[reflect.Type][]handler
	nextID   uint64
}

type handler struct {
	id uint64
	fn func(any)
}

// Subscription is the handle returned by Subscribe.
type Subscription struct {
	bus *Bus
	typ reflect.Type
	id  uint64
}

func NewBus() *Bus {
	return &Bus{
		front:    make(map[reflect.Type][]any),
		back:     make(map[reflect.Type][]any),
		handlers: make(map[reflect.Type][]handler),
	}
}

// Emit queues an event into the back buffer (will be readable next tick).
func Emit[T any](b *Bus, event T) {
	t := reflect.TypeOf((*T)(nil)).Elem()
	b.back[t] = append(b.back[t], event)
}

// Subscribe registers a typed handler for events of type T.
func Subscribe[T any](b *Bus, fn func(T)) *Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()
	t := reflect.TypeOf((*T)(nil)).Elem()
	b.nextID++
	b.handlers[t] = append(b.handlers[t], handler{
		id: b.nextID,
		fn: func(ev any) { fn(ev.(T)) },
	})
	return &Subscription{bus: b, typ: t, id: b.nextID}
}

// Unsubscribe detaches the handler. Safe to call more than once.
func (s *Subscription) Unsubscribe() {
	if s == nil || s.bus == nil {
		return
	}
	b := s.bus
	s.bus = nil

	b.mu.Lock()
	defer b.mu.Unlock()
	hs := b.handlers[s.typ]
	for i, h := range hs {
		if h.id == s.id {
			// Copy so an in-flight DispatchAll keeps iterating its own slice.
			next := make([]handler, 0, len(hs)-1)
			next = append(next, hs[:i]...)
			next = append(next, hs[i+1:]...)
			b.handlers[s.typ] = next
			return
		}
	}
}

// Subscribers returns the number of handlers registered for T.
func Subscribers[T any](b *Bus) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.handlers[reflect.TypeOf((*T)(nil)).Elem()])
}

// SwapBuffers rotates back→front and clears the new back buffer.
// Called once at tick start.
func (b *Bus) SwapBuffers() {
	b.front, b.back = b.back, b.front
	for k := range b.back {
		b.back[k] = b.back[k][:0]
	}
}

// DispatchAll delivers all front-buffer events to their subscribed handlers.
func (b *Bus) DispatchAll() {
	for t, events := range b.front {
		for _, ev := range events {
			b.mu.Lock()
			handlers := b.handlers[t]
			b.mu.Unlock()
			for _, h := range handlers {
				h.fn(ev)
			}
		}
	}
}
