// Package emitter provides a small synchronous publish/subscribe utility.
//
// An Emitter routes payloads of a single type to listeners registered under
// an event name. Wildcard listeners registered with OnAny receive every event
// together with its name.
//
//	em := emitter.New[string]()
//	off := em.On("saved", func(id string) { fmt.Println("saved", id) })
//	em.Emit("saved", "user-1")
//	off()
package emitter

import "sync"

// Wildcard is the event name under which OnAny listeners are stored.
const Wildcard = "*"

type listener[T any] struct {
	id   uint64
	once bool
	fn   func(name string, payload T)
}

// Emitter is a typed, synchronous event emitter. It is safe for concurrent
// use. Listeners run on the emitting goroutine in registration order and may
// unsubscribe themselves (or others) while an event is being delivered.
type Emitter[T any] struct {
	mu        sync.RWMutex
	nextID    uint64
	listeners map[string][]listener[T]
}

// New creates an empty Emitter.
func New[T any]() *Emitter[T] {
	return &Emitter[T]{listeners: make(map[string][]listener[T])}
}

// On registers fn for the named event and returns a function that removes it.
func (e *Emitter[T]) On(name string, fn func(T)) (off func()) {
	return e.add(name, false, func(_ string, payload T) { fn(payload) })
}

// Once registers fn to run for the next delivery of the named event only.
func (e *Emitter[T]) Once(name string, fn func(T)) (off func()) {
	return e.add(name, true, func(_ string, payload T) { fn(payload) })
}

// OnAny registers fn for every event. The event name is passed along with
// the payload.
func (e *Emitter[T]) OnAny(fn func(name string, payload T)) (off func()) {
	return e.add(Wildcard, false, fn)
}

func (e *Emitter[T]) add(name string, once bool, fn func(string, T)) func() {
	e.mu.Lock()
	e.nextID++
	id := e.nextID
	e.listeners[name] = append(e.listeners[name], listener[T]{id: id, once: once, fn: fn})
	e.mu.Unlock()

	var removed sync.Once
	return func() {
		removed.Do(func() { e.remove(name, id) })
	}
}

// remove reports whether the listener was still registered, which lets a
// once listener be claimed by exactly one delivery.
func (e *Emitter[T]) remove(name string, id uint64) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	current := e.listeners[name]
	for i, l := range current {
		if l.id != id {
			continue
		}
		next := make([]listener[T], 0, len(current)-1)
		next = append(next, current[:i]...)
		next = append(next, current[i+1:]...)
		if len(next) == 0 {
			delete(e.listeners, name)
		} else {
			e.listeners[name] = next
		}
		return true
	}
	return false
}

// Emit delivers payload to the listeners of name, then to wildcard
// listeners. Emitting the Wildcard name directly only reaches wildcard
// listeners.
func (e *Emitter[T]) Emit(name string, payload T) {
	e.mu.RLock()
	named := e.listeners[name]
	var wild []listener[T]
	if name != Wildcard {
		wild = e.listeners[Wildcard]
	}
	e.mu.RUnlock()

	e.deliver(name, name, named, payload)
	e.deliver(Wildcard, name, wild, payload)
}

// deliver iterates over a snapshot so listeners can unsubscribe mid-emit.
func (e *Emitter[T]) deliver(bucket, name string, ls []listener[T], payload T) {
	for _, l := range ls {
		if l.once {
			if !e.remove(bucket, l.id) {
				continue
			}
		} else if !e.registered(bucket, l.id) {
			continue
		}
		l.fn(name, payload)
	}
}

func (e *Emitter[T]) registered(bucket string, id uint64) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	for _, l := range e.listeners[bucket] {
		if l.id == id {
			return true
		}
	}
	return false
}

// Off removes every listener of the named event.
func (e *Emitter[T]) Off(name string) {
	e.mu.Lock()
	delete(e.listeners, name)
	e.mu.Unlock()
}

// Len returns the number of listeners registered for name.
func (e *Emitter[T]) Len(name string) int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.listeners[name])
}
