// Package store provides a generic reactive state container.
//
// A Store holds one immutable snapshot of type S. Writers replace the
// snapshot inside Batch, which serialises writers and commits all of their
// intermediate writes as a single change. Subscribers are notified once per
// committed change, after the write lock has been released, so they may read
// the store or start new batches from inside the callback.
package store

import (
	"reflect"
	"sync"

	"github.com/lucasols/t-form/emitter"
)

const changeEvent = "change"

// Change describes one committed transition.
type Change[S any] struct {
	Prev S
	Next S
}

// Option configures a Store.
type Option[S any] func(*Store[S])

// WithEqual sets the predicate used to decide whether a batch changed the
// state. Batches whose final state is equal to the initial one are not
// committed and notify nobody.
func WithEqual[S any](equal func(a, b S) bool) Option[S] {
	return func(s *Store[S]) {
		s.equal = equal
	}
}

// Store is a reactive container for a snapshot of type S.
type Store[S any] struct {
	writeMu sync.Mutex

	mu    sync.RWMutex
	state S

	equal  func(a, b S) bool
	events *emitter.Emitter[Change[S]]
}

// New creates a Store holding initial.
func New[S any](initial S, opts ...Option[S]) *Store[S] {
	s := &Store[S]{
		state:  initial,
		equal:  identical[S],
		events: emitter.New[Change[S]](),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// State returns the last committed snapshot.
func (s *Store[S]) State() S {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Tx is the write handle passed to Batch callbacks. It is only valid for the
// duration of the callback.
type Tx[S any] struct {
	state S
}

// Get returns the state as seen by the transaction, including its own
// uncommitted writes.
func (tx *Tx[S]) Get() S {
	return tx.state
}

// Set replaces the transaction's state.
func (tx *Tx[S]) Set(next S) {
	tx.state = next
}

// Batch runs fn inside the enclosing transaction. Its writes are committed
// by the outermost Batch, together with everything else done there.
func (tx *Tx[S]) Batch(fn func(tx *Tx[S])) {
	fn(tx)
}

// Batch runs fn with exclusive write access and commits the resulting state
// as one change. If fn panics nothing is committed.
//
// Batch is not reentrant: calling Batch, Set or Update on the same store
// from inside fn deadlocks. Nested work goes through tx.Batch, which joins
// the outer transaction.
func (s *Store[S]) Batch(fn func(tx *Tx[S])) {
	prev, next, changed := s.commit(fn)
	if changed {
		s.events.Emit(changeEvent, Change[S]{Prev: prev, Next: next})
	}
}

func (s *Store[S]) commit(fn func(tx *Tx[S])) (prev, next S, changed bool) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	prev = s.State()
	tx := &Tx[S]{state: prev}
	fn(tx)

	if s.equal(prev, tx.state) {
		return prev, prev, false
	}

	s.mu.Lock()
	s.state = tx.state
	s.mu.Unlock()

	return prev, tx.state, true
}

// Set commits next as a single change.
func (s *Store[S]) Set(next S) {
	s.Batch(func(tx *Tx[S]) {
		tx.Set(next)
	})
}

// Update commits the result of fn applied to the current state.
func (s *Store[S]) Update(fn func(S) S) {
	s.Batch(func(tx *Tx[S]) {
		tx.Set(fn(tx.Get()))
	})
}

// Subscribe registers fn to be called after every committed change.
func (s *Store[S]) Subscribe(fn func(prev, next S)) (unsubscribe func()) {
	return s.events.On(changeEvent, func(c Change[S]) {
		fn(c.Prev, c.Next)
	})
}

// Subscribers returns the number of registered subscribers.
func (s *Store[S]) Subscribers() int {
	return s.events.Len(changeEvent)
}

// Select subscribes to a derived view of the store. listener runs only when
// the selected value changes according to equal.
func Select[S, V any](s *Store[S], selector func(S) V, equal func(a, b V) bool, listener func(V)) (unsubscribe func()) {
	var (
		mu      sync.Mutex
		current V
	)

	mu.Lock()
	defer mu.Unlock()

	unsubscribe = s.Subscribe(func(_, next S) {
		v := selector(next)

		mu.Lock()
		if equal(current, v) {
			mu.Unlock()
			return
		}
		current = v
		mu.Unlock()

		listener(v)
	})
	current = selector(s.State())

	return unsubscribe
}

func identical[S any](a, b S) bool {
	va, vb := any(a), any(b)
	if t := reflect.TypeOf(va); t != nil && !t.Comparable() {
		return reflect.DeepEqual(va, vb)
	}
	return va == vb
}
