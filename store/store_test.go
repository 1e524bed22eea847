package store

import (
	"sync"
	"testing"
)

type counter struct {
	n     int
	label string
}

func TestStore_BatchNotifiesOnce(t *testing.T) {
	s := New(&counter{})

	notifications := 0
	s.Subscribe(func(_, _ *counter) { notifications++ })

	s.Batch(func(tx *Tx[*counter]) {
		for i := 0; i < 3; i++ {
			next := *tx.Get()
			next.n++
			tx.Set(&next)
		}
	})

	if notifications != 1 {
		t.Errorf("expected 1 notification, got %d", notifications)
	}
	if s.State().n != 3 {
		t.Errorf("expected n=3, got %d", s.State().n)
	}
}

func TestTx_BatchJoinsOuterTransaction(t *testing.T) {
	s := New(&counter{})

	var seen []int
	s.Subscribe(func(_, next *counter) { seen = append(seen, next.n) })

	increment := func(tx *Tx[*counter]) {
		tx.Batch(func(tx *Tx[*counter]) {
			next := *tx.Get()
			next.n++
			tx.Set(&next)
		})
	}

	s.Batch(func(tx *Tx[*counter]) {
		increment(tx)
		tx.Batch(func(tx *Tx[*counter]) {
			increment(tx)
			if tx.Get().n != 2 {
				t.Errorf("nested batch should see outer writes, got n=%d", tx.Get().n)
			}
		})
		if s.State().n != 0 {
			t.Error("nested batches must not commit before the outer one")
		}
	})

	if len(seen) != 1 || seen[0] != 2 {
		t.Errorf("expected a single notification with n=2, got %v", seen)
	}
}

func TestStore_UnchangedBatchDoesNotNotify(t *testing.T) {
	initial := &counter{n: 1}
	s := New(initial)

	notifications := 0
	s.Subscribe(func(_, _ *counter) { notifications++ })

	s.Batch(func(tx *Tx[*counter]) {
		tx.Set(tx.Get())
	})

	if notifications != 0 {
		t.Errorf("expected no notification, got %d", notifications)
	}
	if s.State() != initial {
		t.Error("expected state pointer to be preserved")
	}
}

func TestStore_StateIsAtomicDuringBatch(t *testing.T) {
	s := New(0)

	var seenInside int
	s.Batch(func(tx *Tx[int]) {
		tx.Set(5)
		seenInside = s.State()
	})

	if seenInside != 0 {
		t.Errorf("expected readers to see committed state 0 during batch, got %d", seenInside)
	}
	if s.State() != 5 {
		t.Errorf("expected 5 after commit, got %d", s.State())
	}
}

func TestStore_PanicDoesNotCommit(t *testing.T) {
	s := New(1)

	func() {
		defer func() { _ = recover() }()
		s.Batch(func(tx *Tx[int]) {
			tx.Set(2)
			panic("boom")
		})
	}()

	if s.State() != 1 {
		t.Errorf("expected state 1 after panic, got %d", s.State())
	}

	// The write lock must have been released.
	s.Set(3)
	if s.State() != 3 {
		t.Errorf("expected 3, got %d", s.State())
	}
}

func TestStore_SubscriberCanWrite(t *testing.T) {
	s := New(0)

	s.Subscribe(func(_, next int) {
		if next == 1 {
			s.Set(2)
		}
	})

	s.Set(1)

	if s.State() != 2 {
		t.Errorf("expected subscriber write to land, got %d", s.State())
	}
}

func TestStore_Unsubscribe(t *testing.T) {
	s := New(0)

	calls := 0
	unsubscribe := s.Subscribe(func(_, _ int) { calls++ })
	s.Set(1)
	unsubscribe()
	s.Set(2)

	if calls != 1 {
		t.Errorf("expected 1 call, got %d", calls)
	}
	if s.Subscribers() != 0 {
		t.Errorf("expected 0 subscribers, got %d", s.Subscribers())
	}
}

func TestStore_WithEqual(t *testing.T) {
	s := New(&counter{n: 1, label: "a"}, WithEqual(func(a, b *counter) bool {
		return a.n == b.n
	}))

	calls := 0
	s.Subscribe(func(_, _ *counter) { calls++ })

	s.Set(&counter{n: 1, label: "b"})
	if calls != 0 {
		t.Errorf("expected equal state to be ignored, got %d calls", calls)
	}
	if s.State().label != "a" {
		t.Errorf("expected original state kept, got %q", s.State().label)
	}

	s.Set(&counter{n: 2})
	if calls != 1 {
		t.Errorf("expected 1 call, got %d", calls)
	}
}

func TestStore_Update(t *testing.T) {
	s := New(10)
	s.Update(func(v int) int { return v * 2 })
	if s.State() != 20 {
		t.Errorf("expected 20, got %d", s.State())
	}
}

func TestSelect_SuppressesUnchanged(t *testing.T) {
	s := New(&counter{n: 1, label: "a"})

	var got []string
	Select(s,
		func(c *counter) string { return c.label },
		func(a, b string) bool { return a == b },
		func(v string) { got = append(got, v) },
	)

	s.Set(&counter{n: 2, label: "a"})
	s.Set(&counter{n: 3, label: "b"})
	s.Set(&counter{n: 4, label: "b"})

	if len(got) != 1 || got[0] != "b" {
		t.Errorf("expected [b], got %v", got)
	}
}

func TestStore_ConcurrentBatches(t *testing.T) {
	s := New(0)

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.Update(func(v int) int { return v + 1 })
		}()
	}
	wg.Wait()

	if s.State() != 100 {
		t.Errorf("expected 100, got %d", s.State())
	}
}

func TestIdentical_Uncomparable(t *testing.T) {
	if !identical[any]([]int{1}, []int{1}) {
		t.Error("expected deep-equal slices to be identical")
	}
	if identical[any]([]int{1}, []int{2}) {
		t.Error("expected different slices to differ")
	}
}
