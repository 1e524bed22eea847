package emitter

import (
	"reflect"
	"sync"
	"testing"
)

func TestEmitter_On(t *testing.T) {
	em := New[int]()

	var got []int
	em.On("count", func(v int) { got = append(got, v) })

	em.Emit("count", 1)
	em.Emit("count", 2)
	em.Emit("other", 3)

	if !reflect.DeepEqual(got, []int{1, 2}) {
		t.Errorf("expected [1 2], got %v", got)
	}
}

func TestEmitter_RegistrationOrder(t *testing.T) {
	em := New[string]()

	var order []string
	em.On("ev", func(string) { order = append(order, "first") })
	em.On("ev", func(string) { order = append(order, "second") })
	em.OnAny(func(string, string) { order = append(order, "wildcard") })

	em.Emit("ev", "")

	want := []string{"first", "second", "wildcard"}
	if !reflect.DeepEqual(order, want) {
		t.Errorf("expected %v, got %v", want, order)
	}
}

func TestEmitter_Off(t *testing.T) {
	em := New[int]()

	calls := 0
	off := em.On("ev", func(int) { calls++ })

	em.Emit("ev", 0)
	off()
	off() // second call is a no-op
	em.Emit("ev", 0)

	if calls != 1 {
		t.Errorf("expected 1 call, got %d", calls)
	}
	if em.Len("ev") != 0 {
		t.Errorf("expected no listeners, got %d", em.Len("ev"))
	}
}

func TestEmitter_Once(t *testing.T) {
	em := New[int]()

	calls := 0
	em.Once("ev", func(int) { calls++ })

	em.Emit("ev", 0)
	em.Emit("ev", 0)

	if calls != 1 {
		t.Errorf("expected once listener to run once, got %d", calls)
	}
}

func TestEmitter_OnAnyReceivesName(t *testing.T) {
	em := New[any]()

	type call struct {
		name    string
		payload any
	}
	var calls []call
	em.OnAny(func(name string, payload any) {
		calls = append(calls, call{name, payload})
	})

	em.Emit("setValue", "a")
	em.Emit("touch", 2)

	want := []call{{"setValue", "a"}, {"touch", 2}}
	if !reflect.DeepEqual(calls, want) {
		t.Errorf("expected %v, got %v", want, calls)
	}
}

func TestEmitter_UnsubscribeDuringEmit(t *testing.T) {
	em := New[int]()

	var offSecond func()
	secondCalls := 0

	em.On("ev", func(int) { offSecond() })
	offSecond = em.On("ev", func(int) { secondCalls++ })

	em.Emit("ev", 0)

	if secondCalls != 0 {
		t.Errorf("expected listener removed mid-emit to be skipped, got %d calls", secondCalls)
	}
}

func TestEmitter_OffRemovesAll(t *testing.T) {
	em := New[int]()
	em.On("ev", func(int) {})
	em.On("ev", func(int) {})

	em.Off("ev")

	if em.Len("ev") != 0 {
		t.Errorf("expected 0 listeners, got %d", em.Len("ev"))
	}
}

func TestEmitter_Concurrent(t *testing.T) {
	em := New[int]()

	var mu sync.Mutex
	total := 0
	em.On("ev", func(v int) {
		mu.Lock()
		total += v
		mu.Unlock()
	})

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			em.Emit("ev", 1)
		}()
	}
	wg.Wait()

	if total != 50 {
		t.Errorf("expected 50, got %d", total)
	}
}
