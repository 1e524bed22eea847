// Package testing provides helpers for testing code built on tform forms
// and trackers.
package testing

import (
	"testing"
	"time"

	tform "github.com/lucasols/t-form"
)

// WaitFor polls a condition until it returns true or timeout is reached.
// Returns true if the condition was met, false if timeout occurred.
func WaitFor(t *testing.T, timeout time.Duration, condition func() bool) bool {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if condition() {
			return true
		}
		time.Sleep(10 * time.Millisecond)
	}
	return false
}

// WaitForState waits until the tracker reaches the expected state or timeout occurs.
func WaitForState(t *testing.T, tr *tform.Tracker, expected tform.State, timeout time.Duration) bool {
	t.Helper()
	return WaitFor(t, timeout, func() bool {
		return tr.State() == expected
	})
}

// RequireState fails the test immediately if the tracker is not in the expected state.
func RequireState(t *testing.T, tr *tform.Tracker, expected tform.State) {
	t.Helper()
	if got := tr.State(); got != expected {
		t.Fatalf("expected state %s, got %s", expected, got)
	}
}

// RequireField fails the test if field id does not exist.
func RequireField(t *testing.T, form *tform.Form, id string) *tform.FieldState {
	t.Helper()
	f, ok := form.Field(id)
	if !ok {
		t.Fatalf("field %q not found", id)
	}
	return f
}

// RequireValid fails the test unless field id is valid and shows no errors.
func RequireValid(t *testing.T, form *tform.Form, id string) {
	t.Helper()
	f := RequireField(t, form, id)
	if !f.Valid || len(f.Errors) != 0 {
		t.Fatalf("field %q: expected valid, got valid=%v errors=%v", id, f.Valid, f.Errors)
	}
}

// RequireErrors fails the test unless field id shows exactly want, in order.
// With no want the field must show no errors.
func RequireErrors(t *testing.T, form *tform.Form, id string, want ...string) {
	t.Helper()
	f := RequireField(t, form, id)
	if len(f.Errors) != len(want) {
		t.Fatalf("field %q: expected errors %q, got %q", id, want, f.Errors)
	}
	for i := range want {
		if f.Errors[i] != want[i] {
			t.Fatalf("field %q: expected errors %q, got %q", id, want, f.Errors)
		}
	}
}

// Simplify reduces state to the parts most tests assert on: each field's
// value, errors and touched flag, plus the form error when set.
func Simplify(state *tform.FormState) map[string]any {
	out := make(map[string]any, len(state.Fields)+1)
	for _, id := range state.Fields.IDs() {
		f := state.Fields[id]
		entry := map[string]any{"value": f.Value}
		if len(f.Errors) > 0 {
			entry["errors"] = f.Errors
		}
		if f.Touched {
			entry["touched"] = true
		}
		out[id] = entry
	}
	if state.FormError != "" {
		out["$form"] = state.FormError
	}
	return out
}

// NewTestTracker creates a sync-mode tracker for form fed by the returned
// channel.
func NewTestTracker(t *testing.T, form *tform.Form) (*tform.Tracker, chan<- []byte) {
	t.Helper()
	ch := make(chan []byte, 10)
	return tform.NewTracker(form, tform.NewSyncChannelWatcher(ch)).SyncMode(), ch
}
