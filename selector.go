package tform

import "github.com/lucasols/t-form/store"

// Summary aggregates the state of every field.
type Summary struct {
	SomeFieldIsLoading bool `json:"someFieldIsLoading" yaml:"someFieldIsLoading"`
	FormIsValid        bool `json:"formIsValid" yaml:"formIsValid"`
	DiffFromInitial    bool `json:"isDiffFromInitial" yaml:"isDiffFromInitial"`
}

// Summarize computes the aggregate of state. With mustBeDiffFromInitial the
// form only counts as valid once some field differs from its initial value.
func Summarize(state *FormState, mustBeDiffFromInitial bool) Summary {
	s := Summary{FormIsValid: state.FormError == ""}
	for _, f := range state.Fields {
		if f.Loading {
			s.SomeFieldIsLoading = true
		}
		if !f.Valid {
			s.FormIsValid = false
		}
		if f.DiffFromInitial {
			s.DiffFromInitial = true
		}
	}
	if mustBeDiffFromInitial {
		s.FormIsValid = s.FormIsValid && s.DiffFromInitial
	}
	return s
}

// Summary returns the aggregate of the current state.
func (f *Form) Summary(mustBeDiffFromInitial bool) Summary {
	return Summarize(f.State(), mustBeDiffFromInitial)
}

// WatchSummary calls fn whenever the aggregate changes.
func (f *Form) WatchSummary(mustBeDiffFromInitial bool, fn func(Summary)) (unsubscribe func()) {
	return store.Select(f.store,
		func(s *FormState) Summary { return Summarize(s, mustBeDiffFromInitial) },
		func(a, b Summary) bool { return a == b },
		fn,
	)
}

// WatchField calls fn whenever the state of field id changes. A removed
// field is reported as nil.
func (f *Form) WatchField(id string, fn func(*FieldState)) (unsubscribe func()) {
	return store.Select(f.store,
		func(s *FormState) *FieldState { return s.Fields[id] },
		func(a, b *FieldState) bool { return a == b },
		fn,
	)
}
