package tform

import "fmt"

// FieldState is the observable state of a single field. Committed values
// are immutable; a field that did not change keeps its pointer across
// transactions.
type FieldState struct {
	Value           any      `json:"value" yaml:"value"`
	InitialValue    any      `json:"initialValue" yaml:"initialValue"`
	Metadata        any      `json:"metadata,omitempty" yaml:"metadata,omitempty"`
	Required        bool     `json:"required" yaml:"required"`
	Valid           bool     `json:"isValid" yaml:"isValid"`
	Errors          []string `json:"errors" yaml:"errors"`
	Touched         bool     `json:"isTouched" yaml:"isTouched"`
	DiffFromInitial bool     `json:"isDiffFromInitial" yaml:"isDiffFromInitial"`
	Empty           bool     `json:"isEmpty" yaml:"isEmpty"`
	Loading         bool     `json:"valueIsLoading" yaml:"valueIsLoading"`
}

func (f *FieldState) clone() *FieldState {
	c := *f
	return &c
}

// sameAs reports whether f holds the same observable state as other.
func (f *FieldState) sameAs(other *FieldState) bool {
	return f.Required == other.Required &&
		f.Valid == other.Valid &&
		f.Touched == other.Touched &&
		f.DiffFromInitial == other.DiffFromInitial &&
		f.Empty == other.Empty &&
		f.Loading == other.Loading &&
		equalMessages(f.Errors, other.Errors) &&
		DeepEqual(f.Value, other.Value) &&
		DeepEqual(f.InitialValue, other.InitialValue) &&
		DeepEqual(f.Metadata, other.Metadata)
}

// Fields maps field ids to their state.
type Fields map[string]*FieldState

// IDs returns the field ids in sorted order.
func (f Fields) IDs() []string {
	return sortedKeys(f)
}

// Value returns the value of field id, or nil if it does not exist.
func (f Fields) Value(id string) any {
	if s, ok := f[id]; ok {
		return s.Value
	}
	return nil
}

// FormState is an immutable snapshot of the whole form.
type FormState struct {
	Fields              Fields `json:"fields" yaml:"fields"`
	FormError           string `json:"formError,omitempty" yaml:"formError,omitempty"`
	FormMetadata        any    `json:"formMetadata,omitempty" yaml:"formMetadata,omitempty"`
	ValidationWasForced int    `json:"validationWasForced" yaml:"validationWasForced"`
}

// Field returns the state of field id.
func (s *FormState) Field(id string) (*FieldState, bool) {
	f, ok := s.Fields[id]
	return f, ok
}

// Values returns every field value keyed by id. It fails with
// ErrInvalidField on the first invalid field (in id order) unless
// allowInvalid is set.
func (s *FormState) Values(allowInvalid bool) (map[string]any, error) {
	return s.collect(allowInvalid, func(*FieldState) bool { return true })
}

// ChangedValues is like Values but only includes fields that differ from
// their initial value.
func (s *FormState) ChangedValues(allowInvalid bool) (map[string]any, error) {
	return s.collect(allowInvalid, func(f *FieldState) bool { return f.DiffFromInitial })
}

func (s *FormState) collect(allowInvalid bool, include func(*FieldState) bool) (map[string]any, error) {
	values := make(map[string]any, len(s.Fields))
	for _, id := range s.Fields.IDs() {
		f := s.Fields[id]
		if !f.Valid && !allowInvalid {
			return nil, fmt.Errorf("field %q: %w", id, ErrInvalidField)
		}
		if include(f) {
			values[id] = f.Value
		}
	}
	return values, nil
}

// draft is the mutable working copy of a FormState inside one transaction.
// Field states are cloned on first write.
type draft struct {
	base   *FormState
	fields Fields
	cloned map[string]bool

	formError           string
	formMetadata        any
	validationWasForced int
}

func newDraft(base *FormState) *draft {
	fields := make(Fields, len(base.Fields))
	for id, f := range base.Fields {
		fields[id] = f
	}
	return &draft{
		base:                base,
		fields:              fields,
		cloned:              make(map[string]bool),
		formError:           base.FormError,
		formMetadata:        base.FormMetadata,
		validationWasForced: base.ValidationWasForced,
	}
}

// field returns a writable state for id, or nil if the field does not exist.
func (d *draft) field(id string) *FieldState {
	f, ok := d.fields[id]
	if !ok {
		return nil
	}
	if !d.cloned[id] {
		f = f.clone()
		d.fields[id] = f
		d.cloned[id] = true
	}
	return f
}

func (d *draft) put(id string, f *FieldState) {
	d.fields[id] = f
	d.cloned[id] = true
}

func (d *draft) remove(id string) {
	delete(d.fields, id)
	delete(d.cloned, id)
}

// commit produces the next snapshot. Fields whose state equals the base keep
// the base pointer, and base itself is returned if nothing changed.
func (d *draft) commit() *FormState {
	changed := len(d.fields) != len(d.base.Fields) ||
		d.formError != d.base.FormError ||
		d.validationWasForced != d.base.ValidationWasForced ||
		!DeepEqual(d.formMetadata, d.base.FormMetadata)

	fields := make(Fields, len(d.fields))
	for id, f := range d.fields {
		prev, existed := d.base.Fields[id]
		switch {
		case !existed:
			changed = true
		case f == prev:
		case f.sameAs(prev):
			f = prev
		default:
			f.Errors = keepPrevIfUnchanged(f.Errors, prev.Errors)
			changed = true
		}
		fields[id] = f
	}

	if !changed {
		return d.base
	}
	return &FormState{
		Fields:              fields,
		FormError:           d.formError,
		FormMetadata:        d.formMetadata,
		ValidationWasForced: d.validationWasForced,
	}
}
