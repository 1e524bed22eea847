package tform

import "fmt"

// SelfReset resets a field to Value whenever any of WatchFields changes.
type SelfReset struct {
	Value       any
	WatchFields []string
}

// FieldDefinition declares a single field.
type FieldDefinition struct {
	InitialValue any

	// Required is the static required flag. RequiredFn, when set, derives the
	// flag from the rest of the form on every transaction.
	Required   bool
	RequiredFn func(ctx RequiredContext) bool

	// RequiredErrorMsg overrides the default required message.
	// SilenceRequiredError keeps required-but-empty fields invalid without
	// any message.
	RequiredErrorMsg     string
	SilenceRequiredError bool

	Metadata any

	// Untouchable fields never become touched.
	Untouchable bool

	Validators []Validator
	Checks     []Check

	CheckIfEmpty func(value any) bool
	IsLoading    func(value any) bool

	// ResetIfNotRequired replaces the value when RequiredFn flips from true
	// to false.
	ResetIfNotRequired Optional[any]

	// ResetFieldsOnChange maps target field ids to the value they take when
	// this field changes.
	ResetFieldsOnChange map[string]any
	ResetItselfOnChange *SelfReset

	// ItemIdentity enables the array helpers for slice-valued fields.
	ItemIdentity func(item any) string
}

// Definitions maps field ids to their definitions.
type Definitions map[string]FieldDefinition

// IDs returns the field ids in sorted order.
func (d Definitions) IDs() []string {
	return sortedKeys(d)
}

// validate checks that every cross-field reference points at a declared field.
func (d Definitions) validate() error {
	for _, id := range d.IDs() {
		if err := d[id].checkRefs(id, func(ref string) bool {
			_, ok := d[ref]
			return ok
		}); err != nil {
			return err
		}
	}
	return nil
}

func (f FieldDefinition) checkRefs(id string, exists func(string) bool) error {
	for target := range f.ResetFieldsOnChange {
		if !exists(target) {
			return fmt.Errorf("field %q resets %q: %w", id, target, ErrFieldNotFound)
		}
	}
	if f.ResetItselfOnChange != nil {
		for _, watched := range f.ResetItselfOnChange.WatchFields {
			if !exists(watched) {
				return fmt.Errorf("field %q watches %q: %w", id, watched, ErrFieldNotFound)
			}
		}
	}
	return nil
}

func (f FieldDefinition) isEmpty(v any) bool {
	if f.CheckIfEmpty != nil {
		return f.CheckIfEmpty(v)
	}
	return IsEmptyValue(v)
}

// basicValidation is the outcome of the required check.
type basicValidation struct {
	errors []string
	valid  bool
	empty  bool
}

func (b basicValidation) equal(errs []string, valid, empty bool) bool {
	return equalMessages(b.errors, errs) && b.valid == valid && b.empty == empty
}

// requiredCheck validates v against the required flag.
func (f FieldDefinition) requiredCheck(v any, required bool, defaultMsg func() string) basicValidation {
	res := basicValidation{valid: true, empty: f.isEmpty(v)}
	if required && res.empty {
		res.valid = false
		if !f.SilenceRequiredError {
			msg := f.RequiredErrorMsg
			if msg == "" {
				msg = defaultMsg()
			}
			res.errors = []string{msg}
		}
	}
	return res
}

// dataEqual compares the declarative parts of two definitions. Function
// fields are ignored since they cannot be compared.
func (f FieldDefinition) dataEqual(other FieldDefinition) bool {
	return DeepEqual(f.InitialValue, other.InitialValue) &&
		f.Required == other.Required &&
		f.RequiredErrorMsg == other.RequiredErrorMsg &&
		f.SilenceRequiredError == other.SilenceRequiredError &&
		f.Untouchable == other.Untouchable &&
		DeepEqual(f.Metadata, other.Metadata)
}

// patch converts a definition into a merge patch. Behaviour hooks left nil
// in f keep their current value.
func (f FieldDefinition) patch() FieldPatch {
	return FieldPatch{
		InitialValue:         Some(f.InitialValue),
		Required:             Some(f.Required),
		RequiredErrorMsg:     Some(f.RequiredErrorMsg),
		SilenceRequiredError: Some(f.SilenceRequiredError),
		Untouchable:          Some(f.Untouchable),
		Metadata:             Some(f.Metadata),
		Validators:           f.Validators,
		Checks:               f.Checks,
		CheckIfEmpty:         f.CheckIfEmpty,
		RequiredFn:           f.RequiredFn,
		IsLoading:            f.IsLoading,
		ResetIfNotRequired:   f.ResetIfNotRequired,
		ResetFieldsOnChange:  f.ResetFieldsOnChange,
		ResetItselfOnChange:  f.ResetItselfOnChange,
		ItemIdentity:         f.ItemIdentity,
	}
}

// replacement converts a definition into a replace patch.
func (f FieldDefinition) replacement() FieldPatch {
	p := f.patch()
	p.Replace = true
	return p
}
