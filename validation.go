package tform

import (
	"sync"

	"github.com/go-playground/validator/v10"
)

// ResultKind identifies the variant held by a Result.
type ResultKind int

const (
	// KindValid is the zero Result: the validator accepts the value.
	KindValid ResultKind = iota
	// KindInvalid appends its messages to the field errors.
	KindInvalid
	// KindSilentInvalid marks the field invalid without a visible message.
	KindSilentInvalid
	// KindSilentIfNotTouched appends its messages only once the field is touched.
	KindSilentIfNotTouched
	// KindLoading marks the field as loading, which also makes it invalid.
	KindLoading
)

func (k ResultKind) String() string {
	switch k {
	case KindValid:
		return "valid"
	case KindInvalid:
		return "invalid"
	case KindSilentInvalid:
		return "silent-invalid"
	case KindSilentIfNotTouched:
		return "silent-if-not-touched"
	case KindLoading:
		return "loading"
	default:
		return "unknown"
	}
}

// Result is the outcome of a single validator. The zero value is Valid.
type Result struct {
	kind     ResultKind
	messages []string
}

// Valid accepts the value.
func Valid() Result { return Result{} }

// Invalid rejects the value with the given messages. With no messages it
// behaves like SilentInvalid.
func Invalid(msgs ...string) Result {
	if len(msgs) == 0 {
		return SilentInvalid()
	}
	return Result{kind: KindInvalid, messages: msgs}
}

// SilentInvalid rejects the value without adding a message. Useful to gate
// form validity on cross-field conditions the user should not see yet.
func SilentInvalid() Result { return Result{kind: KindSilentInvalid} }

// SilentIfNotTouched rejects the value and shows msgs only on touched fields.
func SilentIfNotTouched(msgs ...string) Result {
	return Result{kind: KindSilentIfNotTouched, messages: msgs}
}

// Loading reports that the value is still being resolved.
func Loading() Result { return Result{kind: KindLoading} }

// Kind returns the result variant.
func (r Result) Kind() ResultKind { return r.kind }

// Messages returns the messages carried by the result.
func (r Result) Messages() []string { return r.messages }

// IsValid reports whether r accepts the value.
func (r Result) IsValid() bool { return r.kind == KindValid }

// ValidationContext is what a Validator sees. Fields is the in-progress
// snapshot of the transaction and must not be mutated.
type ValidationContext struct {
	FieldID       string
	Value         any
	FieldMetadata any
	Fields        Fields
	FormMetadata  any
}

// Validator checks a field value in the context of the whole form.
type Validator func(ctx ValidationContext) Result

// Check is a field-local validator, managed separately from Validators so
// either list can be reconfigured without clobbering the other.
type Check func(value, metadata any) Result

// RequiredContext is what a RequiredFn sees.
type RequiredContext struct {
	Fields       Fields
	FormMetadata any
}

// FormContext is what a FormValidator sees.
type FormContext struct {
	Fields       Fields
	FormMetadata any
}

// FormValidator validates the form as a whole. A non-empty return value
// becomes the form error; an empty one clears it.
type FormValidator func(ctx FormContext) string

var (
	ruleValidatorOnce sync.Once
	ruleValidator     *validator.Validate
)

func rules() *validator.Validate {
	ruleValidatorOnce.Do(func() {
		ruleValidator = validator.New()
	})
	return ruleValidator
}

// RuleCheck adapts a go-playground/validator tag such as "email" or
// "min=3,max=20" into a Check that fails with msg. The tag is parsed on first
// use; an invalid tag panics, so declare rule checks at startup.
func RuleCheck(tag, msg string) Check {
	return func(value, _ any) Result {
		if err := rules().Var(value, tag); err != nil {
			return Invalid(msg)
		}
		return Valid()
	}
}

// ValidRuleTag reports whether tag is a syntactically valid rule.
func ValidRuleTag(tag string) (ok bool) {
	defer func() {
		if recover() != nil {
			ok = false
		}
	}()
	_ = rules().Var("", tag)
	return true
}
