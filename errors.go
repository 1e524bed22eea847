package tform

import (
	"errors"
	"fmt"
)

var (
	// ErrFieldNotFound is reported when an operation references an unknown field id.
	ErrFieldNotFound = errors.New("field not found")

	// ErrMissingInitialValue is returned when a field is added or replaced
	// without an initial value.
	ErrMissingInitialValue = errors.New("missing initial value")

	// ErrNoItemIdentity is returned by the array helpers when the field has
	// no item identity function.
	ErrNoItemIdentity = errors.New("field has no item identity")

	// ErrInvalidField is returned when values are read from an invalid field.
	ErrInvalidField = errors.New("field is invalid")

	// ErrInvalidDocument is returned when a definition document fails validation.
	ErrInvalidDocument = errors.New("invalid form document")

	// ErrNotArray is returned by the array helpers when the field value is
	// neither nil nor a slice.
	ErrNotArray = errors.New("field value is not a slice")
)

func fieldNotFound(id string) error {
	return fmt.Errorf("field with id %q: %w", id, ErrFieldNotFound)
}

func missingInitialValue(id string) error {
	return fmt.Errorf("field %q: %w", id, ErrMissingInitialValue)
}

func noItemIdentity(id string) error {
	return fmt.Errorf("field with id %q: %w", id, ErrNoItemIdentity)
}
