package tform

import (
	"reflect"
	"sort"
	"strings"
)

// Updater computes a field's next value from its current one. Passing an
// Updater (or a plain func(any) any) to SetValue applies it against the
// value the field holds at the start of the transaction.
type Updater func(current any) any

// unwrapSetter resolves value against current when it is an updater.
func unwrapSetter(value, current any) any {
	switch fn := value.(type) {
	case Updater:
		return fn(current)
	case func(any) any:
		return fn(current)
	default:
		return value
	}
}

// DeepEqual reports whether a and b are deeply equal. A nil interface and a
// typed nil pointer, slice or map compare equal.
func DeepEqual(a, b any) bool {
	if isNil(a) || isNil(b) {
		return isNil(a) && isNil(b)
	}
	return reflect.DeepEqual(a, b)
}

func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Interface, reflect.Func, reflect.Chan:
		return rv.IsNil()
	}
	return false
}

// IsEmptyValue is the default emptiness check: nil, typed nils,
// whitespace-only strings and zero-length slices, arrays and maps are empty.
func IsEmptyValue(v any) bool {
	if isNil(v) {
		return true
	}
	if s, ok := v.(string); ok {
		return strings.TrimSpace(s) == ""
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array, reflect.Map:
		return rv.Len() == 0
	case reflect.String:
		return strings.TrimSpace(rv.String()) == ""
	}
	return false
}

// normalizeValue is applied to every value written to a field: strings are
// trimmed and nil items are dropped from slices. Slices without nil items
// are returned as is.
func normalizeValue(v any) any {
	if s, ok := v.(string); ok {
		return strings.TrimSpace(s)
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice || rv.IsNil() {
		return v
	}
	switch rv.Type().Elem().Kind() {
	case reflect.Interface, reflect.Pointer, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
	default:
		return v
	}

	keep := make([]int, 0, rv.Len())
	for i := 0; i < rv.Len(); i++ {
		if !rv.Index(i).IsNil() && !isNil(rv.Index(i).Interface()) {
			keep = append(keep, i)
		}
	}
	if len(keep) == rv.Len() {
		return v
	}
	out := reflect.MakeSlice(rv.Type(), 0, len(keep))
	for _, i := range keep {
		out = reflect.Append(out, rv.Index(i))
	}
	return out.Interface()
}

// keepPrevIfUnchanged returns prev when next holds the same messages, so
// consumers comparing slices by identity see no change.
func keepPrevIfUnchanged(next, prev []string) []string {
	if equalMessages(next, prev) {
		return prev
	}
	return next
}

// equalMessages treats nil and empty as different: nil means "no errors".
func equalMessages(a, b []string) bool {
	if (a == nil) != (b == nil) {
		return false
	}
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// appendMessages never writes into the backing array of errs, which may be
// shared with a committed snapshot.
func appendMessages(errs []string, msgs ...string) []string {
	out := make([]string, 0, len(errs)+len(msgs))
	out = append(out, errs...)
	return append(out, msgs...)
}

// ToSlice normalises a single value, a slice or nil into a slice.
func ToSlice[T any](v any) []T {
	switch x := v.(type) {
	case nil:
		return nil
	case []T:
		return x
	case T:
		return []T{x}
	default:
		return nil
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
