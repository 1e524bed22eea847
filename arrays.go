package tform

import (
	"fmt"
	"reflect"
)

// ItemSelf is an ItemIdentity for slices of scalars: the item formatted
// with fmt.Sprint is its identity.
func ItemSelf(item any) string {
	return fmt.Sprint(item)
}

// KeyField returns an ItemIdentity that reads key from map items, or the
// exported field named key from struct items.
func KeyField(key string) func(item any) string {
	return func(item any) string {
		rv := reflect.ValueOf(item)
		for rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Interface {
			if rv.IsNil() {
				return ""
			}
			rv = rv.Elem()
		}
		switch rv.Kind() {
		case reflect.Map:
			if rv.Type().Key().Kind() != reflect.String {
				return ""
			}
			v := rv.MapIndex(reflect.ValueOf(key).Convert(rv.Type().Key()))
			if !v.IsValid() {
				return ""
			}
			return fmt.Sprint(v.Interface())
		case reflect.Struct:
			v := rv.FieldByName(key)
			if !v.IsValid() || !v.CanInterface() {
				return ""
			}
			return fmt.Sprint(v.Interface())
		}
		return ""
	}
}

// AddItem appends item to the slice held by field id.
func (f *Form) AddItem(id string, item any) error {
	return f.updateItems("addItem", id, func(items reflect.Value, _ func(any) string) (reflect.Value, error) {
		return appendItem(id, items, item)
	})
}

// RemoveItem removes every item whose identity is itemID.
func (f *Form) RemoveItem(id, itemID string) error {
	return f.updateItems("removeItem", id, func(items reflect.Value, identity func(any) string) (reflect.Value, error) {
		return filterItems(items, identity, itemID), nil
	})
}

// ToggleItem removes the items whose identity is itemID, or appends item
// when there is none.
func (f *Form) ToggleItem(id, itemID string, item any) error {
	return f.updateItems("toggleItem", id, func(items reflect.Value, identity func(any) string) (reflect.Value, error) {
		if indexOf(items, identity, itemID) == -1 {
			return appendItem(id, items, item)
		}
		return filterItems(items, identity, itemID), nil
	})
}

// UpdateItem replaces the items whose identity is itemID with patch. When
// the item and patch are both maps, or structs of the same type, the patch
// is merged into a copy of the item instead: map keys overwrite, and
// non-zero exported struct fields overwrite. A zero field in a struct patch
// leaves the item's field as it was.
func (f *Form) UpdateItem(id, itemID string, patch any) error {
	return f.updateItems("updateItem", id, func(items reflect.Value, identity func(any) string) (reflect.Value, error) {
		next := reflect.MakeSlice(items.Type(), 0, items.Len())
		for i := 0; i < items.Len(); i++ {
			item := items.Index(i)
			if identity(item.Interface()) != itemID {
				next = reflect.Append(next, item)
				continue
			}
			updated, err := patchItem(id, item, patch)
			if err != nil {
				return reflect.Value{}, err
			}
			next = reflect.Append(next, updated)
		}
		return next, nil
	})
}

// updateItems computes the next slice inside one transaction and applies it
// like SetValue.
func (f *Form) updateItems(op, id string, fn func(items reflect.Value, identity func(any) string) (reflect.Value, error)) error {
	return f.transact(op, func(d *draft) error {
		configs := f.definitions()
		def, known := configs[id]
		state, ok := d.fields[id]
		if !known || !ok {
			f.fieldNotFound(op, id)
			return fieldNotFound(id)
		}
		if def.ItemIdentity == nil {
			return f.configError(op, noItemIdentity(id))
		}

		items, err := sliceValue(id, state.Value)
		if err != nil {
			return err
		}
		next, err := fn(items, def.ItemIdentity)
		if err != nil {
			return err
		}

		e := f.engine(d, configs)
		e.applyChanges(f.resolve(op, e, map[string]any{id: next.Interface()}, changeOptions{}, false))
		return nil
	})
}

func sliceValue(id string, v any) (reflect.Value, error) {
	if v == nil {
		return reflect.ValueOf([]any{}), nil
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice {
		return reflect.Value{}, fmt.Errorf("field %q holds %T: %w", id, v, ErrNotArray)
	}
	return rv, nil
}

func itemValue(id string, elem reflect.Type, item any) (reflect.Value, error) {
	if item == nil {
		return reflect.Zero(elem), nil
	}
	rv := reflect.ValueOf(item)
	if !rv.Type().AssignableTo(elem) {
		return reflect.Value{}, fmt.Errorf("field %q: item of type %T does not fit %s: %w", id, item, elem, ErrNotArray)
	}
	return rv, nil
}

// appendItem never writes into the backing array of items.
func appendItem(id string, items reflect.Value, item any) (reflect.Value, error) {
	rv, err := itemValue(id, items.Type().Elem(), item)
	if err != nil {
		return reflect.Value{}, err
	}
	next := reflect.MakeSlice(items.Type(), 0, items.Len()+1)
	next = reflect.AppendSlice(next, items)
	return reflect.Append(next, rv), nil
}

func filterItems(items reflect.Value, identity func(any) string, itemID string) reflect.Value {
	next := reflect.MakeSlice(items.Type(), 0, items.Len())
	for i := 0; i < items.Len(); i++ {
		item := items.Index(i)
		if identity(item.Interface()) != itemID {
			next = reflect.Append(next, item)
		}
	}
	return next
}

func indexOf(items reflect.Value, identity func(any) string, itemID string) int {
	for i := 0; i < items.Len(); i++ {
		if identity(items.Index(i).Interface()) == itemID {
			return i
		}
	}
	return -1
}

func patchItem(id string, item reflect.Value, patch any) (reflect.Value, error) {
	elem := item.Type()
	src := item
	if src.Kind() == reflect.Interface && !src.IsNil() {
		src = src.Elem()
	}
	pv := reflect.ValueOf(patch)

	if patch != nil && src.Kind() == reflect.Map && pv.Kind() == reflect.Map &&
		pv.Type().Key().AssignableTo(src.Type().Key()) && pv.Type().Elem().AssignableTo(src.Type().Elem()) {
		merged := reflect.MakeMapWithSize(src.Type(), src.Len()+pv.Len())
		iter := src.MapRange()
		for iter.Next() {
			merged.SetMapIndex(iter.Key(), iter.Value())
		}
		iter = pv.MapRange()
		for iter.Next() {
			merged.SetMapIndex(iter.Key(), iter.Value())
		}
		if !merged.Type().AssignableTo(elem) {
			return reflect.Value{}, fmt.Errorf("field %q: merged item does not fit %s: %w", id, elem, ErrNotArray)
		}
		return merged, nil
	}

	if merged, ok := mergeStruct(src, pv); ok {
		if !merged.Type().AssignableTo(elem) {
			return reflect.Value{}, fmt.Errorf("field %q: merged item does not fit %s: %w", id, elem, ErrNotArray)
		}
		return merged, nil
	}

	return itemValue(id, elem, patch)
}

// mergeStruct copies the non-zero exported fields of patch over a copy of
// item. Both must be structs, or pointers to structs, of the same type.
func mergeStruct(item, patch reflect.Value) (reflect.Value, bool) {
	if !patch.IsValid() || item.Type() != patch.Type() {
		return reflect.Value{}, false
	}
	ptr := item.Kind() == reflect.Pointer
	if ptr {
		if item.IsNil() || patch.IsNil() {
			return reflect.Value{}, false
		}
		item, patch = item.Elem(), patch.Elem()
	}
	if item.Kind() != reflect.Struct {
		return reflect.Value{}, false
	}

	merged := reflect.New(item.Type()).Elem()
	merged.Set(item)
	for i := 0; i < patch.NumField(); i++ {
		if !item.Type().Field(i).IsExported() || patch.Field(i).IsZero() {
			continue
		}
		merged.Field(i).Set(patch.Field(i))
	}
	if ptr {
		return merged.Addr(), true
	}
	return merged, true
}
