package tform

import (
	"errors"
	"reflect"
	"testing"
)

func TestArrayHelpers_Scalars(t *testing.T) {
	form := mustNew(t, Definitions{
		"tags": {InitialValue: []string{"go"}, ItemIdentity: ItemSelf},
	})
	initial := field(t, form, "tags").Value.([]string)

	if err := form.AddItem("tags", "rust"); err != nil {
		t.Fatal(err)
	}
	if err := form.ToggleItem("tags", "go", "go"); err != nil {
		t.Fatal(err)
	}
	if err := form.ToggleItem("tags", "zig", "zig"); err != nil {
		t.Fatal(err)
	}

	got := field(t, form, "tags")
	if want := []string{"rust", "zig"}; !reflect.DeepEqual(got.Value, want) {
		t.Errorf("expected %v, got %v", want, got.Value)
	}
	if !got.Touched || !got.DiffFromInitial {
		t.Errorf("array helpers behave like SetValue: %+v", got)
	}
	if !reflect.DeepEqual(initial, []string{"go"}) {
		t.Errorf("previous slice was mutated: %v", initial)
	}

	if err := form.RemoveItem("tags", "rust"); err != nil {
		t.Fatal(err)
	}
	if want := []string{"zig"}; !reflect.DeepEqual(field(t, form, "tags").Value, want) {
		t.Errorf("expected %v, got %v", want, field(t, form, "tags").Value)
	}
}

func TestArrayHelpers_KeyedMaps(t *testing.T) {
	form := mustNew(t, Definitions{
		"guests": {
			InitialValue: []map[string]any{
				{"id": 1, "name": "Ana", "vegan": false},
				{"id": 2, "name": "Bia", "vegan": false},
			},
			ItemIdentity: KeyField("id"),
		},
	})

	if err := form.UpdateItem("guests", "2", map[string]any{"vegan": true}); err != nil {
		t.Fatal(err)
	}
	if err := form.RemoveItem("guests", "1"); err != nil {
		t.Fatal(err)
	}

	want := []map[string]any{{"id": 2, "name": "Bia", "vegan": true}}
	if got := field(t, form, "guests").Value; !reflect.DeepEqual(got, want) {
		t.Errorf("expected %v, got %v", want, got)
	}
}

func TestArrayHelpers_StructItems(t *testing.T) {
	type guest struct {
		ID    int
		Name  string
		Vegan bool
	}

	form := mustNew(t, Definitions{
		"guests": {
			InitialValue: []guest{{ID: 1, Name: "Ana"}, {ID: 2, Name: "Bia"}},
			ItemIdentity: KeyField("ID"),
		},
		"hosts": {
			InitialValue: []*guest{{ID: 3, Name: "Caio"}},
			ItemIdentity: KeyField("ID"),
		},
	})
	hosts := field(t, form, "hosts").Value.([]*guest)

	if err := form.UpdateItem("guests", "2", guest{Vegan: true}); err != nil {
		t.Fatal(err)
	}
	if err := form.UpdateItem("hosts", "3", &guest{Name: "Caio Jr"}); err != nil {
		t.Fatal(err)
	}

	want := []guest{{ID: 1, Name: "Ana"}, {ID: 2, Name: "Bia", Vegan: true}}
	if got := field(t, form, "guests").Value; !reflect.DeepEqual(got, want) {
		t.Errorf("expected %v, got %v", want, got)
	}

	got := field(t, form, "hosts").Value.([]*guest)
	if got[0].ID != 3 || got[0].Name != "Caio Jr" {
		t.Errorf("pointer item not merged: %+v", got[0])
	}
	if got[0] == hosts[0] || hosts[0].Name != "Caio" {
		t.Error("merging must not modify the previous item")
	}
}

func TestArrayHelpers_NilValue(t *testing.T) {
	form := mustNew(t, Definitions{
		"items": {InitialValue: nil, ItemIdentity: ItemSelf},
	})

	if err := form.AddItem("items", "a"); err != nil {
		t.Fatal(err)
	}

	if got := ToSlice[any](field(t, form, "items").Value); len(got) != 1 || got[0] != "a" {
		t.Errorf("items = %v", got)
	}
}

func TestArrayHelpers_Errors(t *testing.T) {
	form := mustNew(t, Definitions{
		"plain":  {InitialValue: []string{}},
		"number": {InitialValue: 3, ItemIdentity: ItemSelf},
		"tags":   {InitialValue: []string{}, ItemIdentity: ItemSelf},
	})
	before := form.State()

	tests := []struct {
		name string
		call func() error
		want error
	}{
		{"no identity", func() error { return form.AddItem("plain", "a") }, ErrNoItemIdentity},
		{"unknown field", func() error { return form.RemoveItem("ghost", "a") }, ErrFieldNotFound},
		{"not a slice", func() error { return form.AddItem("number", 1) }, ErrNotArray},
		{"wrong item type", func() error { return form.AddItem("tags", 1) }, ErrNotArray},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.call(); !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}

	if form.State() != before {
		t.Error("failed helpers must not change state")
	}
}

func TestKeyField(t *testing.T) {
	type guest struct {
		ID   int
		Name string
	}

	key := KeyField("ID")
	if got := key(guest{ID: 7}); got != "7" {
		t.Errorf("struct key = %q", got)
	}
	if got := key(&guest{ID: 8}); got != "8" {
		t.Errorf("pointer key = %q", got)
	}
	if got := key(map[string]any{"ID": "x"}); got != "x" {
		t.Errorf("map key = %q", got)
	}
	if got := key(3); got != "" {
		t.Errorf("scalar key = %q", got)
	}
	if got := key((*guest)(nil)); got != "" {
		t.Errorf("nil key = %q", got)
	}
}
