package tform

// engine evaluates one transaction against a draft. It owns no state of its
// own: configs and temporary errors belong to the Form and are only touched
// while the store write lock is held.
type engine struct {
	configs       map[string]FieldDefinition
	temp          map[string][]string
	requiredMsg   func() string
	formValidator FormValidator

	d         *draft
	bootstrap bool
	visited   map[string]bool
}

func (e *engine) ids() []string {
	return sortedKeys(e.configs)
}

func (e *engine) visit(id string) {
	if e.visited == nil {
		e.visited = make(map[string]bool)
	}
	e.visited[id] = true
}

func diffFromInitial(def FieldDefinition, value, initial any) bool {
	if def.isEmpty(value) && def.isEmpty(initial) {
		return false
	}
	return !DeepEqual(value, normalizeValue(initial))
}

// applyValue writes value into field id and refreshes its basic flags.
func (e *engine) applyValue(id string, def FieldDefinition, value any, skipTouch bool) {
	f := e.d.field(id)
	if f == nil {
		return
	}
	value = normalizeValue(value)

	res := def.requiredCheck(value, def.Required, e.requiredMsg)

	if !skipTouch {
		f.Touched = true
	}

	if !e.bootstrap && DeepEqual(f.Value, value) && res.equal(f.Errors, f.Valid, f.Empty) {
		e.visit(id)
		return
	}

	f.DiffFromInitial = diffFromInitial(def, value, f.InitialValue)
	f.Value = value
	if f.Touched {
		f.Errors = keepPrevIfUnchanged(res.errors, f.Errors)
	} else {
		f.Errors = nil
	}
	e.visit(id)
	f.Valid = res.valid
	f.Empty = res.empty
	f.Loading = false
}

// derive recomputes derived required flags against the live draft.
func (e *engine) derive() {
	for _, id := range e.ids() {
		def := e.configs[id]
		if def.RequiredFn == nil {
			continue
		}
		f := e.d.field(id)
		if f == nil {
			continue
		}

		required := def.RequiredFn(RequiredContext{
			Fields:       e.d.fields,
			FormMetadata: e.d.formMetadata,
		})

		if reset, ok := def.ResetIfNotRequired.Get(); ok && f.Required && !required {
			f.Value = normalizeValue(reset)
			f.DiffFromInitial = diffFromInitial(def, reset, f.InitialValue)
		}
		f.Required = required

		res := def.requiredCheck(f.Value, required, e.requiredMsg)
		if f.Touched && !equalMessages(res.errors, f.Errors) {
			f.Errors = res.errors
		}
		e.visit(id)
		f.Valid = res.valid
		f.Empty = res.empty
	}
}

// validate runs the housekeeping for fields this transaction did not visit,
// then temporary errors, loading checks and validators for every field.
func (e *engine) validate() {
	ids := e.ids()

	if !e.bootstrap {
		for _, id := range ids {
			if e.visited[id] {
				continue
			}
			f := e.d.field(id)
			if f == nil {
				continue
			}
			def := e.configs[id]
			if f.Errors != nil {
				f.Errors = keepPrevIfUnchanged(def.requiredCheck(f.Value, def.Required, e.requiredMsg).errors, f.Errors)
			}
			f.Valid = !f.Required || !f.Empty
		}
	}

	for _, id := range ids {
		f := e.d.field(id)
		if f == nil {
			continue
		}
		def := e.configs[id]
		f.Loading = false

		temp, hasTemp := e.temp[id]
		if hasTemp {
			f.Errors = temp
			f.Valid = false
		}

		if def.IsLoading != nil {
			f.Loading = def.IsLoading(f.Value)
			if f.Loading {
				f.Valid = false
			}
		}

		if hasTemp || f.Empty {
			continue
		}

		ctx := ValidationContext{
			FieldID:       id,
			Value:         f.Value,
			FieldMetadata: f.Metadata,
			Fields:        e.d.fields,
			FormMetadata:  e.d.formMetadata,
		}
		for _, v := range def.Validators {
			if v != nil {
				applyResult(f, v(ctx))
			}
		}
		for _, c := range def.Checks {
			if c != nil {
				applyResult(f, c(f.Value, f.Metadata))
			}
		}
	}

	if e.formValidator != nil {
		e.d.formError = e.formValidator(FormContext{
			Fields:       e.d.fields,
			FormMetadata: e.d.formMetadata,
		})
	}
}

func applyResult(f *FieldState, r Result) {
	switch r.kind {
	case KindValid:
		return
	case KindInvalid:
		f.Errors = appendMessages(f.Errors, r.messages...)
	case KindSilentIfNotTouched:
		if f.Touched && len(r.messages) > 0 {
			f.Errors = appendMessages(f.Errors, r.messages...)
		}
	case KindLoading:
		f.Loading = true
	}
	f.Valid = false
}

// settle runs the passes that follow value application.
func (e *engine) settle() {
	e.derive()
	e.validate()
}

// pendingValue is one entry of a multi-field change.
type pendingValue struct {
	id    string
	value any
	skip  bool
}

// applyChanges applies explicit values and the reset cascades they trigger,
// then settles the form. values must already be resolved and filtered to
// known fields.
func (e *engine) applyChanges(values []pendingValue) {
	explicit := make(map[string]bool, len(values))
	changed := make(map[string]bool, len(values))
	for _, v := range values {
		explicit[v.id] = true
		if prev, ok := e.d.base.Fields[v.id]; !ok || !DeepEqual(prev.Value, v.value) {
			changed[v.id] = true
		}
	}

	cascades := e.cascades(values, explicit, changed)

	for _, v := range values {
		if !v.skip {
			delete(e.temp, v.id)
		}
		e.applyValue(v.id, e.configs[v.id], v.value, v.skip)
	}
	for _, c := range cascades {
		e.applyValue(c.id, e.configs[c.id], c.value, true)
		if f := e.d.field(c.id); f != nil {
			f.Touched = false
			f.Errors = nil
		}
	}

	e.settle()
}

// cascades resolves single-level reset cascades. Explicit entries win; among
// cascades the first trigger in id order wins.
func (e *engine) cascades(values []pendingValue, explicit, changed map[string]bool) []pendingValue {
	var out []pendingValue
	claimed := make(map[string]bool)

	claim := func(id string, value any) {
		if explicit[id] || claimed[id] {
			return
		}
		if _, ok := e.configs[id]; !ok {
			return
		}
		claimed[id] = true
		out = append(out, pendingValue{id: id, value: value, skip: true})
	}

	for _, v := range values {
		if !changed[v.id] {
			continue
		}
		resets := e.configs[v.id].ResetFieldsOnChange
		for _, target := range sortedKeys(resets) {
			claim(target, resets[target])
		}
	}

	for _, id := range e.ids() {
		self := e.configs[id].ResetItselfOnChange
		if self == nil {
			continue
		}
		for _, watched := range self.WatchFields {
			if changed[watched] {
				claim(id, self.Value)
				break
			}
		}
	}

	return out
}
