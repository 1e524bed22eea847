package tform

import (
	"context"

	"github.com/zoobzio/capitan"
)

// UpdateMode selects how Reconfigure treats fields absent from the patch set.
type UpdateMode int

const (
	// Merge patches the listed fields and leaves the others alone.
	Merge UpdateMode = iota
	// OverwriteAll replaces every listed field and removes the others.
	OverwriteAll
	// MergeAndRemoveExcess patches the listed fields and removes the others.
	MergeAndRemoveExcess
)

func (m UpdateMode) String() string {
	switch m {
	case Merge:
		return "merge"
	case OverwriteAll:
		return "overwriteAll"
	case MergeAndRemoveExcess:
		return "mergeAndRemoveExcess"
	default:
		return "unknown"
	}
}

// FieldPatch changes one field. Unset optionals and nil functions or slices
// leave the current configuration unchanged when merging.
type FieldPatch struct {
	// Remove deletes the field.
	Remove bool
	// Replace discards the current configuration and state. InitialValue
	// is required.
	Replace bool

	Value        Optional[any]
	InitialValue Optional[any]
	Touched      Optional[bool]

	Required             Optional[bool]
	RequiredErrorMsg     Optional[string]
	SilenceRequiredError Optional[bool]
	Untouchable          Optional[bool]
	Metadata             Optional[any]

	Validators          []Validator
	Checks              []Check
	CheckIfEmpty        func(value any) bool
	RequiredFn          func(ctx RequiredContext) bool
	IsLoading           func(value any) bool
	ResetIfNotRequired  Optional[any]
	ResetFieldsOnChange map[string]any
	ResetItselfOnChange *SelfReset
	ItemIdentity        func(item any) string
}

// Reconfiguration describes a runtime change of the form definition.
type Reconfiguration struct {
	Fields       map[string]FieldPatch
	FormMetadata Optional[any]
	Mode         UpdateMode

	// UpdateUntouchedWithInitial copies a new InitialValue into the value of
	// untouched fields that were not given an explicit Value, and ignores
	// explicit values for touched fields.
	UpdateUntouchedWithInitial bool
}

func (r Reconfiguration) replaces(id string, p FieldPatch, configs map[string]FieldDefinition) bool {
	if p.Remove {
		return false
	}
	_, exists := configs[id]
	return !exists || p.Replace || r.Mode == OverwriteAll
}

// Reconfigure applies r atomically. Adding or replacing a field without an
// InitialValue aborts the whole call with ErrMissingInitialValue and leaves
// the form untouched. Reset rules pointing at fields that no longer exist
// are ignored.
func (f *Form) Reconfigure(r Reconfiguration) error {
	var fieldCount int
	err := f.transact("reconfigure", func(d *draft) error {
		current := f.definitions()
		ids := sortedKeys(r.Fields)

		for _, id := range ids {
			p := r.Fields[id]
			if r.replaces(id, p, current) && !p.InitialValue.IsSet() {
				return f.configError("reconfigure", missingInitialValue(id))
			}
		}

		configs := make(map[string]FieldDefinition, len(current))
		for id, def := range current {
			configs[id] = def
		}

		for _, id := range ids {
			p := r.Fields[id]

			if p.Remove {
				delete(configs, id)
				delete(f.temp, id)
				d.remove(id)
				continue
			}

			if r.replaces(id, p, configs) {
				def := replaceDefinition(p, configs[id])
				configs[id] = def
				d.put(id, &FieldState{
					Value:        def.InitialValue,
					InitialValue: def.InitialValue,
					Required:     def.Required,
					Metadata:     def.Metadata,
					Empty:        true,
				})
				continue
			}

			configs[id] = r.merge(d.field(id), p, configs[id])
		}

		if r.Mode == MergeAndRemoveExcess || r.Mode == OverwriteAll {
			for id := range configs {
				if _, listed := r.Fields[id]; !listed {
					delete(configs, id)
					delete(f.temp, id)
					d.remove(id)
				}
			}
		}

		if metadata, ok := r.FormMetadata.Get(); ok {
			d.formMetadata = metadata
		}

		f.forceUpdate(d, configs, changeOptions{skipAll: true})

		f.mu.Lock()
		f.configs = configs
		f.mu.Unlock()

		fieldCount = len(configs)
		return nil
	})
	if err != nil {
		return err
	}

	f.log.Debug("form reconfigured", "mode", r.Mode.String(), "fields", fieldCount)
	capitan.Emit(context.Background(), FormReconfigured,
		KeyFormID.Field(f.id),
		KeyOperation.Field(r.Mode.String()),
		KeyFieldCount.Field(fieldCount),
	)
	return nil
}

// replaceDefinition builds a fresh definition from p, carrying over the item
// identity and, unless p supplies them, the checks of prev.
func replaceDefinition(p FieldPatch, prev FieldDefinition) FieldDefinition {
	def := FieldDefinition{
		InitialValue:         p.InitialValue.Or(nil),
		Required:             p.Required.Or(false),
		RequiredFn:           p.RequiredFn,
		RequiredErrorMsg:     p.RequiredErrorMsg.Or(""),
		SilenceRequiredError: p.SilenceRequiredError.Or(false),
		Metadata:             p.Metadata.Or(nil),
		Untouchable:          p.Untouchable.Or(false),
		Validators:           p.Validators,
		Checks:               p.Checks,
		CheckIfEmpty:         p.CheckIfEmpty,
		IsLoading:            p.IsLoading,
		ResetIfNotRequired:   p.ResetIfNotRequired,
		ResetFieldsOnChange:  p.ResetFieldsOnChange,
		ResetItselfOnChange:  p.ResetItselfOnChange,
		ItemIdentity:         p.ItemIdentity,
	}
	if def.ItemIdentity == nil {
		def.ItemIdentity = prev.ItemIdentity
	}
	if def.Checks == nil {
		def.Checks = prev.Checks
	}
	return def
}

// merge patches def and mirrors the relevant keys into state.
func (r Reconfiguration) merge(state *FieldState, p FieldPatch, def FieldDefinition) FieldDefinition {
	if required, ok := p.Required.Get(); ok {
		def.Required = required
		state.Required = required
	}
	if msg, ok := p.RequiredErrorMsg.Get(); ok {
		def.RequiredErrorMsg = msg
	}
	if silence, ok := p.SilenceRequiredError.Get(); ok {
		def.SilenceRequiredError = silence
	}
	initial, hasInitial := p.InitialValue.Get()
	if hasInitial {
		def.InitialValue = initial
		state.InitialValue = initial
	}
	if untouchable, ok := p.Untouchable.Get(); ok {
		def.Untouchable = untouchable
	}
	if touched, ok := p.Touched.Get(); ok && !def.Untouchable {
		state.Touched = touched
		if !touched {
			state.Errors = nil
		}
	}

	valueChanged := false
	if value, ok := p.Value.Get(); ok {
		if !(r.UpdateUntouchedWithInitial && state.Touched) {
			state.Value = value
			valueChanged = true
		}
	}
	if !valueChanged && r.UpdateUntouchedWithInitial && !state.Touched && hasInitial {
		state.Value = state.InitialValue
	}

	if p.Validators != nil {
		def.Validators = p.Validators
	}
	if p.Checks != nil {
		def.Checks = p.Checks
	}
	if p.CheckIfEmpty != nil {
		def.CheckIfEmpty = p.CheckIfEmpty
	}
	if p.RequiredFn != nil {
		def.RequiredFn = p.RequiredFn
	}
	if p.IsLoading != nil {
		def.IsLoading = p.IsLoading
	}
	if p.ResetIfNotRequired.IsSet() {
		def.ResetIfNotRequired = p.ResetIfNotRequired
	}
	if p.ResetFieldsOnChange != nil {
		def.ResetFieldsOnChange = p.ResetFieldsOnChange
	}
	if p.ResetItselfOnChange != nil {
		def.ResetItselfOnChange = p.ResetItselfOnChange
	}
	if p.ItemIdentity != nil {
		def.ItemIdentity = p.ItemIdentity
	}

	if metadata, ok := p.Metadata.Get(); ok {
		def.Metadata = metadata
		state.Metadata = metadata
	}

	state.DiffFromInitial = diffFromInitial(def, state.Value, state.InitialValue)
	return def
}

// SyncDefinitions feeds externally owned definitions into a form created
// with WithAutoUpdate. Nothing happens when auto update is disabled or when
// the declarative parts of defs (initial value, required flags and message,
// untouchable, metadata) are unchanged since the previous sync.
func (f *Form) SyncDefinitions(defs Definitions) error {
	if !f.cfg.autoUpdate {
		return nil
	}

	f.mu.RLock()
	same := definitionsEqual(f.synced, defs)
	f.mu.RUnlock()
	if same {
		return nil
	}

	if err := f.ApplyDefinitions(defs, Merge); err != nil {
		return err
	}

	capitan.Emit(context.Background(), DefinitionsSynced,
		KeyFormID.Field(f.id),
		KeyFieldCount.Field(len(defs)),
	)
	return nil
}

// ApplyDefinitions reconfigures the form from defs. Known fields receive a
// merge patch and untouched values follow new initial values; new fields
// are added. With MergeAndRemoveExcess or OverwriteAll, fields missing from
// defs are removed.
func (f *Form) ApplyDefinitions(defs Definitions, mode UpdateMode) error {
	return f.applyDefinitions(defs, mode, Optional[any]{})
}

func (f *Form) applyDefinitions(defs Definitions, mode UpdateMode, formMetadata Optional[any]) error {
	current := f.definitions()

	patches := make(map[string]FieldPatch, len(defs))
	for id, def := range defs {
		if _, ok := current[id]; ok && mode != OverwriteAll {
			patches[id] = def.patch()
		} else {
			patches[id] = def.replacement()
		}
	}
	if mode == OverwriteAll {
		mode = MergeAndRemoveExcess
	}

	if err := f.Reconfigure(Reconfiguration{
		Fields:                     patches,
		FormMetadata:               formMetadata,
		Mode:                       mode,
		UpdateUntouchedWithInitial: true,
	}); err != nil {
		return err
	}

	synced := make(Definitions, len(defs))
	for id, def := range defs {
		synced[id] = def
	}
	f.mu.Lock()
	f.synced = synced
	f.mu.Unlock()
	return nil
}

func definitionsEqual(a, b Definitions) bool {
	if len(a) != len(b) {
		return false
	}
	for id, def := range a {
		other, ok := b[id]
		if !ok || !def.dataEqual(other) {
			return false
		}
	}
	return true
}
