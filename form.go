package tform

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/zoobzio/capitan"

	"github.com/lucasols/t-form/store"
)

// Form owns the state of one form instance. All operations are synchronous
// and safe for concurrent use; each public mutation commits at most one new
// snapshot and notifies subscribers once.
type Form struct {
	id    string
	cfg   *config
	log   *slog.Logger
	store *store.Store[*FormState]

	// configs is replaced wholesale by Reconfigure; temp is only touched
	// while the store write lock is held.
	mu      sync.RWMutex
	configs map[string]FieldDefinition
	synced  Definitions
	temp    map[string][]string

	history *reportRing
}

// New creates a Form from defs. Cross-field references to undeclared fields
// are configuration errors.
func New(defs Definitions, opts ...Option) (*Form, error) {
	cfg := newConfig(opts)
	if cfg.id == "" {
		cfg.id = uuid.NewString()
	}

	f := &Form{
		id:      cfg.id,
		cfg:     cfg,
		log:     cfg.logger.With("form_id", cfg.id),
		configs: make(map[string]FieldDefinition, len(defs)),
		synced:  make(Definitions, len(defs)),
		temp:    make(map[string][]string),
		history: newReportRing(cfg.errorHistorySize),
	}

	if err := defs.validate(); err != nil {
		return nil, f.configError("new", err)
	}

	fields := make(Fields, len(defs))
	for id, def := range defs {
		f.configs[id] = def
		f.synced[id] = def
		fields[id] = &FieldState{
			Value:        def.InitialValue,
			InitialValue: def.InitialValue,
			Required:     def.Required,
			Metadata:     def.Metadata,
		}
	}

	d := newDraft(&FormState{Fields: fields, FormMetadata: cfg.formMetadata})
	e := f.engine(d, f.configs)
	e.bootstrap = true
	for _, id := range e.ids() {
		e.applyValue(id, f.configs[id], f.configs[id].InitialValue, true)
	}
	e.settle()

	f.store = store.New(d.commit())

	f.log.Debug("form created", "fields", len(defs))
	capitan.Emit(context.Background(), FormCreated,
		KeyFormID.Field(f.id),
		KeyFieldCount.Field(len(defs)),
	)

	return f, nil
}

// NewLazy is like New but obtains the definitions from get, which is called
// exactly once.
func NewLazy(get func() Definitions, opts ...Option) (*Form, error) {
	return New(get(), opts...)
}

// ID returns the form id.
func (f *Form) ID() string { return f.id }

// State returns the current snapshot.
func (f *Form) State() *FormState { return f.store.State() }

// Field returns the current state of field id.
func (f *Form) Field(id string) (*FieldState, bool) {
	return f.State().Field(id)
}

// Subscribe registers fn to be called once per committed change.
func (f *Form) Subscribe(fn func(prev, next *FormState)) (unsubscribe func()) {
	return f.store.Subscribe(fn)
}

// Store exposes the underlying reactive store for selectors.
func (f *Form) Store() *store.Store[*FormState] { return f.store }

// ErrorHistory returns recent non-fatal reports, oldest first.
func (f *Form) ErrorHistory() []Report { return f.history.all() }

func (f *Form) definitions() map[string]FieldDefinition {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.configs
}

func (f *Form) engine(d *draft, configs map[string]FieldDefinition) *engine {
	return &engine{
		configs:       configs,
		temp:          f.temp,
		requiredMsg:   f.cfg.requiredMsg,
		formValidator: f.cfg.formValidator,
		d:             d,
	}
}

// transact runs fn against a draft of the current state and commits the
// result as one change. Nothing is committed when fn returns an error.
func (f *Form) transact(op string, fn func(d *draft) error) error {
	start := f.cfg.clock.Now()

	var (
		err     error
		changed bool
	)
	f.store.Batch(func(tx *store.Tx[*FormState]) {
		d := newDraft(tx.Get())
		if err = fn(d); err != nil {
			return
		}
		next := d.commit()
		changed = next != tx.Get()
		tx.Set(next)
	})

	f.cfg.metrics.OnTransaction(op, changed, f.cfg.clock.Since(start))
	return err
}

// ChangeOption configures how a value change marks fields as touched.
type ChangeOption func(*changeOptions)

type changeOptions struct {
	skipAll   bool
	skipFor   map[string]bool
	touchOnly map[string]bool
}

// SkipTouch applies the change without marking any field as touched.
func SkipTouch() ChangeOption {
	return func(o *changeOptions) {
		o.skipAll = true
	}
}

// SkipTouchFor applies the change without touching the listed fields.
func SkipTouchFor(ids ...string) ChangeOption {
	return func(o *changeOptions) {
		if o.skipFor == nil {
			o.skipFor = make(map[string]bool, len(ids))
		}
		for _, id := range ids {
			o.skipFor[id] = true
		}
	}
}

// TouchOnly marks only the listed fields as touched. It takes precedence
// over SkipTouch and SkipTouchFor.
func TouchOnly(ids ...string) ChangeOption {
	return func(o *changeOptions) {
		if o.touchOnly == nil {
			o.touchOnly = make(map[string]bool, len(ids))
		}
		for _, id := range ids {
			o.touchOnly[id] = true
		}
	}
}

func newChangeOptions(opts []ChangeOption) changeOptions {
	var o changeOptions
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

func (o changeOptions) skipTouch(id string, def FieldDefinition) bool {
	if def.Untouchable {
		return true
	}
	skip := o.skipAll || o.skipFor[id]
	if o.touchOnly != nil {
		skip = !o.touchOnly[id]
	}
	return skip
}

// resolve turns user supplied values into pending changes in id order,
// reporting unknown ids. Updaters run against the draft value.
func (f *Form) resolve(op string, e *engine, values map[string]any, o changeOptions, skipNil bool) []pendingValue {
	out := make([]pendingValue, 0, len(values))
	for _, id := range sortedKeys(values) {
		value := values[id]
		if skipNil && value == nil {
			continue
		}
		def, ok := e.configs[id]
		state, exists := e.d.fields[id]
		if !ok || !exists {
			f.fieldNotFound(op, id)
			continue
		}
		out = append(out, pendingValue{
			id:    id,
			value: unwrapSetter(value, state.Value),
			skip:  o.skipTouch(id, def),
		})
	}
	return out
}

// SetValue sets a single field. value may be an Updater. A nil value is
// stored as is.
func (f *Form) SetValue(id string, value any, opts ...ChangeOption) {
	_ = f.transact("setValue", func(d *draft) error {
		e := f.engine(d, f.definitions())
		e.applyChanges(f.resolve("setValue", e, map[string]any{id: value}, newChangeOptions(opts), false))
		return nil
	})
}

// SetValues sets several fields in one transaction. Nil entries are ignored,
// which lets callers pass partially filled maps; use an Updater returning
// nil to clear a field here.
func (f *Form) SetValues(values map[string]any, opts ...ChangeOption) {
	_ = f.transact("setValues", func(d *draft) error {
		e := f.engine(d, f.definitions())
		e.applyChanges(f.resolve("setValues", e, values, newChangeOptions(opts), true))
		return nil
	})
}

// TouchField marks field id as touched by re-applying its value. It does
// nothing for untouchable or already touched fields.
func (f *Form) TouchField(id string) {
	_ = f.transact("touchField", func(d *draft) error {
		configs := f.definitions()
		state, ok := d.fields[id]
		def, known := configs[id]
		if !ok || !known {
			f.fieldNotFound("touchField", id)
			return nil
		}
		if state.Touched || def.Untouchable {
			return nil
		}
		e := f.engine(d, configs)
		e.applyChanges([]pendingValue{{id: id, value: state.Value}})
		return nil
	})
}

// ForceUpdate re-applies every field's current value. Without options every
// field is touched.
func (f *Form) ForceUpdate(opts ...ChangeOption) {
	_ = f.transact("forceUpdate", func(d *draft) error {
		f.forceUpdate(d, f.definitions(), newChangeOptions(opts))
		return nil
	})
}

func (f *Form) forceUpdate(d *draft, configs map[string]FieldDefinition, o changeOptions) {
	e := f.engine(d, configs)
	values := make([]pendingValue, 0, len(d.fields))
	for _, id := range e.ids() {
		state, ok := d.fields[id]
		if !ok {
			continue
		}
		values = append(values, pendingValue{
			id:    id,
			value: state.Value,
			skip:  o.skipTouch(id, configs[id]),
		})
	}
	e.applyChanges(values)
}

// ForceValidation increments ValidationWasForced and re-applies every value,
// touching all fields unless options say otherwise. The error focus hook, if
// any, is invoked after the scroll delay on its own goroutine.
func (f *Form) ForceValidation(opts ...ChangeOption) {
	var forced int
	_ = f.transact("forceValidation", func(d *draft) error {
		d.validationWasForced++
		forced = d.validationWasForced
		f.forceUpdate(d, f.definitions(), newChangeOptions(opts))
		return nil
	})

	capitan.Emit(context.Background(), ValidationForced,
		KeyFormID.Field(f.id),
		KeyForcedCount.Field(forced),
	)

	if f.cfg.focusError == nil {
		return
	}
	timer := f.cfg.clock.NewTimer(f.cfg.scrollDelay)
	focus, selector := f.cfg.focusError, f.cfg.errorElementSelector
	go func() {
		<-timer.C()
		focus(selector)
	}()
}

// SetTemporaryErrors injects errors that override validators until the
// field is changed through a touching update. An empty message list clears
// the temporary error of that field.
func (f *Form) SetTemporaryErrors(errs map[string][]string) {
	_ = f.transact("setTemporaryErrors", func(d *draft) error {
		for id, msgs := range errs {
			if len(msgs) == 0 {
				delete(f.temp, id)
				continue
			}
			f.temp[id] = append([]string(nil), msgs...)
		}
		f.forceUpdate(d, f.definitions(), changeOptions{skipAll: true})
		return nil
	})
}

// SetTemporaryError is SetTemporaryErrors for a single field.
func (f *Form) SetTemporaryError(id string, msgs ...string) {
	f.SetTemporaryErrors(map[string][]string{id: msgs})
}

// UntouchAll marks every field as untouched.
func (f *Form) UntouchAll() {
	patches := make(map[string]FieldPatch)
	for _, id := range f.State().Fields.IDs() {
		patches[id] = FieldPatch{Touched: Some(false)}
	}
	_ = f.Reconfigure(Reconfiguration{Fields: patches})
}

// Binding is a convenience view over one field for UI layers.
type Binding struct {
	Value    any
	Errors   []string
	OnChange func(value any)
}

// Binding returns the current value and errors of field id together with a
// setter. Unknown ids yield a zero Binding whose OnChange reports the id.
func (f *Form) Binding(id string) Binding {
	b := Binding{
		OnChange: func(value any) { f.SetValue(id, value) },
	}
	if state, ok := f.Field(id); ok {
		b.Value = state.Value
		b.Errors = state.Errors
	}
	return b
}

func (f *Form) fieldNotFound(op, id string) {
	err := fieldNotFound(id)
	f.log.Warn("field not found", "operation", op, "field_id", id)
	f.cfg.metrics.OnFieldNotFound(id)
	f.history.push(Report{Op: op, FieldID: id, Err: err, At: f.cfg.clock.Now()})
	capitan.Emit(context.Background(), FieldNotFound,
		KeyFormID.Field(f.id),
		KeyFieldID.Field(id),
		KeyOperation.Field(op),
	)
}

// configError reports a configuration error and returns it.
func (f *Form) configError(op string, err error) error {
	f.log.Error("form configuration rejected", "operation", op, "error", err)
	f.cfg.metrics.OnConfigError(op)
	f.history.push(Report{Op: op, Err: err, At: f.cfg.clock.Now()})
	capitan.Emit(context.Background(), FormConfigFailed,
		KeyFormID.Field(f.id),
		KeyOperation.Field(op),
		KeyError.Field(err.Error()),
	)
	if f.cfg.handleFormError != nil {
		f.cfg.handleFormError(err)
	}
	return err
}
