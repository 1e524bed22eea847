package tform

import (
	"context"
	"fmt"
	"reflect"
	"sync"
	"sync/atomic"
	"time"

	"github.com/zoobzio/capitan"
	"github.com/zoobzio/clockz"
)

// DefaultDebounce is the default debounce duration for change processing.
const DefaultDebounce = 100 * time.Millisecond

// State represents the current state of a Tracker.
type State int32

const (
	// StateLoading indicates the Tracker has not processed a document yet.
	StateLoading State = iota

	// StateHealthy indicates the last document was applied to the form.
	StateHealthy

	// StateDegraded indicates the last document was rejected. The form keeps
	// the definitions of the previous valid document.
	StateDegraded

	// StateEmpty indicates no valid document has ever been applied. The form
	// keeps the definitions it was created with.
	StateEmpty
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateHealthy:
		return "healthy"
	case StateDegraded:
		return "degraded"
	case StateEmpty:
		return "empty"
	default:
		return "unknown"
	}
}

// Tracker keeps a form in sync with a definition document. Each document
// received from the watcher is decoded, validated and applied through
// ApplyDefinitions; rejected documents leave the form as it was.
type Tracker struct {
	form           *Form
	watcher        Watcher
	mode           UpdateMode
	debounce       time.Duration
	startupTimeout time.Duration
	syncMode       bool
	clock          clockz.Clock
	codec          Codec
	metrics        MetricsProvider
	onStop         func(State)

	state     atomic.Int32
	current   atomic.Pointer[Document]
	lastError atomic.Pointer[error]
	history   *reportRing

	mu      sync.Mutex
	started bool

	// For sync mode: channel to receive changes
	changes <-chan []byte
}

// NewTracker creates a Tracker applying documents from watcher to form.
// Fields missing from a document are removed from the form; see Mode.
//
// Example:
//
//	tracker := tform.NewTracker(form, tform.NewFileWatcher("signup.yaml")).
//	    Debounce(200 * time.Millisecond)
//
//	if err := tracker.Start(ctx); err != nil {
//	    log.Printf("initial document rejected: %v", err)
//	}
func NewTracker(form *Form, watcher Watcher) *Tracker {
	t := &Tracker{
		form:     form,
		watcher:  watcher,
		mode:     MergeAndRemoveExcess,
		debounce: DefaultDebounce,
		clock:    clockz.RealClock,
		codec:    AutoCodec{},
		metrics:  NoOpMetricsProvider{},
	}
	t.state.Store(int32(StateLoading))
	return t
}

// Mode sets how documents are applied. Default: MergeAndRemoveExcess.
// Must be called before Start().
func (t *Tracker) Mode(mode UpdateMode) *Tracker {
	t.mode = mode
	return t
}

// Debounce sets the debounce duration for change processing.
// Changes arriving within this duration are coalesced into a single update.
// Default: 100ms. Must be called before Start().
func (t *Tracker) Debounce(d time.Duration) *Tracker {
	t.debounce = d
	return t
}

// SyncMode enables synchronous processing for testing.
// In sync mode, changes are only processed by Process(), making tests
// deterministic. Must be called before Start().
func (t *Tracker) SyncMode() *Tracker {
	t.syncMode = true
	return t
}

// Clock sets a custom clock for time operations.
// Use this with clockz.FakeClock for deterministic debounce testing.
// Must be called before Start().
func (t *Tracker) Clock(clock clockz.Clock) *Tracker {
	t.clock = clock
	return t
}

// Codec sets the codec for decoding documents.
// Default: AutoCodec. Must be called before Start().
func (t *Tracker) Codec(codec Codec) *Tracker {
	t.codec = codec
	return t
}

// StartupTimeout sets the maximum duration to wait for the initial
// document from the watcher. Default: no timeout. Must be called before Start().
func (t *Tracker) StartupTimeout(d time.Duration) *Tracker {
	t.startupTimeout = d
	return t
}

// Metrics sets a metrics provider for observability integration.
// Must be called before Start().
func (t *Tracker) Metrics(provider MetricsProvider) *Tracker {
	t.metrics = provider
	return t
}

// OnStop sets a callback that is invoked with the final state when the
// tracker stops watching. Must be called before Start().
func (t *Tracker) OnStop(fn func(State)) *Tracker {
	t.onStop = fn
	return t
}

// ErrorHistorySize sets the number of recent errors to retain.
// Use 0 (default) to only retain the most recent error via LastError().
// Must be called before Start().
func (t *Tracker) ErrorHistorySize(n int) *Tracker {
	t.history = newReportRing(n)
	return t
}

// State returns the current state of the Tracker.
func (t *Tracker) State() State {
	return State(t.state.Load())
}

// Current returns the last applied document, or nil.
func (t *Tracker) Current() *Document {
	return t.current.Load()
}

// LastError returns the last error encountered, or nil if the last document
// was applied.
func (t *Tracker) LastError() error {
	ptr := t.lastError.Load()
	if ptr == nil {
		return nil
	}
	return *ptr
}

// ErrorHistory returns the errors since the last successful document,
// oldest first.
func (t *Tracker) ErrorHistory() []Report {
	return t.history.all()
}

// Start begins watching. It blocks until the first document is processed
// (success or failure), then continues watching asynchronously.
//
// If the initial document is rejected, Start returns the error but keeps
// watching in the background for valid updates.
//
// In sync mode, Start only processes the initial document. Use Process() to
// handle subsequent ones.
//
// Start can only be called once. Subsequent calls return an error.
func (t *Tracker) Start(ctx context.Context) error {
	t.mu.Lock()
	if t.started {
		t.mu.Unlock()
		return fmt.Errorf("tracker already started")
	}
	t.started = true
	t.mu.Unlock()

	capitan.Emit(ctx, TrackerStarted,
		KeyFormID.Field(t.form.ID()),
		KeyDebounce.Field(t.debounce),
		KeyWatcherType.Field(reflect.TypeOf(t.watcher).String()),
	)

	changes, err := t.watcher.Watch(ctx)
	if err != nil {
		return fmt.Errorf("failed to start watcher: %w", err)
	}

	startupCtx := ctx
	if t.startupTimeout > 0 {
		var cancel context.CancelFunc
		startupCtx, cancel = t.clock.WithTimeout(ctx, t.startupTimeout)
		defer cancel()
	}

	var initialErr error
	select {
	case <-startupCtx.Done():
		if t.startupTimeout > 0 && startupCtx.Err() == context.DeadlineExceeded {
			return fmt.Errorf("startup timeout: watcher did not emit initial document within %v", t.startupTimeout)
		}
		return startupCtx.Err()
	case raw, ok := <-changes:
		if !ok {
			return fmt.Errorf("watcher closed before emitting initial document")
		}
		t.received(ctx)
		initialErr = t.process(ctx, raw)
	}

	if t.syncMode {
		t.changes = changes
		return initialErr
	}

	go t.watch(ctx, changes)

	return initialErr
}

// Process reads and processes the next document from the watcher.
// This is only available in sync mode and is used for deterministic testing.
// Returns false if no document is available or the channel is closed.
func (t *Tracker) Process(ctx context.Context) bool {
	if !t.syncMode {
		return false
	}

	select {
	case raw, ok := <-t.changes:
		if !ok {
			return false
		}
		t.received(ctx)
		_ = t.process(ctx, raw) //nolint:errcheck // Errors stored via fail
		return true
	default:
		return false
	}
}

func (t *Tracker) received(ctx context.Context) {
	capitan.Emit(ctx, TrackerChangeReceived, KeyFormID.Field(t.form.ID()))
	t.metrics.OnChangeReceived()
}

// process decodes, validates and applies a single document.
func (t *Tracker) process(ctx context.Context, raw []byte) error {
	start := t.clock.Now()
	oldState := t.State()

	var doc Document
	if err := t.codec.Unmarshal(raw, &doc); err != nil {
		t.fail(ctx, oldState, "decode", TrackerDecodeFailed, err, start)
		return fmt.Errorf("decode failed: %w", err)
	}

	if err := doc.Validate(); err != nil {
		t.fail(ctx, oldState, "validate", TrackerValidationFailed, err, start)
		return fmt.Errorf("validation failed: %w", err)
	}

	if prev := t.current.Load(); prev == nil || !reflect.DeepEqual(*prev, doc) {
		metadata := Optional[any]{}
		if doc.Metadata != nil {
			metadata = Some(doc.Metadata)
		}
		if err := t.form.applyDefinitions(doc.Definitions(), t.mode, metadata); err != nil {
			t.fail(ctx, oldState, "sync", TrackerSyncFailed, err, start)
			return fmt.Errorf("sync failed: %w", err)
		}
	}

	t.current.Store(&doc)
	t.lastError.Store(nil)
	t.history.clear()
	t.transitionState(ctx, oldState, StateHealthy)
	capitan.Emit(ctx, TrackerSyncSucceeded,
		KeyFormID.Field(t.form.ID()),
		KeyFieldCount.Field(len(doc.Fields)),
	)
	t.metrics.OnProcessSuccess(t.clock.Since(start))

	return nil
}

func (t *Tracker) fail(ctx context.Context, oldState State, stage string, signal capitan.Signal, err error, start time.Time) {
	e := err
	t.lastError.Store(&e)
	t.history.push(Report{Op: stage, Err: err, At: t.clock.Now()})
	t.transitionState(ctx, oldState, t.failureState())
	capitan.Emit(ctx, signal,
		KeyFormID.Field(t.form.ID()),
		KeyError.Field(err.Error()),
	)
	t.form.log.Warn("definition document rejected", "stage", stage, "error", err)
	t.metrics.OnProcessFailure(stage, t.clock.Since(start))
}

// failureState returns the appropriate failure state based on whether
// a valid document has ever been applied.
func (t *Tracker) failureState() State {
	if t.current.Load() == nil {
		return StateEmpty
	}
	return StateDegraded
}

// transitionState updates the state and emits a state change event if changed.
func (t *Tracker) transitionState(ctx context.Context, oldState, newState State) {
	if oldState == newState {
		return
	}
	t.state.Store(int32(newState))
	capitan.Emit(ctx, TrackerStateChanged,
		KeyFormID.Field(t.form.ID()),
		KeyOldState.Field(oldState.String()),
		KeyNewState.Field(newState.String()),
	)
	t.metrics.OnStateChange(oldState, newState)
}

// watch processes documents from the watcher channel with debouncing.
func (t *Tracker) watch(ctx context.Context, changes <-chan []byte) {
	defer func() {
		finalState := t.State()
		capitan.Emit(ctx, TrackerStopped,
			KeyFormID.Field(t.form.ID()),
			KeyState.Field(finalState.String()),
		)
		if t.onStop != nil {
			t.onStop(finalState)
		}
	}()

	var (
		timer      clockz.Timer
		pending    []byte
		hasPending bool
	)

	for {
		var timerC <-chan time.Time
		if timer != nil {
			timerC = timer.C()
		}

		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return

		case raw, ok := <-changes:
			if !ok {
				if hasPending {
					_ = t.process(ctx, pending) //nolint:errcheck // Errors stored via fail
				}
				return
			}

			t.received(ctx)
			pending = raw
			hasPending = true

			if timer == nil {
				timer = t.clock.NewTimer(t.debounce)
			} else {
				if !timer.Stop() {
					select {
					case <-timer.C():
					default:
					}
				}
				timer.Reset(t.debounce)
			}

		case <-timerC:
			if hasPending {
				_ = t.process(ctx, pending) //nolint:errcheck // Errors stored via fail
				hasPending = false
			}
		}
	}
}
