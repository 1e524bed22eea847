package tform

import (
	"log/slog"
	"sync"
	"time"

	"github.com/zoobzio/clockz"
)

// DefaultRequiredMsg is the built-in message for required fields left empty.
const DefaultRequiredMsg = "This field is required"

// DefaultErrorElementSelector identifies the element a UI should bring into
// view after a forced validation.
const DefaultErrorElementSelector = ".showErrors"

// DefaultScrollDelay is how long ForceValidation waits before invoking the
// error focus hook.
const DefaultScrollDelay = 90 * time.Millisecond

// config holds configuration options for a Form.
type config struct {
	id                   string
	requiredMsg          func() string
	errorElementSelector string
	handleFormError      func(error)
	logger               *slog.Logger
	clock                clockz.Clock
	scrollDelay          time.Duration
	focusError           func(selector string)
	metrics              MetricsProvider
	errorHistorySize     int
	formMetadata         any
	formValidator        FormValidator
	autoUpdate           bool
}

// Option configures a Form.
type Option func(*config)

// WithID sets the form id used in logs and signals. Defaults to a random UUID.
func WithID(id string) Option {
	return func(c *config) {
		c.id = id
	}
}

// WithDefaultRequiredMsg sets the message used for required fields that do
// not declare their own.
func WithDefaultRequiredMsg(msg string) Option {
	return func(c *config) {
		c.requiredMsg = func() string { return msg }
	}
}

// WithDefaultRequiredMsgFunc is like WithDefaultRequiredMsg but evaluates fn
// each time a required error is built, which suits translated messages.
func WithDefaultRequiredMsgFunc(fn func() string) Option {
	return func(c *config) {
		c.requiredMsg = fn
	}
}

// WithErrorElementSelector sets the selector passed to the error focus hook.
func WithErrorElementSelector(selector string) Option {
	return func(c *config) {
		c.errorElementSelector = selector
	}
}

// WithFormErrorHandler sets a handler for configuration errors. The error is
// still returned to the caller; the handler lets hosts forward it to
// telemetry or turn it into a panic during development.
func WithFormErrorHandler(fn func(error)) Option {
	return func(c *config) {
		c.handleFormError = fn
	}
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) {
		c.logger = logger
	}
}

// WithClock sets a custom clock for time operations.
// Use this with clockz.FakeClock for deterministic testing.
func WithClock(clock clockz.Clock) Option {
	return func(c *config) {
		c.clock = clock
	}
}

// WithScrollDelay sets the delay between a forced validation and the error
// focus hook.
func WithScrollDelay(d time.Duration) Option {
	return func(c *config) {
		c.scrollDelay = d
	}
}

// WithErrorFocus registers the hook invoked after ForceValidation, typically
// a UI binding that scrolls the first error element into view. The hook runs
// on its own goroutine and never affects form state.
func WithErrorFocus(fn func(selector string)) Option {
	return func(c *config) {
		c.focusError = fn
	}
}

// WithMetrics sets a metrics provider for observability integration.
func WithMetrics(provider MetricsProvider) Option {
	return func(c *config) {
		c.metrics = provider
	}
}

// WithErrorHistorySize sets the number of recent non-fatal errors retained
// for ErrorHistory. Use 0 to disable.
func WithErrorHistorySize(n int) Option {
	return func(c *config) {
		c.errorHistorySize = n
	}
}

// WithFormMetadata sets the initial form metadata passed to validators and
// required functions.
func WithFormMetadata(metadata any) Option {
	return func(c *config) {
		c.formMetadata = metadata
	}
}

// WithFormValidator sets the whole-form validator.
func WithFormValidator(fn FormValidator) Option {
	return func(c *config) {
		c.formValidator = fn
	}
}

// WithAutoUpdate makes SyncDefinitions reconfigure the form whenever the
// definitions it receives differ from the previous ones.
func WithAutoUpdate() Option {
	return func(c *config) {
		c.autoUpdate = true
	}
}

var (
	defaultsMu   sync.RWMutex
	defaultsOpts []Option
)

// SetDefaults applies opts to the process-wide defaults every new Form
// starts from. Calls accumulate; the last writer wins per setting. Forms
// already created are not affected. Tests should call ResetDefaults when done.
func SetDefaults(opts ...Option) {
	defaultsMu.Lock()
	defer defaultsMu.Unlock()
	defaultsOpts = append(defaultsOpts, opts...)
}

// ResetDefaults restores the built-in defaults.
func ResetDefaults() {
	defaultsMu.Lock()
	defer defaultsMu.Unlock()
	defaultsOpts = nil
}

func newConfig(opts []Option) *config {
	cfg := &config{
		requiredMsg:          func() string { return DefaultRequiredMsg },
		errorElementSelector: DefaultErrorElementSelector,
		clock:                clockz.RealClock,
		scrollDelay:          DefaultScrollDelay,
		metrics:              NoOpMetricsProvider{},
		errorHistorySize:     10,
	}

	defaultsMu.RLock()
	base := append([]Option(nil), defaultsOpts...)
	defaultsMu.RUnlock()

	for _, opt := range base {
		opt(cfg)
	}
	for _, opt := range opts {
		opt(cfg)
	}

	if cfg.logger == nil {
		cfg.logger = slog.Default()
	}
	if cfg.metrics == nil {
		cfg.metrics = NoOpMetricsProvider{}
	}
	if cfg.requiredMsg == nil {
		cfg.requiredMsg = func() string { return DefaultRequiredMsg }
	}
	return cfg
}
