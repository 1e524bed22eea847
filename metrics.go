package tform

import "time"

// MetricsProvider allows integration with metrics systems like Prometheus, StatsD, etc.
// Implement this interface to receive callbacks on form and tracker events.
type MetricsProvider interface {
	// OnTransaction is called after every public form operation. changed
	// reports whether a new snapshot was committed.
	OnTransaction(op string, changed bool, duration time.Duration)

	// OnFieldNotFound is called when an update references an unknown field.
	OnFieldNotFound(fieldID string)

	// OnConfigError is called when a configuration error is reported.
	OnConfigError(op string)

	// OnStateChange is called when a tracker transitions between states.
	OnStateChange(from, to State)

	// OnProcessSuccess is called when a tracker applies a document.
	// Duration covers decode, validate and sync.
	OnProcessSuccess(duration time.Duration)

	// OnProcessFailure is called when processing fails at any stage.
	// Stage is "decode", "validate" or "sync".
	OnProcessFailure(stage string, duration time.Duration)

	// OnChangeReceived is called when raw data is received from the watcher.
	OnChangeReceived()
}

// NoOpMetricsProvider is a no-op implementation of MetricsProvider.
// Use this as an embedded type to implement only the methods you need.
type NoOpMetricsProvider struct{}

func (NoOpMetricsProvider) OnTransaction(_ string, _ bool, _ time.Duration) {}
func (NoOpMetricsProvider) OnFieldNotFound(_ string)                        {}
func (NoOpMetricsProvider) OnConfigError(_ string)                          {}
func (NoOpMetricsProvider) OnStateChange(_, _ State)                        {}
func (NoOpMetricsProvider) OnProcessSuccess(_ time.Duration)                {}
func (NoOpMetricsProvider) OnProcessFailure(_ string, _ time.Duration)      {}
func (NoOpMetricsProvider) OnChangeReceived()                               {}
