package tform

import "github.com/zoobzio/capitan"

// Form lifecycle signals.
var (
	// FormCreated is emitted when a Form has computed its initial state.
	FormCreated = capitan.NewSignal(
		"tform.form.created",
		"Form created",
	)

	// FormConfigFailed is emitted when a definition or reconfiguration is rejected.
	FormConfigFailed = capitan.NewSignal(
		"tform.form.config.failed",
		"Form configuration rejected",
	)

	// FormReconfigured is emitted after a successful reconfiguration.
	FormReconfigured = capitan.NewSignal(
		"tform.form.reconfigured",
		"Form reconfigured",
	)

	// FieldNotFound is emitted when a routine update references an unknown field.
	FieldNotFound = capitan.NewSignal(
		"tform.field.not_found",
		"Update referenced an unknown field",
	)

	// ValidationForced is emitted by ForceValidation.
	ValidationForced = capitan.NewSignal(
		"tform.validation.forced",
		"Form validation forced",
	)

	// DefinitionsSynced is emitted when SyncDefinitions reconfigures the form.
	DefinitionsSynced = capitan.NewSignal(
		"tform.definitions.synced",
		"Definitions synced into form",
	)
)

// Tracker lifecycle signals.
var (
	// TrackerStarted is emitted when a Tracker begins watching.
	TrackerStarted = capitan.NewSignal(
		"tform.tracker.started",
		"Tracker watching started",
	)

	// TrackerStopped is emitted when a Tracker stops watching.
	TrackerStopped = capitan.NewSignal(
		"tform.tracker.stopped",
		"Tracker watching stopped",
	)

	// TrackerStateChanged is emitted when a Tracker transitions between states.
	TrackerStateChanged = capitan.NewSignal(
		"tform.tracker.state.changed",
		"Tracker state transition",
	)
)

// Document processing signals.
var (
	// TrackerChangeReceived is emitted when raw data is received from the watcher.
	TrackerChangeReceived = capitan.NewSignal(
		"tform.tracker.change.received",
		"Raw change received from watcher",
	)

	// TrackerDecodeFailed is emitted when a document cannot be decoded.
	TrackerDecodeFailed = capitan.NewSignal(
		"tform.tracker.decode.failed",
		"Document decode failed",
	)

	// TrackerValidationFailed is emitted when a document fails validation.
	TrackerValidationFailed = capitan.NewSignal(
		"tform.tracker.validation.failed",
		"Document validation failed",
	)

	// TrackerSyncFailed is emitted when the form rejects the decoded definitions.
	TrackerSyncFailed = capitan.NewSignal(
		"tform.tracker.sync.failed",
		"Definitions sync failed",
	)

	// TrackerSyncSucceeded is emitted when definitions are applied to the form.
	TrackerSyncSucceeded = capitan.NewSignal(
		"tform.tracker.sync.succeeded",
		"Definitions synced successfully",
	)
)
