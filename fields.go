package tform

import "github.com/zoobzio/capitan"

// Field keys for form events.
var (
	// KeyFormID is the id of the form emitting the event.
	KeyFormID = capitan.NewStringKey("form_id")

	// KeyFieldID is the field the event refers to.
	KeyFieldID = capitan.NewStringKey("field_id")

	// KeyOperation is the form operation that produced the event.
	KeyOperation = capitan.NewStringKey("operation")

	// KeyFieldCount is the number of fields after a reconfiguration.
	KeyFieldCount = capitan.NewIntKey("field_count")

	// KeyForcedCount is the validationWasForced counter after a forced validation.
	KeyForcedCount = capitan.NewIntKey("forced_count")
)

// Field keys for Tracker events.
var (
	// KeyState is the current state of the Tracker.
	KeyState = capitan.NewStringKey("state")

	// KeyOldState is the previous state before a transition.
	KeyOldState = capitan.NewStringKey("old_state")

	// KeyNewState is the new state after a transition.
	KeyNewState = capitan.NewStringKey("new_state")

	// KeyError is the error message when an operation fails.
	KeyError = capitan.NewStringKey("error")

	// KeyDebounce is the configured debounce duration.
	KeyDebounce = capitan.NewDurationKey("debounce")

	// KeyWatcherType is the type name of the watcher implementation.
	KeyWatcherType = capitan.NewStringKey("watcher_type")
)
