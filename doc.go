/*
Package tform is a reactive form-state engine. A Form owns a set of fields,
each with a value, an initial value, required and touched flags, validation
errors and loading state, and recomputes all derived state in a single
transaction whenever a value or definition changes.

# Basic Usage

Declare the fields and create the form:

	form, err := tform.New(tform.Definitions{
	    "email": {
	        InitialValue: "",
	        Required:     true,
	        Checks:       []tform.Check{tform.RuleCheck("email", "Invalid email")},
	    },
	    "companyType": {InitialValue: "person"},
	    "taxId": {
	        InitialValue: "",
	        RequiredFn: func(ctx tform.RequiredContext) bool {
	            return ctx.Fields.Value("companyType") == "company"
	        },
	    },
	})

Update values and read the snapshot:

	form.SetValue("email", "ana@example.com")
	state := form.State()
	values, err := state.Values(false)

Snapshots are immutable. A field that did not change keeps the same
*FieldState pointer, and an update that changes nothing does not notify
subscribers.

# Subscriptions

	unsubscribe := form.WatchSummary(false, func(s tform.Summary) {
	    submit.SetEnabled(s.FormIsValid && !s.SomeFieldIsLoading)
	})
	defer unsubscribe()

# Reconfiguration

Definitions can change at runtime through Reconfigure, ApplyDefinitions or
SyncDefinitions. A Tracker keeps a form in sync with a definition document
delivered by any Watcher:

	tracker := tform.NewTracker(form, tform.NewFileWatcher("signup.yaml"))
	if err := tracker.Start(ctx); err != nil {
	    log.Printf("initial document rejected: %v", err)
	}

# Observability

Lifecycle events are emitted as capitan signals (see signals.go) with typed
keys (see fields.go). Warnings and configuration failures are also logged
through the form's slog.Logger, and a MetricsProvider receives counters and
timings.
*/
package tform
