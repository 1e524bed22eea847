package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/zoobzio/capitan"

	tform "github.com/lucasols/t-form"
)

func newWatchCmd() *cobra.Command {
	var debounce time.Duration
	cmd := &cobra.Command{
		Use:   "watch DOCUMENT",
		Short: "Keep a form in sync with a definition file and report changes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runWatch(ctx, cmd, args[0], debounce)
		},
	}
	cmd.Flags().DurationVar(&debounce, "debounce", tform.DefaultDebounce, "coalesce file changes within this window")
	return cmd
}

func runWatch(ctx context.Context, cmd *cobra.Command, path string, debounce time.Duration) error {
	w := cmd.OutOrStdout()

	form, err := tform.New(tform.Definitions{})
	if err != nil {
		return err
	}

	capitan.Hook(tform.TrackerStateChanged, func(_ context.Context, e *capitan.Event) {
		from, _ := tform.KeyOldState.From(e)
		to, _ := tform.KeyNewState.From(e)
		fmt.Fprintf(w, "tracker: %s -> %s\n", from, to)
	})
	capitan.Hook(tform.TrackerValidationFailed, func(_ context.Context, e *capitan.Event) {
		msg, _ := tform.KeyError.From(e)
		fmt.Fprintf(w, "rejected: %s\n", msg)
	})
	capitan.Hook(tform.TrackerDecodeFailed, func(_ context.Context, e *capitan.Event) {
		msg, _ := tform.KeyError.From(e)
		fmt.Fprintf(w, "rejected: %s\n", msg)
	})

	unsubscribe := form.Subscribe(func(_, next *tform.FormState) {
		fmt.Fprintf(w, "fields: %v\n", next.Fields.IDs())
	})
	defer unsubscribe()

	done := make(chan struct{})
	tracker := tform.NewTracker(form, tform.NewFileWatcher(path)).
		Debounce(debounce).
		Codec(codecForPath(path)).
		OnStop(func(tform.State) { close(done) })

	if err := tracker.Start(ctx); err != nil {
		if tracker.State() == tform.StateLoading {
			return err
		}
		fmt.Fprintf(w, "initial document rejected: %v\n", err)
	}

	select {
	case <-done:
	case <-ctx.Done():
		<-done
	}
	return nil
}
