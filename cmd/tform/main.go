// Command tform evaluates and watches form definition documents.
package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/zoobzio/capitan"
)

const (
	exitSuccess = 0
	exitInvalid = 1
	exitError   = 2
)

var verbose bool

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "tform",
		Short:         "Evaluate and watch form definition documents",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			level := slog.LevelWarn
			if verbose {
				level = slog.LevelDebug
			}
			slog.SetDefault(slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level})))
		},
	}
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log debug output to stderr")

	root.AddCommand(newCheckCmd(), newWatchCmd())
	return root
}

func main() {
	err := newRootCmd().Execute()
	capitan.Shutdown()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		if errors.Is(err, errFormInvalid) {
			os.Exit(exitInvalid)
		}
		os.Exit(exitError)
	}
	os.Exit(exitSuccess)
}
