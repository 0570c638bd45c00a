// Command dryerlog manages dryer measurement records: CSV and JSON import,
// merge and export flows, and a local JSON API (serve).
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/dryerlog/internal/core"
)

// Exit codes.
const (
	exitOK    = 0
	exitError = 1
	exitUsage = 2
)

// codedError carries the process exit code of a failed command.
type codedError struct {
	code int
	err  error
}

func (e *codedError) Error() string { return e.err.Error() }
func (e *codedError) Unwrap() error { return e.err }

func withCode(code int, err error) error {
	if err == nil {
		return nil
	}
	return &codedError{code: code, err: err}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := run(ctx, os.Args[1:])
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string) int {
	a := &app{}
	root := newRootCmd(a)
	root.SetArgs(args)

	err := root.ExecuteContext(ctx)
	if err == nil {
		return exitOK
	}

	// Unknown commands, bad flags and wrong argument counts fail before open.
	if !a.started {
		err = withCode(exitUsage, err)
	}
	var ce *codedError
	if errors.As(err, &ce) && ce.code == exitUsage {
		fmt.Fprintln(os.Stderr, "error:", err)
		return exitUsage
	}
	if core.IsUserFacing(err) {
		fmt.Fprintln(os.Stderr, "error:", core.FormatUserError(err))
	} else {
		fmt.Fprintln(os.Stderr, "error:", err)
	}
	if errors.As(err, &ce) {
		return ce.code
	}
	return exitError
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "dryerlog",
		Short:         "Dryer measurement records: import, merge, export and a local API",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			a.started = true
			return a.open(cmd.Context())
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return a.close()
		},
	}

	root.PersistentFlags().BoolVar(&a.ephemeral, "ephemeral", false, "Keep records in memory only (ignores STORAGE_BACKEND)")
	root.PersistentFlags().StringVar(&a.outDir, "out", "", "Output directory for exported files (default: EXPORT_DIR); - writes to stdout")
	root.PersistentFlags().BoolVar(&a.quiet, "quiet", false, "Do not print notices")

	root.AddCommand(
		newServeCmd(a),
		newImportCmd(a),
		newPreviewCmd(a),
		newLoadCmd(a),
		newBuildCmd(a),
		newMergeCmd(a),
		newExportCmd(a),
		newQueryCmd(a),
		newChartCmd(a),
		newClearCmd(a),
	)
	return root
}
