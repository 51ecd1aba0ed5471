package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hupe1980/watchrun/internal/config"
	"github.com/hupe1980/watchrun/internal/logging"
	"github.com/hupe1980/watchrun/internal/runner"
	"github.com/hupe1980/watchrun/internal/watch"
)

// runRoot wires the resolved configuration into the watch loop and blocks
// until shutdown.
func runRoot(cmd *cobra.Command, args []string, opts *rootOptions) error {
	ctx := cmd.Context()
	cfg := config.FromContext(ctx)
	logger := logging.FromContext(ctx)

	seq, err := buildSequence(cmd, args, opts.execs)
	if err != nil {
		return &ExitError{Code: 2, Err: err}
	}

	if !runner.ValidPTYMode(opts.pty) {
		return &ExitError{Code: 2, Err: fmt.Errorf("invalid pty mode %q: must be one of auto, always, never", opts.pty)}
	}

	patterns := append(append([]string(nil), watch.DefaultIgnores...), cfg.Ignore...)

	ignore, err := watch.NewIgnoreSet(patterns...)
	if err != nil {
		return &ExitError{Code: 2, Err: err}
	}

	usePTY := opts.pty == runner.PTYAlways ||
		(opts.pty == runner.PTYAuto && cfg.ColorEnabled() && runner.TerminalWriter(cmd.OutOrStdout()))

	ropts := runner.DefaultOptions()
	ropts.Stdout = cmd.OutOrStdout()
	ropts.Stderr = cmd.ErrOrStderr()
	ropts.Out = cmd.ErrOrStderr()
	ropts.ContinueOnError = opts.continueOnError
	ropts.KillGrace = cfg.KillGrace
	ropts.UsePTY = usePTY
	ropts.Logger = logger

	startFn := func(runCtx context.Context, trigger string) (watch.Instance, error) {
		return runner.Start(runCtx, trigger, seq, ropts), nil
	}

	wopts := watch.DefaultOptions()
	wopts.Paths = opts.paths
	wopts.Ignore = ignore
	wopts.Debounce = cfg.Debounce
	wopts.InitialRun = !opts.noInitial
	wopts.Logger = logger
	wopts.Out = cmd.ErrOrStderr()

	if err := watch.Run(ctx, wopts, startFn); err != nil {
		var targetErr *watch.TargetError

		var rewatchErr *watch.RewatchError

		if errors.As(err, &targetErr) || errors.As(err, &rewatchErr) {
			return &ExitError{Code: 1, Err: err}
		}

		return err
	}

	return nil
}
