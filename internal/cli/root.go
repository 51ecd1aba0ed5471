// Package cli implements the cobra command tree for watchrun.
package cli

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/hupe1980/watchrun/internal/config"
	"github.com/hupe1980/watchrun/internal/logging"
	"github.com/hupe1980/watchrun/internal/runner"
)

// ExitError wraps an error with a specific process exit code.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}

	return fmt.Sprintf("exit code %d", e.Code)
}

func (e *ExitError) Unwrap() error { return e.Err }

// Execute builds the command tree, runs it, and returns the exit code.
func Execute() int {
	cmd := NewRootCommand()

	if err := cmd.Execute(); err != nil {
		var exitErr *ExitError
		if errors.As(err, &exitErr) {
			return exitErr.Code
		}

		return 1
	}

	return 0
}

// rootOptions holds the flag values of the watch-run loop itself. Debounce,
// kill-grace, and ignore patterns are viper-backed and read from the resolved
// config instead.
type rootOptions struct {
	paths           []string
	execs           []string
	continueOnError bool
	noInitial       bool
	pty             string
}

// NewRootCommand constructs the top-level cobra.Command with all
// subcommands attached.
func NewRootCommand() *cobra.Command {
	var cfgFile string

	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "watchrun [flags] -- <command> [args...] [-- <command> [args...] ...]",
		Short: "Watch a file tree and re-run commands on change",
		Long: `watchrun monitors one or more directory trees and, on each debounced
file change, executes a command sequence in order. A change arriving while a
previous run is still active terminates that run's process group before the
new one starts: newer triggers always win.

Commands are given either as shell strings via -x (executed through $SHELL)
or as argv segments separated by "--":

  watchrun -x 'go build ./...' -x 'go test ./...'
  watchrun --path src -- make check -- make docs

By default the sequence aborts at the first failing command and the loop
waits for the next change.`,
		Args:          cobra.ArbitraryArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(cmd, cfgFile)
			if err != nil {
				return &ExitError{Code: 2, Err: err}
			}

			logger := logging.Setup(cfg)

			ctx := cmd.Context()
			ctx = config.NewContext(ctx, cfg)
			ctx = logging.NewContext(ctx, logger)
			cmd.SetContext(ctx)

			logger.Debug("configuration loaded",
				slog.String("logLevel", cfg.LogLevel),
				slog.String("logFormat", cfg.LogFormat),
				slog.Duration("debounce", cfg.Debounce),
			)

			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRoot(cmd, args, opts)
		},
	}

	// Global persistent flags.
	pf := cmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "config file (default: .watchrun.yaml)")
	pf.String("log-level", "info", "log level: debug, info, warn, error")
	pf.String("log-format", "text", "log format: text, json")
	pf.Bool("no-color", false, "disable colored output")
	pf.BoolP("quiet", "q", false, "suppress non-essential output")

	// Watch-run flags.
	f := cmd.Flags()
	f.StringArrayVarP(&opts.paths, "path", "p", []string{"."}, "directory to watch (repeatable)")
	f.StringArray("ignore", nil, "ignore glob pattern, added to the built-in set (repeatable)")
	f.Duration("debounce", 500*time.Millisecond, "quiet period before a change triggers a run")
	f.Duration("kill-grace", 5*time.Second, "grace period between SIGTERM and SIGKILL")
	f.StringArrayVarP(&opts.execs, "exec", "x", nil, "shell command to add to the sequence (repeatable)")
	f.BoolVar(&opts.continueOnError, "continue-on-error", false, "run remaining commands after a failure")
	f.BoolVar(&opts.noInitial, "no-initial", false, "skip the initial run on startup")
	f.StringVar(&opts.pty, "pty", runner.PTYAuto, "pseudo-terminal per command: auto, always, never")

	// Flag parsing errors return exit code 2.
	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return &ExitError{Code: 2, Err: err}
	})

	// Register subcommands.
	cmd.AddCommand(
		newVersionCommand(),
		newConfigCommand(),
		newCompletionCommand(),
	)

	return cmd
}
