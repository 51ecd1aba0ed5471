// Package runner executes command sequences for the watch loop. Each run is
// an Instance: it owns the child process handle, streams output live, and can
// be stopped as a whole process group when a newer trigger supersedes it.
package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"sync"
	"syscall"
	"time"
)

// Options configures how a run instance executes its sequence.
type Options struct {
	// Dir is the working directory for all commands.
	Dir string

	// Env is the environment for all commands. Nil means inherit.
	Env []string

	// Stdout and Stderr receive the live command output.
	Stdout io.Writer
	Stderr io.Writer

	// Out is the writer for per-run status lines.
	Out io.Writer

	// ContinueOnError runs the remaining commands after a failure instead
	// of aborting the sequence.
	ContinueOnError bool

	// KillGrace is how long Stop waits between SIGTERM and SIGKILL.
	KillGrace time.Duration

	// UsePTY runs each command under a pseudo-terminal so child tools keep
	// producing colored output.
	UsePTY bool

	// Logger is used for structured logging.
	Logger *slog.Logger
}

// DefaultOptions returns sensible default runner options.
func DefaultOptions() Options {
	return Options{
		Stdout:    os.Stdout,
		Stderr:    os.Stderr,
		Out:       os.Stderr,
		KillGrace: 5 * time.Second,
		Logger:    slog.Default(),
	}
}

// StepResult records the outcome of one command in a run.
type StepResult struct {
	Command  string
	ExitCode int
	Duration time.Duration
	Err      error
}

// Result is the outcome of a whole run instance.
type Result struct {
	Trigger   string
	Steps     []StepResult
	Cancelled bool
	Failed    bool
	Duration  time.Duration
}

// Instance is one execution of a command sequence, created on a debounced
// change event and destroyed on completion or supersession. At most one
// command of the sequence runs at a time, always in its own process group.
type Instance struct {
	seq     []Command
	opts    Options
	trigger string

	done    chan struct{}
	stopped chan struct{}

	stopOnce sync.Once

	mu  sync.Mutex
	cmd *exec.Cmd // currently executing step, nil between steps

	result *Result // written before done is closed
}

// Start launches the sequence in a new run instance and returns immediately;
// the caller observes completion via Done. Cancelling ctx stops the instance.
func Start(ctx context.Context, trigger string, seq Sequence, opts Options) *Instance {
	if opts.Stdout == nil {
		opts.Stdout = io.Discard
	}

	if opts.Stderr == nil {
		opts.Stderr = io.Discard
	}

	if opts.Out == nil {
		opts.Out = io.Discard
	}

	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	in := &Instance{
		seq:     append(Sequence(nil), seq...),
		opts:    opts,
		trigger: trigger,
		done:    make(chan struct{}),
		stopped: make(chan struct{}),
	}

	go in.run()

	// Context cancellation is equivalent to Stop.
	go func() {
		select {
		case <-ctx.Done():
			in.Stop()
		case <-in.done:
		}
	}()

	return in
}

// Done is closed once the instance has fully finished, including process
// teardown after a Stop.
func (in *Instance) Done() <-chan struct{} {
	return in.done
}

// Result returns the run outcome, or nil while the instance is still active.
func (in *Instance) Result() *Result {
	select {
	case <-in.done:
		return in.result
	default:
		return nil
	}
}

// Stop terminates the instance: SIGTERM to the current command's process
// group, then SIGKILL after the kill-grace window. It blocks until the run
// goroutine has finished and is safe to call multiple times.
func (in *Instance) Stop() {
	in.stopOnce.Do(func() {
		close(in.stopped)
		in.terminate()
	})

	<-in.done
}

// terminate signals the currently running command's process group.
func (in *Instance) terminate() {
	in.mu.Lock()
	cmd := in.cmd
	in.mu.Unlock()

	if cmd == nil || cmd.Process == nil {
		return
	}

	pid := cmd.Process.Pid
	pgid := processGroup(pid)

	if err := signalGroup(pid, pgid, syscall.SIGTERM); err != nil && !errors.Is(err, os.ErrProcessDone) {
		in.opts.Logger.Debug("terminating run", slog.String("error", err.Error()))
	}

	select {
	case <-in.done:
		return
	case <-time.After(in.opts.KillGrace):
	}

	if err := signalGroup(pid, pgid, syscall.SIGKILL); err != nil && !errors.Is(err, os.ErrProcessDone) {
		in.opts.Logger.Debug("killing run", slog.String("error", err.Error()))
	}
}

func (in *Instance) stopRequested() bool {
	select {
	case <-in.stopped:
		return true
	default:
		return false
	}
}

// run executes the sequence top-to-bottom and records the result.
func (in *Instance) run() {
	res := &Result{Trigger: in.trigger}
	start := time.Now()

	defer func() {
		res.Duration = time.Since(start)
		in.result = res
		close(in.done)
	}()

	fmt.Fprintf(in.opts.Out, "[%s] %s → running %d command(s)\n",
		start.Format("15:04:05"), in.trigger, len(in.seq))

	for i, c := range in.seq {
		if in.stopRequested() {
			res.Cancelled = true
			in.opts.Logger.Info("run superseded", slog.String("trigger", in.trigger))

			return
		}

		step := in.runStep(c)
		res.Steps = append(res.Steps, step)

		if step.Err == nil {
			continue
		}

		if in.stopRequested() {
			res.Cancelled = true
			in.opts.Logger.Info("run superseded", slog.String("trigger", in.trigger))

			return
		}

		res.Failed = true
		fmt.Fprintf(in.opts.Out, "[%s] FAIL %s: %v\n",
			time.Now().Format("15:04:05"), c, step.Err)

		if !in.opts.ContinueOnError {
			if skipped := len(in.seq) - i - 1; skipped > 0 {
				fmt.Fprintf(in.opts.Out, "  aborting sequence, %d command(s) skipped\n", skipped)
			}

			return
		}
	}

	if !res.Failed {
		fmt.Fprintf(in.opts.Out, "[%s] done in %s\n",
			time.Now().Format("15:04:05"), res.Duration.Round(time.Millisecond))
	}
}

// runStep starts one command and waits for it. The start happens under the
// instance lock so a concurrent Stop either sees the stop flag before the
// process exists or sees the process handle it must signal.
func (in *Instance) runStep(c Command) StepResult {
	stepStart := time.Now()
	step := StepResult{Command: c.String()}

	cmd, wait, err := in.startCommand(c)
	if err != nil {
		step.Err = err
		step.Duration = time.Since(stepStart)

		return step
	}

	if cmd == nil { // stop raced the start
		step.Err = &CommandError{Command: c.String(), ExitCode: -1}
		step.Duration = time.Since(stepStart)

		return step
	}

	waitErr := wait()

	in.mu.Lock()
	in.cmd = nil
	in.mu.Unlock()

	step.Duration = time.Since(stepStart)

	if waitErr == nil {
		return step
	}

	var exitErr *exec.ExitError
	if errors.As(waitErr, &exitErr) {
		step.ExitCode = exitErr.ExitCode()

		// A signal-terminated command during Stop is supersession,
		// not failure — the caller checks stopRequested.
		if exitSignaled(waitErr) && in.stopRequested() {
			step.Err = waitErr

			return step
		}

		step.Err = &CommandError{Command: c.String(), ExitCode: exitErr.ExitCode()}

		return step
	}

	step.Err = fmt.Errorf("running %s: %w", c, waitErr)

	return step
}

// startCommand builds and starts the exec.Cmd for one step. Returns a nil cmd
// when a stop was requested before the process could start.
func (in *Instance) startCommand(c Command) (*exec.Cmd, func() error, error) {
	if len(c.Argv) == 0 {
		return nil, nil, fmt.Errorf("empty command")
	}

	build := func() *exec.Cmd {
		cmd := exec.Command(c.Argv[0], c.Argv[1:]...) //nolint:gosec // user-specified command
		cmd.Dir = in.opts.Dir
		cmd.Env = in.opts.Env

		return cmd
	}

	in.mu.Lock()
	defer in.mu.Unlock()

	select {
	case <-in.stopped:
		return nil, nil, nil
	default:
	}

	if in.opts.UsePTY {
		// No Setpgid here: pty.Start runs the child in its own session,
		// which already makes it a process-group leader, and setpgid on
		// a session leader fails in the forked child.
		cmd := build()

		wait, err := startPTY(cmd, in.opts.Stdout)
		if err == nil {
			in.cmd = cmd

			return cmd, wait, nil
		}

		in.opts.Logger.Warn("pty allocation failed, falling back to pipes",
			slog.String("error", err.Error()))
	}

	cmd := build()
	cmd.Stdout = in.opts.Stdout
	cmd.Stderr = in.opts.Stderr
	setProcessGroup(cmd)

	if err := cmd.Start(); err != nil {
		return nil, nil, fmt.Errorf("starting %s: %w", c, err)
	}

	in.cmd = cmd

	return cmd, cmd.Wait, nil
}
