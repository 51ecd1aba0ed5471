// Package watch implements the debounced watch-and-rerun control loop: it
// observes file-system change events under the watch targets, coalesces
// bursts into single triggers, and hands each trigger to a run starter,
// superseding any still-active previous run.
package watch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"slices"
	"strings"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Instance is the minimal handle the control loop needs for an active run.
// Implemented by [runner.Instance].
type Instance interface {
	// Done is closed once the run has fully finished.
	Done() <-chan struct{}

	// Stop terminates the run and blocks until it has finished.
	Stop()
}

// StartFunc launches a run for a trigger and returns its handle. The loop
// guarantees the previous instance was stopped before calling it again.
type StartFunc func(ctx context.Context, trigger string) (Instance, error)

// Options configures the watch behaviour.
type Options struct {
	// Paths are the directories to watch recursively.
	Paths []string

	// Ignore excludes matching paths from watching and triggering.
	Ignore *IgnoreSet

	// Debounce is the quiet period before triggering a run.
	Debounce time.Duration

	// InitialRun fires one run on startup before any change event.
	InitialRun bool

	// RewatchAttempts bounds how often a lost watch is re-established
	// before the loop gives up.
	RewatchAttempts int

	// RewatchBackoff is the pause between re-establish attempts.
	RewatchBackoff time.Duration

	// Logger is used for structured logging.
	Logger *slog.Logger

	// Out is the writer for user-facing status messages.
	Out io.Writer
}

// DefaultOptions returns sensible default watch options.
func DefaultOptions() Options {
	ignore, _ := NewIgnoreSet(DefaultIgnores...)

	return Options{
		Paths:           []string{"."},
		Ignore:          ignore,
		Debounce:        500 * time.Millisecond,
		InitialRun:      true,
		RewatchAttempts: 5,
		RewatchBackoff:  time.Second,
		Logger:          slog.Default(),
		Out:             os.Stderr,
	}
}

// Run starts the watch loop and blocks until the context is cancelled, a
// SIGINT/SIGTERM signal is received, or the watch is irrecoverably lost.
// All state transitions funnel through this single loop: at most one run
// instance is active at any time, and a newer trigger stops the previous
// instance before its successor starts.
func Run(ctx context.Context, opts Options, start StartFunc) error {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	if opts.Out == nil {
		opts.Out = io.Discard
	}

	roots, err := resolveTargets(opts.Paths)
	if err != nil {
		return err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer watcher.Close()

	for _, root := range roots {
		if addErr := addRecursive(watcher, root, opts.Ignore); addErr != nil {
			return &TargetError{Path: root, Err: addErr}
		}
	}

	// Trap SIGINT / SIGTERM for graceful shutdown.
	sigCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	fmt.Fprintf(opts.Out, "watching %s (debounce=%s)\n",
		strings.Join(roots, ", "), opts.Debounce)

	// Coalesced triggers reach the loop over a capacity-1 latest-wins
	// channel so the newest path is never lost while a run executes.
	triggers := make(chan string, 1)

	debouncer := NewDebouncer(opts.Debounce, func(path string) {
		for {
			select {
			case triggers <- path:
				return
			default:
				select {
				case <-triggers:
				default:
				}
			}
		}
	})
	defer debouncer.Stop()

	// Single-owner slot for the active run, touched only by this loop.
	var current Instance

	stopCurrent := func() {
		if current == nil {
			return
		}

		current.Stop()
		current = nil
	}

	startRun := func(trigger string) {
		inst, startErr := start(sigCtx, trigger)
		if startErr != nil {
			opts.Logger.Error("starting run", slog.String("error", startErr.Error()))

			return
		}

		current = inst
	}

	if opts.InitialRun {
		startRun("(initial)")
	}

	for {
		select {
		case <-sigCtx.Done():
			fmt.Fprintln(opts.Out, "\nshutting down")
			stopCurrent()

			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				stopCurrent()

				return nil
			}

			// Loss of a watch root invalidates the whole watch.
			if rootLost(roots, event) {
				if rwErr := rewatch(sigCtx, watcher, roots, opts); rwErr != nil {
					stopCurrent()

					if errors.Is(rwErr, context.Canceled) {
						return nil
					}

					return rwErr
				}

				continue
			}

			if !relevant(event, opts.Ignore) {
				continue
			}

			// If a new directory was created, watch it too.
			if event.Has(fsnotify.Create) {
				if info, statErr := os.Stat(event.Name); statErr == nil && info.IsDir() {
					if addErr := addRecursive(watcher, event.Name, opts.Ignore); addErr != nil {
						opts.Logger.Warn("watching new directory",
							slog.String("path", event.Name),
							slog.String("error", addErr.Error()))
					}
				}
			}

			debouncer.Trigger(event.Name)

		case watchErr, ok := <-watcher.Errors:
			if !ok {
				stopCurrent()

				return nil
			}

			opts.Logger.Warn("watch error", slog.String("error", watchErr.Error()))

			if rwErr := rewatch(sigCtx, watcher, roots, opts); rwErr != nil {
				stopCurrent()

				if errors.Is(rwErr, context.Canceled) {
					return nil
				}

				return rwErr
			}

		case path := <-triggers:
			// Newer triggers win: terminate the old process group and
			// wait for it before the successor starts.
			stopCurrent()
			startRun(path)

		case <-doneCh(current):
			current = nil
		}
	}
}

// doneCh returns the done channel of the active instance, or a nil channel
// (blocking forever) when no run is active.
func doneCh(in Instance) <-chan struct{} {
	if in == nil {
		return nil
	}

	return in.Done()
}

// resolveTargets validates that every path is an existing directory and
// returns the absolute forms.
func resolveTargets(paths []string) ([]string, error) {
	if len(paths) == 0 {
		paths = []string{"."}
	}

	roots := make([]string, 0, len(paths))

	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			return nil, &TargetError{Path: p, Err: err}
		}

		info, err := os.Stat(abs)
		if err != nil {
			return nil, &TargetError{Path: p, Err: err}
		}

		if !info.IsDir() {
			return nil, &TargetError{Path: p, Err: fmt.Errorf("not a directory")}
		}

		roots = append(roots, abs)
	}

	return roots, nil
}

// rootLost reports whether event removes or renames one of the watch roots.
func rootLost(roots []string, event fsnotify.Event) bool {
	if !event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
		return false
	}

	return slices.Contains(roots, event.Name)
}

// rewatch tries to re-establish the watch on all roots a bounded number of
// times. Returns nil on success, ctx.Err() on cancellation, and a
// *RewatchError once the retry budget is exhausted.
func rewatch(ctx context.Context, watcher *fsnotify.Watcher, roots []string, opts Options) error {
	fmt.Fprintln(opts.Out, "watch lost, trying to re-establish")

	var (
		lastErr  error
		lastRoot string
	)

	for attempt := 1; attempt <= opts.RewatchAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(opts.RewatchBackoff):
		}

		lastErr = nil

		for _, root := range roots {
			if err := addRecursive(watcher, root, opts.Ignore); err != nil {
				lastErr = err
				lastRoot = root

				break
			}
		}

		if lastErr == nil {
			fmt.Fprintln(opts.Out, "watch re-established")

			return nil
		}

		opts.Logger.Warn("re-establish attempt failed",
			slog.Int("attempt", attempt),
			slog.String("error", lastErr.Error()))
	}

	return &RewatchError{Path: lastRoot, Attempts: opts.RewatchAttempts, Err: lastErr}
}

// addRecursive walks root and adds all non-ignored directories to the watcher.
func addRecursive(watcher *fsnotify.Watcher, root string, ignore *IgnoreSet) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if !d.IsDir() {
			return nil
		}

		if path != root {
			if strings.HasPrefix(d.Name(), ".") || ignore.Match(d.Name()) {
				return filepath.SkipDir
			}
		}

		return watcher.Add(path)
	})
}

// relevant filters out events the loop should not react to.
func relevant(event fsnotify.Event, ignore *IgnoreSet) bool {
	if event.Op == 0 {
		return false
	}

	// Only care about write, create, remove, rename.
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) &&
		!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
		return false
	}

	name := filepath.Base(event.Name)

	// Ignore editor temporary files and hidden files.
	if strings.HasPrefix(name, ".") || strings.HasSuffix(name, "~") ||
		strings.HasSuffix(name, ".swp") || strings.HasPrefix(name, "#") {
		return false
	}

	return !ignore.Match(event.Name)
}
