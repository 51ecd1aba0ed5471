package watch

import "fmt"

// TargetError reports a watch target that is missing or unreadable at
// startup. Fatal: the process exits non-zero.
type TargetError struct {
	Path string
	Err  error
}

func (e *TargetError) Error() string {
	return fmt.Sprintf("invalid watch target %q: %v", e.Path, e.Err)
}

func (e *TargetError) Unwrap() error { return e.Err }

// RewatchError reports that the underlying notification mechanism failed and
// could not be re-established within the bounded retry budget.
type RewatchError struct {
	Path     string
	Attempts int
	Err      error
}

func (e *RewatchError) Error() string {
	return fmt.Sprintf("watch on %q lost and not re-established after %d attempt(s): %v",
		e.Path, e.Attempts, e.Err)
}

func (e *RewatchError) Unwrap() error { return e.Err }
