package runner

import "fmt"

// CommandError reports a command that exited non-zero. It carries enough
// context (command, exit code) for the user to diagnose the failure.
type CommandError struct {
	Command  string
	ExitCode int
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("command %q exited with code %d", e.Command, e.ExitCode)
}
