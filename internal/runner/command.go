package runner

import (
	"os"
	"strings"
)

// Command is one shell-invocable step of a run sequence.
type Command struct {
	// Argv is the program and its arguments, executed directly.
	Argv []string

	// display overrides the rendered form for shell commands, so
	// diagnostics show the user's command instead of "sh -c ...".
	display string
}

// New builds a Command from an argv slice.
func New(argv ...string) Command {
	return Command{Argv: argv}
}

// Shell wraps a command string for execution through the user's shell
// ($SHELL, falling back to /bin/sh).
func Shell(command string) Command {
	sh := os.Getenv("SHELL")
	if sh == "" {
		sh = "/bin/sh"
	}

	return Command{
		Argv:    []string{sh, "-c", command},
		display: command,
	}
}

// String renders the command for diagnostics and status lines.
func (c Command) String() string {
	if c.display != "" {
		return c.display
	}

	return strings.Join(c.Argv, " ")
}

// Sequence is an ordered, immutable list of commands executed top-to-bottom.
// Start copies the slice, so a sequence cannot change under a running instance.
type Sequence []Command
