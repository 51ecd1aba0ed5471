package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hupe1980/watchrun/internal/runner"
)

// buildSequence assembles the ordered command sequence from -x shell strings
// and the "--"-separated argv segments. Positional arguments before the
// first "--" are a usage error.
func buildSequence(cmd *cobra.Command, args []string, execs []string) (runner.Sequence, error) {
	var seq runner.Sequence

	for _, e := range execs {
		seq = append(seq, runner.Shell(e))
	}

	dash := cmd.ArgsLenAtDash()

	if dash > 0 {
		return nil, fmt.Errorf("unexpected arguments before %q: %v", "--", args[:dash])
	}

	if dash == -1 && len(args) > 0 {
		return nil, fmt.Errorf("commands must follow a %q separator", "--")
	}

	segments, err := splitSegments(args)
	if err != nil {
		return nil, err
	}

	for _, s := range segments {
		seq = append(seq, runner.New(s...))
	}

	if len(seq) == 0 {
		return nil, fmt.Errorf("no commands given: use -x or %q", "-- <command>")
	}

	return seq, nil
}

// splitSegments splits the post-dash arguments on literal "--" tokens into
// argv slices, one per command.
func splitSegments(args []string) ([][]string, error) {
	var (
		segments [][]string
		current  []string
	)

	for _, a := range args {
		if a == "--" {
			if len(current) == 0 {
				return nil, fmt.Errorf("empty command segment")
			}

			segments = append(segments, current)
			current = nil

			continue
		}

		current = append(current, a)
	}

	if len(current) > 0 {
		segments = append(segments, current)
	} else if len(args) > 0 {
		// Trailing separator with nothing after it.
		return nil, fmt.Errorf("empty command segment")
	}

	return segments, nil
}
