package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hupe1980/watchrun/internal/version"
)

func newVersionCommand() *cobra.Command {
	var (
		jsonOutput  bool
		shortOutput bool
	)

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Long:  "Display the version, git commit, build date, Go version, and platform.",
		Args:  cobra.NoArgs,
		// Override parent PersistentPreRunE — version needs no config.
		PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
		RunE: func(cmd *cobra.Command, _ []string) error {
			info := version.Get()

			switch {
			case jsonOutput:
				j, err := info.JSON()
				if err != nil {
					return err
				}

				fmt.Fprintln(cmd.OutOrStdout(), j)
			case shortOutput:
				fmt.Fprintln(cmd.OutOrStdout(), info.Short())
			default:
				fmt.Fprintln(cmd.OutOrStdout(), info.String())
			}

			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output version info as JSON")
	cmd.Flags().BoolVar(&shortOutput, "short", false, "print only the version identifier")

	return cmd
}
