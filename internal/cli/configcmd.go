package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/hupe1980/watchrun/internal/config"
)

// configView is the YAML shape printed by the config command. Durations are
// rendered in human-readable form instead of raw nanoseconds.
type configView struct {
	LogLevel  string   `yaml:"log-level"`
	LogFormat string   `yaml:"log-format"`
	NoColor   bool     `yaml:"no-color"`
	Quiet     bool     `yaml:"quiet"`
	Debounce  string   `yaml:"debounce"`
	KillGrace string   `yaml:"kill-grace"`
	Ignore    []string `yaml:"ignore,omitempty"`
}

func newConfigCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration",
		Long: `Print the resolved configuration as YAML, after merging CLI flags,
environment variables, and the config file.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := config.FromContext(cmd.Context())

			view := configView{
				LogLevel:  cfg.LogLevel,
				LogFormat: cfg.LogFormat,
				NoColor:   cfg.NoColor,
				Quiet:     cfg.Quiet,
				Debounce:  cfg.Debounce.String(),
				KillGrace: cfg.KillGrace.String(),
				Ignore:    cfg.Ignore,
			}

			data, err := yaml.Marshal(view)
			if err != nil {
				return fmt.Errorf("marshaling config: %w", err)
			}

			if cfg.ConfigFile != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "# from %s\n", cfg.ConfigFile)
			}

			_, err = cmd.OutOrStdout().Write(data)

			return err
		},
	}

	return cmd
}
