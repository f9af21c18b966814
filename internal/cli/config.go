package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dshills/undocore/internal/config"
)

// ConfigOptions holds flags for the config command.
type ConfigOptions struct {
	*RootOptions
	Env bool
}

// NewConfigCommand creates the config command.
func NewConfigCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ConfigOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration as TOML",
		Long: `Print the configuration after defaults, the config file, environment
variables and flags have been applied.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return printConfig(cmd, opts)
		},
	}

	cmd.Flags().BoolVar(&opts.Env, "env", false, "list the environment variables instead")

	return cmd
}

func printConfig(cmd *cobra.Command, opts *ConfigOptions) error {
	out := cmd.OutOrStdout()
	if opts.Env {
		fmt.Fprintln(out, strings.Join(config.EnvVars(), "\n"))
		return nil
	}

	cfg, err := opts.loadConfig(cmd)
	if err != nil {
		return err
	}
	data, err := cfg.TOML()
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to render config", err)
	}
	fmt.Fprintf(out, "# %s\n", opts.configPath())
	_, err = out.Write(data)
	return err
}
