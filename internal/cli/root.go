package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dshills/undocore/internal/config"
	"github.com/dshills/undocore/internal/logging"
)

// Version is reported by --version. It is set by the main package.
var Version = "dev"

// RootOptions holds global flags for all commands.
type RootOptions struct {
	ConfigPath string
	LogLevel   string
	LogJSON    bool
}

// NewRootCommand creates the undocore command tree.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "undocore",
		Short: "Multi-document undo/redo engine",
		Long: `undocore drives a multi-document undo/redo history engine.

Scenarios are YAML files describing documents, command groups and replays;
the REPL accepts the same operations one line at a time.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", "", "config file (default "+config.DefaultPath()+")")
	cmd.PersistentFlags().StringVar(&opts.LogLevel, "log-level", "", "log level (debug|info|warn|error)")
	cmd.PersistentFlags().BoolVar(&opts.LogJSON, "log-json", false, "write logs as JSON")

	cmd.AddCommand(NewRunCommand(opts))
	cmd.AddCommand(NewReplCommand(opts))
	cmd.AddCommand(NewConfigCommand(opts))

	return cmd
}

// configPath returns the config file to use.
func (o *RootOptions) configPath() string {
	if o.ConfigPath != "" {
		return o.ConfigPath
	}
	return config.DefaultPath()
}

// loadConfig loads the config file and applies the logging flags on top.
func (o *RootOptions) loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(o.configPath())
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to load config", err)
	}
	flags := cmd.Flags()
	if flags.Changed("log-level") {
		cfg.Log.Level = o.LogLevel
	}
	if flags.Changed("log-json") {
		cfg.Log.JSON = o.LogJSON
	}
	if err := cfg.Validate(); err != nil {
		return nil, WrapExitError(ExitCommandError, "invalid settings", err)
	}
	return cfg, nil
}

// newLogger builds the logger writing to the command's error stream.
func newLogger(cmd *cobra.Command, cfg *config.Config) *logging.Logger {
	lc := cfg.Logging()
	lc.Output = cmd.ErrOrStderr()
	return logging.New(lc)
}

func pluralize(n int, word string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, word)
	}
	return fmt.Sprintf("%d %ss", n, word)
}
