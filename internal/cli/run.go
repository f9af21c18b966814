package cli

import (
	"github.com/spf13/cobra"

	"github.com/dshills/undocore/internal/scenario"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Echo bool
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run <scenario.yaml>",
		Short: "Run a scenario and print its transcript",
		Long: `Run a YAML scenario against a fresh engine and print the transcript.

The command exits with status 1 when any expectation fails and 2 when the
scenario cannot be loaded or a step is malformed.

Example:
  undocore run testdata/scenarios/bracket.yaml
  undocore run --echo=false --log-level debug rename.yaml`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScenario(cmd, opts, args[0])
		},
	}

	cmd.Flags().BoolVar(&opts.Echo, "echo", true, "print each step before running it")

	return cmd
}

func runScenario(cmd *cobra.Command, opts *RunOptions, path string) error {
	env, err := newEnvironment(cmd, opts.RootOptions)
	if err != nil {
		return err
	}
	defer env.Close()

	s, err := scenario.LoadFile(path)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load scenario", err)
	}
	env.logger.Debug("loaded scenario %q with %d steps", s.Name, len(s.Steps))

	r := scenario.NewRunner(cmd.OutOrStdout(),
		scenario.WithLogger(env.logger),
		scenario.WithScripts(env.scripts),
		scenario.WithEcho(opts.Echo),
		scenario.WithEngineOptions(env.engineOptions()...),
	)
	if err := r.Run(s); err != nil {
		return WrapExitError(ExitCommandError, "scenario aborted", err)
	}
	if n := r.Failures(); n > 0 {
		return NewExitError(ExitFailure, pluralize(n, "expectation")+" failed")
	}
	return nil
}
