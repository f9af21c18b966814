package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/spf13/cobra"

	"github.com/dshills/undocore/internal/config"
	"github.com/dshills/undocore/internal/engine/history"
	"github.com/dshills/undocore/internal/scenario"
)

// ReplOptions holds flags for the repl command.
type ReplOptions struct {
	*RootOptions
	Watch bool
}

// NewReplCommand creates the repl command.
func NewReplCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReplOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "repl",
		Short: "Edit documents and replay history interactively",
		Long: `Read commands from standard input, one per line, and run them against a
fresh engine. Type "help" for the list of commands.

On a terminal, confirmation prompts are asked interactively. Otherwise they
are answered by history.auto_confirm.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRepl(cmd, opts)
		},
	}

	cmd.Flags().BoolVar(&opts.Watch, "watch", true, "apply history limits when the config file changes")

	return cmd
}

func runRepl(cmd *cobra.Command, opts *ReplOptions) error {
	env, err := newEnvironment(cmd, opts.RootOptions)
	if err != nil {
		return err
	}
	defer env.Close()

	in := cmd.InOrStdin()
	out := cmd.OutOrStdout()
	interactive := isTerminal(in)
	autoConfirm := env.cfg.History.AutoConfirm

	var sess *scenario.Session
	answer := func(info history.GroupInfo, dir history.Direction) bool {
		if autoConfirm || !interactive {
			return autoConfirm
		}
		return sess.Ask(fmt.Sprintf("%s %q?", dir, info.Name))
	}

	r := scenario.NewRunner(out,
		scenario.WithLogger(env.logger),
		scenario.WithScripts(env.scripts),
		scenario.WithAnswer(answer),
		scenario.WithEngineOptions(env.engineOptions()...),
	)
	sess = scenario.NewSession(r)

	if opts.Watch {
		w, err := watchLimits(opts.configPath(), r, env)
		if err != nil {
			env.logger.Warn("not watching config: %v", err)
		} else if w != nil {
			defer w.Close()
		}
	}

	var prompt func(string)
	if interactive {
		fmt.Fprintln(out, `undocore repl, type "help" for commands`)
		prompt = func(p string) { fmt.Fprint(out, p) }
	}
	if err := sess.RunWith(in, prompt); err != nil {
		return WrapExitError(ExitCommandError, "reading input", err)
	}
	return nil
}

// watchLimits applies max_depth and bulk_threshold from the config file to
// the runner's engine whenever the file changes. It returns nil when the file
// does not exist.
func watchLimits(path string, r *scenario.Runner, env *environment) (*config.Watcher, error) {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	engine := r.Engine()
	apply := func(cfg *config.Config) {
		r.Post(func(acc *history.Access) error {
			if err := engine.SetMaxDepth(acc, cfg.History.MaxDepth); err != nil {
				return err
			}
			if err := engine.SetBulkThreshold(acc, cfg.History.BulkThreshold); err != nil {
				return err
			}
			env.logger.Info("applied max_depth=%d bulk_threshold=%d", cfg.History.MaxDepth, cfg.History.BulkThreshold)
			return nil
		})
	}
	return config.NewWatcher(path, apply, config.WithWatchLogger(env.logger))
}
