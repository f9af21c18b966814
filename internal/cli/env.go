package cli

import (
	"github.com/spf13/cobra"

	"github.com/dshills/undocore/internal/config"
	"github.com/dshills/undocore/internal/engine/history"
	"github.com/dshills/undocore/internal/event"
	"github.com/dshills/undocore/internal/logging"
	"github.com/dshills/undocore/internal/script"
)

// environment is what every engine-driving command needs.
type environment struct {
	cfg      *config.Config
	logger   *logging.Logger
	scripts  *script.Runtime
	bus      *event.Bus
	notifier *Notifier
}

func newEnvironment(cmd *cobra.Command, opts *RootOptions) (*environment, error) {
	cfg, err := opts.loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	logger := newLogger(cmd, cfg)

	rt := script.New(
		script.WithTimeout(cfg.ScriptTimeout()),
		script.WithCallStackSize(cfg.Scripts.CallStackSize),
		script.WithLogger(logger),
	)
	if cfg.Scripts.Dir != "" {
		if _, err := rt.LoadDir(cfg.Scripts.Dir); err != nil {
			_ = rt.Close()
			return nil, WrapExitError(ExitCommandError, "failed to load scripts", err)
		}
	}

	bus := event.NewBus(event.WithPanicHandler(func(ev event.Event, recovered any) {
		logger.Error("handler for %s panicked: %v", ev.Topic, recovered)
	}))
	n := NewNotifier(cmd.ErrOrStderr(), WithNotifyLogger(logger))
	if err := n.Attach(bus); err != nil {
		_ = rt.Close()
		return nil, err
	}

	return &environment{
		cfg:      cfg,
		logger:   logger,
		scripts:  rt,
		bus:      bus,
		notifier: n,
	}, nil
}

// engineOptions configures an engine from the loaded settings.
func (e *environment) engineOptions() []history.Option {
	return []history.Option{
		history.WithMaxDepth(e.cfg.History.MaxDepth),
		history.WithBulkThreshold(e.cfg.History.BulkThreshold),
		history.WithBus(e.bus),
	}
}

func (e *environment) Close() {
	e.notifier.Detach()
	if err := e.scripts.Close(); err != nil {
		e.logger.Warn("closing script runtime: %v", err)
	}
}
