package history

import (
	"github.com/dshills/undocore/internal/event"
	"github.com/dshills/undocore/internal/logging"
)

// DefaultMaxDepth is the default number of groups kept per stack.
const DefaultMaxDepth = 1000

// Confirmer is asked before a group that needs confirmation is replayed.
// Returning false cancels the replay.
type Confirmer func(info GroupInfo, dir Direction) bool

// Option configures an Engine during creation.
type Option func(*Engine)

// WithMaxDepth sets the maximum number of groups kept per stack.
func WithMaxDepth(max int) Option {
	return func(e *Engine) {
		if max > 0 {
			e.maxDepth = max
		}
	}
}

// WithBulkThreshold sets the action count above which replay batches
// document notifications.
func WithBulkThreshold(n int) Option {
	return func(e *Engine) {
		if n >= 0 {
			e.bulkThreshold = n
		}
	}
}

// WithLogger sets the engine logger.
func WithLogger(l *logging.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithBus publishes history events on bus.
func WithBus(bus *event.Bus) Option {
	return func(e *Engine) {
		e.bus = bus
	}
}

// WithConfirmer installs the confirmation callback.
func WithConfirmer(c Confirmer) Option {
	return func(e *Engine) {
		e.confirm = c
	}
}

// GroupOption configures a group at BeginGroup.
type GroupOption func(*groupConfig)

type groupConfig struct {
	global      bool
	transparent bool
	policy      ConfirmationPolicy
}

// Global marks the group as project-wide.
func Global() GroupOption {
	return func(c *groupConfig) { c.global = true }
}

// Transparent makes the group replay together with its visible neighbor.
func Transparent() GroupOption {
	return func(c *groupConfig) { c.transparent = true }
}

// WithConfirmation sets the group's confirmation policy.
func WithConfirmation(p ConfirmationPolicy) GroupOption {
	return func(c *groupConfig) { c.policy = p }
}
