package history

import "github.com/dshills/undocore/internal/event"

// Access is the proof of exclusive access to an Engine. It is only handed
// out by WithExclusiveAccess and is dead once the callback returns.
type Access struct {
	engine    *Engine
	done      bool
	replaying bool
	pending   []event.Event
}

// WithExclusiveAccess runs fn with the engine's single writer lock held.
// Events raised inside fn are published after the lock is released, so
// subscribers may enter the engine again. The lock is released even when
// fn panics.
//
// While a replay runs, WithExclusiveAccess returns ErrReentrant instead of
// waiting, whichever goroutine calls it. Goroutines other than the engine's
// owner should hand their work to the owner rather than call in directly.
func (e *Engine) WithExclusiveAccess(fn func(acc *Access) error) error {
	if e.replaying.Load() {
		return ErrReentrant
	}
	pending, err := e.locked(fn)
	if e.bus != nil {
		for _, ev := range pending {
			e.bus.Publish(ev)
		}
	}
	return err
}

func (e *Engine) locked(fn func(acc *Access) error) ([]event.Event, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	acc := &Access{engine: e}
	defer func() {
		acc.done = true
		acc.pending = nil
	}()
	err := fn(acc)
	return acc.pending, err
}

func (e *Engine) check(acc *Access) error {
	if acc == nil || acc.engine != e || acc.done {
		return ErrNoAccess
	}
	if acc.replaying {
		return ErrReentrant
	}
	return nil
}

func (e *Engine) publish(acc *Access, topic event.Topic, payload any) {
	if e.bus == nil {
		return
	}
	acc.pending = append(acc.pending, event.NewEvent(topic, payload, "history"))
}
