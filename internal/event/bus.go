package event

import (
	"errors"
	"sync"
	"sync/atomic"
)

// ErrInvalidTopic is returned when subscribing with an invalid pattern.
var ErrInvalidTopic = errors.New("invalid topic pattern")

// Handler receives published events.
type Handler func(ev Event)

// PanicHandler is called when a handler panics.
type PanicHandler func(ev Event, recovered any)

// Subscription is a handle returned by Subscribe.
type Subscription struct {
	id      uint64
	pattern Topic
	handler Handler
}

// Pattern returns the subscribed topic pattern.
func (s *Subscription) Pattern() Topic {
	return s.pattern
}

// Stats reports bus activity.
type Stats struct {
	Published uint64
	Delivered uint64
	Panics    uint64
}

// Option configures a Bus.
type Option func(*Bus)

// WithPanicHandler sets the function called when a handler panics.
func WithPanicHandler(h PanicHandler) Option {
	return func(b *Bus) {
		b.onPanic = h
	}
}

// Bus delivers events to subscribers synchronously.
type Bus struct {
	mu     sync.RWMutex
	subs   []*Subscription
	nextID uint64

	onPanic PanicHandler

	published atomic.Uint64
	delivered atomic.Uint64
	panics    atomic.Uint64
}

// NewBus creates a bus.
func NewBus(opts ...Option) *Bus {
	b := &Bus{}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Subscribe registers h for topics matching pattern.
func (b *Bus) Subscribe(pattern Topic, h Handler) (*Subscription, error) {
	if !pattern.IsValid() || h == nil {
		return nil, ErrInvalidTopic
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	sub := &Subscription{id: b.nextID, pattern: pattern, handler: h}
	b.subs = append(b.subs, sub)
	return sub, nil
}

// Unsubscribe removes a subscription. Unknown subscriptions are ignored.
func (b *Bus) Unsubscribe(sub *Subscription) {
	if sub == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, s := range b.subs {
		if s.id == sub.id {
			b.subs = append(b.subs[:i:i], b.subs[i+1:]...)
			return
		}
	}
}

// Publish delivers ev to every matching subscriber and returns how many
// handlers ran.
func (b *Bus) Publish(ev Event) int {
	b.published.Add(1)

	b.mu.RLock()
	var targets []*Subscription
	for _, s := range b.subs {
		if ev.Topic.Matches(s.pattern) {
			targets = append(targets, s)
		}
	}
	b.mu.RUnlock()

	for _, s := range targets {
		b.deliver(s, ev)
	}
	return len(targets)
}

func (b *Bus) deliver(s *Subscription, ev Event) {
	defer func() {
		if r := recover(); r != nil {
			b.panics.Add(1)
			if b.onPanic != nil {
				b.onPanic(ev, r)
			}
		}
	}()
	s.handler(ev)
	b.delivered.Add(1)
}

// Stats returns a snapshot of the bus counters.
func (b *Bus) Stats() Stats {
	return Stats{
		Published: b.published.Load(),
		Delivered: b.delivered.Load(),
		Panics:    b.panics.Load(),
	}
}
