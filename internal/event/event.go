package event

import "time"

// Event is a published notification. Events are immutable once created.
type Event struct {
	// Topic is the hierarchical event type.
	Topic Topic

	// Payload carries the event-specific data.
	Payload any

	// Source identifies the module that published the event.
	Source string

	// Timestamp is when the event was created.
	Timestamp time.Time
}

// NewEvent creates an event stamped with the current time.
func NewEvent(topic Topic, payload any, source string) Event {
	return Event{
		Topic:     topic,
		Payload:   payload,
		Source:    source,
		Timestamp: time.Now(),
	}
}
