// Package event provides a small synchronous publish/subscribe bus with
// hierarchical topics.
//
// Topics use dot notation ("history.replay.failed"). Subscription patterns
// may use "*" for exactly one segment and "**" for zero or more segments:
//
//	bus := event.NewBus()
//	bus.Subscribe("history.replay.*", func(ev event.Event) {
//	    fmt.Println(ev.Topic)
//	})
//	bus.Publish(event.NewEvent("history.replay.failed", payload, "history"))
//
// Handlers run on the publishing goroutine in subscription order. A
// panicking handler is recovered and counted; the remaining handlers still
// run.
package event
