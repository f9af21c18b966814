package history

import (
	"github.com/google/uuid"

	"github.com/dshills/undocore/internal/event"
)

// Topics published by the engine.
const (
	TopicGroupCommitted event.Topic = "history.group.committed"
	TopicUndo           event.Topic = "history.undo"
	TopicRedo           event.Topic = "history.redo"
	TopicReplayFailed   event.Topic = "history.replay.failed"
	TopicReplayRefused  event.Topic = "history.replay.refused"
	TopicReplayDeclined event.Topic = "history.replay.declined"
	TopicInvalidated    event.Topic = "history.invalidated"
	TopicDocumentClosed event.Topic = "history.document.closed"
)

func replayTopic(dir Direction) event.Topic {
	if dir == Undo {
		return TopicUndo
	}
	return TopicRedo
}

// GroupEvent is the payload of committed, undo and redo events.
type GroupEvent struct {
	Document DocumentRef
	Group    GroupInfo
}

// FailureEvent is the payload of replay failure and refusal events. Refusals
// cover invalid groups and out-of-order replays; failures cover actions that
// returned an error mid-replay.
type FailureEvent struct {
	Document  DocumentRef
	Direction Direction
	GroupID   uuid.UUID
	GroupName string
	Err       error
}

// InvalidatedEvent is the payload of invalidation and close events.
type InvalidatedEvent struct {
	Document DocumentRef
	Groups   int
}
