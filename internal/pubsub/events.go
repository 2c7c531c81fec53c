// Package pubsub fans events out from one publisher to many subscribers.
// pyedit uses it for log entries and for session notifications (reloads,
// rehighlight passes, watcher errors).
package pubsub

import (
	"context"
	"time"
)

// EventType names what happened.
type EventType string

const (
	CreatedEvent       EventType = "created"       // a new log entry
	ReloadedEvent      EventType = "reloaded"      // the source file changed on disk
	RehighlightedEvent EventType = "rehighlighted" // a scheduler pass finished
	ErrorEvent         EventType = "error"
)

// Event is a published payload stamped with its type and time.
type Event[T any] struct {
	Type      EventType
	Payload   T
	Timestamp time.Time
}

// Subscriber provides a subscription channel for events.
type Subscriber[T any] interface {
	Subscribe(ctx context.Context) <-chan Event[T]
}

// Publisher allows publishing events with a typed payload.
type Publisher[T any] interface {
	Publish(eventType EventType, payload T)
}
