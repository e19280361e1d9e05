// Package events defines the lifecycle events of generations and the
// publisher contract used to emit them.
package events

import (
	"context"
	"errors"
	"time"
)

// Event defines the contract for all system events.
type Event interface {
	// EventType returns the dotted event name (e.g. "generation.completed").
	EventType() string

	// Payload returns the data associated with the event.
	Payload() map[string]interface{}

	// Timestamp returns when the event occurred.
	Timestamp() time.Time
}

type BaseEvent struct {
	Type       string
	Data       map[string]interface{}
	OccurredAt time.Time
}

func (e BaseEvent) EventType() string {
	return e.Type
}

func (e BaseEvent) Payload() map[string]interface{} {
	return e.Data
}

func (e BaseEvent) Timestamp() time.Time {
	return e.OccurredAt
}

// Publisher emits events to a bus.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// MultiPublisher publishes to every inner publisher. Errors are joined; one
// failing bus does not stop the others.
type MultiPublisher []Publisher

func (m MultiPublisher) Publish(ctx context.Context, event Event) error {
	var errs []error
	for _, p := range m {
		if p == nil {
			continue
		}
		if err := p.Publish(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
