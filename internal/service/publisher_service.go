package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"gruenerator-be/pkg/events"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
)

// GenerationTopic is the in-process topic all generation events go through.
const GenerationTopic = "generation_events"

const (
	metaEventType  = "event_type"
	metaOccurredAt = "occurred_at"
)

type IPublisherService interface {
	Publish(ctx context.Context, event events.Event) error
}

type publisherService struct {
	topic     string
	publisher message.Publisher
}

func NewPublisherService(topic string, publisher message.Publisher) IPublisherService {
	return &publisherService{
		topic:     topic,
		publisher: publisher,
	}
}

func (s *publisherService) Publish(ctx context.Context, event events.Event) error {
	payload, err := json.Marshal(event.Payload())
	if err != nil {
		return fmt.Errorf("failed to marshal event payload: %w", err)
	}

	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.Metadata.Set(metaEventType, event.EventType())
	msg.Metadata.Set(metaOccurredAt, event.Timestamp().UTC().Format(time.RFC3339Nano))
	msg.SetContext(ctx)

	if err := s.publisher.Publish(s.topic, msg); err != nil {
		return fmt.Errorf("failed to publish %s: %w", event.EventType(), err)
	}
	return nil
}

// decodeEvent is the inverse of Publish.
func decodeEvent(msg *message.Message) (events.GenerationEvent, error) {
	var payload map[string]interface{}
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		return events.GenerationEvent{}, err
	}
	at, err := time.Parse(time.RFC3339Nano, msg.Metadata.Get(metaOccurredAt))
	if err != nil {
		at = time.Now()
	}
	return events.FromPayload(msg.Metadata.Get(metaEventType), payload, at), nil
}
