package service

import (
	"context"
	"time"

	"gruenerator-be/internal/pkg/logger"
	"gruenerator-be/pkg/events"
	"gruenerator-be/pkg/interactive"
	"gruenerator-be/pkg/workflow"

	"github.com/ThreeDotsLabs/watermill/message"
)

// ProgressSender pushes a frame to every connection of a user. Implemented
// by the websocket hub.
type ProgressSender interface {
	Send(ctx context.Context, userID, msgType string, data interface{})
}

type progressService struct {
	subscriber message.Subscriber
	topic      string
	sender     ProgressSender
	logger     logger.ILogger
}

// NewProgressService forwards every generation event to the user's open
// websocket connections.
func NewProgressService(subscriber message.Subscriber, topic string, sender ProgressSender, log logger.ILogger) IConsumerService {
	return &progressService{
		subscriber: subscriber,
		topic:      topic,
		sender:     sender,
		logger:     log,
	}
}

func (s *progressService) Consume(ctx context.Context) error {
	messages, err := s.subscriber.Subscribe(ctx, s.topic)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			s.processMessage(ctx, msg)
		}
	}()

	return nil
}

func (s *progressService) processMessage(ctx context.Context, msg *message.Message) {
	defer msg.Ack()

	event, err := decodeEvent(msg)
	if err != nil {
		s.logger.Warn("PROGRESS", "Dropping undecodable event", map[string]interface{}{"error": err.Error()})
		return
	}
	if event.UserID == "" {
		return
	}
	s.sender.Send(ctx, event.UserID, event.Type, event.Payload())
}

// ProgressObserver publishes one generation.progress event per executed
// workflow node.
func ProgressObserver(publisher events.Publisher, log logger.ILogger) workflow.Observer {
	return func(ctx context.Context, ev workflow.NodeEvent) {
		sess := interactive.SessionFromState(ev.State)
		if sess.UserID == "" {
			return
		}
		err := publisher.Publish(ctx, events.GenerationEvent{
			Type:      events.GenerationProgress,
			UserID:    sess.UserID,
			SessionID: sess.SessionID,
			Kind:      sess.RequestType,
			Extra: map[string]interface{}{
				"node":              ev.Node,
				"next_node":         ev.NextNode,
				"suspended":         ev.Suspended,
				"conversationState": string(sess.ConversationState),
				"duration_ms":       ev.Duration.Milliseconds(),
			},
			At: time.Now(),
		})
		if err != nil {
			log.Warn("PROGRESS", "Failed to publish progress", map[string]interface{}{
				"session_id": sess.SessionID,
				"node":       ev.Node,
				"error":      err.Error(),
			})
		}
	}
}
