package service

import (
	"context"
	"encoding/json"
	"time"

	"gruenerator-be/internal/entity"
	"gruenerator-be/internal/pkg/logger"
	"gruenerator-be/internal/repository/specification"
	"gruenerator-be/internal/repository/unitofwork"
	"gruenerator-be/pkg/events"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/google/uuid"
)

type IConsumerService interface {
	Consume(ctx context.Context) error
}

// consumerService writes finished generations to the history table.
type consumerService struct {
	subscriber message.Subscriber
	topicName  string
	uowFactory unitofwork.RepositoryFactory
	logger     logger.ILogger
}

func NewConsumerService(
	subscriber message.Subscriber,
	topicName string,
	uowFactory unitofwork.RepositoryFactory,
	log logger.ILogger,
) IConsumerService {
	return &consumerService{
		subscriber: subscriber,
		topicName:  topicName,
		uowFactory: uowFactory,
		logger:     log,
	}
}

func (cs *consumerService) Consume(ctx context.Context) error {
	messages, err := cs.subscriber.Subscribe(ctx, cs.topicName)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			cs.processMessage(ctx, msg)
		}
	}()

	return nil
}

// processMessage always acks. History is best effort and a redelivery loop
// against a database that is down would only add load.
func (cs *consumerService) processMessage(ctx context.Context, msg *message.Message) {
	defer msg.Ack()

	event, err := decodeEvent(msg)
	if err != nil {
		cs.logger.Error("HISTORY", "Failed to unmarshal message", map[string]interface{}{"error": err.Error()})
		return
	}
	if event.Type != events.GenerationCompleted && event.Type != events.GenerationFailed {
		return
	}

	generation := generationFromEvent(event)
	if err := cs.store(ctx, generation); err != nil {
		cs.logger.Error("HISTORY", "Failed to store generation", map[string]interface{}{
			"session_id": generation.SessionId,
			"error":      err.Error(),
		})
		return
	}

	cs.logger.Info("HISTORY", "Generation stored", map[string]interface{}{
		"session_id": generation.SessionId,
		"kind":       generation.Kind,
		"status":     generation.Status,
	})
}

// store inserts the generation unless the session already has one.
func (cs *consumerService) store(ctx context.Context, generation *entity.Generation) error {
	uow := cs.uowFactory.NewUnitOfWork(ctx)
	if err := uow.Begin(ctx); err != nil {
		return err
	}
	defer uow.Rollback()

	existing, err := uow.GenerationRepository().FindOne(ctx,
		specification.ByUserID{UserID: generation.UserId},
		specification.BySessionID{SessionID: generation.SessionId},
	)
	if err != nil {
		return err
	}
	if existing != nil {
		return nil
	}

	if err := uow.GenerationRepository().Create(ctx, generation); err != nil {
		return err
	}
	return uow.Commit()
}

func generationFromEvent(event events.GenerationEvent) *entity.Generation {
	str := func(key string) string {
		s, _ := event.Extra[key].(string)
		return s
	}

	g := &entity.Generation{
		Id:        uuid.New(),
		UserId:    event.UserID,
		SessionId: event.SessionID,
		Source:    entity.GenerationSource(str("source")),
		Kind:      event.Kind,
		Thema:     str("thema"),
		Status:    entity.GenerationStatusCompleted,
		Content:   str("content"),
		Error:     str("error"),
		CreatedAt: event.Timestamp(),
	}
	if g.Source == "" {
		g.Source = entity.GenerationSourceInteractive
	}
	if event.Type == events.GenerationFailed {
		g.Status = entity.GenerationStatusFailed
	}
	if g.CreatedAt.IsZero() {
		g.CreatedAt = time.Now()
	}

	reshape(event.Extra["answers"], &g.Answers)
	reshape(event.Extra["metadata"], &g.Metadata)
	return g
}

// reshape converts a decoded JSON value into dst's type.
func reshape(v interface{}, dst interface{}) {
	if v == nil {
		return
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return
	}
	_ = json.Unmarshal(raw, dst)
}
