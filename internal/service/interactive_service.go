package service

import (
	"context"
	"errors"
	"time"

	"gruenerator-be/internal/dto"
	"gruenerator-be/internal/entity"
	"gruenerator-be/internal/pkg/logger"
	"gruenerator-be/internal/pkg/metrics"
	"gruenerator-be/internal/repository/specification"
	"gruenerator-be/internal/repository/unitofwork"
	"gruenerator-be/pkg/events"
	"gruenerator-be/pkg/interactive"
	"gruenerator-be/pkg/store"
)

// ErrHistoryUnavailable is returned when no database is configured.
var ErrHistoryUnavailable = errors.New("generation history is not available")

const (
	defaultHistoryLimit = 20
	maxHistoryLimit     = 100
)

// InteractiveWorkflow is the part of interactive.Workflow the service drives.
type InteractiveWorkflow interface {
	Initiate(ctx context.Context, req interactive.InitiateRequest) *interactive.InitiateResponse
	Continue(ctx context.Context, req interactive.ContinueRequest) *interactive.ContinueResponse
	GetSession(ctx context.Context, userID, sessionID string) (*store.Session, error)
}

type IInteractiveService interface {
	Initiate(ctx context.Context, req *dto.InitiateRequest) (*dto.InitiateResponse, error)
	Continue(ctx context.Context, req *dto.ContinueRequest) (*dto.ContinueResponse, error)
	GetSession(ctx context.Context, userId, sessionId string) (*store.Session, error)
	ListHistory(ctx context.Context, query *dto.HistoryQuery) (*dto.HistoryResponse, error)
}

type interactiveService struct {
	workflow   InteractiveWorkflow
	publisher  events.Publisher
	uowFactory unitofwork.RepositoryFactory
	metrics    *metrics.Metrics
	logger     logger.ILogger
}

// NewInteractiveService wires the workflow to the event bus and the history
// table. uowFactory may be nil when no database is configured.
func NewInteractiveService(
	workflow InteractiveWorkflow,
	publisher events.Publisher,
	uowFactory unitofwork.RepositoryFactory,
	m *metrics.Metrics,
	log logger.ILogger,
) IInteractiveService {
	return &interactiveService{
		workflow:   workflow,
		publisher:  publisher,
		uowFactory: uowFactory,
		metrics:    m,
		logger:     log,
	}
}

// Initiate returns an error for invalid input only. A failed generation is
// reported in the response body with status "error".
func (s *interactiveService) Initiate(ctx context.Context, req *dto.InitiateRequest) (*dto.InitiateResponse, error) {
	sessionId := req.SessionId
	if sessionId == "" {
		sessionId = interactive.NewSessionID()
	}

	in := interactive.InitiateRequest{
		UserID:        req.UserId,
		SessionID:     sessionId,
		Thema:         req.Thema,
		Details:       req.Details,
		RequestType:   req.RequestType,
		GeneratorType: req.GeneratorType,
		Locale:        req.Locale,
	}
	// Rejected requests never announce a session.
	if err := in.Validate(); err != nil {
		s.metrics.ObserveSession("initiate", interactive.StatusError)
		return nil, err
	}

	s.publish(ctx, events.GenerationEvent{
		Type:      events.GenerationInitiated,
		UserID:    req.UserId,
		SessionID: sessionId,
		Kind:      req.RequestType,
		Extra:     map[string]interface{}{"thema": req.Thema},
	})

	res := s.workflow.Initiate(ctx, in)
	s.metrics.ObserveSession("initiate", res.Status)

	if interactive.IsValidation(res.Err) {
		return nil, res.Err
	}
	s.afterRun(ctx, req.UserId, sessionId, res.Status, len(res.Questions), res.QuestionRound, res.Error)

	return &dto.InitiateResponse{
		Status:            res.Status,
		SessionId:         res.SessionID,
		ConversationState: res.ConversationState,
		QuestionRound:     res.QuestionRound,
		Questions:         res.Questions,
		FinalResult:       res.FinalResult,
		Error:             res.Error,
		Metadata:          res.Metadata,
	}, nil
}

func (s *interactiveService) Continue(ctx context.Context, req *dto.ContinueRequest) (*dto.ContinueResponse, error) {
	res := s.workflow.Continue(ctx, interactive.ContinueRequest{
		UserID:    req.UserId,
		SessionID: req.SessionId,
		Answers:   req.Answers,
	})
	s.metrics.ObserveSession("continue", res.Status)

	if errors.Is(res.Err, interactive.ErrSessionNotFound) {
		return nil, res.Err
	}
	s.afterRun(ctx, req.UserId, req.SessionId, res.Status, len(res.Questions), 0, res.Error)

	return &dto.ContinueResponse{
		Status:            res.Status,
		SessionId:         res.SessionID,
		ConversationState: res.ConversationState,
		Questions:         res.Questions,
		FinalResult:       res.FinalResult,
		Error:             res.Error,
		Metadata:          res.Metadata,
	}, nil
}

// afterRun emits the lifecycle event for the state the run ended in. The
// session snapshot supplies the fields history needs.
func (s *interactiveService) afterRun(ctx context.Context, userId, sessionId, status string, questions, round int, errMsg string) {
	sess, err := s.workflow.GetSession(ctx, userId, sessionId)
	if err != nil {
		sess = &store.Session{SessionID: sessionId, UserID: userId}
	}

	event := events.GenerationEvent{
		UserID:    userId,
		SessionID: sessionId,
		Kind:      sess.RequestType,
		Extra: map[string]interface{}{
			"source": string(entity.GenerationSourceInteractive),
			"thema":  sess.Thema,
		},
	}

	switch status {
	case interactive.StatusSuccess, interactive.StatusInProgress:
		if round == 0 {
			round = sess.QuestionRound
		}
		event.Type = events.GenerationQuestionsAsked
		event.Extra["questions"] = questions
		event.Extra["round"] = round
	case interactive.StatusCompleted:
		event.Type = events.GenerationCompleted
		event.Extra["content"] = sess.FinalResult
		event.Extra["answers"] = sess.Answers
		event.Extra["metadata"] = sess.Metadata
	default:
		event.Type = events.GenerationFailed
		event.Extra["error"] = errMsg
		event.Extra["answers"] = sess.Answers
		event.Extra["metadata"] = sess.Metadata
	}
	s.publish(ctx, event)
}

func (s *interactiveService) publish(ctx context.Context, event events.GenerationEvent) {
	if s.publisher == nil {
		return
	}
	event.At = time.Now()
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.Warn("INTERACTIVE", "Failed to publish event", map[string]interface{}{
			"type":       event.Type,
			"session_id": event.SessionID,
			"error":      err.Error(),
		})
	}
}

func (s *interactiveService) GetSession(ctx context.Context, userId, sessionId string) (*store.Session, error) {
	return s.workflow.GetSession(ctx, userId, sessionId)
}

func (s *interactiveService) ListHistory(ctx context.Context, query *dto.HistoryQuery) (*dto.HistoryResponse, error) {
	if s.uowFactory == nil {
		return nil, ErrHistoryUnavailable
	}

	limit := query.Limit
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}
	page := query.Page
	if page <= 0 {
		page = 1
	}

	repo := s.uowFactory.NewUnitOfWork(ctx).GenerationRepository()
	filters := []specification.Specification{
		specification.ByUserID{UserID: query.UserId},
		specification.ByKind{Kind: query.Kind},
	}

	total, err := repo.Count(ctx, filters...)
	if err != nil {
		return nil, err
	}
	generations, err := repo.FindAll(ctx, append(filters,
		specification.OrderBy{Field: "created_at", Desc: true},
		specification.Pagination{Limit: limit, Offset: (page - 1) * limit},
	)...)
	if err != nil {
		return nil, err
	}

	items := make([]*dto.GenerationHistoryItem, 0, len(generations))
	for _, g := range generations {
		items = append(items, &dto.GenerationHistoryItem{
			Id:        g.Id,
			SessionId: g.SessionId,
			Source:    string(g.Source),
			Kind:      g.Kind,
			Thema:     g.Thema,
			Status:    string(g.Status),
			Content:   g.Content,
			Error:     g.Error,
			Metadata:  g.Metadata,
			CreatedAt: g.CreatedAt,
		})
	}

	return &dto.HistoryResponse{Items: items, Total: total, Page: page, Limit: limit}, nil
}
