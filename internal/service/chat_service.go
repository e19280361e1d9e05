package service

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"gruenerator-be/internal/constant"
	"gruenerator-be/internal/dto"
	"gruenerator-be/internal/entity"
	"gruenerator-be/internal/pkg/logger"
	"gruenerator-be/internal/pkg/metrics"
	"gruenerator-be/internal/repository/memory"
	"gruenerator-be/pkg/ai/router"
	"gruenerator-be/pkg/events"
	"gruenerator-be/pkg/intent"
	"gruenerator-be/pkg/llm"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

const (
	ModeSingle      = "single"
	ModeMulti       = "multi"
	ModeInteractive = "interactive"

	chatThemaRunes = 120
)

// IntentClassifier is satisfied by *intent.Classifier.
type IntentClassifier interface {
	Classify(ctx context.Context, message string, cctx intent.ClassificationContext) *intent.ClassificationResult
}

type IChatService interface {
	Classify(ctx context.Context, req *dto.ClassifyRequest) (*intent.ClassificationResult, error)
	SendMessage(ctx context.Context, req *dto.ChatRequest) (*dto.ChatResponse, error)
}

type chatService struct {
	classifier  IntentClassifier
	router      *router.Router
	interactive IInteractiveService
	memory      *memory.ChatMemory
	publisher   events.Publisher
	metrics     *metrics.Metrics
	logger      logger.ILogger
}

func NewChatService(
	classifier IntentClassifier,
	r *router.Router,
	interactiveService IInteractiveService,
	chatMemory *memory.ChatMemory,
	publisher events.Publisher,
	m *metrics.Metrics,
	log logger.ILogger,
) IChatService {
	return &chatService{
		classifier:  classifier,
		router:      r,
		interactive: interactiveService,
		memory:      chatMemory,
		publisher:   publisher,
		metrics:     m,
		logger:      log,
	}
}

func (s *chatService) Classify(ctx context.Context, req *dto.ClassifyRequest) (*intent.ClassificationResult, error) {
	result := s.classifier.Classify(ctx, req.Message, intent.ClassificationContext{
		PreviousAgent: req.PreviousAgent,
		History:       toMessages(req.History),
		HasImage:      req.HasImage,
	})
	s.metrics.ObserveClassification(string(result.Method), result.IsMultiIntent)
	return result, nil
}

// SendMessage honours /interactive and /agent: directives, otherwise it
// classifies the message and runs one or all detected intents.
func (s *chatService) SendMessage(ctx context.Context, req *dto.ChatRequest) (*dto.ChatResponse, error) {
	parsed := router.Parse(req.Message)
	if parsed.IsEmpty() {
		return nil, fiber.NewError(fiber.StatusBadRequest, "message is empty")
	}

	remembered := s.memory.Get(req.UserId)
	history := toMessages(req.History)
	if len(history) == 0 {
		history = remembered.History
	}
	if len(history) > constant.ChatHistoryLimit {
		history = history[len(history)-constant.ChatHistoryLimit:]
	}
	base := router.BaseContext{UserID: req.UserId, Message: parsed.CleanPrompt, History: history}

	switch parsed.Mode {
	case router.ModeInteractive:
		return s.startInteractive(ctx, req.UserId, parsed, remembered.PreviousAgent)

	case router.ModeAgent:
		spec, ok := intent.Lookup(parsed.AgentKey)
		if !ok {
			return nil, fiber.NewError(fiber.StatusBadRequest, "unknown agent: "+parsed.AgentKey)
		}
		in := intent.Intent{Agent: spec.Agent, Route: spec.Route, Params: spec.DefaultParams(), Confidence: 1}
		res := s.runSingle(ctx, in, base)
		return &dto.ChatResponse{Mode: ModeSingle, Result: res}, nil
	}

	classification := s.classifier.Classify(ctx, parsed.CleanPrompt, intent.ClassificationContext{
		PreviousAgent: remembered.PreviousAgent,
		History:       history,
	})
	s.metrics.ObserveClassification(string(classification.Method), classification.IsMultiIntent)

	if classification.IsMultiIntent {
		dispatch := s.router.DispatchMultiIntent(ctx, classification.Intents, base)
		var replies []string
		for _, r := range dispatch.Results {
			s.afterIntent(ctx, base, r)
			if r.Success {
				replies = append(replies, r.Result.Content)
			}
		}
		s.memory.Record(req.UserId, lastAgent(dispatch.Results), parsed.CleanPrompt, strings.Join(replies, "\n\n"))
		return &dto.ChatResponse{Mode: ModeMulti, Classification: classification, Dispatch: dispatch}, nil
	}

	res := s.runSingle(ctx, classification.Intents[0], base)
	return &dto.ChatResponse{Mode: ModeSingle, Classification: classification, Result: res}, nil
}

// runSingle reports a failed intent in the result instead of failing the
// request, the same way the multi-intent path does.
func (s *chatService) runSingle(ctx context.Context, in intent.Intent, base router.BaseContext) *router.IntentResult {
	res := &router.IntentResult{Agent: in.Agent, Route: in.Route}
	out, err := s.router.Route(ctx, in, base)
	if err != nil {
		res.Error = err.Error()
	} else {
		res.Success = true
		res.Result = out
	}
	s.afterIntent(ctx, base, *res)

	reply := ""
	if res.Success {
		reply = out.Content
	}
	s.memory.Record(base.UserID, string(in.Agent), base.Message, reply)
	return res
}

func (s *chatService) afterIntent(ctx context.Context, base router.BaseContext, r router.IntentResult) {
	s.metrics.ObserveDispatch(string(r.Agent), r.Success)
	if s.publisher == nil {
		return
	}

	sessionId := "chat_" + uuid.NewString()
	thema := chatThema(base.Message)
	pending := []events.GenerationEvent{{
		Type:      events.ChatDispatched,
		UserID:    base.UserID,
		SessionID: sessionId,
		Kind:      string(r.Agent),
		Extra:     map[string]interface{}{"route": r.Route, "success": r.Success},
	}}

	final := events.GenerationEvent{
		UserID:    base.UserID,
		SessionID: sessionId,
		Kind:      string(r.Agent),
		Extra: map[string]interface{}{
			"source": string(entity.GenerationSourceChat),
			"thema":  thema,
		},
	}
	if r.Success {
		final.Type = events.GenerationCompleted
		final.Extra["content"] = r.Result.Content
		final.Extra["metadata"] = map[string]interface{}{"route": r.Route, "params": r.Result.Params}
	} else {
		final.Type = events.GenerationFailed
		final.Extra["error"] = r.Error
		final.Extra["metadata"] = map[string]interface{}{"route": r.Route}
	}
	pending = append(pending, final)

	for _, e := range pending {
		e.At = time.Now()
		if err := s.publisher.Publish(ctx, e); err != nil {
			s.logger.Warn("CHAT", "Failed to publish event", map[string]interface{}{"type": e.Type, "error": err.Error()})
		}
	}
}

// startInteractive hands the message to the interactive workflow. Without
// an explicit type the classifier picks the request type.
func (s *chatService) startInteractive(ctx context.Context, userId string, parsed *router.ParsedPrompt, previousAgent string) (*dto.ChatResponse, error) {
	requestType := parsed.AgentKey
	var classification *intent.ClassificationResult
	if requestType == "" {
		classification = s.classifier.Classify(ctx, parsed.CleanPrompt, intent.ClassificationContext{PreviousAgent: previousAgent})
		s.metrics.ObserveClassification(string(classification.Method), classification.IsMultiIntent)
		requestType = string(classification.Intents[0].Agent)
	}

	res, err := s.interactive.Initiate(ctx, &dto.InitiateRequest{
		UserId:      userId,
		Thema:       chatThema(parsed.CleanPrompt),
		Details:     parsed.CleanPrompt,
		RequestType: requestType,
	})
	if err != nil {
		return nil, err
	}
	s.memory.Record(userId, requestType, parsed.CleanPrompt, res.FinalResult)
	return &dto.ChatResponse{Mode: ModeInteractive, Classification: classification, Interactive: res}, nil
}

func lastAgent(results []router.IntentResult) string {
	for i := len(results) - 1; i >= 0; i-- {
		if results[i].Success {
			return string(results[i].Agent)
		}
	}
	return ""
}

// chatThema is the first line of the message, cut at chatThemaRunes.
func chatThema(message string) string {
	line := strings.TrimSpace(strings.SplitN(message, "\n", 2)[0])
	if utf8.RuneCountInString(line) <= chatThemaRunes {
		return line
	}
	return string([]rune(line)[:chatThemaRunes]) + "…"
}

func toMessages(items []dto.ChatHistoryItem) []llm.Message {
	out := make([]llm.Message, 0, len(items))
	for _, it := range items {
		out = append(out, llm.Message{Role: it.Role, Content: it.Content})
	}
	return out
}
