package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"gruenerator-be/internal/dto"
	"gruenerator-be/internal/entity"
	"gruenerator-be/internal/pkg/logger"
	"gruenerator-be/internal/pkg/metrics"
	"gruenerator-be/internal/repository/memory"
	"gruenerator-be/pkg/ai/pipeline"
	"gruenerator-be/pkg/ai/router"
	"gruenerator-be/pkg/events"
	"gruenerator-be/pkg/intent"
	"gruenerator-be/pkg/interactive"
	"gruenerator-be/pkg/store"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.GenerationEvent
}

func (p *recordingPublisher) Publish(_ context.Context, e events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e.(events.GenerationEvent))
	return nil
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []string
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

func (p *recordingPublisher) last(eventType string) events.GenerationEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i := len(p.events) - 1; i >= 0; i-- {
		if p.events[i].Type == eventType {
			return p.events[i]
		}
	}
	return events.GenerationEvent{}
}

type fakeWorkflow struct {
	initiate *interactive.InitiateResponse
	cont     *interactive.ContinueResponse
	session  *store.Session
	gotInit  interactive.InitiateRequest
}

func (f *fakeWorkflow) Initiate(_ context.Context, req interactive.InitiateRequest) *interactive.InitiateResponse {
	f.gotInit = req
	return f.initiate
}

func (f *fakeWorkflow) Continue(context.Context, interactive.ContinueRequest) *interactive.ContinueResponse {
	return f.cont
}

func (f *fakeWorkflow) GetSession(context.Context, string, string) (*store.Session, error) {
	if f.session == nil {
		return nil, store.ErrSessionNotFound
	}
	return f.session, nil
}

func TestInteractiveServiceInitiate(t *testing.T) {
	t.Run("completed run emits initiated and completed", func(t *testing.T) {
		wf := &fakeWorkflow{
			initiate: &interactive.InitiateResponse{
				Status:            interactive.StatusCompleted,
				SessionID:         "s1",
				ConversationState: store.StateCompleted,
				FinalResult:       "Antragstext",
				Metadata:          map[string]interface{}{},
			},
			session: &store.Session{
				SessionID:   "s1",
				UserID:      "u1",
				Thema:       "Radwege",
				RequestType: "antrag",
				FinalResult: "Antragstext",
				Answers:     store.Answers{"round1": {"q1": "Familien"}},
			},
		}
		pub := &recordingPublisher{}
		svc := NewInteractiveService(wf, pub, nil, metrics.New(), logger.NewNopLogger())

		res, err := svc.Initiate(context.Background(), &dto.InitiateRequest{
			UserId: "u1", SessionId: "s1", Thema: "Radwege", Details: "mehr Radwege", RequestType: "antrag",
		})
		require.NoError(t, err)
		assert.Equal(t, interactive.StatusCompleted, res.Status)
		assert.Equal(t, "Antragstext", res.FinalResult)
		assert.Equal(t, "s1", wf.gotInit.SessionID)

		assert.Equal(t, []string{events.GenerationInitiated, events.GenerationCompleted}, pub.types())
		done := pub.last(events.GenerationCompleted)
		assert.Equal(t, "antrag", done.Kind)
		assert.Equal(t, "Antragstext", done.Extra["content"])
		assert.Equal(t, "Radwege", done.Extra["thema"])
	})

	t.Run("session id is allocated before the run", func(t *testing.T) {
		wf := &fakeWorkflow{initiate: &interactive.InitiateResponse{
			Status: interactive.StatusSuccess, QuestionRound: 1,
			Questions: []store.Question{{ID: "q1"}},
		}}
		pub := &recordingPublisher{}
		svc := NewInteractiveService(wf, pub, nil, metrics.New(), logger.NewNopLogger())

		_, err := svc.Initiate(context.Background(), &dto.InitiateRequest{UserId: "u1", Thema: "t", Details: "d", RequestType: "antrag"})
		require.NoError(t, err)
		assert.NotEmpty(t, wf.gotInit.SessionID)
		assert.Equal(t, wf.gotInit.SessionID, pub.last(events.GenerationInitiated).SessionID)

		asked := pub.last(events.GenerationQuestionsAsked)
		assert.Equal(t, 1, asked.Extra["questions"])
		assert.Equal(t, 1, asked.Extra["round"])
	})

	t.Run("validation error is returned", func(t *testing.T) {
		verr := &interactive.ValidationError{Fields: []string{"thema"}}
		wf := &fakeWorkflow{initiate: &interactive.InitiateResponse{Status: interactive.StatusError, Err: verr}}
		svc := NewInteractiveService(wf, nil, nil, metrics.New(), logger.NewNopLogger())

		_, err := svc.Initiate(context.Background(), &dto.InitiateRequest{UserId: "u1"})
		assert.ErrorAs(t, err, &verr)
	})

	t.Run("blank fields publish nothing", func(t *testing.T) {
		wf := &fakeWorkflow{}
		pub := &recordingPublisher{}
		svc := NewInteractiveService(wf, pub, nil, metrics.New(), logger.NewNopLogger())

		_, err := svc.Initiate(context.Background(), &dto.InitiateRequest{
			UserId: "u1", Thema: "  ", Details: "\t", RequestType: "antrag",
		})
		var verr *interactive.ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, []string{"thema", "details"}, verr.Fields)
		assert.Empty(t, pub.types())
		assert.Empty(t, wf.gotInit.UserID, "workflow is not started")
	})

	t.Run("generation failure stays in the body", func(t *testing.T) {
		wf := &fakeWorkflow{initiate: &interactive.InitiateResponse{
			Status: interactive.StatusError,
			Error:  "model down",
			Err:    &interactive.GenerationError{Message: "model down"},
		}}
		pub := &recordingPublisher{}
		svc := NewInteractiveService(wf, pub, nil, metrics.New(), logger.NewNopLogger())

		res, err := svc.Initiate(context.Background(), &dto.InitiateRequest{
			UserId: "u1", SessionId: "s9", Thema: "t", Details: "d", RequestType: "antrag",
		})
		require.NoError(t, err)
		assert.Equal(t, "model down", res.Error)
		assert.Equal(t, "model down", pub.last(events.GenerationFailed).Extra["error"])
	})
}

func TestInteractiveServiceContinueUnknownSession(t *testing.T) {
	wf := &fakeWorkflow{cont: &interactive.ContinueResponse{Status: interactive.StatusError, Err: interactive.ErrSessionNotFound}}
	pub := &recordingPublisher{}
	svc := NewInteractiveService(wf, pub, nil, metrics.New(), logger.NewNopLogger())

	_, err := svc.Continue(context.Background(), &dto.ContinueRequest{UserId: "u1", SessionId: "gone"})
	assert.ErrorIs(t, err, interactive.ErrSessionNotFound)
	assert.Empty(t, pub.types())
}

func TestListHistoryWithoutDatabase(t *testing.T) {
	svc := NewInteractiveService(&fakeWorkflow{}, nil, nil, metrics.New(), logger.NewNopLogger())
	_, err := svc.ListHistory(context.Background(), &dto.HistoryQuery{UserId: "u1"})
	assert.ErrorIs(t, err, ErrHistoryUnavailable)
}

type fakeRunner struct {
	mu   sync.Mutex
	fail map[intent.Agent]bool
	seen []pipeline.Request
}

func (r *fakeRunner) Run(_ context.Context, req pipeline.Request) (*pipeline.Result, error) {
	r.mu.Lock()
	r.seen = append(r.seen, req)
	r.mu.Unlock()
	if r.fail[req.Agent] {
		return nil, errors.New("provider unavailable")
	}
	return &pipeline.Result{Agent: req.Agent, Route: req.Route, Content: "Text für " + string(req.Agent), Params: req.Params}, nil
}

type fixedClassifier struct {
	result *intent.ClassificationResult
	gotCtx intent.ClassificationContext
}

func (c *fixedClassifier) Classify(_ context.Context, _ string, cctx intent.ClassificationContext) *intent.ClassificationResult {
	c.gotCtx = cctx
	return c.result
}

type fakeInteractive struct {
	IInteractiveService
	got *dto.InitiateRequest
}

func (f *fakeInteractive) Initiate(_ context.Context, req *dto.InitiateRequest) (*dto.InitiateResponse, error) {
	f.got = req
	return &dto.InitiateResponse{Status: interactive.StatusSuccess, SessionId: "s1"}, nil
}

func newChat(t *testing.T, cls IntentClassifier, runner *fakeRunner, inter IInteractiveService, pub events.Publisher) (IChatService, *memory.ChatMemory) {
	t.Helper()
	r, err := router.NewRouter(map[string]router.Runner{
		intent.RouteUniversal:    runner,
		intent.RouteAntragSimple: runner,
		intent.RouteSocial:       runner,
	}, logger.NewNopLogger())
	require.NoError(t, err)
	mem := memory.NewChatMemory(time.Minute, 10)
	return NewChatService(cls, r, inter, mem, pub, metrics.New(), logger.NewNopLogger()), mem
}

func agentIntent(t *testing.T, name intent.Agent) intent.Intent {
	t.Helper()
	spec, ok := intent.Lookup(string(name))
	require.True(t, ok)
	return intent.Intent{Agent: spec.Agent, Route: spec.Route, Params: spec.DefaultParams(), Confidence: 0.9}
}

func TestChatServiceAgentDirective(t *testing.T) {
	runner := &fakeRunner{}
	cls := &fixedClassifier{}
	pub := &recordingPublisher{}
	svc, mem := newChat(t, cls, runner, nil, pub)

	res, err := svc.SendMessage(context.Background(), &dto.ChatRequest{UserId: "u1", Message: "/agent:antrag Tempo 30 vor Schulen"})
	require.NoError(t, err)

	assert.Equal(t, ModeSingle, res.Mode)
	assert.Nil(t, res.Classification, "directive skips classification")
	require.True(t, res.Result.Success)
	assert.Equal(t, "Text für antrag", res.Result.Result.Content)
	assert.Equal(t, "Tempo 30 vor Schulen", runner.seen[0].Message)

	assert.Equal(t, "antrag", mem.Get("u1").PreviousAgent)
	assert.Equal(t, []string{events.ChatDispatched, events.GenerationCompleted}, pub.types())
	assert.Equal(t, string(entity.GenerationSourceChat), pub.last(events.GenerationCompleted).Extra["source"])

	_, err = svc.SendMessage(context.Background(), &dto.ChatRequest{UserId: "u1", Message: "/agent:lyrik Gedicht"})
	var fe *fiber.Error
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, fiber.StatusBadRequest, fe.Code)
}

func TestChatServiceMultiIntent(t *testing.T) {
	runner := &fakeRunner{fail: map[intent.Agent]bool{intent.AgentSocialMedia: true}}
	cls := &fixedClassifier{result: &intent.ClassificationResult{
		IsMultiIntent: true,
		Intents:       []intent.Intent{agentIntent(t, intent.AgentAntrag), agentIntent(t, intent.AgentSocialMedia)},
		Method:        intent.MethodAI,
	}}
	pub := &recordingPublisher{}
	svc, mem := newChat(t, cls, runner, nil, pub)
	mem.Record("u1", "rede", "vorher", "Rede")

	res, err := svc.SendMessage(context.Background(), &dto.ChatRequest{UserId: "u1", Message: "Antrag und Instagram-Post zu Radwegen"})
	require.NoError(t, err)

	assert.Equal(t, ModeMulti, res.Mode)
	assert.Equal(t, "rede", cls.gotCtx.PreviousAgent)
	assert.Len(t, cls.gotCtx.History, 2)

	require.Len(t, res.Dispatch.Results, 2)
	assert.True(t, res.Dispatch.Results[0].Success)
	assert.False(t, res.Dispatch.Results[1].Success)
	assert.Equal(t, 1, res.Dispatch.Metadata.FailedIntents)

	assert.Equal(t, "antrag", mem.Get("u1").PreviousAgent)
	assert.Contains(t, pub.types(), events.GenerationFailed)
}

func TestChatServiceInteractiveDirective(t *testing.T) {
	cls := &fixedClassifier{result: &intent.ClassificationResult{
		Intents: []intent.Intent{agentIntent(t, intent.AgentPressemitteilung)},
		Method:  intent.MethodKeyword,
	}}
	inter := &fakeInteractive{}
	svc, _ := newChat(t, cls, &fakeRunner{}, inter, nil)

	res, err := svc.SendMessage(context.Background(), &dto.ChatRequest{UserId: "u1", Message: "/interactive Pressemitteilung zum Klimaplan\nmit Zahlen"})
	require.NoError(t, err)
	assert.Equal(t, ModeInteractive, res.Mode)
	assert.Equal(t, "pressemitteilung", inter.got.RequestType)
	assert.Equal(t, "Pressemitteilung zum Klimaplan", inter.got.Thema)

	_, err = svc.SendMessage(context.Background(), &dto.ChatRequest{UserId: "u1", Message: "/interactive:rede Rede zum Haushalt"})
	require.NoError(t, err)
	assert.Equal(t, "rede", inter.got.RequestType)

	_, err = svc.SendMessage(context.Background(), &dto.ChatRequest{UserId: "u1", Message: "/interactive"})
	assert.Error(t, err)
}

type recordingSender struct {
	mu    sync.Mutex
	sent  []string
	users []string
}

func (s *recordingSender) Send(_ context.Context, userID, msgType string, _ interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, msgType)
	s.users = append(s.users, userID)
}

func (s *recordingSender) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sent)
}

func TestProgressServiceForwardsEvents(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	bus := gochannel.NewGoChannel(gochannel.Config{}, watermill.NopLogger{})
	defer bus.Close()

	sender := &recordingSender{}
	require.NoError(t, NewProgressService(bus, GenerationTopic, sender, logger.NewNopLogger()).Consume(ctx))

	pub := NewPublisherService(GenerationTopic, bus)
	require.NoError(t, pub.Publish(ctx, events.GenerationEvent{Type: events.GenerationProgress, UserID: "u1", SessionID: "s1"}))
	require.NoError(t, pub.Publish(ctx, events.GenerationEvent{Type: events.GenerationProgress, SessionID: "anonymous"}))
	require.NoError(t, pub.Publish(ctx, events.GenerationEvent{Type: events.GenerationCompleted, UserID: "u1", SessionID: "s1"}))

	require.Eventually(t, func() bool { return sender.count() == 2 }, time.Second, 5*time.Millisecond)
	sender.mu.Lock()
	defer sender.mu.Unlock()
	assert.ElementsMatch(t, []string{events.GenerationProgress, events.GenerationCompleted}, sender.sent)
	assert.Equal(t, []string{"u1", "u1"}, sender.users)
}

func TestGenerationFromEvent(t *testing.T) {
	at := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	g := generationFromEvent(events.GenerationEvent{
		Type:      events.GenerationFailed,
		UserID:    "u1",
		SessionID: "s1",
		Kind:      "antrag",
		Extra: map[string]interface{}{
			"thema":    "Radwege",
			"error":    "model down",
			"answers":  map[string]interface{}{"round1": map[string]interface{}{"q1": "Familien"}},
			"metadata": map[string]interface{}{"sourcesUsed": float64(3)},
		},
		At: at,
	})

	assert.Equal(t, entity.GenerationStatusFailed, g.Status)
	assert.Equal(t, entity.GenerationSourceInteractive, g.Source)
	assert.Equal(t, "Radwege", g.Thema)
	assert.Equal(t, "Familien", g.Answers["round1"]["q1"])
	assert.Equal(t, float64(3), g.Metadata["sourcesUsed"])
	assert.Equal(t, at, g.CreatedAt)
}
