package interactive

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gruenerator-be/internal/pkg/logger"
	"gruenerator-be/pkg/crawler"
	"gruenerator-be/pkg/enrichment"
	"gruenerator-be/pkg/llm"
	"gruenerator-be/pkg/prompt"
	"gruenerator-be/pkg/store"
	"gruenerator-be/pkg/websearch"
	"gruenerator-be/pkg/workflow"
)

var schema = workflow.Schema{
	keyAnswers:         workflow.ShallowMerge,
	keyMetadata:        workflow.ShallowMerge,
	keyEnrichedContext: workflow.ShallowMerge,
}

// Deps are the collaborators of the workflow. Searcher, Crawler and Enricher
// are optional.
type Deps struct {
	Provider    llm.Provider
	Searcher    websearch.Searcher
	Crawler     crawler.Crawler
	Enricher    enrichment.Enricher
	Assembler   prompt.Assembler
	Catalog     *prompt.Catalog
	Sessions    store.SessionStore
	Checkpoints workflow.CheckpointStore
	Logger      logger.ILogger
}

type Config struct {
	MaxSearchResults int
	ResultsPerQuery  int
	CrawlEnabled     bool
	CrawlCandidates  int
	MaxCrawlURLs     int
	CrawlTimeout     time.Duration
	MaxContentLength int
	MaxQuestions     int
	Temperature      float64
	MaxTokens        int
}

func (c Config) withDefaults() Config {
	if c.MaxSearchResults <= 0 {
		c.MaxSearchResults = 8
	}
	if c.ResultsPerQuery <= 0 {
		c.ResultsPerQuery = 4
	}
	if c.CrawlCandidates <= 0 {
		c.CrawlCandidates = 6
	}
	if c.MaxCrawlURLs <= 0 {
		c.MaxCrawlURLs = 3
	}
	if c.CrawlTimeout <= 0 {
		c.CrawlTimeout = 10 * time.Second
	}
	if c.MaxContentLength <= 0 {
		c.MaxContentLength = 8000
	}
	if c.MaxQuestions <= 0 {
		c.MaxQuestions = 5
	}
	if c.Temperature == 0 {
		c.Temperature = 0.7
	}
	return c
}

// Workflow is the compiled interactive generation graph.
type Workflow struct {
	deps   Deps
	cfg    Config
	graph  *workflow.CompiledGraph
	logger logger.ILogger
}

func New(deps Deps, cfg Config, opts ...workflow.Option) (*Workflow, error) {
	if deps.Provider == nil || deps.Sessions == nil || deps.Checkpoints == nil {
		return nil, errors.New("interactive: provider, session store and checkpoint store are required")
	}
	if deps.Catalog == nil {
		deps.Catalog = prompt.MustDefaultCatalog()
	}
	if deps.Assembler == nil {
		deps.Assembler = prompt.NewCatalogAssembler(deps.Catalog)
	}
	if deps.Logger == nil {
		deps.Logger = logger.NewNopLogger()
	}

	w := &Workflow{deps: deps, cfg: cfg.withDefaults(), logger: deps.Logger}

	g := workflow.NewGraph(schema).
		AddNode(NodeInitiate, w.initiate).
		AddNode(NodeWebSearch, w.webSearch).
		AddNode(NodeIntelligentCrawler, w.intelligentCrawler).
		AddNode(NodeContentEnricher, w.contentEnricher).
		AddNode(NodeGenerateQuestions, w.generateQuestions).
		AddNode(NodeAwaitAnswers, w.awaitAnswers).
		AddNode(NodeAnalyzeAnswers, w.analyzeAnswers).
		AddNode(NodeSummarizeAnswers, w.summarizeAnswers).
		AddNode(NodeDocumentEnrichment, w.documentEnrichment).
		AddNode(NodeFinalGeneration, w.finalGeneration).
		AddConditionalEdge(NodeInitiate, unlessFailed(NodeWebSearch), NodeWebSearch).
		AddConditionalEdge(NodeWebSearch, w.afterSearch, NodeIntelligentCrawler, NodeGenerateQuestions).
		AddConditionalEdge(NodeIntelligentCrawler, unlessFailed(NodeContentEnricher), NodeContentEnricher).
		AddConditionalEdge(NodeContentEnricher, unlessFailed(NodeGenerateQuestions), NodeGenerateQuestions).
		AddConditionalEdge(NodeGenerateQuestions, afterQuestions, NodeAwaitAnswers, NodeDocumentEnrichment).
		AddEdge(NodeAwaitAnswers, NodeAnalyzeAnswers).
		AddConditionalEdge(NodeAnalyzeAnswers, unlessFailed(NodeSummarizeAnswers), NodeSummarizeAnswers).
		AddConditionalEdge(NodeSummarizeAnswers, unlessFailed(NodeDocumentEnrichment), NodeDocumentEnrichment).
		AddConditionalEdge(NodeDocumentEnrichment, unlessFailed(NodeFinalGeneration), NodeFinalGeneration).
		AddEdge(NodeFinalGeneration, workflow.End).
		SetEntryPoint(NodeInitiate)

	all := append([]workflow.Option{
		workflow.WithObserver(w.persist),
		workflow.WithPanicHandler(w.recovered),
	}, opts...)

	graph, err := g.Compile(deps.Checkpoints, all...)
	if err != nil {
		return nil, fmt.Errorf("compile interactive workflow: %w", err)
	}
	w.graph = graph
	return w, nil
}

func unlessFailed(next string) workflow.Selector {
	return func(s workflow.State) string {
		if workflow.GetOr(s, keyConversationState, store.ConversationState("")) == store.StateError {
			return workflow.End
		}
		return next
	}
}

func (w *Workflow) afterSearch(s workflow.State) string {
	if workflow.GetOr(s, keyConversationState, store.ConversationState("")) == store.StateError {
		return workflow.End
	}
	results := workflow.GetOr(s, keySearchResults, []store.SearchResult{})
	if w.cfg.CrawlEnabled && w.deps.Crawler != nil && len(results) > 0 {
		return NodeIntelligentCrawler
	}
	return NodeGenerateQuestions
}

func afterQuestions(s workflow.State) string {
	switch workflow.GetOr(s, keyConversationState, store.ConversationState("")) {
	case store.StateError:
		return workflow.End
	case store.StateQuestionsGenerated:
		return NodeAwaitAnswers
	default:
		return NodeDocumentEnrichment
	}
}

// persist writes the session snapshot after every node.
func (w *Workflow) persist(ctx context.Context, ev workflow.NodeEvent) {
	sess := SessionFromState(ev.State)
	if sess.UserID == "" || sess.SessionID == "" {
		return
	}
	if err := w.deps.Sessions.Set(ctx, sess.UserID, sess); err != nil {
		w.logger.Error("INTERACTIVE", "Failed to persist session", map[string]interface{}{
			"session_id": sess.SessionID,
			"node":       ev.Node,
			"error":      err.Error(),
		})
	}
}

func (w *Workflow) recovered(node string, r interface{}) workflow.State {
	w.logger.Error("INTERACTIVE", "Node panicked", map[string]interface{}{"node": node, "panic": fmt.Sprint(r)})
	return workflow.State{
		keyConversationState: store.StateError,
		keyError:             fmt.Sprintf("internal error in %s", node),
		keyErrorType:         errorTypeGeneration,
	}
}

// SessionFromState builds the persisted snapshot of a workflow state.
func SessionFromState(s workflow.State) *store.Session {
	sess := &store.Session{
		SessionID:         workflow.GetOr(s, keySessionID, ""),
		UserID:            workflow.GetOr(s, keyUserID, ""),
		ConversationState: workflow.GetOr(s, keyConversationState, store.ConversationState("")),
		Thema:             workflow.GetOr(s, keyThema, ""),
		Details:           workflow.GetOr(s, keyDetails, ""),
		RequestType:       workflow.GetOr(s, keyRequestType, ""),
		GeneratorType:     workflow.GetOr(s, keyGeneratorType, ""),
		Locale:            workflow.GetOr(s, keyLocale, ""),
		QuestionRound:     workflow.GetOr(s, keyQuestionRound, 0),
		Questions:         workflow.GetOr(s, keyQuestions, []store.Question{}),
		Answers:           workflow.GetOr(s, keyAnswers, store.Answers{}),
		SearchResults:     workflow.GetOr(s, keySearchResults, []store.SearchResult{}),
		EnrichedContext:   workflow.GetOr(s, keyEnrichedContext, map[string]interface{}{}),
		AnswerSummary:     workflow.GetOr(s, keyAnswerSummary, ""),
		FinalResult:       workflow.GetOr(s, keyFinalResult, ""),
		Error:             workflow.GetOr(s, keyError, ""),
		Metadata:          workflow.GetOr(s, keyMetadata, map[string]interface{}{}),
		CreatedAt:         workflow.GetOr(s, keyCreatedAt, time.Time{}),
		UpdatedAt:         time.Now(),
	}
	return sess
}

// Initiate starts a session. It returns the questions to ask, or the final
// text when no clarification was needed.
func (w *Workflow) Initiate(ctx context.Context, req InitiateRequest) *InitiateResponse {
	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = NewSessionID()
	}

	initial := workflow.State{
		keySessionID:     sessionID,
		keyUserID:        req.UserID,
		keyThema:         req.Thema,
		keyDetails:       req.Details,
		keyRequestType:   req.RequestType,
		keyGeneratorType: req.GeneratorType,
		keyLocale:        req.Locale,
		keyQuestionRound: 0,
		keyAnswers:       map[string]interface{}{},
		keyMetadata:      map[string]interface{}{},
		keyCreatedAt:     time.Now(),
	}

	res, err := w.graph.Invoke(ctx, initial, sessionID)
	if err != nil {
		w.logger.Error("INTERACTIVE", "Workflow aborted", map[string]interface{}{"session_id": sessionID, "error": err.Error()})
		return &InitiateResponse{
			Status:            StatusError,
			SessionID:         sessionID,
			ConversationState: store.StateError,
			Error:             err.Error(),
			Metadata:          map[string]interface{}{},
			Err:               err,
		}
	}

	s := res.State
	resp := &InitiateResponse{
		SessionID:         sessionID,
		ConversationState: workflow.GetOr(s, keyConversationState, store.ConversationState("")),
		QuestionRound:     workflow.GetOr(s, keyQuestionRound, 0),
		Metadata:          workflow.GetOr(s, keyMetadata, map[string]interface{}{}),
	}

	switch {
	case res.Interrupted():
		payload, _ := res.Interrupts[0].Value.(QuestionsPayload)
		resp.Status = StatusSuccess
		resp.Questions = payload.Questions
		resp.QuestionRound = payload.QuestionRound
	case resp.ConversationState == store.StateCompleted:
		resp.Status = StatusCompleted
		resp.FinalResult = workflow.GetOr(s, keyFinalResult, "")
	default:
		resp.Status = StatusError
		resp.Error = workflow.GetOr(s, keyError, "unknown error")
		resp.Err = stateError(s)
	}

	w.logger.Info("INTERACTIVE", "Session initiated", map[string]interface{}{
		"session_id": sessionID,
		"status":     resp.Status,
		"state":      resp.ConversationState,
		"questions":  len(resp.Questions),
	})
	return resp
}

// Continue resumes a suspended session with the user's answers. A session
// whose checkpoint was already consumed is reported as not found.
func (w *Workflow) Continue(ctx context.Context, req ContinueRequest) *ContinueResponse {
	notFound := &ContinueResponse{
		Status:            StatusError,
		SessionID:         req.SessionID,
		ConversationState: store.StateError,
		Error:             ErrSessionNotFound.Error(),
		Metadata:          map[string]interface{}{},
		Err:               ErrSessionNotFound,
	}

	sess, err := w.deps.Sessions.Get(ctx, req.UserID, req.SessionID)
	if err != nil {
		if !errors.Is(err, store.ErrSessionNotFound) {
			w.logger.Error("INTERACTIVE", "Session lookup failed", map[string]interface{}{"session_id": req.SessionID, "error": err.Error()})
		}
		return notFound
	}

	answers := req.Answers
	if answers == nil {
		answers = map[string]interface{}{}
	}
	label := RoundLabel(sess.QuestionRound)

	res, err := w.graph.Resume(ctx, workflow.ResumeCommand{
		Resume: answers,
		Update: workflow.State{keyAnswers: map[string]interface{}{label: answers}},
	}, req.SessionID)
	if errors.Is(err, workflow.ErrCheckpointNotFound) {
		return notFound
	}
	if err != nil {
		w.logger.Error("INTERACTIVE", "Resume failed", map[string]interface{}{"session_id": req.SessionID, "error": err.Error()})
		return &ContinueResponse{
			Status:            StatusError,
			SessionID:         req.SessionID,
			ConversationState: store.StateError,
			Error:             err.Error(),
			Metadata:          map[string]interface{}{},
			Err:               err,
		}
	}

	w.recordContinue(ctx, req, label, len(answers))

	s := res.State
	resp := &ContinueResponse{
		SessionID:         req.SessionID,
		ConversationState: workflow.GetOr(s, keyConversationState, store.ConversationState("")),
		Metadata:          workflow.GetOr(s, keyMetadata, map[string]interface{}{}),
	}
	switch {
	case res.Interrupted():
		payload, _ := res.Interrupts[0].Value.(QuestionsPayload)
		resp.Status = StatusInProgress
		resp.Questions = payload.Questions
	case resp.ConversationState == store.StateCompleted:
		resp.Status = StatusCompleted
		resp.FinalResult = workflow.GetOr(s, keyFinalResult, "")
	default:
		resp.Status = StatusError
		resp.Error = workflow.GetOr(s, keyError, "unknown error")
		resp.Err = stateError(s)
	}
	return resp
}

// recordContinue merges the bookkeeping of a resumed round into the stored
// session. The snapshot written by the last node is kept as it is.
func (w *Workflow) recordContinue(ctx context.Context, req ContinueRequest, label string, answered int) {
	err := w.deps.Sessions.Update(ctx, req.UserID, req.SessionID, &store.Session{
		Metadata: map[string]interface{}{
			"continuedAt":    time.Now().UTC().Format(time.RFC3339),
			"continuedRound": label,
			"continuedWith":  answered,
		},
	})
	if err != nil {
		w.logger.Warn("INTERACTIVE", "Failed to record continue", map[string]interface{}{"session_id": req.SessionID, "error": err.Error()})
	}
}

// GetSession returns the stored snapshot of a session.
func (w *Workflow) GetSession(ctx context.Context, userID, sessionID string) (*store.Session, error) {
	return w.deps.Sessions.Get(ctx, userID, sessionID)
}

func stateError(s workflow.State) error {
	msg := workflow.GetOr(s, keyError, "unknown error")
	switch workflow.GetOr(s, keyErrorType, "") {
	case errorTypeValidation:
		return &ValidationError{Fields: missingFields(s)}
	default:
		return &GenerationError{Message: msg}
	}
}

func missingFields(s workflow.State) []string {
	var out []string
	for _, key := range []string{keyThema, keyDetails, keyRequestType, keyUserID} {
		if strings.TrimSpace(workflow.GetOr(s, key, "")) == "" {
			out = append(out, key)
		}
	}
	return out
}
