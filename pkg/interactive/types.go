// Package interactive drives a multi-turn generation: web research, optional
// clarifying questions with a suspend point for the user's answers, context
// enrichment and the final LLM call.
package interactive

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"gruenerator-be/pkg/store"

	"github.com/google/uuid"
)

// Node names
const (
	NodeInitiate           = "initiate"
	NodeWebSearch          = "web_search"
	NodeIntelligentCrawler = "intelligent_crawler"
	NodeContentEnricher    = "content_enricher"
	NodeGenerateQuestions  = "generate_questions"
	NodeAwaitAnswers       = "await_answers"
	NodeAnalyzeAnswers     = "analyze_answers"
	NodeSummarizeAnswers   = "summarize_answers"
	NodeDocumentEnrichment = "document_enrichment"
	NodeFinalGeneration    = "final_generation"
)

// State keys
const (
	keySessionID           = "sessionId"
	keyUserID              = "userId"
	keyThema               = "thema"
	keyDetails             = "details"
	keyRequestType         = "requestType"
	keyGeneratorType       = "generatorType"
	keyLocale              = "locale"
	keyConversationState   = "conversationState"
	keyQuestionRound       = "questionRound"
	keyQuestions           = "questions"
	keyAnswers             = "answers"
	keySearchResults       = "searchResults"
	keyCrawlSelection      = "crawlSelection"
	keyNeedsClarification  = "needsClarification"
	keyClarificationReason = "clarificationReason"
	keyAnswerSummary       = "answerSummary"
	keyEnrichedContext     = "enrichedContext"
	keyFinalResult         = "finalResult"
	keyError               = "error"
	keyErrorType           = "errorType"
	keyMetadata            = "metadata"
	keyCreatedAt           = "createdAt"
)

const (
	StatusSuccess    = "success"
	StatusCompleted  = "completed"
	StatusInProgress = "in_progress"
	StatusError      = "error"

	errorTypeValidation = "validation"
	errorTypeGeneration = "generation"

	// PlaceholderEmoji pads optionEmojis when the model returns too few.
	PlaceholderEmoji = "▫️"

	ClarifyingToolName = "ask_clarifying_questions"
)

// ErrSessionNotFound is returned by Continue for unknown, expired or
// already completed sessions.
var ErrSessionNotFound = store.ErrSessionNotFound

// ValidationError reports missing initiation fields.
type ValidationError struct {
	Fields []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("missing required fields: %s", strings.Join(e.Fields, ", "))
}

// GenerationError is a terminal failure of the final LLM call.
type GenerationError struct {
	Message string
}

func (e *GenerationError) Error() string {
	return "generation failed: " + e.Message
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

type InitiateRequest struct {
	UserID        string
	SessionID     string
	Thema         string
	Details       string
	RequestType   string
	GeneratorType string
	Locale        string
}

// Validate reports the required fields that are blank.
func (r InitiateRequest) Validate() error {
	var missing []string
	for _, f := range [][2]string{
		{keyThema, r.Thema},
		{keyDetails, r.Details},
		{keyRequestType, r.RequestType},
		{keyUserID, r.UserID},
	} {
		if strings.TrimSpace(f[1]) == "" {
			missing = append(missing, f[0])
		}
	}
	if len(missing) > 0 {
		return &ValidationError{Fields: missing}
	}
	return nil
}

type InitiateResponse struct {
	Status            string                  `json:"status"`
	SessionID         string                  `json:"sessionId"`
	ConversationState store.ConversationState `json:"conversationState"`
	QuestionRound     int                     `json:"questionRound,omitempty"`
	Questions         []store.Question        `json:"questions,omitempty"`
	FinalResult       string                  `json:"finalResult,omitempty"`
	Error             string                  `json:"error,omitempty"`
	Metadata          map[string]interface{}  `json:"metadata"`
	Err               error                   `json:"-"`
}

type ContinueRequest struct {
	UserID    string
	SessionID string
	Answers   map[string]interface{}
}

type ContinueResponse struct {
	Status            string                  `json:"status"`
	SessionID         string                  `json:"sessionId"`
	ConversationState store.ConversationState `json:"conversationState"`
	Questions         []store.Question        `json:"questions,omitempty"`
	FinalResult       string                  `json:"finalResult,omitempty"`
	Error             string                  `json:"error,omitempty"`
	Metadata          map[string]interface{}  `json:"metadata"`
	Err               error                   `json:"-"`
}

// QuestionsPayload is the interrupt value surfaced while a session waits for answers.
type QuestionsPayload struct {
	SessionID     string           `json:"sessionId"`
	QuestionRound int              `json:"questionRound"`
	Questions     []store.Question `json:"questions"`
	Reason        string           `json:"reason,omitempty"`
}

// NewSessionID returns "<unix millis base36>_<8 hex chars>". Uniqueness is
// probabilistic; the store is not consulted.
func NewSessionID() string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return strconv.FormatInt(time.Now().UnixMilli(), 36) + "_" + suffix
}

// RoundLabel is the answers key of a question round.
func RoundLabel(round int) string {
	if round < 1 {
		round = 1
	}
	return "round" + strconv.Itoa(round)
}
