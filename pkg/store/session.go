package store

import (
	"context"
	"errors"
	"time"
)

var ErrSessionNotFound = errors.New("session not found")

// ConversationState is the lifecycle position of an interactive session.
type ConversationState string

const (
	StateInitiated          ConversationState = "initiated"
	StateQuestionsGenerated ConversationState = "questions_generated"
	StateReadyToGenerate    ConversationState = "ready_to_generate"
	StateQuestionsAsked     ConversationState = "questions_asked"
	StateAnswersReceived    ConversationState = "answers_received"
	StateGenerating         ConversationState = "generating"
	StateCompleted          ConversationState = "completed"
	StateError              ConversationState = "error"
)

// Terminal reports whether the session can no longer progress.
func (s ConversationState) Terminal() bool {
	return s == StateCompleted || s == StateError
}

// Question provenance
const (
	SourceStatic = "static"
	SourceAI     = "ai"
)

// Question is a single clarifying question. Options and OptionEmojis always
// have the same length.
type Question struct {
	ID               string   `json:"id"`
	Text             string   `json:"text"`
	Type             string   `json:"type"`
	Options          []string `json:"options"`
	OptionEmojis     []string `json:"optionEmojis"`
	AllowCustom      bool     `json:"allowCustom"`
	AllowMultiSelect bool     `json:"allowMultiSelect"`
	Placeholder      string   `json:"placeholder,omitempty"`
	Source           string   `json:"source,omitempty"`
}

// SearchResult is one web search hit, optionally enriched with full page content.
type SearchResult struct {
	Title       string `json:"title"`
	URL         string `json:"url"`
	Snippet     string `json:"snippet"`
	Purpose     string `json:"purpose,omitempty"`
	Content     string `json:"content,omitempty"`
	WordCount   int    `json:"wordCount,omitempty"`
	FullContent bool   `json:"fullContent"`
}

// Answers maps round label (round1, round2, ...) to questionId -> answer.
// An answer is a string or, for multi-select questions, a list of strings.
type Answers map[string]map[string]interface{}

// Session is the persisted snapshot of one interactive generation.
type Session struct {
	SessionID         string                 `json:"sessionId"`
	UserID            string                 `json:"userId"`
	ConversationState ConversationState      `json:"conversationState"`
	Thema             string                 `json:"thema"`
	Details           string                 `json:"details"`
	RequestType       string                 `json:"requestType"`
	GeneratorType     string                 `json:"generatorType"`
	Locale            string                 `json:"locale"`
	QuestionRound     int                    `json:"questionRound"`
	Questions         []Question             `json:"questions"`
	Answers           Answers                `json:"answers"`
	SearchResults     []SearchResult         `json:"searchResults"`
	EnrichedContext   map[string]interface{} `json:"enrichedContext,omitempty"`
	AnswerSummary     string                 `json:"answerSummary,omitempty"`
	FinalResult       string                 `json:"finalResult,omitempty"`
	Error             string                 `json:"error,omitempty"`
	Metadata          map[string]interface{} `json:"metadata"`
	CreatedAt         time.Time              `json:"createdAt"`
	UpdatedAt         time.Time              `json:"updatedAt"`
}

// Apply folds a partial snapshot into s. Zero-valued fields of partial are
// ignored, metadata and enrichedContext merge key by key, answers merge per round.
func (s *Session) Apply(partial *Session) {
	if partial == nil {
		return
	}
	setString(&s.ConversationState, partial.ConversationState)
	setString(&s.Thema, partial.Thema)
	setString(&s.Details, partial.Details)
	setString(&s.RequestType, partial.RequestType)
	setString(&s.GeneratorType, partial.GeneratorType)
	setString(&s.Locale, partial.Locale)
	setString(&s.AnswerSummary, partial.AnswerSummary)
	setString(&s.FinalResult, partial.FinalResult)
	setString(&s.Error, partial.Error)

	if partial.QuestionRound > s.QuestionRound {
		s.QuestionRound = partial.QuestionRound
	}
	if partial.Questions != nil {
		s.Questions = partial.Questions
	}
	if partial.SearchResults != nil {
		s.SearchResults = partial.SearchResults
	}
	if len(partial.Answers) > 0 {
		if s.Answers == nil {
			s.Answers = Answers{}
		}
		for round, answers := range partial.Answers {
			if s.Answers[round] == nil {
				s.Answers[round] = map[string]interface{}{}
			}
			for id, v := range answers {
				s.Answers[round][id] = v
			}
		}
	}
	s.EnrichedContext = mergeMap(s.EnrichedContext, partial.EnrichedContext)
	s.Metadata = mergeMap(s.Metadata, partial.Metadata)
	if !partial.UpdatedAt.IsZero() {
		s.UpdatedAt = partial.UpdatedAt
	}
}

func setString[T ~string](dst *T, v T) {
	if v != "" {
		*dst = v
	}
}

func mergeMap(dst, src map[string]interface{}) map[string]interface{} {
	if len(src) == 0 {
		return dst
	}
	if dst == nil {
		dst = make(map[string]interface{}, len(src))
	}
	for k, v := range src {
		dst[k] = v
	}
	return dst
}

// SessionStore persists session snapshots per user. Writes are last-writer-wins.
type SessionStore interface {
	Set(ctx context.Context, userID string, session *Session) error
	// Get returns ErrSessionNotFound for unknown, expired or foreign sessions.
	Get(ctx context.Context, userID, sessionID string) (*Session, error)
	Update(ctx context.Context, userID, sessionID string, partial *Session) error
}

// Key is the storage key of a session.
func Key(userID, sessionID string) string {
	return userID + ":" + sessionID
}
