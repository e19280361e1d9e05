package dto

import (
	"time"

	"gruenerator-be/pkg/store"

	"github.com/google/uuid"
)

type InitiateRequest struct {
	UserId        string `json:"userId" validate:"required"`
	SessionId     string `json:"sessionId"`
	Thema         string `json:"thema" validate:"required,max=500"`
	Details       string `json:"details" validate:"required,max=10000"`
	RequestType   string `json:"requestType" validate:"required"`
	GeneratorType string `json:"generatorType"`
	Locale        string `json:"locale" validate:"omitempty,oneof=de en"`
}

type InitiateResponse struct {
	Status            string                  `json:"status"`
	SessionId         string                  `json:"sessionId"`
	ConversationState store.ConversationState `json:"conversationState"`
	QuestionRound     int                     `json:"questionRound,omitempty"`
	Questions         []store.Question        `json:"questions,omitempty"`
	FinalResult       string                  `json:"finalResult,omitempty"`
	Error             string                  `json:"error,omitempty"`
	Metadata          map[string]interface{}  `json:"metadata"`
}

type ContinueRequest struct {
	UserId    string                 `json:"userId" validate:"required"`
	SessionId string                 `json:"sessionId" validate:"required"`
	Answers   map[string]interface{} `json:"answers" validate:"required"`
}

type ContinueResponse struct {
	Status            string                  `json:"status"`
	SessionId         string                  `json:"sessionId"`
	ConversationState store.ConversationState `json:"conversationState"`
	Questions         []store.Question        `json:"questions,omitempty"`
	FinalResult       string                  `json:"finalResult,omitempty"`
	Error             string                  `json:"error,omitempty"`
	Metadata          map[string]interface{}  `json:"metadata"`
}

type HistoryQuery struct {
	UserId string `query:"user_id" validate:"required"`
	Kind   string `query:"kind"`
	Limit  int    `query:"limit" validate:"omitempty,min=1,max=100"`
	Page   int    `query:"page" validate:"omitempty,min=1"`
}

type GenerationHistoryItem struct {
	Id        uuid.UUID              `json:"id"`
	SessionId string                 `json:"sessionId"`
	Source    string                 `json:"source"`
	Kind      string                 `json:"kind"`
	Thema     string                 `json:"thema"`
	Status    string                 `json:"status"`
	Content   string                 `json:"content,omitempty"`
	Error     string                 `json:"error,omitempty"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	CreatedAt time.Time              `json:"createdAt"`
}

type HistoryResponse struct {
	Items []*GenerationHistoryItem `json:"items"`
	Total int64                    `json:"total"`
	Page  int                      `json:"page"`
	Limit int                      `json:"limit"`
}
