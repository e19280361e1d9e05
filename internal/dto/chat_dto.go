package dto

import (
	"gruenerator-be/pkg/ai/router"
	"gruenerator-be/pkg/intent"
)

type ChatHistoryItem struct {
	Role    string `json:"role" validate:"required,oneof=user assistant"`
	Content string `json:"content"`
}

type ClassifyRequest struct {
	Message       string            `json:"message" validate:"required,max=10000"`
	PreviousAgent string            `json:"previousAgent"`
	History       []ChatHistoryItem `json:"history" validate:"dive"`
	HasImage      bool              `json:"hasImage"`
}

type ChatRequest struct {
	UserId  string            `json:"userId" validate:"required"`
	Message string            `json:"message" validate:"required,max=10000"`
	History []ChatHistoryItem `json:"history" validate:"dive"`
}

// ChatResponse holds exactly one of Result, Dispatch or Interactive.
type ChatResponse struct {
	Mode           string                       `json:"mode"`
	Classification *intent.ClassificationResult `json:"classification,omitempty"`
	Result         *router.IntentResult         `json:"result,omitempty"`
	Dispatch       *router.DispatchResult       `json:"dispatch,omitempty"`
	Interactive    *InitiateResponse            `json:"interactive,omitempty"`
}
