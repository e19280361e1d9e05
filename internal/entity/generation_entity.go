package entity

import (
	"time"

	"github.com/google/uuid"
)

type GenerationSource string

const (
	GenerationSourceInteractive GenerationSource = "interactive"
	GenerationSourceChat        GenerationSource = "chat"
)

type GenerationStatus string

const (
	GenerationStatusCompleted GenerationStatus = "completed"
	GenerationStatusFailed    GenerationStatus = "failed"
)

// Generation is one finished text generation kept in the user's history.
type Generation struct {
	Id        uuid.UUID
	UserId    string
	SessionId string
	Source    GenerationSource
	Kind      string
	Thema     string
	Status    GenerationStatus
	Content   string
	Error     string
	Answers   map[string]map[string]interface{}
	Metadata  map[string]interface{}
	CreatedAt time.Time
	UpdatedAt *time.Time
	DeletedAt *time.Time
}
