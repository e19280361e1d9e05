package workflow

import (
	"context"
	"time"
)

// Checkpoint is the execution frame persisted at a suspend point.
type Checkpoint struct {
	ThreadID       string      `json:"threadId"`
	NextNode       string      `json:"nextNode"`
	State          State       `json:"state"`
	InterruptValue interface{} `json:"interruptValue,omitempty"`
	CreatedAt      time.Time   `json:"createdAt"`
}

// CheckpointStore persists checkpoints by thread id. Take must remove the
// checkpoint it returns and return ErrCheckpointNotFound when none exists.
type CheckpointStore interface {
	Save(ctx context.Context, cp *Checkpoint) error
	Take(ctx context.Context, threadID string) (*Checkpoint, error)
}
