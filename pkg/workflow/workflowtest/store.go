// Package workflowtest provides an in-process CheckpointStore for tests.
package workflowtest

import (
	"context"
	"sync"

	"gruenerator-be/pkg/workflow"
)

type MapStore struct {
	mu     sync.Mutex
	frames map[string]*workflow.Checkpoint
}

var _ workflow.CheckpointStore = (*MapStore)(nil)

func NewMapStore() *MapStore {
	return &MapStore{frames: make(map[string]*workflow.Checkpoint)}
}

func (s *MapStore) Save(_ context.Context, cp *workflow.Checkpoint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.frames[cp.ThreadID] = cp
	return nil
}

func (s *MapStore) Take(_ context.Context, threadID string) (*workflow.Checkpoint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp, ok := s.frames[threadID]
	if !ok {
		return nil, workflow.ErrCheckpointNotFound
	}
	delete(s.frames, threadID)
	return cp, nil
}

// Len returns the number of stored checkpoints.
func (s *MapStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.frames)
}
