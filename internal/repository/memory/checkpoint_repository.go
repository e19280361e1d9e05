package memory

import (
	"context"
	"sync"
	"time"

	"gruenerator-be/pkg/workflow"

	"github.com/patrickmn/go-cache"
)

// CheckpointRepository keeps suspended workflow frames in process memory.
type CheckpointRepository struct {
	mu    sync.Mutex
	cache *cache.Cache
}

var _ workflow.CheckpointStore = (*CheckpointRepository)(nil)

func NewCheckpointRepository(ttl time.Duration) *CheckpointRepository {
	return &CheckpointRepository{
		cache: cache.New(ttl, 10*time.Minute),
	}
}

func (r *CheckpointRepository) Save(_ context.Context, cp *workflow.Checkpoint) error {
	r.cache.Set(cp.ThreadID, cp, cache.DefaultExpiration)
	return nil
}

func (r *CheckpointRepository) Take(_ context.Context, threadID string) (*workflow.Checkpoint, error) {
	// Get and Delete must be atomic so a checkpoint is handed out once.
	r.mu.Lock()
	defer r.mu.Unlock()

	x, found := r.cache.Get(threadID)
	if !found {
		return nil, workflow.ErrCheckpointNotFound
	}
	r.cache.Delete(threadID)
	return x.(*workflow.Checkpoint), nil
}
