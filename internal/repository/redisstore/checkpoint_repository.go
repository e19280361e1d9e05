package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gruenerator-be/pkg/workflow"

	"github.com/redis/go-redis/v9"
)

const checkpointPrefix = "gruenerator:checkpoint:"

type CheckpointRepository struct {
	rdb *redis.Client
	ttl time.Duration
}

var _ workflow.CheckpointStore = (*CheckpointRepository)(nil)

func NewCheckpointRepository(rdb *redis.Client, ttl time.Duration) *CheckpointRepository {
	return &CheckpointRepository{rdb: rdb, ttl: ttl}
}

func (r *CheckpointRepository) Save(ctx context.Context, cp *workflow.Checkpoint) error {
	data, err := json.Marshal(cp)
	if err != nil {
		return fmt.Errorf("marshal checkpoint: %w", err)
	}
	return r.rdb.Set(ctx, checkpointPrefix+cp.ThreadID, data, r.ttl).Err()
}

// Take uses GETDEL so only one resume can obtain the frame.
func (r *CheckpointRepository) Take(ctx context.Context, threadID string) (*workflow.Checkpoint, error) {
	data, err := r.rdb.GetDel(ctx, checkpointPrefix+threadID).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, workflow.ErrCheckpointNotFound
	}
	if err != nil {
		return nil, err
	}

	var cp workflow.Checkpoint
	if err := json.Unmarshal(data, &cp); err != nil {
		return nil, fmt.Errorf("unmarshal checkpoint: %w", err)
	}
	return &cp, nil
}
