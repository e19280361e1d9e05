// Package redisstore keeps sessions and workflow checkpoints in redis so
// several API instances can serve the same conversation.
package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gruenerator-be/pkg/store"

	"github.com/redis/go-redis/v9"
)

const sessionPrefix = "gruenerator:session:"

type SessionRepository struct {
	rdb *redis.Client
	ttl time.Duration
}

var _ store.SessionStore = (*SessionRepository)(nil)

func NewSessionRepository(rdb *redis.Client, ttl time.Duration) *SessionRepository {
	return &SessionRepository{rdb: rdb, ttl: ttl}
}

func (r *SessionRepository) Set(ctx context.Context, userID string, session *store.Session) error {
	session.UserID = userID
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	return r.rdb.Set(ctx, sessionPrefix+store.Key(userID, session.SessionID), data, r.ttl).Err()
}

func (r *SessionRepository) Get(ctx context.Context, userID, sessionID string) (*store.Session, error) {
	data, err := r.rdb.Get(ctx, sessionPrefix+store.Key(userID, sessionID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, store.ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}

	var session store.Session
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, fmt.Errorf("unmarshal session: %w", err)
	}
	return &session, nil
}

// Update is read-modify-write without locking; concurrent writers race and the last one wins.
func (r *SessionRepository) Update(ctx context.Context, userID, sessionID string, partial *store.Session) error {
	current, err := r.Get(ctx, userID, sessionID)
	if err != nil {
		return err
	}
	current.Apply(partial)
	current.UpdatedAt = time.Now()
	return r.Set(ctx, userID, current)
}
