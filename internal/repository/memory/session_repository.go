package memory

import (
	"context"
	"encoding/json"
	"time"

	"gruenerator-be/pkg/store"

	"github.com/patrickmn/go-cache"
)

type SessionRepository struct {
	cache *cache.Cache
}

var _ store.SessionStore = (*SessionRepository)(nil)

func NewSessionRepository(ttl time.Duration) *SessionRepository {
	// Expired items are purged every 10 minutes
	c := cache.New(ttl, 10*time.Minute)
	return &SessionRepository{
		cache: c,
	}
}

func (r *SessionRepository) Set(_ context.Context, userID string, session *store.Session) error {
	// Stored as a copy so callers cannot mutate the cached snapshot.
	cp, err := clone(session)
	if err != nil {
		return err
	}
	cp.UserID = userID
	r.cache.Set(store.Key(userID, session.SessionID), cp, cache.DefaultExpiration)
	return nil
}

func (r *SessionRepository) Get(_ context.Context, userID, sessionID string) (*store.Session, error) {
	x, found := r.cache.Get(store.Key(userID, sessionID))
	if !found {
		return nil, store.ErrSessionNotFound
	}
	return clone(x.(*store.Session))
}

func (r *SessionRepository) Update(ctx context.Context, userID, sessionID string, partial *store.Session) error {
	current, err := r.Get(ctx, userID, sessionID)
	if err != nil {
		return err
	}
	current.Apply(partial)
	current.UpdatedAt = time.Now()
	return r.Set(ctx, userID, current)
}

func (r *SessionRepository) Delete(userID, sessionID string) {
	r.cache.Delete(store.Key(userID, sessionID))
}

func clone(s *store.Session) (*store.Session, error) {
	raw, err := json.Marshal(s)
	if err != nil {
		return nil, err
	}
	var out store.Session
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
