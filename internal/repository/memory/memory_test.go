package memory

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"gruenerator-be/pkg/store"
	"gruenerator-be/pkg/workflow"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewSessionRepository(time.Minute)

	err := repo.Set(ctx, "u1", &store.Session{
		SessionID:         "s1",
		ConversationState: store.StateInitiated,
		Metadata:          map[string]interface{}{"a": "1"},
	})
	require.NoError(t, err)

	t.Run("get returns a copy", func(t *testing.T) {
		s, err := repo.Get(ctx, "u1", "s1")
		require.NoError(t, err)
		s.Thema = "changed"

		again, err := repo.Get(ctx, "u1", "s1")
		require.NoError(t, err)
		assert.Empty(t, again.Thema)
		assert.Equal(t, "u1", again.UserID)
	})

	t.Run("foreign user cannot read", func(t *testing.T) {
		_, err := repo.Get(ctx, "u2", "s1")
		assert.ErrorIs(t, err, store.ErrSessionNotFound)
	})

	t.Run("update merges metadata", func(t *testing.T) {
		err := repo.Update(ctx, "u1", "s1", &store.Session{
			ConversationState: store.StateCompleted,
			Metadata:          map[string]interface{}{"b": "2"},
		})
		require.NoError(t, err)

		s, err := repo.Get(ctx, "u1", "s1")
		require.NoError(t, err)
		assert.Equal(t, store.StateCompleted, s.ConversationState)
		assert.Equal(t, map[string]interface{}{"a": "1", "b": "2"}, s.Metadata)
	})

	t.Run("update unknown session", func(t *testing.T) {
		err := repo.Update(ctx, "u1", "nope", &store.Session{})
		assert.ErrorIs(t, err, store.ErrSessionNotFound)
	})
}

func TestCheckpointRepositoryTakeOnce(t *testing.T) {
	ctx := context.Background()
	repo := NewCheckpointRepository(time.Minute)
	require.NoError(t, repo.Save(ctx, &workflow.Checkpoint{ThreadID: "t1", NextNode: "analyze_answers"}))

	var wg sync.WaitGroup
	var taken int32
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := repo.Take(ctx, "t1"); err == nil {
				atomic.AddInt32(&taken, 1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), taken)
	_, err := repo.Take(ctx, "t1")
	assert.ErrorIs(t, err, workflow.ErrCheckpointNotFound)
}

func TestChatMemory(t *testing.T) {
	m := NewChatMemory(time.Minute, 4)

	assert.Empty(t, m.Get("u1").PreviousAgent)

	m.Record("u1", "antrag", "Antrag zu Radwegen", "Antragstext")
	m.Record("u1", "", "mach daraus einen Post", "Post")
	m.Record("u1", "social_media", "und einen Tweet", "")

	c := m.Get("u1")
	assert.Equal(t, "social_media", c.PreviousAgent)
	require.Len(t, c.History, 4)
	assert.Equal(t, "Antragstext", c.History[0].Content)
	assert.Equal(t, "und einen Tweet", c.History[3].Content)

	c.History[0].Content = "mutated"
	assert.Equal(t, "Antragstext", m.Get("u1").History[0].Content)
	assert.Empty(t, m.Get("u2").History)
}
