package memory

import (
	"sync"
	"time"

	"gruenerator-be/pkg/llm"

	"github.com/patrickmn/go-cache"
)

// ChatContext is what the chat remembers between two messages of a user.
type ChatContext struct {
	PreviousAgent string
	History       []llm.Message
}

// ChatMemory keeps the recent turns and last agent per user.
type ChatMemory struct {
	cache *cache.Cache
	limit int
	mu    sync.Mutex
}

func NewChatMemory(ttl time.Duration, limit int) *ChatMemory {
	if limit <= 0 {
		limit = 10
	}
	return &ChatMemory{cache: cache.New(ttl, 10*time.Minute), limit: limit}
}

func (m *ChatMemory) Get(userID string) ChatContext {
	x, found := m.cache.Get(userID)
	if !found {
		return ChatContext{}
	}
	c := x.(ChatContext)
	c.History = append([]llm.Message(nil), c.History...)
	return c
}

// Record appends one exchange and keeps only the newest messages.
func (m *ChatMemory) Record(userID, agent, userMessage, reply string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	c := m.Get(userID)
	if agent != "" {
		c.PreviousAgent = agent
	}
	c.History = append(c.History, llm.Message{Role: "user", Content: userMessage})
	if reply != "" {
		c.History = append(c.History, llm.Message{Role: "assistant", Content: reply})
	}
	if over := len(c.History) - m.limit; over > 0 {
		c.History = c.History[over:]
	}
	m.cache.Set(userID, c, cache.DefaultExpiration)
}
