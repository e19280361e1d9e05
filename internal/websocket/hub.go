package websocket

import (
	"context"
	"encoding/json"
	"sync"

	"gruenerator-be/internal/pkg/logger"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ClusterChannel is the redis channel instances use to reach clients
// connected elsewhere.
const ClusterChannel = "gruenerator:cluster_events"

const broadcastTarget = "*"

// Envelope is the frame written to the socket.
type Envelope struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

type clusterMessage struct {
	Origin       string          `json:"origin"`
	TargetUserID string          `json:"target_user_id"`
	Message      json.RawMessage `json:"message"`
}

type Hub struct {
	// userID -> connections (several tabs or devices)
	clients map[string][]*Client

	register   chan *Client
	unregister chan *Client
	// closed when Run returns
	done chan struct{}

	mu sync.RWMutex

	// nil runs the hub single-instance
	rdb *redis.Client

	instanceID string
	logger     logger.ILogger
}

func NewHub(rdb *redis.Client, log logger.ILogger) *Hub {
	return &Hub{
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		clients:    make(map[string][]*Client),
		rdb:        rdb,
		instanceID: uuid.NewString(),
		logger:     log,
	}
}

// Run serves register and unregister requests until ctx is done.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	if h.rdb != nil {
		go h.subscribeToRedis(ctx)
	}

	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.UserID] = append(h.clients[client.UserID], client)
			h.mu.Unlock()
			h.logger.Info("Hub", "Client registered", map[string]interface{}{"user_id": client.UserID})

		case client := <-h.unregister:
			h.remove(client)
		}
	}
}

// join registers client. It reports false once the hub has stopped.
func (h *Hub) join(client *Client) bool {
	select {
	case h.register <- client:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) leave(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

func (h *Hub) remove(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	clients := h.clients[client.UserID]
	for i, c := range clients {
		if c == client {
			h.clients[client.UserID] = append(clients[:i], clients[i+1:]...)
			close(client.Send)
			break
		}
	}
	if len(h.clients[client.UserID]) == 0 {
		delete(h.clients, client.UserID)
		h.logger.Info("Hub", "Client completely unregistered", map[string]interface{}{"user_id": client.UserID})
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, clients := range h.clients {
		for _, c := range clients {
			close(c.Send)
		}
		delete(h.clients, id)
	}
}

// ClientCount reports the local connections of a user.
func (h *Hub) ClientCount(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userID])
}

// Send delivers a frame to every connection of userID, locally and on the
// other instances.
func (h *Hub) Send(ctx context.Context, userID, msgType string, data interface{}) {
	frame, err := json.Marshal(Envelope{Type: msgType, Data: data})
	if err != nil {
		h.logger.Error("Hub", "Failed to encode frame", map[string]interface{}{"type": msgType, "error": err.Error()})
		return
	}
	h.deliver(userID, frame)
	h.publish(ctx, userID, frame)
}

// Broadcast delivers a frame to every connected client.
func (h *Hub) Broadcast(ctx context.Context, msgType string, data interface{}) {
	frame, err := json.Marshal(Envelope{Type: msgType, Data: data})
	if err != nil {
		h.logger.Error("Hub", "Failed to encode frame", map[string]interface{}{"type": msgType, "error": err.Error()})
		return
	}
	h.deliver(broadcastTarget, frame)
	h.publish(ctx, broadcastTarget, frame)
}

// deliver never blocks: a client whose buffer is full misses the frame.
func (h *Hub) deliver(target string, frame []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	var clients []*Client
	if target == broadcastTarget {
		for _, cs := range h.clients {
			clients = append(clients, cs...)
		}
	} else {
		clients = h.clients[target]
	}

	for _, client := range clients {
		select {
		case client.Send <- frame:
		default:
			h.logger.Warn("Hub", "Client send buffer full, dropping message", map[string]interface{}{"user_id": client.UserID})
		}
	}
}

func (h *Hub) publish(ctx context.Context, target string, frame []byte) {
	if h.rdb == nil {
		return
	}
	payload, _ := json.Marshal(clusterMessage{
		Origin:       h.instanceID,
		TargetUserID: target,
		Message:      frame,
	})
	if err := h.rdb.Publish(ctx, ClusterChannel, payload).Err(); err != nil {
		h.logger.Warn("Hub", "Failed to publish to cluster", map[string]interface{}{"error": err.Error()})
	}
}

func (h *Hub) subscribeToRedis(ctx context.Context) {
	pubsub := h.rdb.Subscribe(ctx, ClusterChannel)
	defer pubsub.Close()

	for msg := range pubsub.Channel() {
		var payload clusterMessage
		if err := json.Unmarshal([]byte(msg.Payload), &payload); err != nil {
			h.logger.Warn("Hub", "Cluster message parse error", map[string]interface{}{"error": err.Error()})
			continue
		}
		// already delivered locally by Send
		if payload.Origin == h.instanceID {
			continue
		}
		h.deliver(payload.TargetUserID, payload.Message)
	}
}
