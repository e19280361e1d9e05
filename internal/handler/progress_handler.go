package handler

import (
	"gruenerator-be/internal/pkg/logger"
	internalWS "gruenerator-be/internal/websocket"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

// ProgressHandler streams generation events of one user over a websocket.
type ProgressHandler struct {
	hub    *internalWS.Hub
	logger logger.ILogger
}

func NewProgressHandler(hub *internalWS.Hub, log logger.ILogger) *ProgressHandler {
	return &ProgressHandler{
		hub:    hub,
		logger: log,
	}
}

func (h *ProgressHandler) RegisterRoutes(r fiber.Router) {
	r.Get("/ws/progress", h.ServeWs)
}

// ServeWs upgrades the request. The user is identified by the user_id
// query parameter.
func (h *ProgressHandler) ServeWs(c *fiber.Ctx) error {
	userID := c.Query("user_id")
	if userID == "" {
		return fiber.NewError(fiber.StatusBadRequest, "missing query parameter user_id")
	}

	if !websocket.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}
	return websocket.New(func(conn *websocket.Conn) {
		h.logger.Info("ProgressHandler", "Starting WebSocket session", map[string]interface{}{"user_id": userID})
		internalWS.ServeWs(h.hub, conn, userID)
		h.logger.Info("ProgressHandler", "WebSocket session ended", map[string]interface{}{"user_id": userID})
	})(c)
}
