package websocket

import (
	"github.com/gofiber/websocket/v2"
)

// ServeWs registers the connection and blocks until the peer goes away.
func ServeWs(hub *Hub, c *websocket.Conn, userID string) {
	client := NewClient(hub, c, userID)
	if !hub.join(client) {
		return
	}

	go client.writePump()
	client.readPump()
}
