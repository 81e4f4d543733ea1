package handlers

import (
	"todo-api/internal/config"
	myws "todo-api/internal/websocket"
	"todo-api/pkg/logger"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"
)

// RequireUpgrade hanya meneruskan request yang meminta upgrade WebSocket.
func RequireUpgrade(c *fiber.Ctx) error {
	if websocket.IsWebSocketUpgrade(c) {
		return c.Next()
	}
	return fiber.ErrUpgradeRequired
}

// TaskEvents streams task events for the session's user until the socket
// closes. Incoming frames are read and discarded.
var TaskEvents = websocket.New(func(conn *websocket.Conn) {
	userID, _ := conn.Locals("userID").(string)
	client := &myws.Client{UserID: userID, Conn: conn}
	if !config.Hub.Join(client) {
		_ = conn.Close()
		return
	}
	defer config.Hub.Leave(client)

	logger.SystemLogger.Info("Task event socket opened", zap.String("user_id", userID))
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
})
