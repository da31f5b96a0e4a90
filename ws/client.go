package ws

import (
	"encoding/json"

	"planhub_backend/internal/logger"

	"github.com/gorilla/websocket"
)

// Client - одно живое соединение.
// Жизненный цикл: Connected(unauthenticated) -> Authenticated -> Disconnected.
// Обратного перехода нет: реконнект создает новый Client.
type Client struct {
	ID     string // идентификатор соединения (uuid)
	UserID string // пусто до успешного authenticate

	Conn *websocket.Conn
	Send chan Message

	hub     *Hub
	gateway *Gateway
}

func (c *Client) readPump() {
	defer func() {
		c.gateway.Disconnect(c)
		c.hub.unregister <- c
		c.Conn.Close()
	}()

	for {
		_, msgBytes, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Debug("ws read error", "conn_id", c.ID, "error", err.Error())
			}
			break
		}

		var env Envelope
		if err := json.Unmarshal(msgBytes, &env); err != nil {
			logger.Debug("ws malformed frame", "conn_id", c.ID, "error", err.Error())
			continue
		}

		// События одного соединения обрабатываются строго по порядку:
		// единственный цикл чтения и есть гарантия per-connection ordering
		c.gateway.HandleEvent(c, env)
	}
}

func (c *Client) writePump() {
	defer c.Conn.Close()

	for msg := range c.Send {
		if err := c.Conn.WriteJSON(msg); err != nil {
			logger.Debug("ws write error", "conn_id", c.ID, "error", err.Error())
			break
		}
	}
}
