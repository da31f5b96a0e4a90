package ws

import (
	"net/http"

	"planhub_backend/internal/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // в продакшн добавьте проверку origin
	},
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// Handler обслуживает HTTP-upgrade и запускает циклы чтения/записи.
// Аутентификация соединения выполняется уже внутри протокола
// (событие authenticate), а не на этапе upgrade.
type Handler struct {
	hub        *Hub
	gateway    *Gateway
	sendBuffer int
	readLimit  int64
}

func NewHandler(hub *Hub, gateway *Gateway, sendBuffer int, readLimit int64) *Handler {
	if sendBuffer <= 0 {
		sendBuffer = 256
	}
	return &Handler{
		hub:        hub,
		gateway:    gateway,
		sendBuffer: sendBuffer,
		readLimit:  readLimit,
	}
}

func (h *Handler) ServeWS(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Warn("ws upgrade failed", "error", err.Error())
		return
	}

	if h.readLimit > 0 {
		conn.SetReadLimit(h.readLimit)
	}

	client := &Client{
		ID:      uuid.NewString(),
		Conn:    conn,
		Send:    make(chan Message, h.sendBuffer),
		hub:     h.hub,
		gateway: h.gateway,
	}

	h.hub.register <- client

	go client.readPump()
	go client.writePump()
}
