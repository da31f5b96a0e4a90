package ws

import (
	"planhub_backend/internal/logger"
	"sync"
)

// Hub владеет множеством живых соединений и broadcast-группами
// "все соединения пользователя U". Регистрация и отключение идут через
// каналы (один цикл Run), отправка - через map под RWMutex.
type Hub struct {
	mu         sync.RWMutex
	clients    map[string]*Client            // connID -> client
	groups     map[string]map[*Client]bool   // userID -> broadcast-группа
	register   chan *Client
	unregister chan *Client
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[string]*Client),
		groups:     make(map[string]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
	}
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.attach(client)

		case client := <-h.unregister:
			h.detach(client)
		}
	}
}

func (h *Hub) attach(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.clients[client.ID] = client
	logger.Debug("ws client attached", "conn_id", client.ID, "total", len(h.clients))
}

func (h *Hub) detach(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[client.ID]; !ok {
		return
	}

	close(client.Send)
	delete(h.clients, client.ID)

	// Членство ищем по клиенту, а не по текущему UserID: соединение
	// могло сменить пользователя через повторный authenticate
	for userID, group := range h.groups {
		if group[client] {
			delete(group, client)
			if len(group) == 0 {
				delete(h.groups, userID)
			}
		}
	}

	logger.Debug("ws client detached", "conn_id", client.ID, "user_id", client.UserID, "total", len(h.clients))
}

// JoinUser добавляет аутентифицированное соединение в broadcast-группу
// пользователя. Старое соединение того же пользователя остается в группе
// и продолжает получать push-и, пока само не отключится.
func (h *Hub) JoinUser(client *Client, userID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	group, ok := h.groups[userID]
	if !ok {
		group = make(map[*Client]bool)
		h.groups[userID] = group
	}
	group[client] = true
}

// LeaveUser убирает соединение из broadcast-группы пользователя.
// Вызывается при смене identity живого соединения, чтобы push-и
// старого пользователя не утекали новому владельцу.
func (h *Hub) LeaveUser(client *Client, userID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if group, ok := h.groups[userID]; ok {
		delete(group, client)
		if len(group) == 0 {
			delete(h.groups, userID)
		}
	}
}

// SendToUser отправляет сообщение всем соединениям broadcast-группы.
// Возвращает количество соединений, получивших сообщение.
func (h *Hub) SendToUser(userID string, msg Message) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	sent := 0
	for client := range h.groups[userID] {
		if h.trySend(client, msg) {
			sent++
		}
	}
	return sent
}

// SendToConn отправляет сообщение одному соединению по его id.
func (h *Hub) SendToConn(connID string, msg Message) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()

	client, ok := h.clients[connID]
	if !ok {
		return false
	}
	return h.trySend(client, msg)
}

// trySend кладет сообщение в буфер соединения. Переполненный буфер
// означает зависшего клиента - такое соединение отключается.
// Вызывается под h.mu, поэтому не может пересечься с close(client.Send).
func (h *Hub) trySend(client *Client, msg Message) bool {
	select {
	case client.Send <- msg:
		return true
	default:
		logger.Warn("ws send buffer full, dropping client", "conn_id", client.ID, "user_id", client.UserID)
		go func() {
			h.unregister <- client
		}()
		return false
	}
}

// ClientCount возвращает количество подключенных соединений
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
