package ws

import (
	"encoding/json"

	"planhub_backend/pkg/apperrors"
)

// События клиент → сервер
const (
	EventAuthenticate = "authenticate"
	EventGetUnread    = "get:unreadNotifications"
	EventCreate       = "notification:create"
	EventMarkAsRead   = "notification:markAsRead"
)

// События сервер → клиент
const (
	EventNew    = "notification:new"
	EventUnread = "notification:unread"
	EventError  = "error"
)

// Envelope - входящее сообщение: имя события + сырая полезная нагрузка
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Message - исходящее сообщение
type Message struct {
	Event string `json:"event"`
	Data  any    `json:"data,omitempty"`
}

type AuthenticatePayload struct {
	UserID string `json:"userId"`
}

type CreatePayload struct {
	Type       string         `json:"type"`
	Content    string         `json:"content"`
	FromUserID string         `json:"fromUserId"`
	ToUserID   string         `json:"toUserId"`
	Data       map[string]any `json:"data,omitempty"`
}

type MarkAsReadPayload struct {
	NotificationID string `json:"notificationId"`
}

type ErrorPayload struct {
	Code    apperrors.ErrorCode `json:"code,omitempty"`
	Message string              `json:"message"`
}
