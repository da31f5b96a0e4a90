package dto

import "time"

// CreateNotificationRequest - запрос на создание уведомления.
// FromUserID пустой для системных уведомлений.
type CreateNotificationRequest struct {
	Type       string         `json:"type" validate:"required"`
	Content    string         `json:"content" validate:"required"`
	FromUserID string         `json:"fromUserId"`
	ToUserID   string         `json:"toUserId" validate:"required"`
	Data       map[string]any `json:"data,omitempty"`
}

// NotificationResponse - wire-представление уведомления
// (поле toId не отдаем: список всегда принадлежит запрашивающему).
type NotificationResponse struct {
	ID        string         `json:"id"`
	Type      string         `json:"type"`
	Content   string         `json:"content"`
	FromID    *string        `json:"fromId"`
	Data      map[string]any `json:"data,omitempty"`
	CreatedAt time.Time      `json:"createdAt"`
	IsRead    bool           `json:"isRead"`
}

type NotificationListResponse struct {
	Notifications []*NotificationResponse `json:"notifications"`
	Total         int                     `json:"total"`
}
