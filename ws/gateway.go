package ws

import (
	"encoding/json"
	"errors"

	"planhub_backend/internal/logger"
	"planhub_backend/internal/repositories"
	"planhub_backend/internal/services"
	"planhub_backend/internal/services/dto"
	"planhub_backend/pkg/apperrors"
)

// Gateway - обработчики событий протокола доставки. Не знает про транспорт:
// принимает событие и соединение, исход (push / error-событие / ничего)
// уходит через hub. Благодаря этому логика тестируется без живого сокета.
type Gateway struct {
	registry      *Registry
	hub           *Hub
	notifications services.NotificationService
	users         repositories.UserRepository
}

func NewGateway(
	registry *Registry,
	hub *Hub,
	notifications services.NotificationService,
	users repositories.UserRepository,
) *Gateway {
	return &Gateway{
		registry:      registry,
		hub:           hub,
		notifications: notifications,
		users:         users,
	}
}

// HandleEvent - единая точка диспетчеризации входящих событий соединения.
func (g *Gateway) HandleEvent(c *Client, env Envelope) {
	switch env.Event {

	case EventAuthenticate:
		var payload AuthenticatePayload
		if err := json.Unmarshal(env.Data, &payload); err != nil {
			g.sendError(c, apperrors.CodeValidationFailed, "invalid authenticate payload")
			return
		}
		g.Authenticate(c, payload.UserID)

	case EventGetUnread:
		if !g.requireAuth(c, env.Event) {
			return
		}
		g.Resync(c)

	case EventCreate:
		if !g.requireAuth(c, env.Event) {
			return
		}
		var payload CreatePayload
		if err := json.Unmarshal(env.Data, &payload); err != nil {
			g.sendError(c, apperrors.CodeValidationFailed, "invalid create payload")
			return
		}
		g.Create(c, payload)

	case EventMarkAsRead:
		if !g.requireAuth(c, env.Event) {
			return
		}
		var payload MarkAsReadPayload
		if err := json.Unmarshal(env.Data, &payload); err != nil {
			g.sendError(c, apperrors.CodeValidationFailed, "invalid markAsRead payload")
			return
		}
		g.MarkAsRead(c, payload)

	default:
		g.sendError(c, apperrors.CodeInvalidOperation, "unknown event: "+env.Event)
	}
}

// Authenticate привязывает соединение к пользователю и сразу выполняет
// resync непрочитанных - базовая гарантия, что подключенный пользователь
// не пропустит накопившийся backlog.
func (g *Gateway) Authenticate(c *Client, rawUserID string) {
	userID := services.NormalizeIdentity(rawUserID)
	if userID == "" {
		g.sendError(c, apperrors.CodeInvalidIdentity, "authenticate: userId is required")
		return
	}

	exists, err := g.users.Exists(userID)
	if err != nil {
		logger.WSLog(c.ID, userID, EventAuthenticate, err)
		g.sendError(c, apperrors.CodeInternalError, "authenticate: identity check failed")
		return
	}
	if !exists {
		g.sendError(c, apperrors.CodeInvalidIdentity, "authenticate: unknown user")
		return
	}

	// Смена identity на живом соединении: старые привязки снимаем,
	// иначе push-и прежнего пользователя продолжат приходить сюда
	if c.UserID != "" && c.UserID != userID {
		g.registry.Unregister(c.ID)
		g.hub.LeaveUser(c, c.UserID)
	}

	c.UserID = userID
	g.registry.Register(userID, c.ID)
	g.hub.JoinUser(c, userID)
	logger.Info("ws client authenticated", "conn_id", c.ID, "user_id", userID)

	g.Resync(c)
}

// Resync отправляет соединению полный список непрочитанных, новые первыми.
// Единственный механизм восстановления пропущенных live-push-ей; безопасен
// при повторных вызовах - всегда отражает текущее состояние хранилища.
func (g *Gateway) Resync(c *Client) {
	unread, err := g.notifications.GetUnreadNotifications(c.UserID)
	if err != nil {
		logger.WSLog(c.ID, c.UserID, EventGetUnread, err)
		g.sendError(c, apperrors.CodeInternalError, "failed to load unread notifications")
		return
	}

	g.hub.SendToConn(c.ID, Message{Event: EventUnread, Data: unread})
}

// Create валидирует отправителя/получателя, сохраняет уведомление и,
// если получатель сейчас подключен, доставляет его live. Отсутствующий
// получатель - не ошибка: доставку закроет следующий resync.
func (g *Gateway) Create(c *Client, payload CreatePayload) {
	req := &dto.CreateNotificationRequest{
		Type:       payload.Type,
		Content:    payload.Content,
		FromUserID: payload.FromUserID,
		ToUserID:   payload.ToUserID,
		Data:       payload.Data,
	}

	notification, err := g.notifications.CreateNotification(req)
	if err != nil {
		logger.WSLog(c.ID, c.UserID, EventCreate, err)
		switch {
		case errors.Is(err, services.ErrRecipientNotFound),
			errors.Is(err, services.ErrSenderNotFound):
			g.sendError(c, apperrors.CodeInvalidIdentity, err.Error())
		default:
			g.sendError(c, apperrors.CodeInternalError, "failed to create notification")
		}
		return
	}

	toID := services.NormalizeIdentity(payload.ToUserID)
	if _, online := g.registry.Lookup(toID); online {
		g.hub.SendToUser(toID, Message{Event: EventNew, Data: notification})
	}
}

// MarkAsRead - идемпотентное подтверждение чтения. Повторное или
// неизвестное id - no-op, клиент обновляет свое представление оптимистично.
func (g *Gateway) MarkAsRead(c *Client, payload MarkAsReadPayload) {
	if err := g.notifications.MarkAsRead(c.UserID, payload.NotificationID); err != nil {
		logger.WSLog(c.ID, c.UserID, EventMarkAsRead, err)
		if errors.Is(err, services.ErrAccessDenied) {
			g.sendError(c, apperrors.CodeForbidden, "markAsRead: access denied")
			return
		}
		g.sendError(c, apperrors.CodeInternalError, "failed to mark notification as read")
	}
}

// Disconnect снимает привязку соединения в реестре. Идемпотентен; для
// соединения, не прошедшего authenticate, превращается в no-op.
func (g *Gateway) Disconnect(c *Client) {
	g.registry.Unregister(c.ID)
	if c.UserID != "" {
		logger.Info("ws client disconnected", "conn_id", c.ID, "user_id", c.UserID)
	}
}

func (g *Gateway) requireAuth(c *Client, event string) bool {
	if c.UserID == "" {
		g.sendError(c, apperrors.CodeNotAuthenticated, "not authenticated: "+event+" requires authenticate first")
		return false
	}
	return true
}

func (g *Gateway) sendError(c *Client, code apperrors.ErrorCode, message string) {
	g.hub.SendToConn(c.ID, Message{Event: EventError, Data: ErrorPayload{Code: code, Message: message}})
}
