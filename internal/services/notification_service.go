package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"planhub_backend/internal/models"
	"planhub_backend/internal/repositories"
	"planhub_backend/internal/services/dto"

	"gorm.io/datatypes"
)

var (
	ErrRecipientNotFound = errors.New("recipient user not found")
	ErrSenderNotFound    = errors.New("sender user not found")
	ErrAccessDenied      = errors.New("access denied")
)

type NotificationService interface {
	// CreateNotification валидирует отправителя и получателя и сохраняет
	// уведомление с is_read = false. Валидация всегда предшествует записи.
	CreateNotification(req *dto.CreateNotificationRequest) (*dto.NotificationResponse, error)
	GetNotification(notificationID string) (*dto.NotificationResponse, error)
	GetUserNotifications(userID string) (*dto.NotificationListResponse, error)
	GetUnreadNotifications(userID string) ([]*dto.NotificationResponse, error)

	// MarkAsRead идемпотентен: повторное чтение и несуществующий id - no-op.
	MarkAsRead(userID, notificationID string) error
	MarkAllAsRead(userID string) (int64, error)
	DeleteNotification(userID, notificationID string) error

	// DeleteUserNotifications удаляет все уведомления пользователя.
	// Админская операция: очистка при удалении аккаунта.
	DeleteUserNotifications(userID string) error
	GetUnreadCount(userID string) (int64, error)
}

type notificationService struct {
	notificationRepo repositories.NotificationRepository
	userRepo         repositories.UserRepository
}

func NewNotificationService(
	notificationRepo repositories.NotificationRepository,
	userRepo repositories.UserRepository,
) NotificationService {
	return &notificationService{
		notificationRepo: notificationRepo,
		userRepo:         userRepo,
	}
}

// NormalizeIdentity - единая точка нормализации идентификаторов,
// приходящих от клиентов (UI-кеши исторически присылали "грязные" значения).
func NormalizeIdentity(id string) string {
	return strings.TrimSpace(id)
}

func (s *notificationService) CreateNotification(req *dto.CreateNotificationRequest) (*dto.NotificationResponse, error) {
	toID := NormalizeIdentity(req.ToUserID)
	fromID := NormalizeIdentity(req.FromUserID)

	if toID == "" {
		return nil, ErrRecipientNotFound
	}

	// Проверяем обе стороны до записи: при ошибке валидации в БД ничего не попадает
	if exists, err := s.userRepo.Exists(toID); err != nil {
		return nil, fmt.Errorf("failed to validate recipient: %w", err)
	} else if !exists {
		return nil, ErrRecipientNotFound
	}

	var fromPtr *string
	if fromID != "" {
		if exists, err := s.userRepo.Exists(fromID); err != nil {
			return nil, fmt.Errorf("failed to validate sender: %w", err)
		} else if !exists {
			return nil, ErrSenderNotFound
		}
		fromPtr = &fromID
	}

	var dataJSON datatypes.JSON
	if req.Data != nil {
		jsonData, err := json.Marshal(req.Data)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal notification data: %w", err)
		}
		dataJSON = datatypes.JSON(jsonData)
	}

	notification := &models.Notification{
		Type:    req.Type,
		Content: req.Content,
		FromID:  fromPtr,
		ToID:    toID,
		Data:    dataJSON,
		IsRead:  false,
	}

	if err := s.notificationRepo.CreateNotification(notification); err != nil {
		return nil, err
	}

	return buildNotificationResponse(notification), nil
}

func (s *notificationService) GetNotification(notificationID string) (*dto.NotificationResponse, error) {
	notification, err := s.notificationRepo.FindNotificationByID(notificationID)
	if err != nil {
		return nil, err
	}
	return buildNotificationResponse(notification), nil
}

func (s *notificationService) GetUserNotifications(userID string) (*dto.NotificationListResponse, error) {
	notifications, err := s.notificationRepo.FindUserNotifications(userID)
	if err != nil {
		return nil, err
	}

	responses := make([]*dto.NotificationResponse, 0, len(notifications))
	for i := range notifications {
		responses = append(responses, buildNotificationResponse(&notifications[i]))
	}

	return &dto.NotificationListResponse{
		Notifications: responses,
		Total:         len(responses),
	}, nil
}

func (s *notificationService) GetUnreadNotifications(userID string) ([]*dto.NotificationResponse, error) {
	notifications, err := s.notificationRepo.FindUnreadNotifications(userID)
	if err != nil {
		return nil, err
	}

	// Всегда непустой срез: клиент ожидает "[]", а не null
	responses := make([]*dto.NotificationResponse, 0, len(notifications))
	for i := range notifications {
		responses = append(responses, buildNotificationResponse(&notifications[i]))
	}
	return responses, nil
}

func (s *notificationService) MarkAsRead(userID, notificationID string) error {
	notification, err := s.notificationRepo.FindNotificationByID(notificationID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotificationNotFound) {
			// Клиент может прислать два подтверждения наперегонки;
			// терпим и неизвестный id, и повторное чтение
			return nil
		}
		return err
	}
	if notification.ToID != userID {
		return ErrAccessDenied
	}
	if notification.IsRead {
		return nil
	}

	err = s.notificationRepo.MarkAsRead(notificationID)
	if errors.Is(err, repositories.ErrNotificationNotFound) {
		return nil
	}
	return err
}

func (s *notificationService) MarkAllAsRead(userID string) (int64, error) {
	return s.notificationRepo.MarkAllAsRead(userID)
}

func (s *notificationService) DeleteNotification(userID, notificationID string) error {
	notification, err := s.notificationRepo.FindNotificationByID(notificationID)
	if err != nil {
		return err
	}
	if notification.ToID != userID {
		return ErrAccessDenied
	}
	return s.notificationRepo.DeleteNotification(notificationID)
}

func (s *notificationService) DeleteUserNotifications(userID string) error {
	return s.notificationRepo.DeleteUserNotifications(userID)
}

func (s *notificationService) GetUnreadCount(userID string) (int64, error) {
	return s.notificationRepo.GetUnreadCount(userID)
}

// ---------------- Helpers ----------------

func buildNotificationResponse(notification *models.Notification) *dto.NotificationResponse {
	response := &dto.NotificationResponse{
		ID:        notification.ID,
		Type:      notification.Type,
		Content:   notification.Content,
		FromID:    notification.FromID,
		CreatedAt: notification.CreatedAt,
		IsRead:    notification.IsRead,
	}

	if len(notification.Data) > 0 {
		var data map[string]any
		if err := json.Unmarshal(notification.Data, &data); err == nil {
			response.Data = data
		}
	}

	return response
}
