package repositories

import (
	"errors"
	"time"

	"planhub_backend/internal/models"

	"gorm.io/gorm"
)

var (
	ErrNotificationNotFound = errors.New("notification not found")
)

// Константы типов уведомлений
const (
	NotificationTypeMemberAdded  = "member_added"
	NotificationTypeTaskAssigned = "task_assigned"
	NotificationTypeEventUpdated = "event_updated"
	NotificationTypeEventDeleted = "event_deleted"
)

type NotificationRepository interface {
	CreateNotification(notification *models.Notification) error
	FindNotificationByID(id string) (*models.Notification, error)
	FindUserNotifications(userID string) ([]models.Notification, error)
	FindUnreadNotifications(userID string) ([]models.Notification, error)
	MarkAsRead(notificationID string) error
	MarkAllAsRead(userID string) (int64, error)
	DeleteNotification(id string) error
	DeleteUserNotifications(userID string) error
	GetUnreadCount(userID string) (int64, error)
}

type NotificationRepositoryImpl struct {
	db *gorm.DB
}

func NewNotificationRepository(db *gorm.DB) NotificationRepository {
	return &NotificationRepositoryImpl{db: db}
}

func (r *NotificationRepositoryImpl) CreateNotification(notification *models.Notification) error {
	return r.db.Create(notification).Error
}

func (r *NotificationRepositoryImpl) FindNotificationByID(id string) (*models.Notification, error) {
	var notification models.Notification
	err := r.db.First(&notification, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotificationNotFound
		}
		return nil, err
	}
	return &notification, nil
}

// FindUserNotifications возвращает все уведомления пользователя, новые первыми.
func (r *NotificationRepositoryImpl) FindUserNotifications(userID string) ([]models.Notification, error) {
	var notifications []models.Notification
	err := r.db.Where("to_id = ?", userID).
		Order("created_at DESC").
		Find(&notifications).Error
	return notifications, err
}

// FindUnreadNotifications возвращает непрочитанные уведомления, новые первыми.
func (r *NotificationRepositoryImpl) FindUnreadNotifications(userID string) ([]models.Notification, error) {
	var notifications []models.Notification
	err := r.db.Where("to_id = ? AND is_read = ?", userID, false).
		Order("created_at DESC").
		Find(&notifications).Error
	return notifications, err
}

func (r *NotificationRepositoryImpl) MarkAsRead(notificationID string) error {
	result := r.db.Model(&models.Notification{}).Where("id = ?", notificationID).Updates(map[string]interface{}{
		"is_read": true,
		"read_at": time.Now(),
	})

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotificationNotFound
	}
	return nil
}

func (r *NotificationRepositoryImpl) MarkAllAsRead(userID string) (int64, error) {
	result := r.db.Model(&models.Notification{}).Where("to_id = ? AND is_read = ?", userID, false).Updates(map[string]interface{}{
		"is_read": true,
		"read_at": time.Now(),
	})

	return result.RowsAffected, result.Error
}

func (r *NotificationRepositoryImpl) DeleteNotification(id string) error {
	result := r.db.Where("id = ?", id).Delete(&models.Notification{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotificationNotFound
	}
	return nil
}

func (r *NotificationRepositoryImpl) DeleteUserNotifications(userID string) error {
	return r.db.Where("to_id = ?", userID).Delete(&models.Notification{}).Error
}

func (r *NotificationRepositoryImpl) GetUnreadCount(userID string) (int64, error) {
	var count int64
	err := r.db.Model(&models.Notification{}).
		Where("to_id = ? AND is_read = ?", userID, false).
		Count(&count).Error
	return count, err
}
