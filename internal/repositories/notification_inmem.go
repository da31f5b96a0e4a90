package repositories

import (
	"sync"
	"time"

	"planhub_backend/internal/models"

	"github.com/google/uuid"
)

// notificationInMemRepository - потокобезопасная in-memory реализация
// NotificationRepository. Хранит порядок вставки, чтобы "новые первыми"
// было детерминированным даже при одинаковых временных метках.
type notificationInMemRepository struct {
	mu    sync.RWMutex
	items []models.Notification // в порядке создания
}

func NewNotificationInMem() NotificationRepository {
	return &notificationInMemRepository{}
}

func (r *notificationInMemRepository) CreateNotification(notification *models.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if notification.ID == "" {
		notification.ID = uuid.NewString()
	}
	if notification.CreatedAt.IsZero() {
		notification.CreatedAt = time.Now()
	}

	r.items = append(r.items, *notification)
	return nil
}

func (r *notificationInMemRepository) FindNotificationByID(id string) (*models.Notification, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for i := range r.items {
		if r.items[i].ID == id {
			n := r.items[i]
			return &n, nil
		}
	}
	return nil, ErrNotificationNotFound
}

func (r *notificationInMemRepository) FindUserNotifications(userID string) ([]models.Notification, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []models.Notification
	for i := len(r.items) - 1; i >= 0; i-- { // новые первыми
		if r.items[i].ToID == userID {
			result = append(result, r.items[i])
		}
	}
	return result, nil
}

func (r *notificationInMemRepository) FindUnreadNotifications(userID string) ([]models.Notification, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []models.Notification
	for i := len(r.items) - 1; i >= 0; i-- { // новые первыми
		if r.items[i].ToID == userID && !r.items[i].IsRead {
			result = append(result, r.items[i])
		}
	}
	return result, nil
}

func (r *notificationInMemRepository) MarkAsRead(notificationID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i := range r.items {
		if r.items[i].ID == notificationID {
			now := time.Now()
			r.items[i].IsRead = true
			r.items[i].ReadAt = &now
			return nil
		}
	}
	return ErrNotificationNotFound
}

func (r *notificationInMemRepository) MarkAllAsRead(userID string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var count int64
	now := time.Now()
	for i := range r.items {
		if r.items[i].ToID == userID && !r.items[i].IsRead {
			r.items[i].IsRead = true
			r.items[i].ReadAt = &now
			count++
		}
	}
	return count, nil
}

func (r *notificationInMemRepository) DeleteNotification(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i := range r.items {
		if r.items[i].ID == id {
			r.items = append(r.items[:i], r.items[i+1:]...)
			return nil
		}
	}
	return ErrNotificationNotFound
}

func (r *notificationInMemRepository) DeleteUserNotifications(userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	kept := r.items[:0]
	for _, n := range r.items {
		if n.ToID != userID {
			kept = append(kept, n)
		}
	}
	r.items = kept
	return nil
}

func (r *notificationInMemRepository) GetUnreadCount(userID string) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var count int64
	for i := range r.items {
		if r.items[i].ToID == userID && !r.items[i].IsRead {
			count++
		}
	}
	return count, nil
}
