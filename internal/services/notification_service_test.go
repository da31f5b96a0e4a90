package services_test

import (
	"testing"

	"planhub_backend/internal/models"
	"planhub_backend/internal/repositories"
	"planhub_backend/internal/services"
	"planhub_backend/internal/services/dto"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newServiceEnv(t *testing.T) (services.NotificationService, repositories.UserRepository) {
	t.Helper()

	users := repositories.NewUserInMem()
	notifications := repositories.NewNotificationInMem()
	return services.NewNotificationService(notifications, users), users
}

func addUser(t *testing.T, users repositories.UserRepository, email string) string {
	t.Helper()

	user := &models.User{
		Email:        email,
		Name:         "test user",
		PasswordHash: "x",
		Role:         models.UserRoleMember,
		Status:       models.UserStatusActive,
	}
	require.NoError(t, users.Create(user))
	return user.ID
}

func TestNormalizeIdentity(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "user-1", services.NormalizeIdentity("  user-1  "))
	assert.Equal(t, "", services.NormalizeIdentity("   "))
}

func TestCreateNotification_ValidatesBeforePersist(t *testing.T) {
	t.Parallel()

	service, users := newServiceEnv(t)
	bobID := addUser(t, users, "bob@planhub.test")

	// Несуществующий получатель
	_, err := service.CreateNotification(&dto.CreateNotificationRequest{
		Type:     repositories.NotificationTypeTaskAssigned,
		Content:  "task",
		ToUserID: "ghost",
	})
	assert.ErrorIs(t, err, services.ErrRecipientNotFound)

	// Несуществующий отправитель
	_, err = service.CreateNotification(&dto.CreateNotificationRequest{
		Type:       repositories.NotificationTypeTaskAssigned,
		Content:    "task",
		FromUserID: "ghost",
		ToUserID:   bobID,
	})
	assert.ErrorIs(t, err, services.ErrSenderNotFound)

	// Пустой получатель после нормализации
	_, err = service.CreateNotification(&dto.CreateNotificationRequest{
		Type:     repositories.NotificationTypeTaskAssigned,
		Content:  "task",
		ToUserID: "   ",
	})
	assert.ErrorIs(t, err, services.ErrRecipientNotFound)

	count, err := service.GetUnreadCount(bobID)
	require.NoError(t, err)
	assert.EqualValues(t, 0, count, "отказ валидации не должен ничего записать")
}

func TestCreateNotification_SystemSender(t *testing.T) {
	t.Parallel()

	service, users := newServiceEnv(t)
	bobID := addUser(t, users, "bob@planhub.test")

	created, err := service.CreateNotification(&dto.CreateNotificationRequest{
		Type:     repositories.NotificationTypeEventUpdated,
		Content:  "maintenance window",
		ToUserID: bobID,
	})
	require.NoError(t, err)

	assert.Nil(t, created.FromID, "системное уведомление без отправителя")
	assert.False(t, created.IsRead)
	assert.NotEmpty(t, created.ID)
}

func TestMarkAsRead_Idempotent(t *testing.T) {
	t.Parallel()

	service, users := newServiceEnv(t)
	bobID := addUser(t, users, "bob@planhub.test")

	created, err := service.CreateNotification(&dto.CreateNotificationRequest{
		Type:     repositories.NotificationTypeTaskAssigned,
		Content:  "task",
		ToUserID: bobID,
	})
	require.NoError(t, err)

	require.NoError(t, service.MarkAsRead(bobID, created.ID))
	assert.NoError(t, service.MarkAsRead(bobID, created.ID), "повторное чтение - no-op")
	assert.NoError(t, service.MarkAsRead(bobID, "unknown-id"), "неизвестный id - no-op")

	count, err := service.GetUnreadCount(bobID)
	require.NoError(t, err)
	assert.EqualValues(t, 0, count)
}

func TestMarkAsRead_AccessDenied(t *testing.T) {
	t.Parallel()

	service, users := newServiceEnv(t)
	aliceID := addUser(t, users, "alice@planhub.test")
	bobID := addUser(t, users, "bob@planhub.test")

	created, err := service.CreateNotification(&dto.CreateNotificationRequest{
		Type:     repositories.NotificationTypeTaskAssigned,
		Content:  "for bob",
		ToUserID: bobID,
	})
	require.NoError(t, err)

	err = service.MarkAsRead(aliceID, created.ID)
	assert.ErrorIs(t, err, services.ErrAccessDenied)

	count, err := service.GetUnreadCount(bobID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)
}

func TestGetUnreadNotifications_NewestFirst(t *testing.T) {
	t.Parallel()

	service, users := newServiceEnv(t)
	bobID := addUser(t, users, "bob@planhub.test")

	for _, content := range []string{"first", "second", "third"} {
		_, err := service.CreateNotification(&dto.CreateNotificationRequest{
			Type:     repositories.NotificationTypeTaskAssigned,
			Content:  content,
			ToUserID: bobID,
		})
		require.NoError(t, err)
	}

	unread, err := service.GetUnreadNotifications(bobID)
	require.NoError(t, err)
	require.Len(t, unread, 3)
	assert.Equal(t, "third", unread[0].Content)
	assert.Equal(t, "second", unread[1].Content)
	assert.Equal(t, "first", unread[2].Content)
}

func TestGetUnreadNotifications_EmptyIsNotNil(t *testing.T) {
	t.Parallel()

	service, users := newServiceEnv(t)
	bobID := addUser(t, users, "bob@planhub.test")

	unread, err := service.GetUnreadNotifications(bobID)
	require.NoError(t, err)
	assert.NotNil(t, unread, "клиент ожидает [], а не null")
	assert.Empty(t, unread)
}

func TestMarkAllAsRead(t *testing.T) {
	t.Parallel()

	service, users := newServiceEnv(t)
	bobID := addUser(t, users, "bob@planhub.test")

	for i := 0; i < 3; i++ {
		_, err := service.CreateNotification(&dto.CreateNotificationRequest{
			Type:     repositories.NotificationTypeMemberAdded,
			Content:  "batch",
			ToUserID: bobID,
		})
		require.NoError(t, err)
	}

	affected, err := service.MarkAllAsRead(bobID)
	require.NoError(t, err)
	assert.EqualValues(t, 3, affected)

	affected, err = service.MarkAllAsRead(bobID)
	require.NoError(t, err)
	assert.EqualValues(t, 0, affected, "повторный вызов ничего не меняет")
}

func TestDeleteNotification_OwnershipEnforced(t *testing.T) {
	t.Parallel()

	service, users := newServiceEnv(t)
	aliceID := addUser(t, users, "alice@planhub.test")
	bobID := addUser(t, users, "bob@planhub.test")

	created, err := service.CreateNotification(&dto.CreateNotificationRequest{
		Type:     repositories.NotificationTypeEventDeleted,
		Content:  "for bob",
		ToUserID: bobID,
	})
	require.NoError(t, err)

	assert.ErrorIs(t, service.DeleteNotification(aliceID, created.ID), services.ErrAccessDenied)
	require.NoError(t, service.DeleteNotification(bobID, created.ID))

	_, err = service.GetNotification(created.ID)
	assert.ErrorIs(t, err, repositories.ErrNotificationNotFound)
}
