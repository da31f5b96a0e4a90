package handlers_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"planhub_backend/internal/auth"
	"planhub_backend/internal/config"
	"planhub_backend/internal/handlers"
	"planhub_backend/internal/models"
	"planhub_backend/internal/repositories"
	"planhub_backend/internal/services"
	"planhub_backend/internal/services/dto"
	"planhub_backend/internal/validator"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)

	cfg := &config.Config{}
	cfg.Server.Env = "development"
	cfg.JWT.Secret = "test-secret"
	cfg.JWT.TTL = 60
	config.AppConfig = cfg

	os.Exit(m.Run())
}

type httpEnv struct {
	router  *gin.Engine
	users   repositories.UserRepository
	service services.NotificationService
}

func newHTTPEnv(t *testing.T) *httpEnv {
	t.Helper()

	users := repositories.NewUserInMem()
	notifications := repositories.NewNotificationInMem()
	notificationService := services.NewNotificationService(notifications, users)
	authService := services.NewAuthService(users)

	base := handlers.NewBaseHandler(validator.New())
	authHandler := handlers.NewAuthHandler(base, authService)
	notificationHandler := handlers.NewNotificationHandler(base, notificationService)

	router := gin.New()
	api := router.Group("/api/v1")
	authHandler.RegisterRoutes(api)
	notificationHandler.RegisterRoutes(api)

	return &httpEnv{
		router:  router,
		users:   users,
		service: notificationService,
	}
}

func (e *httpEnv) addUser(t *testing.T, email, password string) *models.User {
	t.Helper()

	hash, err := auth.HashPassword(password)
	require.NoError(t, err)

	user := &models.User{
		Email:        email,
		Name:         "test user",
		PasswordHash: hash,
		Role:         models.UserRoleMember,
		Status:       models.UserStatusActive,
	}
	require.NoError(t, e.users.Create(user))
	return user
}

func (e *httpEnv) request(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, out any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), out))
}

func TestLogin(t *testing.T) {
	env := newHTTPEnv(t)
	env.addUser(t, "alice@planhub.test", "secret-123")

	rec := env.request(t, http.MethodPost, "/api/v1/auth/login", "", dto.LoginRequest{
		Email:    "alice@planhub.test",
		Password: "secret-123",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp dto.LoginResponse
	decode(t, rec, &resp)
	assert.NotEmpty(t, resp.Token)
	require.NotNil(t, resp.User)
	assert.Equal(t, "alice@planhub.test", resp.User.Email)

	// Неверный пароль
	rec = env.request(t, http.MethodPost, "/api/v1/auth/login", "", dto.LoginRequest{
		Email:    "alice@planhub.test",
		Password: "wrong",
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestNotifications_RequireToken(t *testing.T) {
	env := newHTTPEnv(t)

	rec := env.request(t, http.MethodGet, "/api/v1/notifications/unread", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCreateNotification_SenderIsCaller(t *testing.T) {
	env := newHTTPEnv(t)
	alice := env.addUser(t, "alice@planhub.test", "secret-123")
	bob := env.addUser(t, "bob@planhub.test", "secret-123")

	token, err := auth.GenerateToken(alice)
	require.NoError(t, err)

	rec := env.request(t, http.MethodPost, "/api/v1/notifications", token, dto.CreateNotificationRequest{
		Type:       repositories.NotificationTypeTaskAssigned,
		Content:    "review the roadmap",
		FromUserID: "spoofed-id", // игнорируется: отправитель всегда вызывающий
		ToUserID:   bob.ID,
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var created dto.NotificationResponse
	decode(t, rec, &created)
	require.NotNil(t, created.FromID)
	assert.Equal(t, alice.ID, *created.FromID)
	assert.False(t, created.IsRead)
}

func TestCreateNotification_ValidationAndUnknownRecipient(t *testing.T) {
	env := newHTTPEnv(t)
	alice := env.addUser(t, "alice@planhub.test", "secret-123")

	token, err := auth.GenerateToken(alice)
	require.NoError(t, err)

	// Отсутствует обязательное поле toUserId
	rec := env.request(t, http.MethodPost, "/api/v1/notifications", token, map[string]any{
		"type":    repositories.NotificationTypeMemberAdded,
		"content": "no recipient",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Несуществующий получатель
	rec = env.request(t, http.MethodPost, "/api/v1/notifications", token, dto.CreateNotificationRequest{
		Type:     repositories.NotificationTypeMemberAdded,
		Content:  "ghost recipient",
		ToUserID: "no-such-user",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUnreadFlow(t *testing.T) {
	env := newHTTPEnv(t)
	bob := env.addUser(t, "bob@planhub.test", "secret-123")

	created, err := env.service.CreateNotification(&dto.CreateNotificationRequest{
		Type:     repositories.NotificationTypeEventUpdated,
		Content:  "standup moved to 11:00",
		ToUserID: bob.ID,
	})
	require.NoError(t, err)

	token, err := auth.GenerateToken(bob)
	require.NoError(t, err)

	rec := env.request(t, http.MethodGet, "/api/v1/notifications/unread", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var unreadResp struct {
		Notifications []*dto.NotificationResponse `json:"notifications"`
	}
	decode(t, rec, &unreadResp)
	require.Len(t, unreadResp.Notifications, 1)
	assert.Equal(t, created.ID, unreadResp.Notifications[0].ID)

	rec = env.request(t, http.MethodPut, "/api/v1/notifications/"+created.ID+"/read", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.request(t, http.MethodGet, "/api/v1/notifications/unread-count", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var countResp struct {
		UnreadCount int64 `json:"unread_count"`
	}
	decode(t, rec, &countResp)
	assert.EqualValues(t, 0, countResp.UnreadCount)
}

func TestPurgeUserNotifications_AdminOnly(t *testing.T) {
	env := newHTTPEnv(t)
	member := env.addUser(t, "member@planhub.test", "secret-123")

	admin := &models.User{
		Email:        "admin@planhub.test",
		Name:         "admin",
		PasswordHash: "x",
		Role:         models.UserRoleAdmin,
		Status:       models.UserStatusActive,
	}
	require.NoError(t, env.users.Create(admin))

	for i := 0; i < 2; i++ {
		_, err := env.service.CreateNotification(&dto.CreateNotificationRequest{
			Type:     repositories.NotificationTypeMemberAdded,
			Content:  "to purge",
			ToUserID: member.ID,
		})
		require.NoError(t, err)
	}

	memberToken, err := auth.GenerateToken(member)
	require.NoError(t, err)
	adminToken, err := auth.GenerateToken(admin)
	require.NoError(t, err)

	rec := env.request(t, http.MethodDelete, "/api/v1/admin/notifications/users/"+member.ID, memberToken, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = env.request(t, http.MethodDelete, "/api/v1/admin/notifications/users/"+member.ID, adminToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	count, err := env.service.GetUnreadCount(member.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 0, count)
}

func TestMarkAsRead_ForeignNotificationForbidden(t *testing.T) {
	env := newHTTPEnv(t)
	alice := env.addUser(t, "alice@planhub.test", "secret-123")
	bob := env.addUser(t, "bob@planhub.test", "secret-123")

	created, err := env.service.CreateNotification(&dto.CreateNotificationRequest{
		Type:     repositories.NotificationTypeTaskAssigned,
		Content:  "for bob",
		ToUserID: bob.ID,
	})
	require.NoError(t, err)

	token, err := auth.GenerateToken(alice)
	require.NoError(t, err)

	rec := env.request(t, http.MethodPut, "/api/v1/notifications/"+created.ID+"/read", token, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}
