package routes

import (
	"planhub_backend/internal/handlers"
	"planhub_backend/internal/logger"
	"planhub_backend/internal/middleware"
	"planhub_backend/ws"

	"github.com/gin-gonic/gin"
)

// AppHandlers - все HTTP-обработчики приложения
type AppHandlers struct {
	AuthHandler         *handlers.AuthHandler
	NotificationHandler *handlers.NotificationHandler
}

// RegisterRoutes регистрирует все HTTP и WebSocket маршруты.
func RegisterRoutes(
	ginRouter *gin.Engine,
	appHandlers *AppHandlers,
	wsHandler *ws.Handler,
) {
	// Регистрация HTTP API v1
	api := ginRouter.Group("/api/v1")
	{
		appHandlers.AuthHandler.RegisterRoutes(api)
		appHandlers.NotificationHandler.RegisterRoutes(api)
	}

	// Регистрация WebSocket (только авторизованные пользователи)
	wsGroup := ginRouter.Group("/ws")
	wsGroup.Use(middleware.AuthMiddleware())
	{
		wsGroup.GET("", wsHandler.ServeWS)
	}
	logger.Info("WebSocket route /ws registered")
}
