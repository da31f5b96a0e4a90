package app

import (
	"errors"
	"fmt"

	"planhub_backend/internal/auth"
	"planhub_backend/internal/config"
	"planhub_backend/internal/database"
	"planhub_backend/internal/handlers"
	"planhub_backend/internal/logger"
	"planhub_backend/internal/middleware"
	"planhub_backend/internal/models"
	"planhub_backend/internal/repositories"
	"planhub_backend/internal/routes"
	"planhub_backend/internal/services"
	"planhub_backend/internal/validator"
	"planhub_backend/ws"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

func Run() {
	config.LoadConfig()
	cfg := config.AppConfig
	logger.Init(cfg.Server.Env)
	logger.Info("Logger initialized", "env", cfg.Server.Env)

	gormDB, err := database.ConnectGorm()
	if err != nil {
		logger.Fatal("Failed to connect to database", "error", err)
	}
	sqlDB, err := gormDB.DB()
	if err != nil {
		logger.Fatal("Failed to get *sql.DB from GORM", "error", err)
	}
	if err = sqlDB.Ping(); err != nil {
		logger.Fatal("Database unavailable", "error", err)
	}
	logger.Info("Database connected")

	if err := database.AutoMigrate(gormDB); err != nil {
		logger.Fatal("Failed to run migrations", "error", err)
	}

	if err := seedFirstAdmin(gormDB, cfg); err != nil {
		logger.Fatal("Failed to seed first admin user", "error", err)
	}

	ginRouter := SetupRouter(cfg, gormDB)

	address := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	logger.Info(fmt.Sprintf("Server starting on %s", address))
	if err := ginRouter.Run(address); err != nil {
		logger.Fatal("Server startup error", "error", err)
	}
}

// SetupRouter собирает полный gin-роутер. Вынесен отдельно, чтобы тесты
// могли поднять приложение поверх httptest.
func SetupRouter(cfg *config.Config, gormDB *gorm.DB) *gin.Engine {
	// 1. Репозитории
	userRepo := repositories.NewUserRepository(gormDB)
	notificationRepo := repositories.NewNotificationRepository(gormDB)

	// 2. Сервисы
	notificationService := services.NewNotificationService(notificationRepo, userRepo)
	authService := services.NewAuthService(userRepo)

	// 3. Хэндлеры
	customValidator := validator.New()
	baseHandler := handlers.NewBaseHandler(customValidator)
	appHandlers := &routes.AppHandlers{
		AuthHandler:         handlers.NewAuthHandler(baseHandler, authService),
		NotificationHandler: handlers.NewNotificationHandler(baseHandler, notificationService),
	}

	// 4. WebSocket-шлюз
	registry := ws.NewRegistry()
	hub := ws.NewHub()
	go hub.Run()
	gateway := ws.NewGateway(registry, hub, notificationService, userRepo)
	wsHandler := ws.NewHandler(hub, gateway, cfg.WS.SendBuffer, cfg.WS.ReadLimit)

	// 5. Gin
	ginRouter := initializeGinRouter()

	// 6. Маршруты
	routes.RegisterRoutes(ginRouter, appHandlers, wsHandler)

	return ginRouter
}

func initializeGinRouter() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.LoggingMiddleware())
	router.Use(middleware.CORSMiddleware())
	return router
}

func seedFirstAdmin(db *gorm.DB, cfg *config.Config) error {
	adminEmail := cfg.FirstAdminEmail
	adminPassword := cfg.FirstAdminPassword

	if adminEmail == "" || adminPassword == "" {
		logger.Warn("FIRST_ADMIN_EMAIL or FIRST_ADMIN_PASSWORD is not set. Skipping admin seeding.")
		return nil
	}

	var adminUser models.User
	result := db.Where("email = ?", adminEmail).First(&adminUser)

	if result.Error == nil {
		logger.Info("Admin user already exists. Skipping creation.", "email", adminEmail)
		return nil
	}

	if !errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return fmt.Errorf("failed to check for admin user: %w", result.Error)
	}

	logger.Warn("No admin user found with specified email. Creating first admin...", "email", adminEmail)

	if err := auth.ValidatePassword(adminPassword); err != nil {
		return fmt.Errorf("first admin password rejected: %w", err)
	}

	hashedPassword, err := auth.HashPassword(adminPassword)
	if err != nil {
		return fmt.Errorf("failed to hash admin password: %w", err)
	}

	newAdmin := &models.User{
		Email:        adminEmail,
		Name:         "Administrator",
		PasswordHash: hashedPassword,
		Role:         models.UserRoleAdmin,
		Status:       models.UserStatusActive,
	}

	if err := db.Create(newAdmin).Error; err != nil {
		return fmt.Errorf("failed to create admin user in database: %w", err)
	}

	logger.Info("Successfully created first admin user", "email", adminEmail)
	return nil
}
