package handlers

import (
	"errors"
	"net/http"

	"planhub_backend/internal/logger"
	"planhub_backend/internal/middleware"
	"planhub_backend/internal/repositories"
	"planhub_backend/internal/services"
	"planhub_backend/internal/validator"
	"planhub_backend/pkg/apperrors"

	"github.com/gin-gonic/gin"
)

type BaseHandler struct {
	validator *validator.Validator
}

func NewBaseHandler(v *validator.Validator) *BaseHandler {
	return &BaseHandler{
		validator: v,
	}
}

// BindAndValidate_JSON привязывает тело запроса и прогоняет валидацию DTO.
// Возвращает false, если ответ об ошибке уже отправлен.
func (h *BaseHandler) BindAndValidate_JSON(c *gin.Context, obj interface{}) bool {
	ctx := c.Request.Context()

	if err := c.ShouldBind(obj); err != nil {
		logger.CtxWithError(ctx, "Failed to bind JSON body", err, "path", c.Request.URL.Path)
		apperrors.HandleError(c, apperrors.NewBadRequestError("Invalid request body: "+err.Error()))
		return false
	}

	if err := h.validator.Validate(obj); err != nil {
		var vErr *validator.ValidationError
		if errors.As(err, &vErr) {
			logger.CtxWarn(ctx, "Validation failed", "errors", vErr.Errors, "path", c.Request.URL.Path)
			apperrors.HandleError(c, apperrors.ValidationError(vErr.Errors))
		} else {
			apperrors.HandleError(c, apperrors.NewBadRequestError(err.Error()))
		}
		return false
	}

	return true
}

// GetAndAuthorizeUserID достает userID, положенный AuthMiddleware.
func (h *BaseHandler) GetAndAuthorizeUserID(c *gin.Context) (string, bool) {
	userID := middleware.GetUserID(c)
	if userID == "" {
		apperrors.HandleError(c, apperrors.NewUnauthorizedError("Authentication required"))
		return "", false
	}
	return userID, true
}

// HandleServiceError переводит ошибки сервисного слоя в HTTP-ответы.
func (h *BaseHandler) HandleServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, repositories.ErrNotificationNotFound):
		apperrors.HandleError(c, apperrors.NewNotFoundError("notification", "Notification not found"))
	case errors.Is(err, repositories.ErrUserNotFound):
		apperrors.HandleError(c, apperrors.NewNotFoundError("user", "User not found"))
	case errors.Is(err, services.ErrRecipientNotFound),
		errors.Is(err, services.ErrSenderNotFound):
		apperrors.HandleError(c, apperrors.NewBadRequestError(err.Error()))
	case errors.Is(err, services.ErrAccessDenied):
		apperrors.HandleError(c, apperrors.NewForbiddenError("Access denied"))
	case errors.Is(err, services.ErrInvalidCredentials):
		apperrors.HandleError(c, apperrors.New(apperrors.CodeInvalidCredentials, "auth", err.Error(), http.StatusUnauthorized))
	default:
		apperrors.HandleError(c, err)
	}
}
