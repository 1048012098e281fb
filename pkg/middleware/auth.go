package middleware

import (
	"context"
	"strings"

	"workshop-system/internal/services"
	"workshop-system/pkg/contextkeys"
	apperrors "workshop-system/pkg/errors"
	"workshop-system/pkg/service"
	"workshop-system/pkg/utils"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

type AuthMiddleware struct {
	jwtService  service.JWTService
	authService services.AuthServiceInterface
	logger      *zap.Logger
}

func NewAuthMiddleware(jwtSvc service.JWTService, authService services.AuthServiceInterface, logger *zap.Logger) *AuthMiddleware {
	return &AuthMiddleware{
		jwtService:  jwtSvc,
		authService: authService,
		logger:      logger,
	}
}

// Auth проверяет access-токен и кладёт в контекст запроса UserID и CurrentUser
// с правами, восстановленными из роли.
func (m *AuthMiddleware) Auth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		authHeader := c.Request().Header.Get("Authorization")
		if authHeader == "" {
			return utils.ErrorResponse(c, apperrors.ErrEmptyAuthHeader)
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			m.logger.Warn("неверный формат заголовка Authorization")
			return utils.ErrorResponse(c, apperrors.ErrInvalidAuthHeader)
		}

		claims, err := m.jwtService.ValidateToken(parts[1])
		if err != nil {
			m.logger.Warn("ошибка валидации токена", zap.Error(err))
			return utils.ErrorResponse(c, err)
		}
		if claims.IsRefreshToken {
			m.logger.Warn("попытка доступа с refresh-токеном")
			return utils.ErrorResponse(c, apperrors.ErrTokenIsNotAccess)
		}

		currentUser, err := m.authService.GetAuthProfile(c.Request().Context(), claims.UserID)
		if err != nil {
			m.logger.Warn("не удалось получить профиль пользователя", zap.Uint64("userId", claims.UserID), zap.Error(err))
			return utils.ErrorResponse(c, err)
		}

		ctx := c.Request().Context()
		ctx = context.WithValue(ctx, contextkeys.UserIDKey, claims.UserID)
		ctx = context.WithValue(ctx, contextkeys.CurrentUserKey, *currentUser)
		c.SetRequest(c.Request().WithContext(ctx))

		return next(c)
	}
}
