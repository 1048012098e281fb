package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"workshop-system/internal/authz"
	"workshop-system/internal/dto"
	"workshop-system/internal/repositories"
	apperrors "workshop-system/pkg/errors"
	"workshop-system/pkg/service"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

type AuthServiceInterface interface {
	Login(ctx context.Context, payload dto.LoginDTO) (*dto.TokenPairDTO, error)
	RefreshToken(ctx context.Context, refreshToken string) (*dto.TokenPairDTO, error)
	GetProfile(ctx context.Context, userID uint64) (*dto.ProfileDTO, error)
	GetAuthProfile(ctx context.Context, userID uint64) (*authz.CurrentUser, error)
}

// cachedAuthProfile — форма профиля в Redis. Права не кэшируются: они
// восстанавливаются из роли при чтении, поэтому смена матрицы прав в коде
// действует сразу, без инвалидации кэша.
type cachedAuthProfile struct {
	ID       uint64     `json:"id"`
	Role     authz.Role `json:"role"`
	IsActive bool       `json:"isActive"`
}

type AuthService struct {
	userRepo         repositories.UserRepositoryInterface
	cache            repositories.CacheRepositoryInterface
	jwtService       service.JWTService
	logger           *zap.Logger
	userCacheTTL     time.Duration
	maxLoginAttempts int
	lockoutDuration  time.Duration
}

func NewAuthService(
	userRepo repositories.UserRepositoryInterface,
	cache repositories.CacheRepositoryInterface,
	jwtService service.JWTService,
	logger *zap.Logger,
	userCacheTTL time.Duration,
	maxLoginAttempts int,
	lockoutDuration time.Duration,
) AuthServiceInterface {
	return &AuthService{
		userRepo:         userRepo,
		cache:            cache,
		jwtService:       jwtService,
		logger:           logger,
		userCacheTTL:     userCacheTTL,
		maxLoginAttempts: maxLoginAttempts,
		lockoutDuration:  lockoutDuration,
	}
}

func loginAttemptsKey(login string) string { return fmt.Sprintf("auth:attempts:%s", login) }

func authProfileKey(userID uint64) string { return fmt.Sprintf("auth:profile:%d", userID) }

func (s *AuthService) Login(ctx context.Context, payload dto.LoginDTO) (*dto.TokenPairDTO, error) {
	attemptsKey := loginAttemptsKey(payload.Login)

	if raw, err := s.cache.Get(ctx, attemptsKey); err == nil && raw != "" {
		attempts, _ := strconv.Atoi(raw)
		if attempts >= s.maxLoginAttempts {
			return nil, apperrors.NewHttpError(http.StatusTooManyRequests, "слишком много попыток входа, попробуйте позже", nil)
		}
	}

	user, err := s.userRepo.FindByLogin(ctx, payload.Login)
	if err != nil {
		s.registerFailedAttempt(ctx, attemptsKey)
		return nil, apperrors.ErrInvalidCredentials
	}
	if !user.IsActive {
		return nil, apperrors.ErrForbidden
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(payload.Password)); err != nil {
		s.registerFailedAttempt(ctx, attemptsKey)
		return nil, apperrors.ErrInvalidCredentials
	}

	if err := s.cache.Del(ctx, attemptsKey); err != nil {
		s.logger.Warn("не удалось сбросить счётчик попыток входа", zap.Error(err))
	}

	accessToken, refreshToken, err := s.jwtService.GenerateTokens(user.ID)
	if err != nil {
		return nil, err
	}
	return &dto.TokenPairDTO{AccessToken: accessToken, RefreshToken: refreshToken}, nil
}

func (s *AuthService) registerFailedAttempt(ctx context.Context, key string) {
	attempts, err := s.cache.Incr(ctx, key)
	if err != nil {
		s.logger.Warn("не удалось увеличить счётчик попыток входа", zap.Error(err))
		return
	}
	if attempts == 1 {
		if _, err := s.cache.Expire(ctx, key, s.lockoutDuration); err != nil {
			s.logger.Warn("не удалось выставить TTL счётчика попыток", zap.Error(err))
		}
	}
}

func (s *AuthService) RefreshToken(ctx context.Context, refreshToken string) (*dto.TokenPairDTO, error) {
	claims, err := s.jwtService.ValidateToken(refreshToken)
	if err != nil {
		return nil, err
	}
	if !claims.IsRefreshToken {
		return nil, apperrors.ErrTokenIsNotRefresh
	}

	user, err := s.userRepo.FindByID(ctx, claims.UserID)
	if err != nil {
		return nil, apperrors.ErrUnauthorized
	}
	if !user.IsActive {
		return nil, apperrors.ErrForbidden
	}

	accessToken, newRefreshToken, err := s.jwtService.GenerateTokens(user.ID)
	if err != nil {
		return nil, err
	}
	return &dto.TokenPairDTO{AccessToken: accessToken, RefreshToken: newRefreshToken}, nil
}

func (s *AuthService) GetProfile(ctx context.Context, userID uint64) (*dto.ProfileDTO, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	permissions := authz.PermissionsFor(user.Role)
	names := make([]string, 0, len(permissions))
	for p := range permissions {
		names = append(names, string(p))
	}

	return &dto.ProfileDTO{
		ID:          user.ID,
		Fio:         user.Fio,
		Login:       user.Login,
		Role:        string(user.Role),
		Permissions: names,
	}, nil
}

// GetAuthProfile — профиль для middleware: кэш в Redis снимает чтение users
// с каждого запроса. Промах кэша или его недоступность прозрачно уходят в БД.
func (s *AuthService) GetAuthProfile(ctx context.Context, userID uint64) (*authz.CurrentUser, error) {
	key := authProfileKey(userID)

	if raw, err := s.cache.Get(ctx, key); err == nil && raw != "" {
		var cached cachedAuthProfile
		if err := json.Unmarshal([]byte(raw), &cached); err == nil {
			if !cached.IsActive {
				return nil, apperrors.ErrForbidden
			}
			currentUser := authz.CurrentUserFrom(cached.ID, cached.Role)
			return &currentUser, nil
		}
	}

	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, apperrors.ErrUnauthorized
	}

	cached := cachedAuthProfile{ID: user.ID, Role: user.Role, IsActive: user.IsActive}
	if raw, err := json.Marshal(cached); err == nil {
		if err := s.cache.Set(ctx, key, string(raw), s.userCacheTTL); err != nil {
			s.logger.Warn("не удалось закэшировать профиль пользователя", zap.Uint64("userId", userID), zap.Error(err))
		}
	}

	if !user.IsActive {
		return nil, apperrors.ErrForbidden
	}
	currentUser := authz.CurrentUserFrom(user.ID, user.Role)
	return &currentUser, nil
}
