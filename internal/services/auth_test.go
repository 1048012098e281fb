package services

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"workshop-system/internal/authz"
	"workshop-system/internal/dto"
	"workshop-system/internal/entities"
	apperrors "workshop-system/pkg/errors"
	"workshop-system/pkg/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

type authFixture struct {
	svc   *AuthService
	cache *fakeCache
	users *fakeUserRepo
	jwt   service.JWTService
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte("secret123"), bcrypt.MinCost)
	require.NoError(t, err)

	f := &authFixture{
		cache: newFakeCache(),
		users: newFakeUserRepo(
			&entities.User{ID: 1, Login: "manager", PasswordHash: string(hash), Role: authz.RoleManager, IsActive: true},
			&entities.User{ID: 2, Login: "fired", PasswordHash: string(hash), Role: authz.RoleExecutor, IsActive: false},
		),
		jwt: service.NewJWTService("test-secret", time.Minute, time.Hour),
	}
	f.svc = &AuthService{
		userRepo:         f.users,
		cache:            f.cache,
		jwtService:       f.jwt,
		logger:           zap.NewNop(),
		userCacheTTL:     time.Minute,
		maxLoginAttempts: 3,
		lockoutDuration:  15 * time.Minute,
	}
	return f
}

func TestAuthService_Login(t *testing.T) {
	f := newAuthFixture(t)

	t.Run("успешный вход выдаёт пару токенов", func(t *testing.T) {
		pair, err := f.svc.Login(context.Background(), dto.LoginDTO{Login: "manager", Password: "secret123"})
		require.NoError(t, err)
		require.NotEmpty(t, pair.AccessToken)
		require.NotEmpty(t, pair.RefreshToken)

		claims, err := f.jwt.ValidateToken(pair.AccessToken)
		require.NoError(t, err)
		assert.Equal(t, uint64(1), claims.UserID)
		assert.False(t, claims.IsRefreshToken)

		claims, err = f.jwt.ValidateToken(pair.RefreshToken)
		require.NoError(t, err)
		assert.True(t, claims.IsRefreshToken)
	})

	t.Run("неверный пароль", func(t *testing.T) {
		_, err := f.svc.Login(context.Background(), dto.LoginDTO{Login: "manager", Password: "wrong"})
		assert.ErrorIs(t, err, apperrors.ErrInvalidCredentials)
	})

	t.Run("неизвестный логин неотличим от неверного пароля", func(t *testing.T) {
		_, err := f.svc.Login(context.Background(), dto.LoginDTO{Login: "nobody", Password: "secret123"})
		assert.ErrorIs(t, err, apperrors.ErrInvalidCredentials)
	})

	t.Run("деактивированный пользователь", func(t *testing.T) {
		_, err := f.svc.Login(context.Background(), dto.LoginDTO{Login: "fired", Password: "secret123"})
		assert.ErrorIs(t, err, apperrors.ErrForbidden)
	})
}

func TestAuthService_Login_Throttling(t *testing.T) {
	f := newAuthFixture(t)

	for i := 0; i < 3; i++ {
		_, err := f.svc.Login(context.Background(), dto.LoginDTO{Login: "manager", Password: "wrong"})
		require.ErrorIs(t, err, apperrors.ErrInvalidCredentials)
	}

	// Лимит исчерпан: даже верный пароль получает 429.
	_, err := f.svc.Login(context.Background(), dto.LoginDTO{Login: "manager", Password: "secret123"})
	var httpErr *apperrors.HttpError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, 429, httpErr.Code)
}

func TestAuthService_Login_SuccessResetsAttempts(t *testing.T) {
	f := newAuthFixture(t)

	for i := 0; i < 2; i++ {
		_, err := f.svc.Login(context.Background(), dto.LoginDTO{Login: "manager", Password: "wrong"})
		require.ErrorIs(t, err, apperrors.ErrInvalidCredentials)
	}

	_, err := f.svc.Login(context.Background(), dto.LoginDTO{Login: "manager", Password: "secret123"})
	require.NoError(t, err)

	_, ok := f.cache.values["auth:attempts:manager"]
	assert.False(t, ok, "счётчик сброшен после успешного входа")
}

func TestAuthService_RefreshToken(t *testing.T) {
	f := newAuthFixture(t)

	pair, err := f.svc.Login(context.Background(), dto.LoginDTO{Login: "manager", Password: "secret123"})
	require.NoError(t, err)

	t.Run("refresh-токен обменивается на новую пару", func(t *testing.T) {
		fresh, err := f.svc.RefreshToken(context.Background(), pair.RefreshToken)
		require.NoError(t, err)
		claims, err := f.jwt.ValidateToken(fresh.AccessToken)
		require.NoError(t, err)
		assert.Equal(t, uint64(1), claims.UserID)
	})

	t.Run("access-токен не принимается", func(t *testing.T) {
		_, err := f.svc.RefreshToken(context.Background(), pair.AccessToken)
		assert.ErrorIs(t, err, apperrors.ErrTokenIsNotRefresh)
	})

	t.Run("мусор вместо токена", func(t *testing.T) {
		_, err := f.svc.RefreshToken(context.Background(), "not-a-token")
		assert.Error(t, err)
	})

	t.Run("удалённый пользователь", func(t *testing.T) {
		delete(f.users.users, 1)
		_, err := f.svc.RefreshToken(context.Background(), pair.RefreshToken)
		assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
	})
}

func TestAuthService_GetProfile(t *testing.T) {
	f := newAuthFixture(t)

	profile, err := f.svc.GetProfile(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, "manager", profile.Login)
	assert.Equal(t, "MANAGER", profile.Role)
	assert.Contains(t, profile.Permissions, "work_orders:edit_all")
	assert.NotContains(t, profile.Permissions, "work_orders:edit_assigned")
}

func TestAuthService_GetAuthProfile(t *testing.T) {
	t.Run("промах кэша читает БД и кэширует", func(t *testing.T) {
		f := newAuthFixture(t)

		current, err := f.svc.GetAuthProfile(context.Background(), 1)
		require.NoError(t, err)
		assert.Equal(t, uint64(1), current.ID)
		assert.Equal(t, authz.RoleManager, current.Role)
		assert.True(t, current.HasPermission(authz.WorkOrdersViewAll))
		assert.Equal(t, 1, f.cache.setCalls)
	})

	t.Run("попадание в кэш не ходит в БД", func(t *testing.T) {
		f := newAuthFixture(t)
		raw, _ := json.Marshal(cachedAuthProfile{ID: 7, Role: authz.RoleMaster, IsActive: true})
		f.cache.values[fmt.Sprintf("auth:profile:%d", 7)] = string(raw)

		// Пользователя 7 нет в репозитории — профиль собирается из кэша.
		current, err := f.svc.GetAuthProfile(context.Background(), 7)
		require.NoError(t, err)
		assert.Equal(t, authz.RoleMaster, current.Role)
		assert.True(t, current.HasPermission(authz.WorkOrdersViewOwn))
	})

	t.Run("права собираются из роли, не из кэша", func(t *testing.T) {
		f := newAuthFixture(t)
		raw, _ := json.Marshal(cachedAuthProfile{ID: 8, Role: authz.RoleExecutor, IsActive: true})
		f.cache.values[fmt.Sprintf("auth:profile:%d", 8)] = string(raw)

		current, err := f.svc.GetAuthProfile(context.Background(), 8)
		require.NoError(t, err)
		assert.True(t, current.HasPermission(authz.WorkOrdersEditAssigned))
		assert.False(t, current.HasPermission(authz.WorkOrdersEditAll))
	})

	t.Run("деактивированный в кэше отклоняется", func(t *testing.T) {
		f := newAuthFixture(t)
		raw, _ := json.Marshal(cachedAuthProfile{ID: 2, Role: authz.RoleExecutor, IsActive: false})
		f.cache.values[fmt.Sprintf("auth:profile:%d", 2)] = string(raw)

		_, err := f.svc.GetAuthProfile(context.Background(), 2)
		assert.ErrorIs(t, err, apperrors.ErrForbidden)
	})

	t.Run("недоступный кэш прозрачно уходит в БД", func(t *testing.T) {
		f := newAuthFixture(t)
		f.cache.getErr = fmt.Errorf("redis: connection refused")

		current, err := f.svc.GetAuthProfile(context.Background(), 1)
		require.NoError(t, err)
		assert.Equal(t, uint64(1), current.ID)
	})

	t.Run("неизвестный пользователь", func(t *testing.T) {
		f := newAuthFixture(t)
		_, err := f.svc.GetAuthProfile(context.Background(), 99)
		assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
	})
}
