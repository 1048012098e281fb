package utils

import (
	"context"

	"workshop-system/internal/authz"
	"workshop-system/pkg/contextkeys"
	apperrors "workshop-system/pkg/errors"
)

func GetUserIDFromCtx(ctx context.Context) (uint64, error) {
	userID, ok := ctx.Value(contextkeys.UserIDKey).(uint64)
	if !ok || userID == 0 {
		return 0, apperrors.ErrUserIDNotFoundInContext
	}
	return userID, nil
}

// GetCurrentUserFromCtx достаёт авторизованного пользователя, положенного в контекст middleware-ом.
func GetCurrentUserFromCtx(ctx context.Context) (authz.CurrentUser, error) {
	user, ok := ctx.Value(contextkeys.CurrentUserKey).(authz.CurrentUser)
	if !ok || user.ID == 0 {
		return authz.CurrentUser{}, apperrors.ErrUserIDNotFoundInContext
	}
	return user, nil
}
