package authz

// CurrentUser — авторизованный субъект запроса. Строится один раз в middleware
// из аутентифицированного принципала, никогда не сохраняется.
type CurrentUser struct {
	ID          uint64
	Role        Role
	Permissions PermissionSet
}

func CurrentUserFrom(userID uint64, role Role) CurrentUser {
	return CurrentUser{
		ID:          userID,
		Role:        role,
		Permissions: PermissionsFor(role),
	}
}

func (u CurrentUser) HasPermission(permission Permission) bool {
	if u.Permissions == nil {
		return false
	}
	return u.Permissions[permission]
}
