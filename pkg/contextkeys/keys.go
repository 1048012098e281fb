package contextkeys

type contextKey string

const (
	UserIDKey      contextKey = "UserID"
	CurrentUserKey contextKey = "CurrentUser"
)
