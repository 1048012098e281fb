package entities

import (
	"time"

	"workshop-system/internal/authz"
)

type User struct {
	ID           uint64
	Fio          string
	Login        string
	Phone        string
	PasswordHash string
	Role         authz.Role
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
