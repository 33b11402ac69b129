package models

import (
	"time"
)

// Role — роль учётной записи, попадает в claims access-токена.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// Account - учётная запись пользователя.
// Создаётся неактивной при регистрации и активируется
// после погашения одноразового кода подтверждения.
type Account struct {
	ID           int64
	Email        string
	PasswordHash string
	Role         Role
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
