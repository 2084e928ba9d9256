package models

import (
	"time"

	"github.com/google/uuid"
)

// User описывает сущность пользователя сервиса.
// Запись принадлежит справочнику пользователей; подсистема верификации
// ссылается на неё только по идентификатору.
type User struct {
	ID               uuid.UUID  `db:"id" json:"id"`
	Email            string     `db:"email" json:"email"`
	Username         string     `db:"username" json:"username"`
	FirstName        *string    `db:"first_name" json:"first_name,omitempty"`
	LastName         *string    `db:"last_name" json:"last_name,omitempty"`
	Role             string     `db:"role" json:"role"`
	IsActive         bool       `db:"is_active" json:"is_active"`
	IdentityVerified bool       `db:"identity_verified" json:"identity_verified"`
	LastLoginAt      *time.Time `db:"last_login_at" json:"last_login_at,omitempty"`
	CreatedAt        time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time  `db:"updated_at" json:"updated_at"`
}

// Роли пользователей.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)
