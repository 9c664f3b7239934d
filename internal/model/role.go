package model

import "github.com/google/uuid"

// Role - роль владельца токена
type Role string

const (
	RoleUser       Role = "user"
	RoleAdmin      Role = "admin"
	RoleSuperAdmin Role = "superadmin"
)

func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAdmin || r == RoleSuperAdmin
}

// Principal - пользователь, от имени которого выполняется запрос
type Principal struct {
	UserID uuid.UUID
	Role   Role
}
