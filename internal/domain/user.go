package domain

import (
	"time"

	apperrors "github.com/tickhelp/helpdesk-service/pkg/util"
)

// UserRole gates access to administrative endpoints.
type UserRole string

const (
	RoleAdmin UserRole = "admin"
	RoleUser  UserRole = "user"
)

// ParseUserRole validates a raw role value.
func ParseUserRole(raw string) (UserRole, error) {
	switch UserRole(raw) {
	case RoleAdmin, RoleUser:
		return UserRole(raw), nil
	}
	return "", apperrors.NewValidationError("invalid role value", map[string]any{"role": raw})
}

// User is the domain model for registered accounts.
// PasswordHash is never serialized into any response.
type User struct {
	ID           string
	Email        string
	PasswordHash string
	FirstName    string
	LastName     string
	Role         UserRole
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
