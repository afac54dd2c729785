package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/jwalitptl/cliniccare-api/pkg/cardpolicy"
)

// User status constants
const (
	UserStatusActive   = "active"
	UserStatusInactive = "inactive"
)

// User represents a staff member
type User struct {
	Base
	Email        string          `json:"email" db:"email"`
	FirstName    string          `json:"first_name" db:"first_name"`
	LastName     string          `json:"last_name" db:"last_name"`
	Phone        *string         `json:"phone,omitempty" db:"phone"`
	Role         cardpolicy.Role `json:"role" db:"role"`
	Status       string          `json:"status" db:"status"`
	PasswordHash string          `json:"-" db:"password_hash"`
	LastLoginAt  *time.Time      `json:"last_login_at,omitempty" db:"last_login_at"`
}

func (u *User) FullName() string {
	return u.FirstName + " " + u.LastName
}

// Viewer is the visibility identity for this user.
func (u *User) Viewer() cardpolicy.Viewer {
	return cardpolicy.Viewer{Role: u.Role, ID: u.ID.String()}
}

// CreateUserRequest represents user creation parameters
type CreateUserRequest struct {
	Email     string          `json:"email" binding:"required,email"`
	FirstName string          `json:"first_name" binding:"required"`
	LastName  string          `json:"last_name" binding:"required"`
	Phone     *string         `json:"phone"`
	Password  string          `json:"password" binding:"required,min=8"`
	Role      cardpolicy.Role `json:"role" binding:"required,clinicrole"`
}

type UserFilters struct {
	Role   cardpolicy.Role
	Status string
}

// UserProfile is returned by the me endpoint.
type UserProfile struct {
	*User
	Sections []cardpolicy.Section `json:"sections"`
}

type UserRef struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
}
