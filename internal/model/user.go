// Package model defines data structures for the tutoring platform.
package model

import (
	"time"

	"gorm.io/gorm"
)

// Role represents a user's role on the platform.
type Role string

const (
	RoleStudent Role = "student"
	RoleTeacher Role = "teacher"
	RoleAdmin   Role = "admin"
)

// Valid reports whether the role is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleStudent, RoleTeacher, RoleAdmin:
		return true
	}
	return false
}

// User represents a platform account.
type User struct {
	ID           string         `json:"id" gorm:"primaryKey"`
	Email        string         `json:"email" gorm:"uniqueIndex;not null"`
	PasswordHash string         `json:"-" gorm:"not null"`
	Name         string         `json:"name"`
	Role         Role           `json:"role" gorm:"not null;default:student"`
	TeacherID    *string        `json:"teacher_id,omitempty" gorm:"index"`
	Model        string         `json:"model,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `json:"deleted_at,omitempty" gorm:"index"`
}

// SignupRequest is the request to create a student account.
type SignupRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
	Name     string `json:"name" validate:"required,max=128"`
}

// LoginRequest is the request to authenticate.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// AuthResponse carries a session token and the resolved profile.
type AuthResponse struct {
	Token string `json:"token"`
	User  *User  `json:"user"`
}

// CreateUserRequest is the admin request to create an account with a role.
type CreateUserRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
	Name     string `json:"name" validate:"required,max=128"`
	Role     Role   `json:"role" validate:"required,oneof=student teacher admin"`
}

// UpdateUserRequest is the admin request to change role or teacher link.
type UpdateUserRequest struct {
	Role      Role    `json:"role,omitempty"`
	TeacherID *string `json:"teacher_id,omitempty"`
	Name      string  `json:"name,omitempty"`
}

// UpdateModelRequest persists a user's selected LLM model.
type UpdateModelRequest struct {
	Model string `json:"model" validate:"required,max=128"`
}
