package model

import (
	"time"
)

// Priority represents announcement priority.
type Priority string

const (
	PriorityNormal Priority = "normal"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// Announcement is a broadcast from a teacher or admin to students.
type Announcement struct {
	ID        string     `json:"id" gorm:"primaryKey"`
	AuthorID  string     `json:"author_id" gorm:"index;not null"`
	Title     string     `json:"title" gorm:"not null"`
	Body      string     `json:"body"`
	Priority  Priority   `json:"priority" gorm:"not null;default:normal"`
	Pinned    bool       `json:"pinned"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`

	Read bool `json:"read" gorm:"-"`
}

// AnnouncementRead is a per-student read receipt.
type AnnouncementRead struct {
	ID             string    `json:"id" gorm:"primaryKey"`
	AnnouncementID string    `json:"announcement_id" gorm:"uniqueIndex:idx_announcement_student;not null"`
	StudentID      string    `json:"student_id" gorm:"uniqueIndex:idx_announcement_student;not null"`
	ReadAt         time.Time `json:"read_at"`
}

// CreateAnnouncementRequest creates an announcement.
type CreateAnnouncementRequest struct {
	Title     string     `json:"title" validate:"required,max=256"`
	Body      string     `json:"body"`
	Priority  Priority   `json:"priority" validate:"omitempty,oneof=normal high urgent"`
	Pinned    bool       `json:"pinned"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

// UpdateAnnouncementRequest updates an announcement.
type UpdateAnnouncementRequest struct {
	Title     string     `json:"title,omitempty"`
	Body      string     `json:"body,omitempty"`
	Priority  Priority   `json:"priority,omitempty" validate:"omitempty,oneof=normal high urgent"`
	Pinned    *bool      `json:"pinned,omitempty"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}
