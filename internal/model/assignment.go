package model

import (
	"time"
)

// Assignment is a free-text prompt created by a teacher.
type Assignment struct {
	ID        string     `json:"id" gorm:"primaryKey"`
	TeacherID string     `json:"teacher_id" gorm:"index;not null"`
	Title     string     `json:"title" gorm:"not null"`
	Prompt    string     `json:"prompt" gorm:"not null"`
	DueAt     *time.Time `json:"due_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// Submission is a student's answer to an assignment, optionally graded.
type Submission struct {
	ID           string     `json:"id" gorm:"primaryKey"`
	AssignmentID string     `json:"assignment_id" gorm:"index;not null"`
	StudentID    string     `json:"student_id" gorm:"index;not null"`
	Content      string     `json:"content" gorm:"not null"`
	Score        *float64   `json:"score,omitempty"`
	Feedback     string     `json:"feedback,omitempty"`
	GradedAt     *time.Time `json:"graded_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// CreateAssignmentRequest creates an assignment.
type CreateAssignmentRequest struct {
	Title  string     `json:"title" validate:"required,max=256"`
	Prompt string     `json:"prompt" validate:"required"`
	DueAt  *time.Time `json:"due_at,omitempty"`
}

// SubmitAssignmentRequest carries a student submission.
type SubmitAssignmentRequest struct {
	Content string `json:"content" validate:"required"`
}

// GradeSubmissionRequest records a numeric score and feedback text.
type GradeSubmissionRequest struct {
	Score    float64 `json:"score" validate:"min=0,max=100"`
	Feedback string  `json:"feedback"`
}
