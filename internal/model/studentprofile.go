package model

import (
	"time"
)

// StudentProfile holds teacher-authored personalization notes for one
// student. The notes bias the system prompt sent to the LLM.
type StudentProfile struct {
	ID         string    `json:"id" gorm:"primaryKey"`
	StudentID  string    `json:"student_id" gorm:"uniqueIndex;not null"`
	TeacherID  string    `json:"teacher_id" gorm:"index;not null"`
	Strengths  string    `json:"strengths"`
	Challenges string    `json:"challenges"`
	Interests  string    `json:"interests"`
	Notes      string    `json:"notes"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// UpsertStudentProfileRequest creates or updates profile notes.
type UpsertStudentProfileRequest struct {
	Strengths  string `json:"strengths"`
	Challenges string `json:"challenges"`
	Interests  string `json:"interests"`
	Notes      string `json:"notes"`
}
