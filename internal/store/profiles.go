package store

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/brightpath-ai/tutoring-platform/internal/model"
)

// Profiles provides student-profile persistence.
type Profiles struct {
	db *DB
}

// NewProfiles creates a profile store.
func NewProfiles(db *DB) *Profiles {
	return &Profiles{db: db}
}

// GetByStudent fetches the profile for a student, if any.
func (s *Profiles) GetByStudent(ctx context.Context, studentID string) (*model.StudentProfile, error) {
	var p model.StudentProfile
	err := s.db.WithContext(ctx).First(&p, "student_id = ?", studentID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// Upsert creates or replaces the notes for a student.
func (s *Profiles) Upsert(ctx context.Context, p *model.StudentProfile) error {
	existing, err := s.GetByStudent(ctx, p.StudentID)
	if errors.Is(err, ErrNotFound) {
		return s.db.WithContext(ctx).Create(p).Error
	}
	if err != nil {
		return err
	}

	p.ID = existing.ID
	p.CreatedAt = existing.CreatedAt
	return s.db.WithContext(ctx).Save(p).Error
}
