package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/brightpath-ai/tutoring-platform/internal/model"
	"github.com/brightpath-ai/tutoring-platform/internal/store"
	"github.com/brightpath-ai/tutoring-platform/pkg/logger"
)

// StudentService covers the teacher-facing view of their students:
// rosters and personalization profiles.
type StudentService struct {
	users    UserStore
	profiles ProfileStore
	log      *logger.Logger
}

// NewStudentService creates a student service.
func NewStudentService(users UserStore, profiles ProfileStore, log *logger.Logger) *StudentService {
	return &StudentService{users: users, profiles: profiles, log: log}
}

// ListStudents returns the teacher's roster.
func (s *StudentService) ListStudents(ctx context.Context, teacherID string) ([]model.User, error) {
	return s.users.ListStudentsOfTeacher(ctx, teacherID)
}

// GetProfile returns the profile notes for one of the teacher's students.
func (s *StudentService) GetProfile(ctx context.Context, teacherID, studentID string) (*model.StudentProfile, error) {
	if err := s.verifyLinked(ctx, teacherID, studentID); err != nil {
		return nil, err
	}
	p, err := s.profiles.GetByStudent(ctx, studentID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrNotFound
	}
	return p, err
}

// UpsertProfile creates or updates profile notes for one of the
// teacher's students.
func (s *StudentService) UpsertProfile(ctx context.Context, teacherID, studentID string, req *model.UpsertStudentProfileRequest) (*model.StudentProfile, error) {
	if err := s.verifyLinked(ctx, teacherID, studentID); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	p, err := s.profiles.GetByStudent(ctx, studentID)
	if errors.Is(err, store.ErrNotFound) {
		id, err := uuid.NewV7()
		if err != nil {
			return nil, err
		}
		p = &model.StudentProfile{
			ID:        id.String(),
			StudentID: studentID,
			TeacherID: teacherID,
			CreatedAt: now,
		}
	} else if err != nil {
		return nil, err
	}

	p.Strengths = req.Strengths
	p.Challenges = req.Challenges
	p.Interests = req.Interests
	p.Notes = req.Notes
	p.UpdatedAt = now

	if err := s.profiles.Upsert(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// verifyLinked confirms the student exists and belongs to this teacher.
func (s *StudentService) verifyLinked(ctx context.Context, teacherID, studentID string) error {
	student, err := s.users.GetByID(ctx, studentID)
	if errors.Is(err, store.ErrNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	if student.Role != model.RoleStudent || student.TeacherID == nil || *student.TeacherID != teacherID {
		return ErrForbidden
	}
	return nil
}
