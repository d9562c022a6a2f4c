package store

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/brightpath-ai/tutoring-platform/internal/model"
)

// Assignments provides assignment and submission persistence.
type Assignments struct {
	db *DB
}

// NewAssignments creates an assignment store.
func NewAssignments(db *DB) *Assignments {
	return &Assignments{db: db}
}

// Create inserts an assignment.
func (s *Assignments) Create(ctx context.Context, a *model.Assignment) error {
	return s.db.WithContext(ctx).Create(a).Error
}

// Get fetches an assignment.
func (s *Assignments) Get(ctx context.Context, id string) (*model.Assignment, error) {
	var a model.Assignment
	err := s.db.WithContext(ctx).First(&a, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// ListByTeacher returns a teacher's assignments, newest first.
func (s *Assignments) ListByTeacher(ctx context.Context, teacherID string) ([]model.Assignment, error) {
	var out []model.Assignment
	err := s.db.WithContext(ctx).
		Where("teacher_id = ?", teacherID).
		Order("created_at DESC").
		Find(&out).Error
	return out, err
}

// CreateSubmission inserts a student submission.
func (s *Assignments) CreateSubmission(ctx context.Context, sub *model.Submission) error {
	return s.db.WithContext(ctx).Create(sub).Error
}

// GetSubmission fetches one submission.
func (s *Assignments) GetSubmission(ctx context.Context, id string) (*model.Submission, error) {
	var sub model.Submission
	err := s.db.WithContext(ctx).First(&sub, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

// GetSubmissionByStudent fetches a student's submission for an assignment,
// if one exists.
func (s *Assignments) GetSubmissionByStudent(ctx context.Context, assignmentID, studentID string) (*model.Submission, error) {
	var sub model.Submission
	err := s.db.WithContext(ctx).
		First(&sub, "assignment_id = ? AND student_id = ?", assignmentID, studentID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

// ListSubmissionsByAssignment returns all submissions for an assignment.
func (s *Assignments) ListSubmissionsByAssignment(ctx context.Context, assignmentID string) ([]model.Submission, error) {
	var out []model.Submission
	err := s.db.WithContext(ctx).
		Where("assignment_id = ?", assignmentID).
		Order("created_at ASC").
		Find(&out).Error
	return out, err
}

// ListSubmissionsByStudent returns a student's submissions.
func (s *Assignments) ListSubmissionsByStudent(ctx context.Context, studentID string) ([]model.Submission, error) {
	var out []model.Submission
	err := s.db.WithContext(ctx).
		Where("student_id = ?", studentID).
		Order("created_at DESC").
		Find(&out).Error
	return out, err
}

// Grade records a numeric score and feedback on a submission.
func (s *Assignments) Grade(ctx context.Context, submissionID string, score float64, feedback string, at time.Time) error {
	res := s.db.WithContext(ctx).Model(&model.Submission{}).
		Where("id = ?", submissionID).
		Updates(map[string]any{
			"score":     score,
			"feedback":  feedback,
			"graded_at": at,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
