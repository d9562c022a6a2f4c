package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/brightpath-ai/tutoring-platform/internal/model"
	"github.com/brightpath-ai/tutoring-platform/internal/store"
	"github.com/brightpath-ai/tutoring-platform/pkg/logger"
)

// AssignmentService manages free-text assignments and grading.
type AssignmentService struct {
	assignments AssignmentStore
	users       UserStore
	log         *logger.Logger
}

// NewAssignmentService creates an assignment service.
func NewAssignmentService(assignments AssignmentStore, users UserStore, log *logger.Logger) *AssignmentService {
	return &AssignmentService{assignments: assignments, users: users, log: log}
}

// Create creates an assignment for the teacher's students.
func (s *AssignmentService) Create(ctx context.Context, teacherID string, req *model.CreateAssignmentRequest) (*model.Assignment, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	a := &model.Assignment{
		ID:        id.String(),
		TeacherID: teacherID,
		Title:     req.Title,
		Prompt:    req.Prompt,
		DueAt:     req.DueAt,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.assignments.Create(ctx, a); err != nil {
		return nil, err
	}
	s.log.Info("assignment created",
		zap.String("assignment_id", a.ID),
		zap.String("teacher_id", teacherID))
	return a, nil
}

// ListByTeacher returns the teacher's assignments.
func (s *AssignmentService) ListByTeacher(ctx context.Context, teacherID string) ([]model.Assignment, error) {
	return s.assignments.ListByTeacher(ctx, teacherID)
}

// ListForStudent returns the assignments posted by the student's teacher.
// A student with no teacher has none.
func (s *AssignmentService) ListForStudent(ctx context.Context, studentID string) ([]model.Assignment, error) {
	student, err := s.users.GetByID(ctx, studentID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if student.TeacherID == nil {
		return []model.Assignment{}, nil
	}
	return s.assignments.ListByTeacher(ctx, *student.TeacherID)
}

// Submit records a student's answer. One submission per assignment per
// student.
func (s *AssignmentService) Submit(ctx context.Context, studentID, assignmentID string, req *model.SubmitAssignmentRequest) (*model.Submission, error) {
	assignment, err := s.assignments.Get(ctx, assignmentID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	// The assignment must come from the student's own teacher.
	student, err := s.users.GetByID(ctx, studentID)
	if err != nil {
		return nil, err
	}
	if student.TeacherID == nil || *student.TeacherID != assignment.TeacherID {
		return nil, ErrForbidden
	}

	if _, err := s.assignments.GetSubmissionByStudent(ctx, assignmentID, studentID); err == nil {
		return nil, ErrAlreadySubmitted
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}

	id, err := uuid.NewV7()
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	sub := &model.Submission{
		ID:           id.String(),
		AssignmentID: assignmentID,
		StudentID:    studentID,
		Content:      req.Content,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.assignments.CreateSubmission(ctx, sub); err != nil {
		return nil, err
	}
	return sub, nil
}

// ListSubmissions returns submissions for one of the teacher's assignments.
func (s *AssignmentService) ListSubmissions(ctx context.Context, teacherID, assignmentID string) ([]model.Submission, error) {
	assignment, err := s.assignments.Get(ctx, assignmentID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if assignment.TeacherID != teacherID {
		return nil, ErrNotFound
	}
	return s.assignments.ListSubmissionsByAssignment(ctx, assignmentID)
}

// ListOwnSubmissions returns the student's own submissions.
func (s *AssignmentService) ListOwnSubmissions(ctx context.Context, studentID string) ([]model.Submission, error) {
	return s.assignments.ListSubmissionsByStudent(ctx, studentID)
}

// Grade scores a submission on one of the teacher's assignments.
func (s *AssignmentService) Grade(ctx context.Context, teacherID, submissionID string, req *model.GradeSubmissionRequest) (*model.Submission, error) {
	sub, err := s.assignments.GetSubmission(ctx, submissionID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	assignment, err := s.assignments.Get(ctx, sub.AssignmentID)
	if err != nil {
		return nil, err
	}
	if assignment.TeacherID != teacherID {
		return nil, ErrNotFound
	}

	if err := s.assignments.Grade(ctx, submissionID, req.Score, req.Feedback, time.Now().UTC()); err != nil {
		return nil, err
	}
	return s.assignments.GetSubmission(ctx, submissionID)
}
