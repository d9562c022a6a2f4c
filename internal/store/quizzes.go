package store

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/brightpath-ai/tutoring-platform/internal/model"
)

// Quizzes provides quiz and quiz-assignment persistence.
type Quizzes struct {
	db *DB
}

// NewQuizzes creates a quiz store.
func NewQuizzes(db *DB) *Quizzes {
	return &Quizzes{db: db}
}

// Create inserts a quiz and its questions in one transaction.
func (s *Quizzes) Create(ctx context.Context, q *model.Quiz) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		questions := q.Questions
		q.Questions = nil
		if err := tx.Create(q).Error; err != nil {
			return err
		}
		for i := range questions {
			questions[i].QuizID = q.ID
		}
		if len(questions) > 0 {
			if err := tx.Create(&questions).Error; err != nil {
				return err
			}
		}
		q.Questions = questions
		return nil
	})
}

// Get fetches a quiz with its questions in position order.
func (s *Quizzes) Get(ctx context.Context, id string) (*model.Quiz, error) {
	var q model.Quiz
	err := s.db.WithContext(ctx).
		Preload("Questions", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC")
		}).
		First(&q, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &q, nil
}

// ListByTeacher returns a teacher's quizzes, newest first.
func (s *Quizzes) ListByTeacher(ctx context.Context, teacherID string) ([]model.Quiz, error) {
	var quizzes []model.Quiz
	err := s.db.WithContext(ctx).
		Where("teacher_id = ?", teacherID).
		Order("created_at DESC").
		Find(&quizzes).Error
	return quizzes, err
}

// Delete removes a quiz and its questions.
func (s *Quizzes) Delete(ctx context.Context, id string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&model.QuizQuestion{}, "quiz_id = ?", id).Error; err != nil {
			return err
		}
		res := tx.Delete(&model.Quiz{}, "id = ?", id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}

// CountLiveAssignments counts incomplete assignments for a quiz.
func (s *Quizzes) CountLiveAssignments(ctx context.Context, quizID string) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&model.QuizAssignment{}).
		Where("quiz_id = ? AND completed = ?", quizID, false).
		Count(&count).Error
	return count, err
}

// CreateAssignments inserts assignment rows for a set of students.
func (s *Quizzes) CreateAssignments(ctx context.Context, assignments []model.QuizAssignment) error {
	if len(assignments) == 0 {
		return nil
	}
	return s.db.WithContext(ctx).Create(&assignments).Error
}

// ListAssignmentsByQuiz returns all assignments of a quiz.
func (s *Quizzes) ListAssignmentsByQuiz(ctx context.Context, quizID string) ([]model.QuizAssignment, error) {
	var out []model.QuizAssignment
	err := s.db.WithContext(ctx).
		Where("quiz_id = ?", quizID).
		Order("created_at DESC").
		Find(&out).Error
	return out, err
}

// ListAssignmentsByStudent returns a student's assignments with quizzes
// preloaded.
func (s *Quizzes) ListAssignmentsByStudent(ctx context.Context, studentID string) ([]model.QuizAssignment, error) {
	var out []model.QuizAssignment
	err := s.db.WithContext(ctx).
		Preload("Quiz.Questions", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC")
		}).
		Preload("Quiz").
		Where("student_id = ?", studentID).
		Order("created_at DESC").
		Find(&out).Error
	return out, err
}

// GetAssignment fetches one assignment owned by a student.
func (s *Quizzes) GetAssignment(ctx context.Context, studentID, assignmentID string) (*model.QuizAssignment, error) {
	var a model.QuizAssignment
	err := s.db.WithContext(ctx).
		First(&a, "id = ? AND student_id = ?", assignmentID, studentID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// CompleteAssignment records a finished attempt with its score.
func (s *Quizzes) CompleteAssignment(ctx context.Context, assignmentID string, score int, at time.Time) error {
	res := s.db.WithContext(ctx).Model(&model.QuizAssignment{}).
		Where("id = ?", assignmentID).
		Updates(map[string]any{
			"completed":    true,
			"score":        score,
			"completed_at": at,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
