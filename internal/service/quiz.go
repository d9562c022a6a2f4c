package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/brightpath-ai/tutoring-platform/internal/llm"
	"github.com/brightpath-ai/tutoring-platform/internal/model"
	"github.com/brightpath-ai/tutoring-platform/internal/quiz"
	"github.com/brightpath-ai/tutoring-platform/internal/store"
	"github.com/brightpath-ai/tutoring-platform/pkg/logger"
	"github.com/brightpath-ai/tutoring-platform/pkg/metrics"
)

const quizMaxTokens = 4096

// QuizService generates, assigns and grades multiple-choice quizzes.
type QuizService struct {
	quizzes  QuizStore
	users    UserStore
	registry *llm.Registry
	log      *logger.Logger
}

// NewQuizService creates a quiz service.
func NewQuizService(quizzes QuizStore, users UserStore, registry *llm.Registry, log *logger.Logger) *QuizService {
	return &QuizService{quizzes: quizzes, users: users, registry: registry, log: log}
}

// Generate asks the model for a quiz on the topic, validates the output
// question by question, and stores whatever survives. Generation fails
// only when nothing usable remains.
func (s *QuizService) Generate(ctx context.Context, teacherID string, req *model.GenerateQuizRequest) (*model.Quiz, error) {
	client := s.registry.Default()
	if client == nil {
		return nil, errors.New("no LLM provider configured")
	}

	resp, err := client.Complete(ctx, &llm.CompletionRequest{
		Messages: []llm.ChatMessage{
			{Role: "user", Content: llm.QuizPrompt(req.Topic, req.QuestionCount)},
		},
		MaxTokens:   quizMaxTokens,
		Temperature: 0.3,
	})
	if err != nil {
		metrics.QuizGenerationsTotal.WithLabelValues("llm_error").Inc()
		return nil, err
	}

	questions, err := quiz.Parse(resp.Content)
	if err != nil {
		metrics.QuizGenerationsTotal.WithLabelValues("invalid").Inc()
		s.log.Warn("quiz generation yielded no valid questions",
			zap.String("teacher_id", teacherID),
			zap.String("topic", req.Topic))
		return nil, err
	}

	id, err := uuid.NewV7()
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	q := &model.Quiz{
		ID:        id.String(),
		TeacherID: teacherID,
		Topic:     req.Topic,
		Title:     req.Topic,
		CreatedAt: now,
		UpdatedAt: now,
		Questions: questions,
	}
	if err := s.quizzes.Create(ctx, q); err != nil {
		return nil, err
	}

	metrics.QuizGenerationsTotal.WithLabelValues("ok").Inc()
	s.log.Info("quiz generated",
		zap.String("quiz_id", q.ID),
		zap.String("teacher_id", teacherID),
		zap.Int("questions", len(questions)))

	return q, nil
}

// Get fetches one of the teacher's quizzes with its questions.
func (s *QuizService) Get(ctx context.Context, teacherID, quizID string) (*model.Quiz, error) {
	q, err := s.quizzes.Get(ctx, quizID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if q.TeacherID != teacherID {
		return nil, ErrNotFound
	}
	return q, nil
}

// List returns the teacher's quizzes.
func (s *QuizService) List(ctx context.Context, teacherID string) ([]model.Quiz, error) {
	return s.quizzes.ListByTeacher(ctx, teacherID)
}

// Delete removes a quiz. A quiz with incomplete assignments cannot be
// deleted; students mid-quiz must not lose it under them.
func (s *QuizService) Delete(ctx context.Context, teacherID, quizID string) error {
	if _, err := s.Get(ctx, teacherID, quizID); err != nil {
		return err
	}
	live, err := s.quizzes.CountLiveAssignments(ctx, quizID)
	if err != nil {
		return err
	}
	if live > 0 {
		return ErrQuizHasAssignments
	}
	return s.quizzes.Delete(ctx, quizID)
}

// Assign assigns a quiz to students of the teacher. Every target must be
// a student linked to this teacher.
func (s *QuizService) Assign(ctx context.Context, teacherID, quizID string, req *model.AssignQuizRequest) ([]model.QuizAssignment, error) {
	if _, err := s.Get(ctx, teacherID, quizID); err != nil {
		return nil, err
	}

	existing, err := s.quizzes.ListAssignmentsByQuiz(ctx, quizID)
	if err != nil {
		return nil, err
	}
	assigned := make(map[string]bool, len(existing))
	for _, a := range existing {
		assigned[a.StudentID] = true
	}

	now := time.Now().UTC()
	assignments := make([]model.QuizAssignment, 0, len(req.StudentIDs))
	for _, studentID := range req.StudentIDs {
		if assigned[studentID] {
			continue
		}
		student, err := s.users.GetByID(ctx, studentID)
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrNotFound
		}
		if err != nil {
			return nil, err
		}
		if student.Role != model.RoleStudent || student.TeacherID == nil || *student.TeacherID != teacherID {
			return nil, ErrForbidden
		}
		id, err := uuid.NewV7()
		if err != nil {
			return nil, err
		}
		assignments = append(assignments, model.QuizAssignment{
			ID:        id.String(),
			QuizID:    quizID,
			StudentID: studentID,
			CreatedAt: now,
		})
		assigned[studentID] = true
	}

	if len(assignments) > 0 {
		if err := s.quizzes.CreateAssignments(ctx, assignments); err != nil {
			return nil, err
		}
	}
	return assignments, nil
}

// ListAssignments returns every assignment of one of the teacher's quizzes.
func (s *QuizService) ListAssignments(ctx context.Context, teacherID, quizID string) ([]model.QuizAssignment, error) {
	if _, err := s.Get(ctx, teacherID, quizID); err != nil {
		return nil, err
	}
	return s.quizzes.ListAssignmentsByQuiz(ctx, quizID)
}

// ListForStudent returns the student's quiz assignments with quiz
// content, projected so the answer key never leaves the server before
// the attempt is completed.
func (s *QuizService) ListForStudent(ctx context.Context, studentID string) ([]model.StudentQuizAssignment, error) {
	assignments, err := s.quizzes.ListAssignmentsByStudent(ctx, studentID)
	if err != nil {
		return nil, err
	}
	views := make([]model.StudentQuizAssignment, len(assignments))
	for i := range assignments {
		views[i] = assignments[i].StudentView()
	}
	return views, nil
}

// Submit grades a student's answers against the quiz key and records the
// score. A completed assignment cannot be submitted again.
func (s *QuizService) Submit(ctx context.Context, studentID, assignmentID string, req *model.SubmitQuizRequest) (*model.SubmitQuizResponse, error) {
	assignment, err := s.quizzes.GetAssignment(ctx, studentID, assignmentID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if assignment.Completed {
		return nil, ErrAlreadyCompleted
	}

	q, err := s.quizzes.Get(ctx, assignment.QuizID)
	if err != nil {
		return nil, err
	}
	if len(req.Answers) != len(q.Questions) {
		return nil, ErrAnswerCount
	}

	correct := 0
	for i, question := range q.Questions {
		if req.Answers[i] == question.AnswerIndex {
			correct++
		}
	}
	total := len(q.Questions)
	score := 0
	if total > 0 {
		score = correct * 100 / total
	}

	if err := s.quizzes.CompleteAssignment(ctx, assignmentID, score, time.Now().UTC()); err != nil {
		return nil, err
	}

	s.log.Info("quiz submitted",
		zap.String("assignment_id", assignmentID),
		zap.String("student_id", studentID),
		zap.Int("score", score))

	return &model.SubmitQuizResponse{Score: score, Total: total, Correct: correct}, nil
}
