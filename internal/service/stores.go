// Package service provides business logic for the tutoring platform.
package service

import (
	"context"
	"errors"
	"time"

	"github.com/brightpath-ai/tutoring-platform/internal/model"
)

// Business-rule and lookup errors, mapped to HTTP status at the handler
// boundary.
var (
	ErrNotFound           = errors.New("not found")
	ErrForbidden          = errors.New("forbidden")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrEmailTaken         = errors.New("email is already registered")
	ErrQuizHasAssignments = errors.New("quiz has live assignments and cannot be deleted")
	ErrAlreadyCompleted   = errors.New("quiz assignment is already completed")
	ErrAlreadySubmitted   = errors.New("assignment has already been submitted")
	ErrSelfAssignment     = errors.New("a user cannot be assigned to themselves")
	ErrNotATeacher        = errors.New("target user is not a teacher")
	ErrAnswerCount        = errors.New("answer count does not match question count")
)

// UserStore is the persistence surface for users.
type UserStore interface {
	Create(ctx context.Context, u *model.User) error
	GetByID(ctx context.Context, id string) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	Update(ctx context.Context, u *model.User) error
	List(ctx context.Context) ([]model.User, error)
	ListStudentsOfTeacher(ctx context.Context, teacherID string) ([]model.User, error)
	HardDelete(ctx context.Context, id string) error
}

// ConversationStore is the persistence surface for conversations.
type ConversationStore interface {
	Create(ctx context.Context, c *model.Conversation) error
	GetOwned(ctx context.Context, userID, id string) (*model.Conversation, error)
	List(ctx context.Context, userID string, limit, offset int) ([]model.Conversation, int64, error)
	Rename(ctx context.Context, userID, id, title string) error
	SoftDelete(ctx context.Context, userID, id string) error
	Touch(ctx context.Context, id string, at time.Time) error
	ListAll(ctx context.Context, limit, offset int) ([]model.Conversation, int64, error)
	GetAny(ctx context.Context, id string) (*model.Conversation, error)
	HardDelete(ctx context.Context, id string) error
}

// MessageStore is the persistence surface for messages.
type MessageStore interface {
	Create(ctx context.Context, m *model.Message) error
	List(ctx context.Context, conversationID string, limit, offset int) ([]model.Message, error)
	ListRecent(ctx context.Context, conversationID string, limit int) ([]model.Message, error)
	GetByID(ctx context.Context, id string) (*model.Message, error)
	SetFlagged(ctx context.Context, id string, flagged bool) error
	ListFlaggedForTeacher(ctx context.Context, teacherID string, limit int) ([]model.Message, error)
}

// QuizStore is the persistence surface for quizzes and their assignments.
type QuizStore interface {
	Create(ctx context.Context, q *model.Quiz) error
	Get(ctx context.Context, id string) (*model.Quiz, error)
	ListByTeacher(ctx context.Context, teacherID string) ([]model.Quiz, error)
	Delete(ctx context.Context, id string) error
	CountLiveAssignments(ctx context.Context, quizID string) (int64, error)
	CreateAssignments(ctx context.Context, assignments []model.QuizAssignment) error
	ListAssignmentsByQuiz(ctx context.Context, quizID string) ([]model.QuizAssignment, error)
	ListAssignmentsByStudent(ctx context.Context, studentID string) ([]model.QuizAssignment, error)
	GetAssignment(ctx context.Context, studentID, assignmentID string) (*model.QuizAssignment, error)
	CompleteAssignment(ctx context.Context, assignmentID string, score int, at time.Time) error
}

// AssignmentStore is the persistence surface for free-text assignments.
type AssignmentStore interface {
	Create(ctx context.Context, a *model.Assignment) error
	Get(ctx context.Context, id string) (*model.Assignment, error)
	ListByTeacher(ctx context.Context, teacherID string) ([]model.Assignment, error)
	CreateSubmission(ctx context.Context, sub *model.Submission) error
	GetSubmission(ctx context.Context, id string) (*model.Submission, error)
	GetSubmissionByStudent(ctx context.Context, assignmentID, studentID string) (*model.Submission, error)
	ListSubmissionsByAssignment(ctx context.Context, assignmentID string) ([]model.Submission, error)
	ListSubmissionsByStudent(ctx context.Context, studentID string) ([]model.Submission, error)
	Grade(ctx context.Context, submissionID string, score float64, feedback string, at time.Time) error
}

// AnnouncementStore is the persistence surface for announcements.
type AnnouncementStore interface {
	Create(ctx context.Context, a *model.Announcement) error
	Get(ctx context.Context, id string) (*model.Announcement, error)
	Update(ctx context.Context, a *model.Announcement) error
	Delete(ctx context.Context, id string) error
	ListActive(ctx context.Context, studentID string, now time.Time) ([]model.Announcement, error)
	ListByAuthor(ctx context.Context, authorID string) ([]model.Announcement, error)
	MarkRead(ctx context.Context, read *model.AnnouncementRead) error
}

// ProfileStore is the persistence surface for student profiles.
type ProfileStore interface {
	GetByStudent(ctx context.Context, studentID string) (*model.StudentProfile, error)
	Upsert(ctx context.Context, p *model.StudentProfile) error
}

// EventPublisher fans messages and events out to monitors.
type EventPublisher interface {
	PublishMessage(ctx context.Context, userID string, msg *model.Message) error
	PublishEvent(ctx context.Context, event *model.TutorEvent) error
}
