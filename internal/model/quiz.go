package model

import (
	"time"

	"gorm.io/datatypes"
)

// Quiz is a set of multiple-choice questions generated for a teacher.
type Quiz struct {
	ID        string    `json:"id" gorm:"primaryKey"`
	TeacherID string    `json:"teacher_id" gorm:"index;not null"`
	Topic     string    `json:"topic" gorm:"not null"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Questions []QuizQuestion `json:"questions,omitempty" gorm:"foreignKey:QuizID"`
}

// QuizQuestion is one normalized multiple-choice question.
type QuizQuestion struct {
	ID          string                      `json:"id" gorm:"primaryKey"`
	QuizID      string                      `json:"quiz_id" gorm:"index;not null"`
	Position    int                         `json:"position"`
	Prompt      string                      `json:"prompt" gorm:"not null"`
	Options     datatypes.JSONSlice[string] `json:"options"`
	AnswerIndex int                         `json:"answer_index"`
	Explanation string                      `json:"explanation,omitempty"`
}

// QuizAssignment links a quiz to a student with completion tracking.
type QuizAssignment struct {
	ID          string     `json:"id" gorm:"primaryKey"`
	QuizID      string     `json:"quiz_id" gorm:"index;not null"`
	StudentID   string     `json:"student_id" gorm:"index;not null"`
	Completed   bool       `json:"completed"`
	Score       *int       `json:"score,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`

	Quiz *Quiz `json:"quiz,omitempty" gorm:"foreignKey:QuizID;references:ID"`
}

// StudentQuizQuestion is the question view served to students. The
// answer key and explanation stay empty until the assignment is
// completed; scoring happens server side.
type StudentQuizQuestion struct {
	ID          string   `json:"id"`
	Position    int      `json:"position"`
	Prompt      string   `json:"prompt"`
	Options     []string `json:"options"`
	AnswerIndex *int     `json:"answer_index,omitempty"`
	Explanation string   `json:"explanation,omitempty"`
}

// StudentQuiz is the quiz view served to students.
type StudentQuiz struct {
	ID        string                `json:"id"`
	Topic     string                `json:"topic"`
	Title     string                `json:"title"`
	Questions []StudentQuizQuestion `json:"questions"`
}

// StudentQuizAssignment is the assignment view served to students.
type StudentQuizAssignment struct {
	ID          string       `json:"id"`
	QuizID      string       `json:"quiz_id"`
	Completed   bool         `json:"completed"`
	Score       *int         `json:"score,omitempty"`
	CompletedAt *time.Time   `json:"completed_at,omitempty"`
	CreatedAt   time.Time    `json:"created_at"`
	Quiz        *StudentQuiz `json:"quiz,omitempty"`
}

// StudentView projects the assignment for a student. Answers and
// explanations are revealed only once the attempt is completed.
func (a *QuizAssignment) StudentView() StudentQuizAssignment {
	view := StudentQuizAssignment{
		ID:          a.ID,
		QuizID:      a.QuizID,
		Completed:   a.Completed,
		Score:       a.Score,
		CompletedAt: a.CompletedAt,
		CreatedAt:   a.CreatedAt,
	}
	if a.Quiz == nil {
		return view
	}

	quiz := &StudentQuiz{
		ID:        a.Quiz.ID,
		Topic:     a.Quiz.Topic,
		Title:     a.Quiz.Title,
		Questions: make([]StudentQuizQuestion, len(a.Quiz.Questions)),
	}
	for i, q := range a.Quiz.Questions {
		sq := StudentQuizQuestion{
			ID:       q.ID,
			Position: q.Position,
			Prompt:   q.Prompt,
			Options:  q.Options,
		}
		if a.Completed {
			answer := q.AnswerIndex
			sq.AnswerIndex = &answer
			sq.Explanation = q.Explanation
		}
		quiz.Questions[i] = sq
	}
	view.Quiz = quiz
	return view
}

// GenerateQuizRequest asks the LLM to generate a quiz on a topic.
type GenerateQuizRequest struct {
	Topic         string `json:"topic" validate:"required,max=256"`
	QuestionCount int    `json:"question_count" validate:"omitempty,min=1,max=20"`
}

// AssignQuizRequest assigns a quiz to a set of students.
type AssignQuizRequest struct {
	StudentIDs []string `json:"student_ids" validate:"required,min=1"`
}

// SubmitQuizRequest carries a student's chosen option index per question,
// in question order.
type SubmitQuizRequest struct {
	Answers []int `json:"answers"`
}

// SubmitQuizResponse reports the computed score.
type SubmitQuizResponse struct {
	Score   int `json:"score"`
	Total   int `json:"total"`
	Correct int `json:"correct"`
}
