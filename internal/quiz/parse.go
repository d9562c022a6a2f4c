// Package quiz validates and normalizes LLM-generated quiz JSON.
package quiz

import (
	"encoding/json"
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/brightpath-ai/tutoring-platform/internal/model"
	"github.com/brightpath-ai/tutoring-platform/pkg/metrics"
)

// ErrNoValidQuestions is returned when the vendor output yields nothing
// usable: wrong top-level shape, or every question individually invalid.
var ErrNoValidQuestions = errors.New("could not generate a valid quiz")

type rawQuiz struct {
	Questions []rawQuestion `json:"questions"`
}

type rawQuestion struct {
	Question    string          `json:"question"`
	Options     json.RawMessage `json:"options"`
	Answer      string          `json:"answer"`
	Explanation string          `json:"explanation"`
}

// Parse converts raw LLM output into normalized question records. Questions
// are validated individually: a question with a missing/non-array option
// list, or whose stated answer is not found verbatim among its options, is
// discarded without failing the batch. Relative order of valid questions is
// preserved. If nothing valid remains the whole parse fails.
func Parse(raw string) ([]model.QuizQuestion, error) {
	cleaned := stripCodeFence(raw)

	var parsed rawQuiz
	if err := json.Unmarshal([]byte(cleaned), &parsed); err != nil {
		return nil, ErrNoValidQuestions
	}
	if len(parsed.Questions) == 0 {
		return nil, ErrNoValidQuestions
	}

	questions := make([]model.QuizQuestion, 0, len(parsed.Questions))
	for _, rq := range parsed.Questions {
		q, ok := normalize(rq)
		if !ok {
			metrics.QuizQuestionsDiscarded.Inc()
			continue
		}
		q.Position = len(questions)
		questions = append(questions, q)
	}

	if len(questions) == 0 {
		return nil, ErrNoValidQuestions
	}
	return questions, nil
}

func normalize(rq rawQuestion) (model.QuizQuestion, bool) {
	if strings.TrimSpace(rq.Question) == "" {
		return model.QuizQuestion{}, false
	}

	var options []string
	if err := json.Unmarshal(rq.Options, &options); err != nil || len(options) == 0 {
		return model.QuizQuestion{}, false
	}

	answerIndex := -1
	for i, opt := range options {
		if opt == rq.Answer {
			answerIndex = i
			break
		}
	}
	if answerIndex < 0 {
		return model.QuizQuestion{}, false
	}

	return model.QuizQuestion{
		ID:          uuid.Must(uuid.NewV7()).String(),
		Prompt:      rq.Question,
		Options:     datatypes.NewJSONSlice(options),
		AnswerIndex: answerIndex,
		Explanation: rq.Explanation,
	}, true
}

// stripCodeFence removes a surrounding markdown code fence, which models
// emit even when told not to.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
