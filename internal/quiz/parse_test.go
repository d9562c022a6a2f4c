package quiz

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseValidQuiz(t *testing.T) {
	raw := `{
		"questions": [
			{"question": "2+2?", "options": ["3", "4", "5"], "answer": "4", "explanation": "basic addition"},
			{"question": "Capital of France?", "options": ["Paris", "Lyon"], "answer": "Paris"}
		]
	}`

	questions, err := Parse(raw)
	require.NoError(t, err)
	require.Len(t, questions, 2)

	assert.Equal(t, "2+2?", questions[0].Prompt)
	assert.Equal(t, 1, questions[0].AnswerIndex)
	assert.Equal(t, "basic addition", questions[0].Explanation)
	assert.Equal(t, 0, questions[0].Position)

	assert.Equal(t, "Capital of France?", questions[1].Prompt)
	assert.Equal(t, 0, questions[1].AnswerIndex)
	assert.Equal(t, 1, questions[1].Position)

	for _, q := range questions {
		assert.NotEmpty(t, q.ID)
	}
}

func TestParseDiscardsInvalidQuestionsIndividually(t *testing.T) {
	// Ten questions; four are individually broken. The six good ones
	// survive in their original relative order.
	raw := `{"questions": [
		{"question": "q0", "options": ["a", "b"], "answer": "a"},
		{"question": "", "options": ["a", "b"], "answer": "a"},
		{"question": "q2", "options": ["a", "b"], "answer": "a"},
		{"question": "q3", "options": "not-an-array", "answer": "a"},
		{"question": "q4", "options": ["a", "b"], "answer": "b"},
		{"question": "q5", "options": [], "answer": "a"},
		{"question": "q6", "options": ["a", "b"], "answer": "a"},
		{"question": "q7", "options": ["a", "b"], "answer": "c"},
		{"question": "q8", "options": ["a", "b"], "answer": "b"},
		{"question": "q9", "options": ["a", "b"], "answer": "a"}
	]}`

	questions, err := Parse(raw)
	require.NoError(t, err)
	require.Len(t, questions, 6)

	prompts := make([]string, len(questions))
	for i, q := range questions {
		prompts[i] = q.Prompt
		assert.Equal(t, i, q.Position)
	}
	assert.Equal(t, []string{"q0", "q2", "q4", "q6", "q8", "q9"}, prompts)
}

func TestParseAnswerMustMatchOptionVerbatim(t *testing.T) {
	// Case and whitespace differences are not a match.
	raw := `{"questions": [
		{"question": "q", "options": ["Paris", "Lyon"], "answer": "paris"},
		{"question": "q", "options": ["Paris", "Lyon"], "answer": " Paris"}
	]}`

	_, err := Parse(raw)
	assert.ErrorIs(t, err, ErrNoValidQuestions)
}

func TestParseFailsWhenNothingValid(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"not json", "sorry, I cannot generate a quiz"},
		{"wrong top-level shape", `["just", "an", "array"]`},
		{"missing questions key", `{"items": []}`},
		{"empty questions", `{"questions": []}`},
		{"every question invalid", `{"questions": [
			{"question": "q", "options": [], "answer": "a"},
			{"question": "q", "options": ["a"], "answer": "b"}
		]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.raw)
			assert.ErrorIs(t, err, ErrNoValidQuestions)
		})
	}
}

func TestParseStripsCodeFence(t *testing.T) {
	inner := `{"questions": [{"question": "q", "options": ["a", "b"], "answer": "b"}]}`

	for _, fence := range []string{
		fmt.Sprintf("```json\n%s\n```", inner),
		fmt.Sprintf("```\n%s\n```", inner),
		inner,
	} {
		questions, err := Parse(fence)
		require.NoError(t, err)
		require.Len(t, questions, 1)
		assert.Equal(t, 1, questions[0].AnswerIndex)
	}
}

func TestParseDuplicateOptionsUseFirstMatch(t *testing.T) {
	raw := `{"questions": [{"question": "q", "options": ["x", "x", "y"], "answer": "x"}]}`

	questions, err := Parse(raw)
	require.NoError(t, err)
	require.Len(t, questions, 1)
	assert.Equal(t, 0, questions[0].AnswerIndex)
}
