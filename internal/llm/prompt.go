package llm

import (
	"strconv"
	"strings"

	"github.com/brightpath-ai/tutoring-platform/internal/model"
)

const basePrompt = `You are a patient, encouraging tutor. Guide the student toward
understanding rather than handing over answers. Ask a short follow-up question
when the student seems stuck, keep explanations concrete, and match the
student's level.`

// BuildSystemPrompt assembles the tutor system prompt, biased by the
// teacher-authored profile notes when present.
func BuildSystemPrompt(studentName string, profile *model.StudentProfile) string {
	var sb strings.Builder
	sb.WriteString(basePrompt)

	if studentName != "" {
		sb.WriteString("\n\nThe student's name is ")
		sb.WriteString(studentName)
		sb.WriteString(".")
	}

	if profile == nil {
		return sb.String()
	}

	if profile.Strengths != "" {
		sb.WriteString("\nStrengths: ")
		sb.WriteString(profile.Strengths)
	}
	if profile.Challenges != "" {
		sb.WriteString("\nAreas that need extra support: ")
		sb.WriteString(profile.Challenges)
	}
	if profile.Interests != "" {
		sb.WriteString("\nInterests to draw examples from: ")
		sb.WriteString(profile.Interests)
	}
	if profile.Notes != "" {
		sb.WriteString("\nTeacher notes: ")
		sb.WriteString(profile.Notes)
	}

	return sb.String()
}

// QuizPrompt asks the model for a strict-JSON multiple-choice quiz.
func QuizPrompt(topic string, count int) string {
	if count <= 0 {
		count = 5
	}
	var sb strings.Builder
	sb.WriteString("Generate a multiple-choice quiz about ")
	sb.WriteString(topic)
	sb.WriteString(". Respond with JSON only, no prose, in this exact shape:\n")
	sb.WriteString(`{"questions":[{"question":"...","options":["...","...","...","..."],"answer":"...","explanation":"..."}]}`)
	sb.WriteString("\nThe answer string must match one option exactly. Produce ")
	sb.WriteString(strconv.Itoa(count))
	sb.WriteString(" questions.")
	return sb.String()
}
