package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/brightpath-ai/tutoring-platform/internal/middleware"
	"github.com/brightpath-ai/tutoring-platform/internal/model"
	"github.com/brightpath-ai/tutoring-platform/internal/service"
	"github.com/brightpath-ai/tutoring-platform/pkg/logger"
)

// StudentHandler handles the teacher-facing student endpoints: roster,
// profiles and flagged-message review.
type StudentHandler struct {
	students *service.StudentService
	messages *service.MessageService
	logger   *logger.Logger
}

// NewStudentHandler creates a new student handler.
func NewStudentHandler(students *service.StudentService, messages *service.MessageService, log *logger.Logger) *StudentHandler {
	return &StudentHandler{students: students, messages: messages, logger: log}
}

// List handles GET /api/v1/students
func (h *StudentHandler) List(w http.ResponseWriter, r *http.Request) {
	roster, err := h.students.ListStudents(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"students": roster})
}

// GetProfile handles GET /api/v1/students/{id}/profile
func (h *StudentHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	studentID := chi.URLParam(r, "id")
	if err := middleware.ValidateID(studentID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	p, err := h.students.GetProfile(r.Context(), middleware.GetUserID(r.Context()), studentID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// UpsertProfile handles PUT /api/v1/students/{id}/profile
func (h *StudentHandler) UpsertProfile(w http.ResponseWriter, r *http.Request) {
	studentID := chi.URLParam(r, "id")
	if err := middleware.ValidateID(studentID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req model.UpsertStudentProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	p, err := h.students.UpsertProfile(r.Context(), middleware.GetUserID(r.Context()), studentID, &req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// FlaggedMessages handles GET /api/v1/students/flagged-messages
func (h *StudentHandler) FlaggedMessages(w http.ResponseWriter, r *http.Request) {
	limit, _ := pagination(r, 50)
	msgs, err := h.messages.ListFlagged(r.Context(), middleware.GetUserID(r.Context()), limit)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"messages": msgs})
}
