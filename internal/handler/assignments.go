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

// AssignmentHandler handles free-text assignments and grading.
type AssignmentHandler struct {
	assignments *service.AssignmentService
	logger      *logger.Logger
}

// NewAssignmentHandler creates a new assignment handler.
func NewAssignmentHandler(assignments *service.AssignmentService, log *logger.Logger) *AssignmentHandler {
	return &AssignmentHandler{assignments: assignments, logger: log}
}

// Create handles POST /api/v1/assignments (teacher)
func (h *AssignmentHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req model.CreateAssignmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := middleware.ValidateStruct(&req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	a, err := h.assignments.Create(r.Context(), middleware.GetUserID(r.Context()), &req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, a)
}

// List handles GET /api/v1/assignments
//
// Teachers see their own assignments; students see their teacher's.
func (h *AssignmentHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)

	var (
		assignments []model.Assignment
		err         error
	)
	if middleware.GetRole(ctx) == model.RoleStudent {
		assignments, err = h.assignments.ListForStudent(ctx, userID)
	} else {
		assignments, err = h.assignments.ListByTeacher(ctx, userID)
	}
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"assignments": assignments})
}

// Submit handles POST /api/v1/assignments/{id}/submissions (student)
func (h *AssignmentHandler) Submit(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := middleware.ValidateID(id); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req model.SubmitAssignmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := middleware.ValidateStruct(&req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	sub, err := h.assignments.Submit(r.Context(), middleware.GetUserID(r.Context()), id, &req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, sub)
}

// ListSubmissions handles GET /api/v1/assignments/{id}/submissions (teacher)
func (h *AssignmentHandler) ListSubmissions(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := middleware.ValidateID(id); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	subs, err := h.assignments.ListSubmissions(r.Context(), middleware.GetUserID(r.Context()), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"submissions": subs})
}

// ListOwnSubmissions handles GET /api/v1/submissions (student)
func (h *AssignmentHandler) ListOwnSubmissions(w http.ResponseWriter, r *http.Request) {
	subs, err := h.assignments.ListOwnSubmissions(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"submissions": subs})
}

// Grade handles PUT /api/v1/submissions/{id}/grade (teacher)
func (h *AssignmentHandler) Grade(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := middleware.ValidateID(id); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req model.GradeSubmissionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := middleware.ValidateStruct(&req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	sub, err := h.assignments.Grade(r.Context(), middleware.GetUserID(r.Context()), id, &req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sub)
}
