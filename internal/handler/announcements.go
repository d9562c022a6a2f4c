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

// AnnouncementHandler handles announcement endpoints.
type AnnouncementHandler struct {
	announcements *service.AnnouncementService
	logger        *logger.Logger
}

// NewAnnouncementHandler creates a new announcement handler.
func NewAnnouncementHandler(announcements *service.AnnouncementService, log *logger.Logger) *AnnouncementHandler {
	return &AnnouncementHandler{announcements: announcements, logger: log}
}

// Create handles POST /api/v1/announcements (teacher, admin)
func (h *AnnouncementHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req model.CreateAnnouncementRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := middleware.ValidateStruct(&req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	a, err := h.announcements.Create(r.Context(), middleware.GetUserID(r.Context()), &req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, a)
}

// List handles GET /api/v1/announcements
//
// Students get active announcements with their read flags; authors get
// their own, expired included.
func (h *AnnouncementHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)

	var (
		announcements []model.Announcement
		err           error
	)
	if middleware.GetRole(ctx) == model.RoleStudent {
		announcements, err = h.announcements.ListActive(ctx, userID)
	} else {
		announcements, err = h.announcements.ListByAuthor(ctx, userID)
	}
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"announcements": announcements})
}

// Update handles PUT /api/v1/announcements/{id}
func (h *AnnouncementHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := middleware.ValidateID(id); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req model.UpdateAnnouncementRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := middleware.ValidateStruct(&req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	ctx := r.Context()
	a, err := h.announcements.Update(ctx, middleware.GetUserID(ctx), middleware.GetRole(ctx), id, &req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

// Delete handles DELETE /api/v1/announcements/{id}
func (h *AnnouncementHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := middleware.ValidateID(id); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	ctx := r.Context()
	if err := h.announcements.Delete(ctx, middleware.GetUserID(ctx), middleware.GetRole(ctx), id); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// MarkRead handles POST /api/v1/announcements/{id}/read (student)
func (h *AnnouncementHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := middleware.ValidateID(id); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.announcements.MarkRead(r.Context(), middleware.GetUserID(r.Context()), id); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"read": true})
}
