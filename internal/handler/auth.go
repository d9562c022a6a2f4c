package handler

import (
	"encoding/json"
	"net/http"

	"github.com/brightpath-ai/tutoring-platform/internal/middleware"
	"github.com/brightpath-ai/tutoring-platform/internal/model"
	"github.com/brightpath-ai/tutoring-platform/internal/service"
	"github.com/brightpath-ai/tutoring-platform/pkg/logger"
)

// AuthHandler handles signup, login and the current-user endpoints.
type AuthHandler struct {
	sessions *service.SessionService
	logger   *logger.Logger
}

// NewAuthHandler creates a new auth handler.
func NewAuthHandler(sessions *service.SessionService, log *logger.Logger) *AuthHandler {
	return &AuthHandler{sessions: sessions, logger: log}
}

// Signup handles POST /api/v1/auth/signup
func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req model.SignupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := middleware.ValidateStruct(&req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	resp, err := h.sessions.Signup(r.Context(), &req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

// Login handles POST /api/v1/auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req model.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := middleware.ValidateStruct(&req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	resp, err := h.sessions.Login(r.Context(), &req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// Me handles GET /api/v1/me
//
// The profile is resolved through the retrying loader; if the store is
// briefly unavailable the response degrades to token claims instead of
// failing the session.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	session, err := h.sessions.Resolve(ctx,
		middleware.GetUserID(ctx),
		middleware.GetRole(ctx),
		middleware.GetName(ctx),
	)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, session)
}

// UpdateModel handles PUT /api/v1/me/model
func (h *AuthHandler) UpdateModel(w http.ResponseWriter, r *http.Request) {
	var req model.UpdateModelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := middleware.ValidateStruct(&req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	user, err := h.sessions.UpdateModel(r.Context(), middleware.GetUserID(r.Context()), req.Model)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}
