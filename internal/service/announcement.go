package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/brightpath-ai/tutoring-platform/internal/model"
	"github.com/brightpath-ai/tutoring-platform/internal/store"
	"github.com/brightpath-ai/tutoring-platform/pkg/logger"
	"github.com/brightpath-ai/tutoring-platform/pkg/metrics"
)

// AnnouncementService manages broadcasts from teachers and admins.
type AnnouncementService struct {
	announcements AnnouncementStore
	log           *logger.Logger
}

// NewAnnouncementService creates an announcement service.
func NewAnnouncementService(announcements AnnouncementStore, log *logger.Logger) *AnnouncementService {
	return &AnnouncementService{announcements: announcements, log: log}
}

// Create publishes an announcement.
func (s *AnnouncementService) Create(ctx context.Context, authorID string, req *model.CreateAnnouncementRequest) (*model.Announcement, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return nil, err
	}

	priority := req.Priority
	if priority == "" {
		priority = model.PriorityNormal
	}

	now := time.Now().UTC()
	a := &model.Announcement{
		ID:        id.String(),
		AuthorID:  authorID,
		Title:     req.Title,
		Body:      req.Body,
		Priority:  priority,
		Pinned:    req.Pinned,
		ExpiresAt: req.ExpiresAt,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.announcements.Create(ctx, a); err != nil {
		return nil, err
	}

	metrics.AnnouncementsTotal.WithLabelValues(string(priority)).Inc()
	s.log.Info("announcement created",
		zap.String("announcement_id", a.ID),
		zap.String("author_id", authorID),
		zap.String("priority", string(priority)))

	return a, nil
}

// Update edits an announcement. Only the author (or an admin) may edit.
func (s *AnnouncementService) Update(ctx context.Context, callerID string, callerRole model.Role, id string, req *model.UpdateAnnouncementRequest) (*model.Announcement, error) {
	a, err := s.announcements.Get(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if a.AuthorID != callerID && callerRole != model.RoleAdmin {
		return nil, ErrForbidden
	}

	if req.Title != "" {
		a.Title = req.Title
	}
	if req.Body != "" {
		a.Body = req.Body
	}
	if req.Priority != "" {
		a.Priority = req.Priority
	}
	if req.Pinned != nil {
		a.Pinned = *req.Pinned
	}
	if req.ExpiresAt != nil {
		a.ExpiresAt = req.ExpiresAt
	}
	a.UpdatedAt = time.Now().UTC()

	if err := s.announcements.Update(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

// Delete removes an announcement. Only the author (or an admin) may
// delete.
func (s *AnnouncementService) Delete(ctx context.Context, callerID string, callerRole model.Role, id string) error {
	a, err := s.announcements.Get(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	if a.AuthorID != callerID && callerRole != model.RoleAdmin {
		return ErrForbidden
	}
	return s.announcements.Delete(ctx, id)
}

// ListActive returns unexpired announcements for a student, pinned
// first, with per-student read flags resolved.
func (s *AnnouncementService) ListActive(ctx context.Context, studentID string) ([]model.Announcement, error) {
	return s.announcements.ListActive(ctx, studentID, time.Now().UTC())
}

// ListByAuthor returns the caller's own announcements.
func (s *AnnouncementService) ListByAuthor(ctx context.Context, authorID string) ([]model.Announcement, error) {
	return s.announcements.ListByAuthor(ctx, authorID)
}

// MarkRead records that a student has seen an announcement. Marking the
// same announcement twice is a no-op.
func (s *AnnouncementService) MarkRead(ctx context.Context, studentID, announcementID string) error {
	if _, err := s.announcements.Get(ctx, announcementID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrNotFound
		}
		return err
	}
	id, err := uuid.NewV7()
	if err != nil {
		return err
	}
	return s.announcements.MarkRead(ctx, &model.AnnouncementRead{
		ID:             id.String(),
		AnnouncementID: announcementID,
		StudentID:      studentID,
		ReadAt:         time.Now().UTC(),
	})
}
