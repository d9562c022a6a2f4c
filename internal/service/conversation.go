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

const (
	defaultConversationTitle = "New conversation"
	maxConversationPageSize  = 100
)

// ConversationService manages a user's conversations. Every operation
// is scoped to the owning user; admin-wide access lives in AdminService.
type ConversationService struct {
	conversations ConversationStore
	log           *logger.Logger
}

// NewConversationService creates a conversation service.
func NewConversationService(conversations ConversationStore, log *logger.Logger) *ConversationService {
	return &ConversationService{conversations: conversations, log: log}
}

// Create starts a new conversation for the user.
func (s *ConversationService) Create(ctx context.Context, userID string, req *model.CreateConversationRequest) (*model.Conversation, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return nil, err
	}

	title := req.Title
	if title == "" {
		title = defaultConversationTitle
	}

	now := time.Now().UTC()
	conv := &model.Conversation{
		ID:           id.String(),
		UserID:       userID,
		Title:        title,
		LastActivity: now,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.conversations.Create(ctx, conv); err != nil {
		return nil, err
	}

	metrics.ConversationsTotal.Inc()
	s.log.Info("conversation created",
		zap.String("conversation_id", conv.ID),
		zap.String("user_id", userID))

	return conv, nil
}

// Get fetches one of the user's conversations.
func (s *ConversationService) Get(ctx context.Context, userID, id string) (*model.Conversation, error) {
	conv, err := s.conversations.GetOwned(ctx, userID, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrNotFound
	}
	return conv, err
}

// List returns a page of the user's conversations, most recent first.
func (s *ConversationService) List(ctx context.Context, userID string, limit, offset int) (*model.ListConversationsResponse, error) {
	if limit <= 0 || limit > maxConversationPageSize {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	convs, total, err := s.conversations.List(ctx, userID, limit, offset)
	if err != nil {
		return nil, err
	}
	return &model.ListConversationsResponse{
		Conversations: convs,
		Total:         total,
		HasMore:       int64(offset+len(convs)) < total,
	}, nil
}

// Rename updates a conversation title.
func (s *ConversationService) Rename(ctx context.Context, userID, id, title string) error {
	err := s.conversations.Rename(ctx, userID, id, title)
	if errors.Is(err, store.ErrNotFound) {
		return ErrNotFound
	}
	return err
}

// Delete soft-deletes a conversation. The row and its messages remain
// for administrative review until an admin purges them.
func (s *ConversationService) Delete(ctx context.Context, userID, id string) error {
	err := s.conversations.SoftDelete(ctx, userID, id)
	if errors.Is(err, store.ErrNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	s.log.Info("conversation soft-deleted",
		zap.String("conversation_id", id),
		zap.String("user_id", userID))
	return nil
}
