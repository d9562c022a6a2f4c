package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/brightpath-ai/tutoring-platform/internal/model"
	"github.com/brightpath-ai/tutoring-platform/internal/store"
	"github.com/brightpath-ai/tutoring-platform/pkg/logger"
)

// AdminService covers privileged account and moderation operations.
// Every mutation re-verifies the caller's admin role against the store
// rather than trusting the role claim in the token: a role could have
// been revoked after the token was issued.
type AdminService struct {
	users         UserStore
	conversations ConversationStore
	log           *logger.Logger
}

// NewAdminService creates an admin service.
func NewAdminService(users UserStore, conversations ConversationStore, log *logger.Logger) *AdminService {
	return &AdminService{users: users, conversations: conversations, log: log}
}

// requireAdmin reloads the caller and confirms a current admin role.
func (s *AdminService) requireAdmin(ctx context.Context, callerID string) error {
	caller, err := s.users.GetByID(ctx, callerID)
	if errors.Is(err, store.ErrNotFound) {
		return ErrForbidden
	}
	if err != nil {
		return err
	}
	if caller.Role != model.RoleAdmin {
		s.log.Warn("privileged call with stale admin claim",
			zap.String("caller_id", callerID),
			zap.String("actual_role", string(caller.Role)))
		return ErrForbidden
	}
	return nil
}

// CreateUser creates an account with an explicit role.
func (s *AdminService) CreateUser(ctx context.Context, callerID string, req *model.CreateUserRequest) (*model.User, error) {
	if err := s.requireAdmin(ctx, callerID); err != nil {
		return nil, err
	}

	if _, err := s.users.GetByEmail(ctx, req.Email); err == nil {
		return nil, ErrEmailTaken
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	id, err := uuid.NewV7()
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	user := &model.User{
		ID:           id.String(),
		Email:        req.Email,
		PasswordHash: string(hash),
		Name:         req.Name,
		Role:         req.Role,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}

	s.log.Info("user created by admin",
		zap.String("user_id", user.ID),
		zap.String("role", string(user.Role)),
		zap.String("caller_id", callerID))

	return user, nil
}

// ListUsers returns all accounts.
func (s *AdminService) ListUsers(ctx context.Context, callerID string) ([]model.User, error) {
	if err := s.requireAdmin(ctx, callerID); err != nil {
		return nil, err
	}
	return s.users.List(ctx)
}

// UpdateUser changes a user's role, name or teacher link. A student
// cannot be linked to themselves, and the link target must hold the
// teacher role right now.
func (s *AdminService) UpdateUser(ctx context.Context, callerID, userID string, req *model.UpdateUserRequest) (*model.User, error) {
	if err := s.requireAdmin(ctx, callerID); err != nil {
		return nil, err
	}

	user, err := s.users.GetByID(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	if req.Role != "" {
		if !req.Role.Valid() {
			return nil, errors.New("unknown role")
		}
		user.Role = req.Role
	}
	if req.Name != "" {
		user.Name = req.Name
	}
	if req.TeacherID != nil {
		if *req.TeacherID == "" {
			user.TeacherID = nil
		} else {
			if *req.TeacherID == userID {
				return nil, ErrSelfAssignment
			}
			teacher, err := s.users.GetByID(ctx, *req.TeacherID)
			if errors.Is(err, store.ErrNotFound) {
				return nil, ErrNotFound
			}
			if err != nil {
				return nil, err
			}
			if teacher.Role != model.RoleTeacher {
				return nil, ErrNotATeacher
			}
			user.TeacherID = req.TeacherID
		}
	}
	user.UpdatedAt = time.Now().UTC()

	if err := s.users.Update(ctx, user); err != nil {
		return nil, err
	}

	s.log.Info("user updated by admin",
		zap.String("user_id", userID),
		zap.String("caller_id", callerID))

	return user, nil
}

// DeleteUser permanently removes an account.
func (s *AdminService) DeleteUser(ctx context.Context, callerID, userID string) error {
	if err := s.requireAdmin(ctx, callerID); err != nil {
		return err
	}
	if callerID == userID {
		return ErrForbidden
	}
	err := s.users.HardDelete(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	s.log.Info("user hard-deleted by admin",
		zap.String("user_id", userID),
		zap.String("caller_id", callerID))
	return nil
}

// ListAllConversations returns every conversation on the platform,
// including soft-deleted ones, for moderation review.
func (s *AdminService) ListAllConversations(ctx context.Context, callerID string, limit, offset int) (*model.ListConversationsResponse, error) {
	if err := s.requireAdmin(ctx, callerID); err != nil {
		return nil, err
	}
	if limit <= 0 || limit > maxConversationPageSize {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	convs, total, err := s.conversations.ListAll(ctx, limit, offset)
	if err != nil {
		return nil, err
	}
	return &model.ListConversationsResponse{
		Conversations: convs,
		Total:         total,
		HasMore:       int64(offset+len(convs)) < total,
	}, nil
}

// PurgeConversation permanently removes a conversation and its messages.
// This is the only path that actually deletes rows; user deletes are
// soft.
func (s *AdminService) PurgeConversation(ctx context.Context, callerID, conversationID string) error {
	if err := s.requireAdmin(ctx, callerID); err != nil {
		return err
	}
	if _, err := s.conversations.GetAny(ctx, conversationID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrNotFound
		}
		return err
	}
	if err := s.conversations.HardDelete(ctx, conversationID); err != nil {
		return err
	}
	s.log.Info("conversation purged by admin",
		zap.String("conversation_id", conversationID),
		zap.String("caller_id", callerID))
	return nil
}
