package store

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/brightpath-ai/tutoring-platform/internal/model"
)

// Conversations provides conversation persistence. User deletes are soft
// (GORM DeletedAt); the Unscoped methods back the admin paths.
type Conversations struct {
	db *DB
}

// NewConversations creates a conversation store.
func NewConversations(db *DB) *Conversations {
	return &Conversations{db: db}
}

// Create inserts a conversation.
func (s *Conversations) Create(ctx context.Context, c *model.Conversation) error {
	return s.db.WithContext(ctx).Create(c).Error
}

// GetOwned fetches a live conversation owned by the given user.
func (s *Conversations) GetOwned(ctx context.Context, userID, id string) (*model.Conversation, error) {
	var c model.Conversation
	err := s.db.WithContext(ctx).First(&c, "id = ? AND user_id = ?", id, userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// List returns a user's live conversations, most recent activity first.
func (s *Conversations) List(ctx context.Context, userID string, limit, offset int) ([]model.Conversation, int64, error) {
	var total int64
	q := s.db.WithContext(ctx).Model(&model.Conversation{}).Where("user_id = ?", userID)
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var convs []model.Conversation
	err := q.Order("last_activity DESC").Limit(limit).Offset(offset).Find(&convs).Error
	return convs, total, err
}

// Rename updates the title.
func (s *Conversations) Rename(ctx context.Context, userID, id, title string) error {
	res := s.db.WithContext(ctx).Model(&model.Conversation{}).
		Where("id = ? AND user_id = ?", id, userID).
		Update("title", title)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// SoftDelete flags the conversation deleted. The row stays for the admin
// path; only HardDelete removes it.
func (s *Conversations) SoftDelete(ctx context.Context, userID, id string) error {
	res := s.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&model.Conversation{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Touch bumps activity metadata after a message is stored.
func (s *Conversations) Touch(ctx context.Context, id string, at time.Time) error {
	return s.db.WithContext(ctx).Model(&model.Conversation{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"last_activity": at,
			"message_count": gorm.Expr("message_count + 1"),
		}).Error
}

// ListAll returns every conversation including soft-deleted ones. Admin only.
func (s *Conversations) ListAll(ctx context.Context, limit, offset int) ([]model.Conversation, int64, error) {
	var total int64
	q := s.db.WithContext(ctx).Unscoped().Model(&model.Conversation{})
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var convs []model.Conversation
	err := q.Order("last_activity DESC").Limit(limit).Offset(offset).Find(&convs).Error
	return convs, total, err
}

// GetAny fetches a conversation regardless of owner or deletion state.
// Admin only.
func (s *Conversations) GetAny(ctx context.Context, id string) (*model.Conversation, error) {
	var c model.Conversation
	err := s.db.WithContext(ctx).Unscoped().First(&c, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// HardDelete removes a conversation and its messages permanently.
func (s *Conversations) HardDelete(ctx context.Context, id string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&model.Message{}, "conversation_id = ?", id).Error; err != nil {
			return err
		}
		res := tx.Unscoped().Delete(&model.Conversation{}, "id = ?", id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}
