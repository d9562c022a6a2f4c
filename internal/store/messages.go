package store

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/brightpath-ai/tutoring-platform/internal/model"
)

// Messages provides message persistence.
type Messages struct {
	db *DB
}

// NewMessages creates a message store.
func NewMessages(db *DB) *Messages {
	return &Messages{db: db}
}

// Create inserts a message.
func (s *Messages) Create(ctx context.Context, m *model.Message) error {
	return s.db.WithContext(ctx).Create(m).Error
}

// List returns a conversation's messages in creation order.
func (s *Messages) List(ctx context.Context, conversationID string, limit, offset int) ([]model.Message, error) {
	var msgs []model.Message
	err := s.db.WithContext(ctx).
		Where("conversation_id = ?", conversationID).
		Order("created_at ASC").
		Limit(limit).Offset(offset).
		Find(&msgs).Error
	return msgs, err
}

// ListRecent returns the newest limit messages of a conversation, in
// creation order.
func (s *Messages) ListRecent(ctx context.Context, conversationID string, limit int) ([]model.Message, error) {
	var msgs []model.Message
	err := s.db.WithContext(ctx).
		Where("conversation_id = ?", conversationID).
		Order("created_at DESC").
		Limit(limit).
		Find(&msgs).Error
	if err != nil {
		return nil, err
	}
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
	return msgs, nil
}

// SetFlagged marks or unmarks a message for teacher review.
func (s *Messages) SetFlagged(ctx context.Context, id string, flagged bool) error {
	res := s.db.WithContext(ctx).Model(&model.Message{}).
		Where("id = ?", id).
		Update("flagged", flagged)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// GetByID fetches one message.
func (s *Messages) GetByID(ctx context.Context, id string) (*model.Message, error) {
	var m model.Message
	err := s.db.WithContext(ctx).First(&m, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// ListFlaggedForTeacher returns flagged messages across a teacher's
// students, crossing per-user ownership on purpose: this backs the
// role-guarded teacher review path.
func (s *Messages) ListFlaggedForTeacher(ctx context.Context, teacherID string, limit int) ([]model.Message, error) {
	var msgs []model.Message
	err := s.db.WithContext(ctx).
		Joins("JOIN conversations ON conversations.id = messages.conversation_id").
		Joins("JOIN users ON users.id = conversations.user_id").
		Where("messages.flagged = ? AND users.teacher_id = ?", true, teacherID).
		Order("messages.created_at DESC").
		Limit(limit).
		Find(&msgs).Error
	return msgs, err
}
