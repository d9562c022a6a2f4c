package store

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/brightpath-ai/tutoring-platform/internal/model"
)

// Announcements provides announcement persistence with per-student read
// receipts.
type Announcements struct {
	db *DB
}

// NewAnnouncements creates an announcement store.
func NewAnnouncements(db *DB) *Announcements {
	return &Announcements{db: db}
}

// Create inserts an announcement.
func (s *Announcements) Create(ctx context.Context, a *model.Announcement) error {
	return s.db.WithContext(ctx).Create(a).Error
}

// Get fetches an announcement.
func (s *Announcements) Get(ctx context.Context, id string) (*model.Announcement, error) {
	var a model.Announcement
	err := s.db.WithContext(ctx).First(&a, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// Update saves mutated announcement fields.
func (s *Announcements) Update(ctx context.Context, a *model.Announcement) error {
	return s.db.WithContext(ctx).Save(a).Error
}

// Delete removes an announcement and its read receipts.
func (s *Announcements) Delete(ctx context.Context, id string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&model.AnnouncementRead{}, "announcement_id = ?", id).Error; err != nil {
			return err
		}
		res := tx.Delete(&model.Announcement{}, "id = ?", id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}

// ListActive returns unexpired announcements, pinned first then by priority
// recency, with the read flag resolved for the given student.
func (s *Announcements) ListActive(ctx context.Context, studentID string, now time.Time) ([]model.Announcement, error) {
	var out []model.Announcement
	err := s.db.WithContext(ctx).
		Where("expires_at IS NULL OR expires_at > ?", now).
		Order("pinned DESC, created_at DESC").
		Find(&out).Error
	if err != nil {
		return nil, err
	}

	var reads []model.AnnouncementRead
	if err := s.db.WithContext(ctx).Where("student_id = ?", studentID).Find(&reads).Error; err != nil {
		return nil, err
	}
	readSet := make(map[string]bool, len(reads))
	for _, r := range reads {
		readSet[r.AnnouncementID] = true
	}
	for i := range out {
		out[i].Read = readSet[out[i].ID]
	}
	return out, nil
}

// ListByAuthor returns an author's announcements, newest first.
func (s *Announcements) ListByAuthor(ctx context.Context, authorID string) ([]model.Announcement, error) {
	var out []model.Announcement
	err := s.db.WithContext(ctx).
		Where("author_id = ?", authorID).
		Order("created_at DESC").
		Find(&out).Error
	return out, err
}

// MarkRead records a read receipt. Marking twice is a no-op.
func (s *Announcements) MarkRead(ctx context.Context, read *model.AnnouncementRead) error {
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(read).Error
}
