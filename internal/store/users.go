package store

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/brightpath-ai/tutoring-platform/internal/model"
)

// ErrNotFound is returned when a row does not exist.
var ErrNotFound = errors.New("not found")

// Users provides user persistence.
type Users struct {
	db *DB
}

// NewUsers creates a user store.
func NewUsers(db *DB) *Users {
	return &Users{db: db}
}

// Create inserts a user.
func (s *Users) Create(ctx context.Context, u *model.User) error {
	return s.db.WithContext(ctx).Create(u).Error
}

// GetByID fetches a user by ID.
func (s *Users) GetByID(ctx context.Context, id string) (*model.User, error) {
	var u model.User
	err := s.db.WithContext(ctx).First(&u, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// GetByEmail fetches a user by email.
func (s *Users) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	var u model.User
	err := s.db.WithContext(ctx).First(&u, "email = ?", email).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// Update saves mutated user fields.
func (s *Users) Update(ctx context.Context, u *model.User) error {
	return s.db.WithContext(ctx).Save(u).Error
}

// List returns all users, newest first.
func (s *Users) List(ctx context.Context) ([]model.User, error) {
	var users []model.User
	err := s.db.WithContext(ctx).Order("created_at DESC").Find(&users).Error
	return users, err
}

// ListStudentsOfTeacher returns the students linked to a teacher.
func (s *Users) ListStudentsOfTeacher(ctx context.Context, teacherID string) ([]model.User, error) {
	var users []model.User
	err := s.db.WithContext(ctx).
		Where("role = ? AND teacher_id = ?", model.RoleStudent, teacherID).
		Order("name ASC").
		Find(&users).Error
	return users, err
}

// HardDelete removes a user permanently.
func (s *Users) HardDelete(ctx context.Context, id string) error {
	res := s.db.WithContext(ctx).Unscoped().Delete(&model.User{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
