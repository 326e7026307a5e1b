package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/agentdesk/admin-platform/internal/model"
)

// ErrDuplicate is returned when a unique constraint rejects a write.
var ErrDuplicate = errors.New("store: duplicate")

// UserStore persists users.
type UserStore struct {
	db *gorm.DB
}

// Create inserts a user. The admin slot is synced before the write so the
// unique index enforces the single-admin invariant.
func (s *UserStore) Create(ctx context.Context, user *model.User) error {
	user.SyncAdminSlot()
	if err := s.db.WithContext(ctx).Create(user).Error; err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("store: create user: %w", err)
	}
	return nil
}

// ByID fetches a user by id.
func (s *UserStore) ByID(ctx context.Context, id uint) (*model.User, error) {
	var user model.User
	err := s.db.WithContext(ctx).First(&user, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: user %d: %w", id, err)
	}
	return &user, nil
}

// ByEmail fetches a user by email.
func (s *UserStore) ByEmail(ctx context.Context, email string) (*model.User, error) {
	var user model.User
	err := s.db.WithContext(ctx).Where("email = ?", email).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: user %s: %w", email, err)
	}
	return &user, nil
}

// List returns users ordered by creation time plus the total.
func (s *UserStore) List(ctx context.Context, limit, offset int) ([]model.User, int64, error) {
	db := s.db.WithContext(ctx).Model(&model.User{})

	var total int64
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("store: count users: %w", err)
	}

	var users []model.User
	err := db.Order("created_at DESC").Limit(limit).Offset(offset).Find(&users).Error
	if err != nil {
		return nil, 0, fmt.Errorf("store: list users: %w", err)
	}
	return users, total, nil
}

// Update saves changed user fields, syncing the admin slot so a role
// change that would create a second admin fails on the unique index.
func (s *UserStore) Update(ctx context.Context, user *model.User) error {
	user.SyncAdminSlot()
	err := s.db.WithContext(ctx).Model(user).
		Select("name", "email", "role", "admin_slot", "active").
		Updates(user).Error
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("store: update user %d: %w", user.ID, err)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique") || strings.Contains(msg, "duplicate")
}
