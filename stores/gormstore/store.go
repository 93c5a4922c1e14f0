// Package gormstore implements the UserStore on GORM for deployments
// that already manage their database through it. The caller supplies the
// dialector; the unique index on email makes creation atomic.
package gormstore

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/panyam/authgate"
)

// AutoMigrate creates or updates the users table.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(&UserModel{})
}

type Store struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*authgate.User, error) {
	var model UserModel
	err := s.db.WithContext(ctx).First(&model, "email = ?", email).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, authgate.ErrUserNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return model.ToUser(), nil
}

func (s *Store) CreateUser(ctx context.Context, email, passwordHash string) (*authgate.User, error) {
	model := &UserModel{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: passwordHash,
		Profile:      StringMap{},
	}
	if err := s.db.WithContext(ctx).Create(model).Error; err != nil {
		if isDuplicateErr(err) {
			return nil, authgate.ErrEmailTaken
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return model.ToUser(), nil
}

func (s *Store) UpdateProfile(ctx context.Context, email string, fields map[string]string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var model UserModel
		if err := tx.First(&model, "email = ?", email).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return authgate.ErrUserNotFound
			}
			return fmt.Errorf("db error: %w", err)
		}

		if model.Profile == nil {
			model.Profile = StringMap{}
		}
		for k, v := range fields {
			model.Profile[k] = v
		}
		if err := tx.Model(&model).Update("profile", model.Profile).Error; err != nil {
			return fmt.Errorf("db error: %w", err)
		}
		return nil
	})
}

// isDuplicateErr detects a unique-constraint conflict across drivers;
// gorm only surfaces ErrDuplicatedKey when the dialector translates
// errors.
func isDuplicateErr(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate") || strings.Contains(msg, "unique constraint")
}
