package repo

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/ndrozdov/postboard/internal/models"
)

// ErrConflict signals a uniqueness violation, e.g. registering a
// username that already exists.
var ErrConflict = errors.New("already exists")

type AccountRepo struct {
	DB *gorm.DB
}

func (r *AccountRepo) Create(ctx context.Context, username, passwordHash string, role models.Role) error {
	var existing models.User
	err := r.DB.WithContext(ctx).Where("username = ?", username).First(&existing).Error
	if err == nil {
		return ErrConflict
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("db error: %w", err)
	}

	user := models.User{
		Username:     username,
		PasswordHash: passwordHash,
		Role:         role,
	}
	if err := r.DB.WithContext(ctx).Create(&user).Error; err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

// FindByUsername returns (nil, nil) when the account does not exist.
func (r *AccountRepo) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	err := r.DB.WithContext(ctx).Where("username = ?", username).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return &user, nil
}
