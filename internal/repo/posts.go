package repo

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/ndrozdov/postboard/internal/models"
)

type PostRepo struct {
	DB *gorm.DB
}

// ListVisible returns visible posts, newest first.
func (r *PostRepo) ListVisible(ctx context.Context) ([]models.Post, error) {
	var posts []models.Post
	err := r.DB.WithContext(ctx).
		Where("is_visible = ?", true).
		Order("created_at DESC").
		Find(&posts).Error
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return posts, nil
}

// Get returns (nil, nil) when the post does not exist.
func (r *PostRepo) Get(ctx context.Context, id uint) (*models.Post, error) {
	var post models.Post
	err := r.DB.WithContext(ctx).First(&post, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return &post, nil
}

func (r *PostRepo) Create(ctx context.Context, post *models.Post) error {
	if err := r.DB.WithContext(ctx).Create(post).Error; err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostRepo) Delete(ctx context.Context, id uint) error {
	if err := r.DB.WithContext(ctx).Delete(&models.Post{}, id).Error; err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostRepo) ListMenu(ctx context.Context) ([]models.MenuItem, error) {
	var items []models.MenuItem
	if err := r.DB.WithContext(ctx).Find(&items).Error; err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return items, nil
}
