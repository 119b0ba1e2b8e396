package repository

import (
	"context"
	"errors"

	"github.com/zfogg/sidechain/views/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PostRepository handles post storage: owner lookup and existence checks
type PostRepository interface {
	CreatePost(ctx context.Context, post *models.Post) error
	GetPost(ctx context.Context, postID string) (*models.Post, error)
}

type postRepository struct {
	db *gorm.DB
}

// NewPostRepository creates a new post repository
func NewPostRepository(db *gorm.DB) PostRepository {
	return &postRepository{db: db}
}

// CreatePost creates a post; the view counter always starts at zero
func (r *postRepository) CreatePost(ctx context.Context, post *models.Post) error {
	if post == nil || post.UserID == "" {
		return ErrInvalidInput
	}
	post.ViewedByCount = 0

	return r.db.WithContext(ctx).Omit(clause.Associations).Create(post).Error
}

// GetPost gets a live (not deleted) post by ID
func (r *postRepository) GetPost(ctx context.Context, postID string) (*models.Post, error) {
	var post models.Post
	err := r.db.WithContext(ctx).Where("id = ?", postID).First(&post).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrPostNotFound
	}
	if err != nil {
		return nil, err
	}

	return &post, nil
}
