package repository

import (
	"context"
	"errors"

	"github.com/zfogg/sidechain/views/internal/models"
	"gorm.io/gorm"
)

var (
	ErrUserNotFound = errors.New("user not found")
	ErrPostNotFound = errors.New("post not found")
	ErrInvalidInput = errors.New("invalid input")
	// ErrStorageUnavailable wraps database failures; callers may retry
	ErrStorageUnavailable = errors.New("storage unavailable")
)

// UserRepository handles database operations for users
type UserRepository interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUser(ctx context.Context, userID string) (*models.User, error)
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)

	// ListUserIDs pages through live user IDs in ascending order, starting after afterID
	ListUserIDs(ctx context.Context, afterID string, limit int) ([]string, error)

	// View count privacy flag
	GetViewCountsHidden(ctx context.Context, userID string) (bool, error)
	SetViewCountsHidden(ctx context.Context, userID string, hidden bool) error
}

// userRepository implements UserRepository interface
type userRepository struct {
	db *gorm.DB
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

// CreateUser creates a new user
func (r *userRepository) CreateUser(ctx context.Context, user *models.User) error {
	if user == nil || user.Username == "" {
		return ErrInvalidInput
	}
	if user.DisplayName == "" {
		user.DisplayName = user.Username
	}

	return r.db.WithContext(ctx).Create(user).Error
}

// GetUser gets a user by ID
func (r *userRepository) GetUser(ctx context.Context, userID string) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).Where("id = ?", userID).First(&user).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}

	return &user, nil
}

// GetUserByUsername gets a user by username (case-insensitive)
func (r *userRepository) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).
		Where("LOWER(username) = LOWER(?)", username).
		First(&user).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}

	return &user, nil
}

// ListUserIDs pages through user IDs with keyset pagination
func (r *userRepository) ListUserIDs(ctx context.Context, afterID string, limit int) ([]string, error) {
	var ids []string

	query := r.db.WithContext(ctx).Model(&models.User{}).Order("id ASC").Limit(limit)
	if afterID != "" {
		query = query.Where("id > ?", afterID)
	}

	err := query.Pluck("id", &ids).Error
	return ids, err
}

// GetViewCountsHidden reads the privacy flag straight from the users table
func (r *userRepository) GetViewCountsHidden(ctx context.Context, userID string) (bool, error) {
	var hidden []bool
	err := r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", userID).
		Limit(1).
		Pluck("view_counts_hidden", &hidden).Error
	if err != nil {
		return false, err
	}
	if len(hidden) == 0 {
		return false, ErrUserNotFound
	}

	return hidden[0], nil
}

// SetViewCountsHidden writes the privacy flag. It never touches counts or view rows.
func (r *userRepository) SetViewCountsHidden(ctx context.Context, userID string, hidden bool) error {
	result := r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", userID).
		Update("view_counts_hidden", hidden)
	if result.Error != nil {
		return result.Error
	}

	// RowsAffected is 0 for a missing user; an unchanged value still matches on
	// postgres but not on every driver, so confirm existence explicitly
	if result.RowsAffected == 0 {
		if _, err := r.GetUser(ctx, userID); err != nil {
			return err
		}
	}
	return nil
}
