package dto

import (
	"time"

	"github.com/zfogg/sidechain/views/internal/models"
)

// SelfResponse is the authenticated user's own profile. View data is never
// redacted here.
type SelfResponse struct {
	ID                string    `json:"id"`
	Username          string    `json:"username"`
	DisplayName       string    `json:"displayName"`
	ViewCountsHidden  bool      `json:"viewCountsHidden"`
	PostViewedByCount int64     `json:"postViewedByCount"`
	CreatedAt         time.Time `json:"createdAt"`
}

// UserResponse is another user's profile as seen by the requester.
// PostViewedByCount is null when the owner hides view counts.
// ViewCountsHidden is only present when the requester is the owner.
type UserResponse struct {
	ID                string    `json:"id"`
	Username          string    `json:"username"`
	DisplayName       string    `json:"displayName"`
	ViewCountsHidden  *bool     `json:"viewCountsHidden,omitempty"`
	PostViewedByCount *int64    `json:"postViewedByCount"`
	CreatedAt         time.Time `json:"createdAt"`
}

// PrivacyResponse is returned after updating viewCountsHidden
type PrivacyResponse struct {
	ViewCountsHidden bool `json:"viewCountsHidden"`
}

// SetViewCountsHiddenRequest is the body of the privacy toggle
type SetViewCountsHiddenRequest struct {
	ViewCountsHidden *bool `json:"viewCountsHidden" binding:"required"`
}

// CreateUserRequest is used by the admin CLI
type CreateUserRequest struct {
	Username    string `json:"username" binding:"required,min=3,max=30,alphanum"`
	DisplayName string `json:"displayName" binding:"omitempty,max=50"`
}

// ToSelfResponse converts the requester's own user row
func ToSelfResponse(user *models.User) *SelfResponse {
	if user == nil {
		return nil
	}
	return &SelfResponse{
		ID:                user.ID,
		Username:          user.Username,
		DisplayName:       user.DisplayName,
		ViewCountsHidden:  user.ViewCountsHidden,
		PostViewedByCount: user.PostViewedByCount,
		CreatedAt:         user.CreatedAt,
	}
}

// ToUserResponse converts a user with view data left null. Callers fill
// PostViewedByCount when the privacy decision allows it.
func ToUserResponse(user *models.User) *UserResponse {
	if user == nil {
		return nil
	}
	return &UserResponse{
		ID:          user.ID,
		Username:    user.Username,
		DisplayName: user.DisplayName,
		CreatedAt:   user.CreatedAt,
	}
}
