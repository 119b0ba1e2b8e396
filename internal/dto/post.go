package dto

import (
	"time"

	"github.com/zfogg/sidechain/views/internal/models"
)

// ViewerResponse is one entry of a post's viewedBy list
type ViewerResponse struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	DisplayName  string    `json:"displayName"`
	LastViewedAt time.Time `json:"lastViewedAt"`
}

// PostResponse is a post as seen by the requester.
//
// ViewedByCount and ViewedBy are null when the owner hides view counts from
// this requester. When revealed, ViewedBy is a list, empty if nobody viewed.
// ViewedStatus is the requester's own view state and is always present.
type PostResponse struct {
	ID            string              `json:"id"`
	UserID        string              `json:"userId"`
	Text          string              `json:"text"`
	CreatedAt     time.Time           `json:"createdAt"`
	ViewedByCount *int64              `json:"viewedByCount"`
	ViewedBy      []ViewerResponse    `json:"viewedBy"`
	ViewedStatus  models.ViewedStatus `json:"viewedStatus"`
}

// ViewersResponse is a page of a post's viewers
type ViewersResponse struct {
	PostID        string           `json:"postId"`
	ViewedByCount *int64           `json:"viewedByCount"`
	ViewedBy      []ViewerResponse `json:"viewedBy"`
	Limit         int              `json:"limit"`
	Offset        int              `json:"offset"`
}

// CreatePostRequest is the body of POST /posts
type CreatePostRequest struct {
	Text string `json:"text" binding:"required,max=2000"`
}

// RecordViewResponse reports what a single view did
type RecordViewResponse struct {
	PostID   string `json:"postId"`
	Recorded bool   `json:"recorded"`
	Outcome  string `json:"outcome"`
}

// RecordViewsRequest is the body of the batch view endpoint
type RecordViewsRequest struct {
	PostIDs []string `json:"postIds" binding:"required,min=1,max=100"`
}

// RecordViewsResponse reports a batch of views
type RecordViewsResponse struct {
	Recorded int                  `json:"recorded"`
	Results  []RecordViewResponse `json:"results"`
	NotFound []string             `json:"notFound"`
}

// ToPostResponse converts a post with view data left null
func ToPostResponse(post *models.Post) *PostResponse {
	if post == nil {
		return nil
	}
	return &PostResponse{
		ID:        post.ID,
		UserID:    post.UserID,
		Text:      post.Text,
		CreatedAt: post.CreatedAt,
	}
}

// ToViewerResponses converts ledger rows to list entries. The result is
// never nil so an empty list serializes as [].
func ToViewerResponses(views []models.PostView) []ViewerResponse {
	out := make([]ViewerResponse, 0, len(views))
	for _, v := range views {
		out = append(out, ViewerResponse{
			ID:           v.ViewerID,
			Username:     v.Viewer.Username,
			DisplayName:  v.Viewer.DisplayName,
			LastViewedAt: v.LastViewedAt,
		})
	}
	return out
}
