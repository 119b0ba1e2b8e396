package models

import (
	"time"
)

// PostView is the ledger fact that a viewer has seen a post.
// The composite primary key allows at most one row per (post, viewer);
// repeat views only move LastViewedAt and bump ViewCount.
type PostView struct {
	PostID   string `gorm:"primaryKey;type:uuid;index:idx_post_views_post_last,priority:1" json:"post_id"`
	ViewerID string `gorm:"primaryKey;type:uuid;index" json:"viewer_id"`
	Viewer   User   `gorm:"foreignKey:ViewerID" json:"-"`

	FirstViewedAt time.Time `gorm:"not null" json:"first_viewed_at"`
	LastViewedAt  time.Time `gorm:"not null;index:idx_post_views_post_last,priority:2,sort:desc" json:"last_viewed_at"`

	// ViewCount counts raw view events for this pair. It never feeds
	// viewed_by_count, which counts distinct viewers.
	ViewCount int64 `gorm:"not null;default:1" json:"view_count"`
}

// TableName specifies the table name
func (PostView) TableName() string {
	return "post_views"
}

// ViewedStatus tells a requester whether they have seen a post
type ViewedStatus string

const (
	Viewed    ViewedStatus = "VIEWED"
	NotViewed ViewedStatus = "NOT_VIEWED"
)
