package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User is an account whose posts can be viewed by other users
type User struct {
	ID          string `gorm:"primaryKey;type:uuid" json:"id"`
	Username    string `gorm:"uniqueIndex;not null" json:"username"`
	DisplayName string `gorm:"not null" json:"display_name"`

	// ViewCountsHidden hides this user's view telemetry from everyone else.
	// The owner always sees their own data.
	ViewCountsHidden bool `gorm:"not null;default:false" json:"view_counts_hidden"`

	// PostViewedByCount is the sum of ViewedByCount over the user's posts.
	// Derived from post_views; rebuildable by views.Aggregator.RecomputeUser.
	PostViewedByCount int64 `gorm:"not null;default:0" json:"post_viewed_by_count"`

	// GORM fields
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName specifies the table name
func (User) TableName() string {
	return "users"
}

// BeforeCreate generates the UUID in Go so the schema works on both postgres and sqlite
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.New().String()
	}
	return nil
}

// Post is a piece of content owned by exactly one user
type Post struct {
	ID     string `gorm:"primaryKey;type:uuid" json:"id"`
	UserID string `gorm:"not null;index;type:uuid" json:"user_id"`
	User   User   `gorm:"foreignKey:UserID" json:"-"`

	Text string `gorm:"type:text" json:"text"`

	// ViewedByCount is the number of distinct non-owner viewers.
	// Derived from post_views; never written outside a ledger transaction.
	ViewedByCount int64 `gorm:"not null;default:0" json:"viewed_by_count"`

	// GORM fields
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName specifies the table name
func (Post) TableName() string {
	return "posts"
}

// BeforeCreate generates the post UUID
func (p *Post) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	return nil
}
