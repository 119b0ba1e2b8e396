package views

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/zfogg/sidechain/views/internal/models"
	"github.com/zfogg/sidechain/views/internal/repository"
	"gorm.io/gorm"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// Page selects a window of a viewer list
type Page struct {
	Limit  int
	Offset int
}

// Normalize clamps the page into the allowed range
func (p Page) Normalize() Page {
	if p.Limit <= 0 {
		p.Limit = DefaultPageSize
	}
	if p.Limit > MaxPageSize {
		p.Limit = MaxPageSize
	}
	if p.Offset < 0 {
		p.Offset = 0
	}
	return p
}

// Aggregator serves counts and viewer lists derived from the ledger.
// Every read goes to committed database state; nothing is cached here.
type Aggregator struct {
	db    *gorm.DB
	users repository.UserRepository
}

// NewAggregator creates an aggregator backed by db
func NewAggregator(db *gorm.DB, users repository.UserRepository) *Aggregator {
	return &Aggregator{db: db, users: users}
}

// PostCount returns the number of distinct viewers of a post
func (a *Aggregator) PostCount(ctx context.Context, postID string) (int64, error) {
	var counts []int64
	err := a.db.WithContext(ctx).
		Model(&models.Post{}).
		Where("id = ?", postID).
		Limit(1).
		Pluck("viewed_by_count", &counts).Error
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	if len(counts) == 0 {
		return 0, ErrPostNotFound
	}
	return counts[0], nil
}

// UserViewedByCount returns the sum of distinct viewers over a user's posts
func (a *Aggregator) UserViewedByCount(ctx context.Context, userID string) (int64, error) {
	var counts []int64
	err := a.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", userID).
		Limit(1).
		Pluck("post_viewed_by_count", &counts).Error
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	if len(counts) == 0 {
		return 0, repository.ErrUserNotFound
	}
	return counts[0], nil
}

// ViewerSet is a post's distinct viewer count together with the viewers
// listed under it. Both come from the same statement, so the count never
// disagrees with the list.
type ViewerSet struct {
	Count   int64
	Viewers []models.PostView
}

type viewerRow struct {
	ViewerID      string
	FirstViewedAt time.Time
	LastViewedAt  time.Time
	ViewCount     int64
	TotalViewers  int64
}

// AllViewers returns every viewer of a post, most recent first
func (a *Aggregator) AllViewers(ctx context.Context, postID string) (ViewerSet, error) {
	return a.viewerSet(ctx, postID, nil)
}

// Viewers returns one page of a post's viewers, most recent first. Count
// is the total over all pages.
func (a *Aggregator) Viewers(ctx context.Context, postID string, page Page) (ViewerSet, error) {
	page = page.Normalize()
	return a.viewerSet(ctx, postID, &page)
}

func (a *Aggregator) viewerSet(ctx context.Context, postID string, page *Page) (ViewerSet, error) {
	q := a.db.WithContext(ctx).
		Model(&models.PostView{}).
		Select("viewer_id, first_viewed_at, last_viewed_at, view_count, COUNT(*) OVER () AS total_viewers").
		Where("post_id = ?", postID).
		Order("last_viewed_at DESC").
		Order("viewer_id ASC")
	if page != nil {
		q = q.Limit(page.Limit).Offset(page.Offset)
	}

	var rows []viewerRow
	if err := q.Scan(&rows).Error; err != nil {
		return ViewerSet{}, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}

	set := ViewerSet{Viewers: make([]models.PostView, 0, len(rows))}
	if len(rows) > 0 {
		set.Count = rows[0].TotalViewers
	} else if page != nil && page.Offset > 0 {
		// Past the last page nothing is listed, so the count stands alone
		if err := a.db.WithContext(ctx).
			Model(&models.PostView{}).
			Where("post_id = ?", postID).
			Count(&set.Count).Error; err != nil {
			return ViewerSet{}, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
		}
	}
	if len(rows) == 0 {
		return set, nil
	}

	ids := make([]string, 0, len(rows))
	for _, r := range rows {
		ids = append(ids, r.ViewerID)
	}
	var users []models.User
	if err := a.db.WithContext(ctx).Where("id IN ?", ids).Find(&users).Error; err != nil {
		return ViewerSet{}, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	byID := make(map[string]models.User, len(users))
	for _, u := range users {
		byID[u.ID] = u
	}

	for _, r := range rows {
		set.Viewers = append(set.Viewers, models.PostView{
			PostID:        postID,
			ViewerID:      r.ViewerID,
			Viewer:        byID[r.ViewerID],
			FirstViewedAt: r.FirstViewedAt,
			LastViewedAt:  r.LastViewedAt,
			ViewCount:     r.ViewCount,
		})
	}
	return set, nil
}

// HasViewed reports whether viewerID has a ledger row for postID
func (a *Aggregator) HasViewed(ctx context.Context, viewerID, postID string) (bool, error) {
	var count int64
	err := a.db.WithContext(ctx).
		Model(&models.PostView{}).
		Where("post_id = ? AND viewer_id = ?", postID, viewerID).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	return count > 0, nil
}

// Drift compares stored projections against the ledger for one user
type Drift struct {
	UserID       string              `json:"userId"`
	StoredTotal  int64               `json:"storedTotal"`
	DerivedTotal int64               `json:"derivedTotal"`
	PostMismatch map[string][2]int64 `json:"postMismatch,omitempty"` // post ID -> [stored, derived]
}

// Consistent reports whether the stored values match the ledger
func (d Drift) Consistent() bool {
	return d.StoredTotal == d.DerivedTotal && len(d.PostMismatch) == 0
}

type postCountRow struct {
	ID      string
	Stored  int64
	Derived int64
}

// Verify reads stored and derived counts for a user without writing anything
func (a *Aggregator) Verify(ctx context.Context, userID string) (Drift, error) {
	drift := Drift{UserID: userID}

	stored, err := a.UserViewedByCount(ctx, userID)
	if err != nil {
		return drift, err
	}
	drift.StoredTotal = stored

	var rows []postCountRow
	err = a.db.WithContext(ctx).
		Table("posts").
		Select("posts.id AS id, posts.viewed_by_count AS stored, (SELECT COUNT(*) FROM post_views WHERE post_views.post_id = posts.id) AS derived").
		Where("posts.user_id = ? AND posts.deleted_at IS NULL", userID).
		Scan(&rows).Error
	if err != nil {
		return drift, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}

	for _, row := range rows {
		drift.DerivedTotal += row.Derived
		if row.Stored != row.Derived {
			if drift.PostMismatch == nil {
				drift.PostMismatch = make(map[string][2]int64)
			}
			drift.PostMismatch[row.ID] = [2]int64{row.Stored, row.Derived}
		}
	}

	return drift, nil
}

// isNotFound reports whether err is a missing user or post
func isNotFound(err error) bool {
	return errors.Is(err, repository.ErrUserNotFound) || errors.Is(err, ErrPostNotFound)
}
