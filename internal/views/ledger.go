// Package views owns the post view ledger and the counts derived from it.
//
// The ledger is the source of truth for "who viewed what". Counts on posts
// and users are projections that only change inside the same transaction as
// the ledger row that justifies them, and can be rebuilt from the ledger at
// any time by the Aggregator.
package views

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/zfogg/sidechain/views/internal/logger"
	"github.com/zfogg/sidechain/views/internal/models"
	"github.com/zfogg/sidechain/views/internal/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	// ErrPostNotFound is returned when the post doesn't exist or was deleted
	ErrPostNotFound = repository.ErrPostNotFound
	// ErrViewerNotFound is returned when the viewer has no account
	ErrViewerNotFound = errors.New("viewer not found")
	// ErrStorageUnavailable wraps database failures; callers may retry
	ErrStorageUnavailable = repository.ErrStorageUnavailable
)

// Outcome describes what a Record call did to the ledger
type Outcome string

const (
	// OutcomeFirstView inserted a new fact and incremented the counts
	OutcomeFirstView Outcome = "first_view"
	// OutcomeRepeatView only refreshed last_viewed_at
	OutcomeRepeatView Outcome = "repeat_view"
	// OutcomeSelfView was ignored because the viewer owns the post
	OutcomeSelfView Outcome = "self_view"
)

// RecordResult is returned for every recorded view
type RecordResult struct {
	PostID      string  `json:"postId"`
	PostOwnerID string  `json:"-"`
	Outcome     Outcome `json:"outcome"`
}

// Counted reports whether the view changed any count
func (r RecordResult) Counted() bool {
	return r.Outcome == OutcomeFirstView
}

// Ledger records post views
type Ledger struct {
	db  *gorm.DB
	now func() time.Time
}

// NewLedger creates a ledger backed by db
func NewLedger(db *gorm.DB) *Ledger {
	return &Ledger{
		db: db,
		now: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Record stores that viewerID viewed postID.
//
// The first view of a pair inserts the fact and increments the post's
// viewed_by_count and the owner's post_viewed_by_count in one transaction.
// Later views of the same pair only refresh recency. Views by the post's
// owner are ignored without error.
func (l *Ledger) Record(ctx context.Context, viewerID, postID string) (RecordResult, error) {
	result := RecordResult{PostID: postID}

	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var post models.Post
		if err := tx.Select("id", "user_id").Where("id = ?", postID).First(&post).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrPostNotFound
			}
			return err
		}
		result.PostOwnerID = post.UserID

		if post.UserID == viewerID {
			result.Outcome = OutcomeSelfView
			return nil
		}

		var viewers int64
		if err := tx.Model(&models.User{}).Where("id = ?", viewerID).Count(&viewers).Error; err != nil {
			return err
		}
		if viewers == 0 {
			return ErrViewerNotFound
		}

		now := l.now()
		view := models.PostView{
			PostID:        postID,
			ViewerID:      viewerID,
			FirstViewedAt: now,
			LastViewedAt:  now,
			ViewCount:     1,
		}

		// The primary key on (post_id, viewer_id) decides which concurrent
		// request wins the increment: only the insert that lands gets a row.
		insert := tx.Omit(clause.Associations).
			Clauses(clause.OnConflict{DoNothing: true}).
			Create(&view)
		if insert.Error != nil {
			return insert.Error
		}

		if insert.RowsAffected == 1 {
			if err := incrementCounts(tx, postID, post.UserID); err != nil {
				return err
			}
			result.Outcome = OutcomeFirstView
			return nil
		}

		if err := tx.Model(&models.PostView{}).
			Where("post_id = ? AND viewer_id = ?", postID, viewerID).
			UpdateColumns(map[string]interface{}{
				"last_viewed_at": now,
				"view_count":     gorm.Expr("view_count + 1"),
			}).Error; err != nil {
			return err
		}
		result.Outcome = OutcomeRepeatView
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrPostNotFound) || errors.Is(err, ErrViewerNotFound) {
			return result, err
		}
		logger.Log.Error("Failed to record post view",
			logger.WithViewerID(viewerID),
			logger.WithPostID(postID),
			zap.Error(err),
		)
		return result, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}

	logger.Log.Debug("Recorded post view",
		logger.WithViewerID(viewerID),
		logger.WithPostID(postID),
		zap.String("outcome", string(result.Outcome)),
	)
	return result, nil
}

// RecordMany records a batch of views for one viewer. Each post is recorded
// in its own transaction; missing posts are reported per item and don't
// abort the batch. A storage failure stops the batch and is returned.
func (l *Ledger) RecordMany(ctx context.Context, viewerID string, postIDs []string) ([]RecordResult, []string, error) {
	results := make([]RecordResult, 0, len(postIDs))
	var missing []string
	seen := make(map[string]bool, len(postIDs))

	for _, postID := range postIDs {
		if seen[postID] {
			continue
		}
		seen[postID] = true

		res, err := l.Record(ctx, viewerID, postID)
		switch {
		case errors.Is(err, ErrPostNotFound):
			missing = append(missing, postID)
		case err != nil:
			return results, missing, err
		default:
			results = append(results, res)
		}
	}

	return results, missing, nil
}

// PurgePost deletes a post together with its ledger rows and subtracts the
// removed viewers from the owner's total, never going below zero.
func (l *Ledger) PurgePost(ctx context.Context, postID string) (int64, error) {
	var removed int64

	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var post models.Post
		if err := tx.Select("id", "user_id").Where("id = ?", postID).First(&post).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrPostNotFound
			}
			return err
		}

		deleted := tx.Where("post_id = ?", postID).Delete(&models.PostView{})
		if deleted.Error != nil {
			return deleted.Error
		}
		removed = deleted.RowsAffected

		if removed > 0 {
			if err := tx.Model(&models.User{}).
				Where("id = ?", post.UserID).
				UpdateColumn("post_viewed_by_count", gorm.Expr(
					"CASE WHEN post_viewed_by_count >= ? THEN post_viewed_by_count - ? ELSE 0 END", removed, removed,
				)).Error; err != nil {
				return err
			}
		}

		if err := tx.Model(&models.Post{}).
			Where("id = ?", postID).
			UpdateColumn("viewed_by_count", 0).Error; err != nil {
			return err
		}

		return tx.Delete(&models.Post{}, "id = ?", postID).Error
	})
	if err != nil {
		if errors.Is(err, ErrPostNotFound) {
			return 0, err
		}
		return 0, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}

	logger.Log.Info("Purged post and its views",
		logger.WithPostID(postID),
		zap.Int64("views_removed", removed),
	)
	return removed, nil
}

func incrementCounts(tx *gorm.DB, postID, ownerID string) error {
	if err := tx.Model(&models.Post{}).
		Where("id = ?", postID).
		UpdateColumn("viewed_by_count", gorm.Expr("viewed_by_count + 1")).Error; err != nil {
		return err
	}
	return tx.Model(&models.User{}).
		Where("id = ?", ownerID).
		UpdateColumn("post_viewed_by_count", gorm.Expr("post_viewed_by_count + 1")).Error
}
