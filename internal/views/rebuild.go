package views

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/zfogg/sidechain/views/internal/logger"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const recomputeBatchSize = 500

// RepairReport describes one user's recomputation
type RepairReport struct {
	UserID string `json:"userId"`
	Before Drift  `json:"before"`
	Fixed  bool   `json:"fixed"`
}

// RepairSummary aggregates a full rebuild
type RepairSummary struct {
	UsersScanned int           `json:"usersScanned"`
	UsersFixed   int           `json:"usersFixed"`
	Failures     int           `json:"failures"`
	Duration     time.Duration `json:"duration"`
}

// RecomputeUser rebuilds a user's post counts and total from the ledger.
//
// It is idempotent and safe next to live traffic: the owner's post rows and
// user row are locked in the same order Record takes them, so a concurrent
// first view either lands before the recount (and is counted by it) or
// after (and increments the recounted value).
func (a *Aggregator) RecomputeUser(ctx context.Context, userID string) (RepairReport, error) {
	report := RepairReport{UserID: userID}

	before, err := a.Verify(ctx, userID)
	if err != nil {
		return report, err
	}
	report.Before = before
	if before.Consistent() {
		return report, nil
	}

	err = a.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockOwnerRows(tx, userID); err != nil {
			return err
		}

		if err := tx.Exec(
			`UPDATE posts SET viewed_by_count = (
				SELECT COUNT(*) FROM post_views WHERE post_views.post_id = posts.id
			) WHERE user_id = ? AND deleted_at IS NULL`,
			userID,
		).Error; err != nil {
			return err
		}

		return tx.Exec(
			`UPDATE users SET post_viewed_by_count = (
				SELECT COALESCE(SUM(posts.viewed_by_count), 0) FROM posts
				WHERE posts.user_id = users.id AND posts.deleted_at IS NULL
			) WHERE id = ?`,
			userID,
		).Error
	})
	if err != nil {
		return report, fmt.Errorf("%w: recompute user %s: %v", ErrStorageUnavailable, userID, err)
	}

	report.Fixed = true
	logger.Log.Warn("Repaired drifted view counts",
		logger.WithUserID(userID),
		zap.Int64("stored_total", before.StoredTotal),
		zap.Int64("derived_total", before.DerivedTotal),
		zap.Int("posts_mismatched", len(before.PostMismatch)),
	)
	return report, nil
}

// lockOwnerRows takes row locks on the owner's posts, then the owner.
// SQLite has a single writer and no row locks, so it is skipped there.
func lockOwnerRows(tx *gorm.DB, userID string) error {
	if tx.Dialector.Name() == "sqlite" {
		return nil
	}

	var ids []string
	if err := tx.Table("posts").
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("user_id = ? AND deleted_at IS NULL", userID).
		Order("id").
		Pluck("id", &ids).Error; err != nil {
		return err
	}

	return tx.Table("users").
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", userID).
		Pluck("id", &ids).Error
}

// RecomputeAll walks every user and recomputes their counts with at most
// concurrency users in flight. Per-user failures are counted and logged;
// only a failure to list users aborts the run.
func (a *Aggregator) RecomputeAll(ctx context.Context, concurrency int) (RepairSummary, error) {
	start := time.Now()
	summary := RepairSummary{}
	if concurrency < 1 {
		concurrency = 1
	}

	var mu sync.Mutex
	after := ""

	for {
		ids, err := a.users.ListUserIDs(ctx, after, recomputeBatchSize)
		if err != nil {
			summary.Duration = time.Since(start)
			return summary, fmt.Errorf("%w: list users: %v", ErrStorageUnavailable, err)
		}
		if len(ids) == 0 {
			break
		}

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(concurrency)

		for _, id := range ids {
			userID := id
			g.Go(func() error {
				report, err := a.RecomputeUser(gctx, userID)

				mu.Lock()
				defer mu.Unlock()
				summary.UsersScanned++
				switch {
				case err != nil && !isNotFound(err):
					summary.Failures++
					logger.Log.Error("Aggregate recompute failed", logger.WithUserID(userID), zap.Error(err))
				case report.Fixed:
					summary.UsersFixed++
				}
				return gctx.Err()
			})
		}

		if err := g.Wait(); err != nil {
			summary.Duration = time.Since(start)
			return summary, err
		}

		after = ids[len(ids)-1]
		if len(ids) < recomputeBatchSize {
			break
		}
	}

	summary.Duration = time.Since(start)
	return summary, nil
}
