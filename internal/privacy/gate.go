// Package privacy stores the per-user viewCountsHidden flag.
//
// The Gate only reads and writes the flag. It never touches view rows or
// counts, so flipping the flag any number of times leaves the underlying
// data exactly as it was.
package privacy

import (
	"context"
	"errors"
	"fmt"

	"github.com/zfogg/sidechain/views/internal/logger"
	"github.com/zfogg/sidechain/views/internal/repository"
	"go.uber.org/zap"
)

// ErrUserNotFound is returned for flags of unknown users
var ErrUserNotFound = repository.ErrUserNotFound

// FlagCache is an optional read-through cache in front of the users table
type FlagCache interface {
	GetFlag(ctx context.Context, userID string) (hidden bool, found bool, err error)
	// FillFlag stores a value read from the database unless an entry already exists
	FillFlag(ctx context.Context, userID string, hidden bool) error
	SetFlag(ctx context.Context, userID string, hidden bool) error
	InvalidateFlag(ctx context.Context, userID string) error
}

// Gate is the privacy flag store
type Gate struct {
	users repository.UserRepository
	cache FlagCache
}

// NewGate creates a gate. cache may be nil.
func NewGate(users repository.UserRepository, cache FlagCache) *Gate {
	return &Gate{users: users, cache: cache}
}

// IsHidden reports whether userID hides their view counts. Defaults to false.
func (g *Gate) IsHidden(ctx context.Context, userID string) (bool, error) {
	if g.cache != nil {
		hidden, found, err := g.cache.GetFlag(ctx, userID)
		if err != nil {
			logger.Log.Warn("Privacy flag cache read failed, using database",
				logger.WithUserID(userID), zap.Error(err))
		} else if found {
			return hidden, nil
		}
	}

	hidden, err := g.users.GetViewCountsHidden(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return false, ErrUserNotFound
		}
		return false, fmt.Errorf("%w: read privacy flag: %v", repository.ErrStorageUnavailable, err)
	}

	if g.cache != nil {
		g.fill(ctx, userID, hidden)
	}
	return hidden, nil
}

// fill caches a value read from the database, then reads the flag again and
// drops the entry if it moved. A writer whose SetFlag failed only
// invalidates, so a fill from before its commit must not outlive it.
func (g *Gate) fill(ctx context.Context, userID string, hidden bool) {
	if err := g.cache.FillFlag(ctx, userID, hidden); err != nil {
		logger.Log.Debug("Privacy flag cache fill failed", logger.WithUserID(userID), zap.Error(err))
		return
	}

	current, err := g.users.GetViewCountsHidden(ctx, userID)
	if err == nil && current == hidden {
		return
	}
	if invErr := g.cache.InvalidateFlag(ctx, userID); invErr != nil {
		logger.Log.Error("Privacy flag cache is stale",
			logger.WithUserID(userID),
			zap.Bool("hidden", hidden),
			zap.Error(invErr),
		)
	}
}

// SetHidden stores the flag and returns the stored value. Setting the
// current value again is a no-op that still succeeds.
//
// The database commit happens first; the cache is then updated before
// returning so the caller's next IsHidden observes the new value.
func (g *Gate) SetHidden(ctx context.Context, userID string, hidden bool) (bool, error) {
	if err := g.users.SetViewCountsHidden(ctx, userID, hidden); err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return false, ErrUserNotFound
		}
		return false, fmt.Errorf("%w: write privacy flag: %v", repository.ErrStorageUnavailable, err)
	}

	if g.cache != nil {
		if err := g.cache.SetFlag(ctx, userID, hidden); err != nil {
			// A failed set must not leave the old value behind
			if invErr := g.cache.InvalidateFlag(ctx, userID); invErr != nil {
				logger.Log.Error("Privacy flag cache is stale",
					logger.WithUserID(userID),
					zap.Bool("hidden", hidden),
					zap.Error(invErr),
				)
			}
		}
	}

	logger.Log.Info("View counts privacy updated",
		logger.WithUserID(userID),
		zap.Bool("hidden", hidden),
	)
	return hidden, nil
}
