package seed

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zfogg/sidechain/views/internal/models"
	"github.com/zfogg/sidechain/views/internal/repository"
	"github.com/zfogg/sidechain/views/internal/testutil"
	"github.com/zfogg/sidechain/views/internal/views"
)

func TestSeedLeavesAggregatesConsistent(t *testing.T) {
	db := testutil.NewDB(t)
	ctx := context.Background()
	opts := TestOptions()

	seeder := NewSeeder(db, views.NewLedger(db), opts.Seed)
	summary, err := seeder.Seed(ctx, opts)
	require.NoError(t, err)

	assert.Equal(t, opts.Users, summary.Users)
	assert.Equal(t, opts.Users*opts.PostsPerUser, summary.Posts)

	var ledgerRows int64
	require.NoError(t, db.Model(&models.PostView{}).Count(&ledgerRows).Error)
	assert.Equal(t, int64(summary.ViewsCounted), ledgerRows)

	aggregator := views.NewAggregator(db, repository.NewUserRepository(db))
	var users []models.User
	require.NoError(t, db.Find(&users).Error)
	for _, user := range users {
		drift, err := aggregator.Verify(ctx, user.ID)
		require.NoError(t, err)
		assert.True(t, drift.Consistent(), "user %s drifted: %+v", user.Username, drift)
	}
}

func TestClean(t *testing.T) {
	db := testutil.NewDB(t)
	ctx := context.Background()

	seeder := NewSeeder(db, views.NewLedger(db), 7)
	_, err := seeder.Seed(ctx, Options{Users: 3, PostsPerUser: 1, ViewRate: 1})
	require.NoError(t, err)

	require.NoError(t, seeder.Clean(ctx))

	var users, posts, ledgerRows int64
	require.NoError(t, db.Model(&models.User{}).Count(&users).Error)
	require.NoError(t, db.Unscoped().Model(&models.Post{}).Count(&posts).Error)
	require.NoError(t, db.Model(&models.PostView{}).Count(&ledgerRows).Error)
	assert.Zero(t, users)
	assert.Zero(t, posts)
	assert.Zero(t, ledgerRows)
}
