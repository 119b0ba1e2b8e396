package repair

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zfogg/sidechain/views/internal/models"
	"github.com/zfogg/sidechain/views/internal/repository"
	"github.com/zfogg/sidechain/views/internal/testutil"
	"github.com/zfogg/sidechain/views/internal/views"
)

type countingRecomputer struct {
	calls atomic.Int32
	err   error
}

func (r *countingRecomputer) RecomputeAll(ctx context.Context, _ int) (views.RepairSummary, error) {
	r.calls.Add(1)
	return views.RepairSummary{UsersScanned: 1}, r.err
}

func TestServiceRunsOnInterval(t *testing.T) {
	rec := &countingRecomputer{}
	svc := NewService(rec, 10*time.Millisecond, 2)
	svc.Start()

	assert.Eventually(t, func() bool { return rec.calls.Load() >= 2 }, time.Second, 5*time.Millisecond)
	svc.Stop()

	stopped := rec.calls.Load()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, stopped, rec.calls.Load(), "no runs after Stop")
}

func TestServiceDisabled(t *testing.T) {
	rec := &countingRecomputer{}
	svc := NewService(rec, 0, 1)
	svc.Start()
	svc.Stop()
	assert.Equal(t, int32(0), rec.calls.Load())
}

func TestRunOnceReturnsError(t *testing.T) {
	rec := &countingRecomputer{err: errors.New("list users failed")}
	_, err := NewService(rec, 0, 1).RunOnce(context.Background())
	assert.Error(t, err)
}

func TestRunOnceRepairsDrift(t *testing.T) {
	db := testutil.NewDB(t)
	ctx := context.Background()
	owner := testutil.CreateUser(t, db, "owner")
	viewer := testutil.CreateUser(t, db, "viewer")
	post := testutil.CreatePost(t, db, owner.ID)

	_, err := views.NewLedger(db).Record(ctx, viewer.ID, post.ID)
	require.NoError(t, err)
	require.NoError(t, db.Model(&models.User{}).Where("id = ?", owner.ID).
		UpdateColumn("post_viewed_by_count", 99).Error)

	agg := views.NewAggregator(db, repository.NewUserRepository(db))
	summary, err := NewService(agg, 0, 2).RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.UsersFixed)

	count, err := agg.UserViewedByCount(ctx, owner.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}
