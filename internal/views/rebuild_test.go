package views

import (
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zfogg/sidechain/views/internal/models"
	"github.com/zfogg/sidechain/views/internal/testutil"
)

func (suite *LedgerTestSuite) corrupt(postID string, postCount int64, userID string, userCount int64) {
	t := suite.T()
	require.NoError(t, suite.db.Model(&models.Post{}).Where("id = ?", postID).
		UpdateColumn("viewed_by_count", postCount).Error)
	require.NoError(t, suite.db.Model(&models.User{}).Where("id = ?", userID).
		UpdateColumn("post_viewed_by_count", userCount).Error)
}

func (suite *LedgerTestSuite) TestRecomputeUserRepairsDrift() {
	t := suite.T()

	_, err := suite.ledger.Record(suite.ctx, suite.viewer.ID, suite.post.ID)
	require.NoError(t, err)
	suite.corrupt(suite.post.ID, 7, suite.owner.ID, 42)

	drift, err := suite.aggregator.Verify(suite.ctx, suite.owner.ID)
	require.NoError(t, err)
	assert.False(t, drift.Consistent())
	assert.Equal(t, int64(42), drift.StoredTotal)
	assert.Equal(t, int64(1), drift.DerivedTotal)
	assert.Equal(t, [2]int64{7, 1}, drift.PostMismatch[suite.post.ID])

	report, err := suite.aggregator.RecomputeUser(suite.ctx, suite.owner.ID)
	require.NoError(t, err)
	assert.True(t, report.Fixed)

	assert.Equal(t, int64(1), suite.postCount(suite.post.ID))
	assert.Equal(t, int64(1), suite.userCount(suite.owner.ID))

	// A second pass finds nothing to do
	again, err := suite.aggregator.RecomputeUser(suite.ctx, suite.owner.ID)
	require.NoError(t, err)
	assert.False(t, again.Fixed)
}

func (suite *LedgerTestSuite) TestRecomputeIgnoresDeletedPosts() {
	t := suite.T()

	second := testutil.CreatePost(t, suite.db, suite.owner.ID)
	_, err := suite.ledger.Record(suite.ctx, suite.viewer.ID, suite.post.ID)
	require.NoError(t, err)
	_, err = suite.ledger.Record(suite.ctx, suite.viewer.ID, second.ID)
	require.NoError(t, err)

	_, err = suite.ledger.PurgePost(suite.ctx, second.ID)
	require.NoError(t, err)

	drift, err := suite.aggregator.Verify(suite.ctx, suite.owner.ID)
	require.NoError(t, err)
	assert.True(t, drift.Consistent())
	assert.Equal(t, int64(1), drift.DerivedTotal)
}

func (suite *LedgerTestSuite) TestRecomputeAll() {
	t := suite.T()

	other := testutil.CreateUser(t, suite.db, "other-owner")
	otherPost := testutil.CreatePost(t, suite.db, other.ID)

	_, err := suite.ledger.Record(suite.ctx, suite.viewer.ID, suite.post.ID)
	require.NoError(t, err)
	_, err = suite.ledger.Record(suite.ctx, suite.viewer.ID, otherPost.ID)
	require.NoError(t, err)

	suite.corrupt(suite.post.ID, 0, suite.owner.ID, 0)
	suite.corrupt(otherPost.ID, 3, other.ID, 3)

	summary, err := suite.aggregator.RecomputeAll(suite.ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, 3, summary.UsersScanned)
	assert.Equal(t, 2, summary.UsersFixed)
	assert.Equal(t, 0, summary.Failures)

	assert.Equal(t, int64(1), suite.userCount(suite.owner.ID))
	assert.Equal(t, int64(1), suite.userCount(other.ID))
	assert.Equal(t, int64(1), suite.postCount(otherPost.ID))
}

func (suite *LedgerTestSuite) TestRecomputeUnknownUser() {
	_, err := suite.aggregator.RecomputeUser(suite.ctx, "00000000-0000-0000-0000-000000000000")
	assert.True(suite.T(), isNotFound(err))
}
