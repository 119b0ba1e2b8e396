// Package testutil provides an in-memory database for package tests.
package testutil

import (
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/zfogg/sidechain/views/internal/config"
	"github.com/zfogg/sidechain/views/internal/database"
	"github.com/zfogg/sidechain/views/internal/models"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// NewDB returns a migrated, isolated in-memory SQLite database
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()

	cfg := config.DatabaseConfig{
		Driver: "sqlite",
		// Each test gets its own named shared-cache database
		URL: fmt.Sprintf("file:%s?mode=memory&cache=shared&_foreign_keys=1", uuid.New().String()),
	}

	db, err := database.Open(cfg, "test")
	require.NoError(t, err)
	db.Logger = gormlogger.Default.LogMode(gormlogger.Silent)

	require.NoError(t, database.Migrate(db))

	t.Cleanup(func() {
		_ = database.Close(db)
	})
	return db
}

// CreateUser inserts a user with the given username
func CreateUser(t *testing.T, db *gorm.DB, username string) *models.User {
	t.Helper()

	user := &models.User{Username: username, DisplayName: username}
	require.NoError(t, db.Create(user).Error)
	return user
}

// CreatePost inserts a post owned by ownerID
func CreatePost(t *testing.T, db *gorm.DB, ownerID string) *models.Post {
	t.Helper()

	post := &models.Post{UserID: ownerID, Text: "test post"}
	require.NoError(t, db.Omit("User").Create(post).Error)
	return post
}
