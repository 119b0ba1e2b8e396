package database

import (
	"fmt"
	"time"

	"github.com/zfogg/sidechain/views/internal/config"
	"github.com/zfogg/sidechain/views/internal/logger"
	"github.com/zfogg/sidechain/views/internal/models"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// DB holds the database connection
var DB *gorm.DB

// Initialize opens the configured database and stores it in DB
func Initialize(cfg config.DatabaseConfig, environment string) error {
	db, err := Open(cfg, environment)
	if err != nil {
		return err
	}
	DB = db
	return nil
}

// Open creates and configures a database connection for the given driver
func Open(cfg config.DatabaseConfig, environment string) (*gorm.DB, error) {
	gormLogger := gormlogger.Default.LogMode(gormlogger.Warn)
	if environment == "development" {
		gormLogger = gormlogger.Default.LogMode(gormlogger.Info)
	}

	var dialector gorm.Dialector
	switch cfg.Driver {
	case "sqlite":
		dialector = sqlite.Open(cfg.DSN())
	default:
		dialector = postgres.Open(cfg.DSN())
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormLogger,
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	if cfg.Driver == "sqlite" {
		// sqlite allows one writer; serializing connections keeps
		// ledger transactions from failing with SQLITE_BUSY
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxIdleConns(10)
		sqlDB.SetMaxOpenConns(100)
		sqlDB.SetConnMaxLifetime(time.Hour)
	}

	logger.Log.Info("✅ Database connected successfully", zap.String("driver", cfg.Driver))
	return db, nil
}

// Migrate runs auto-migration for the view ledger schema
func Migrate(db *gorm.DB) error {
	if db == nil {
		return fmt.Errorf("database not initialized")
	}

	if err := db.AutoMigrate(
		&models.User{},
		&models.Post{},
		&models.PostView{},
	); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	if err := createIndexes(db); err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}

	logger.Log.Info("✅ Database migrations completed")
	return nil
}

// createIndexes adds indexes AutoMigrate can't express portably
func createIndexes(db *gorm.DB) error {
	statements := []string{
		// Owner-scoped post scans used by aggregate recomputation
		"CREATE INDEX IF NOT EXISTS idx_posts_user_live ON posts (user_id) WHERE deleted_at IS NULL",
		// Lowercase username lookups
		"CREATE INDEX IF NOT EXISTS idx_users_username_lower ON users (LOWER(username))",
	}
	for _, stmt := range statements {
		if err := db.Exec(stmt).Error; err != nil {
			return err
		}
	}
	return nil
}

// Close closes the database connection
func Close(db *gorm.DB) error {
	if db == nil {
		return nil
	}

	sqlDB, err := db.DB()
	if err != nil {
		return err
	}

	return sqlDB.Close()
}

// Health checks database connectivity
func Health(db *gorm.DB) error {
	if db == nil {
		return fmt.Errorf("database not initialized")
	}

	sqlDB, err := db.DB()
	if err != nil {
		return err
	}

	return sqlDB.Ping()
}
