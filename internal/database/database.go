package database

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/onegreenvn/green-session-service/internal/config"
	"github.com/onegreenvn/green-session-service/internal/models"
)

// InitDB opens the postgres connection and migrates the session schema
func InitDB(cfg config.DatabaseConfig) (*gorm.DB, error) {
	// Configure GORM logger
	gormLogger := logger.New(
		logrus.New(),
		logger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  logger.Error,
			IgnoreRecordNotFoundError: true,
			Colorful:                  true,
		},
	)

	db, err := gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{
		Logger:                 gormLogger,
		SkipDefaultTransaction: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Set connection pool settings
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database connection: %w", err)
	}
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := Migrate(db); err != nil {
		return nil, err
	}

	logrus.Info("Database connection established and migrations completed")
	return db, nil
}

// Migrate creates the tables and the reaper's supporting indexes
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&models.User{}, &models.RefreshToken{}); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}

	// Composite index for the session listing: owner + active, newest first
	indexes := []string{
		"CREATE INDEX IF NOT EXISTS idx_refresh_tokens_owner_active ON refresh_tokens(user_id, is_active, created_at DESC)",
		"CREATE INDEX IF NOT EXISTS idx_refresh_tokens_inactive ON refresh_tokens(last_used_at) WHERE is_active = false",
	}
	for _, stmt := range indexes {
		if err := db.Exec(stmt).Error; err != nil {
			logrus.Warnf("Failed to create index: %v", err)
		}
	}
	return nil
}
