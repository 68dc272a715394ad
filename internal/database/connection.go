// internal/database/connection.go
package database

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/javajoker/storyline-backend/internal/config"
	"github.com/javajoker/storyline-backend/internal/models"
)

func Initialize(cfg config.DatabaseConfig, log *logrus.Logger) (*gorm.DB, error) {
	gormConfig := &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	}
	if cfg.LogLevel == "info" {
		gormConfig.Logger = logger.Default.LogMode(logger.Info)
	}

	dialector := postgres.Open(cfg.DSN())
	if !cfg.Enabled {
		dialector = sqlite.Open(cfg.SQLitePath)
	}

	// Connect to database
	db, err := gorm.Open(dialector, gormConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Get underlying sql.DB
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	// Configure connection pool
	if cfg.Enabled {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
		sqlDB.SetConnMaxLifetime(time.Duration(cfg.MaxLifetime) * time.Second)
	} else {
		// sqlite allows a single writer
		sqlDB.SetMaxOpenConns(1)
	}

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	log.WithField("driver", cfg.Driver()).Info("Database connection established")
	return db, nil
}

func Close(db *gorm.DB, log *logrus.Logger) {
	sqlDB, err := db.DB()
	if err != nil {
		log.WithError(err).Error("Error getting underlying sql.DB")
		return
	}

	if err := sqlDB.Close(); err != nil {
		log.WithError(err).Error("Error closing database connection")
	} else {
		log.Info("Database connection closed")
	}
}

// RunMigrations creates the unlock ledger, chapter license index and audit
// tables. It is dialect-neutral so tests can run it against sqlite.
func RunMigrations(db *gorm.DB, log *logrus.Logger) error {
	log.Info("Running database migrations")

	err := db.AutoMigrate(
		&models.UnlockRecord{},
		&models.ChapterLicense{},
		&models.AuditLog{},
	)
	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	if err := createIndexes(db, log); err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}

	log.Info("Database migrations completed")
	return nil
}

func createIndexes(db *gorm.DB, log *logrus.Logger) error {
	indexes := []string{
		"CREATE INDEX IF NOT EXISTS idx_unlock_records_user_time ON unlock_records(user_address, unlocked_at DESC)",
		"CREATE INDEX IF NOT EXISTS idx_unlock_records_book_chapter ON unlock_records(book_id, chapter_number)",
		"CREATE INDEX IF NOT EXISTS idx_audit_logs_wallet_action ON audit_logs(wallet_address, action)",
		"CREATE INDEX IF NOT EXISTS idx_audit_logs_created ON audit_logs(created_at DESC)",
	}

	for _, index := range indexes {
		if err := db.Exec(index).Error; err != nil {
			// Continue with other indexes instead of failing completely
			log.WithError(err).WithField("index", index).Warn("Failed to create index")
		}
	}

	return nil
}

// Transaction helper
func WithTransaction(db *gorm.DB, fn func(*gorm.DB) error) error {
	tx := db.Begin()
	if tx.Error != nil {
		return tx.Error
	}

	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
			panic(r)
		}
	}()

	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}

	return tx.Commit().Error
}
