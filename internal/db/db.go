package db

import (
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"visa-appointment-backend/config"
	"visa-appointment-backend/internal/model"
)

// migrateModels is the single declarative schema shared by the primary and
// the mirror. Both engines run the same AutoMigrate list, which keeps the
// mirror structurally in sync without introspecting the primary's catalog.
var migrateModels = []any{
	&model.Response{},
	&model.LogEntry{},
	&model.AppointmentMessage{},
	&model.UniqueAppointment{},
	&model.AppointmentLog{},
	&model.ProcessedResponse{},
	&model.ErrorLog{},
	&model.PushSubscription{},
}

// InitPrimary opens the authoritative PostgreSQL store and runs migrations.
func InitPrimary(cfg *config.PrimaryConfig) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(cfg.DSN), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to primary database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}

	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetimeMinutes) * time.Minute)

	if err := db.AutoMigrate(migrateModels...); err != nil {
		return nil, fmt.Errorf("primary automigrate failed: %w", err)
	}

	return db, nil
}

// InitMirror opens the local SQLite read cache and runs the same migrations
// as the primary.
func InitMirror(cfg *config.MirrorConfig) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(cfg.Path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open mirror database: %w", err)
	}

	if err := db.AutoMigrate(migrateModels...); err != nil {
		return nil, fmt.Errorf("mirror automigrate failed: %w", err)
	}

	return db, nil
}
