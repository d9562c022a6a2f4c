// Package store provides Postgres persistence via GORM.
package store

import (
	"context"
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/brightpath-ai/tutoring-platform/internal/model"
)

// DB wraps the GORM handle.
type DB struct {
	*gorm.DB
}

// Open connects to Postgres and verifies the connection.
func Open(dsn string) (*DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to access connection pool: %w", err)
	}
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(time.Hour)

	return &DB{DB: db}, nil
}

// Migrate applies the schema.
func (d *DB) Migrate() error {
	return d.AutoMigrate(
		&model.User{},
		&model.Conversation{},
		&model.Message{},
		&model.Quiz{},
		&model.QuizQuestion{},
		&model.QuizAssignment{},
		&model.Assignment{},
		&model.Submission{},
		&model.Announcement{},
		&model.AnnouncementRead{},
		&model.StudentProfile{},
	)
}

// Ping checks database liveness.
func (d *DB) Ping(ctx context.Context) error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}
