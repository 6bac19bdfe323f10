// Package store provides the relational persistence layer backed by gorm.
package store

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/nellx/marketplace-api/internal/model"
)

// Domain errors surfaced by store operations. Handlers translate these
// to HTTP statuses; they are never retried automatically.
var (
	// ErrNotFound means the requested row does not exist.
	ErrNotFound = errors.New("not found")

	// ErrNotParticipant means the caller is not one of the two
	// conversation participants.
	ErrNotParticipant = errors.New("not a conversation participant")

	// ErrConversationBlocked means writes are rejected until the
	// conversation is unblocked.
	ErrConversationBlocked = errors.New("conversation is blocked")

	// ErrInsufficientBalance means a paid operation exceeds the
	// user's balance.
	ErrInsufficientBalance = errors.New("insufficient balance")
)

// Open connects to Postgres and configures the connection pool.
func Open(databaseURL string, maxConns int) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(databaseURL), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to access sql.DB: %w", err)
	}
	sqlDB.SetMaxOpenConns(maxConns)
	sqlDB.SetMaxIdleConns(maxConns / 2)
	sqlDB.SetConnMaxLifetime(time.Hour)

	return db, nil
}

// Migrate creates or updates all tables.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&model.User{},
		&model.Category{},
		&model.CategoryAttribute{},
		&model.Listing{},
		&model.ListingImage{},
		&model.Conversation{},
		&model.Message{},
		&model.Transaction{},
	)
}

// translate maps gorm errors onto store sentinels.
func translate(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}
