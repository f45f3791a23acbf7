package repository

import (
	"fmt"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/clippy-oss/homie/im-client/internal/logger"
)

// Open opens the sqlite database at path and migrates the chat, message and
// member tables. ":memory:" yields a private in-memory database.
func Open(path string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.NewGormLogger("gorm"),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if path == ":memory:" {
		// Every pooled connection would otherwise see its own empty database.
		sqlDB, err := db.DB()
		if err != nil {
			return nil, fmt.Errorf("failed to get sql handle: %w", err)
		}
		sqlDB.SetMaxOpenConns(1)
	} else {
		// Enable WAL mode for better concurrency
		db.Exec("PRAGMA journal_mode=WAL")
	}

	err = db.AutoMigrate(
		&ChatModel{},
		&MessageModel{},
		&MemberModel{},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return db, nil
}
