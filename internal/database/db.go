package database

import (
	"context"
	"fmt"
	"strings"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/sandeepkv93/endorsement-backend/internal/observability"
)

const sqlitePrefix = "sqlite://"

// Open connects to Postgres, or to SQLite when the URL uses the sqlite://
// scheme (local profiles and tests).
func Open(databaseURL string) (*gorm.DB, error) {
	start := time.Now()
	ctx := context.Background()
	defer func() {
		observability.RecordDatabaseStartupDuration(ctx, "connect", time.Since(start))
	}()

	dialector, err := dialectorFor(databaseURL)
	if err != nil {
		observability.RecordDatabaseStartupEvent(ctx, "connect", "error")
		return nil, err
	}
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:  logger.Default.LogMode(logger.Warn),
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		observability.RecordDatabaseStartupEvent(ctx, "connect", "error")
		return nil, fmt.Errorf("open database: %w", err)
	}
	if IsSQLite(db) {
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		// SQLite serializes writers; one connection keeps the conditional updates race free.
		sqlDB.SetMaxOpenConns(1)
	}
	observability.RecordDatabaseStartupEvent(ctx, "connect", "success")
	return db, nil
}

func dialectorFor(databaseURL string) (gorm.Dialector, error) {
	url := strings.TrimSpace(databaseURL)
	switch {
	case url == "":
		return nil, fmt.Errorf("database url is empty")
	case strings.HasPrefix(url, sqlitePrefix):
		return sqlite.Open(strings.TrimPrefix(url, sqlitePrefix)), nil
	default:
		return postgres.Open(url), nil
	}
}

func IsSQLite(db *gorm.DB) bool {
	return db.Dialector.Name() == "sqlite"
}
