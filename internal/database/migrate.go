package database

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"log/slog"
	"time"

	"github.com/pressly/goose/v3"
	"gorm.io/gorm"

	"github.com/sandeepkv93/endorsement-backend/internal/domain"
	"github.com/sandeepkv93/endorsement-backend/internal/observability"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

const migrationsDir = "migrations"

// Migrate applies the embedded goose migrations on Postgres. SQLite has no
// matching SQL dialect here, so it is brought up with AutoMigrate instead.
func Migrate(ctx context.Context, db *gorm.DB, logger *slog.Logger) error {
	start := time.Now()
	defer func() {
		observability.RecordDatabaseStartupDuration(ctx, "migrate", time.Since(start))
	}()

	var err error
	if IsSQLite(db) {
		err = autoMigrate(db)
	} else {
		err = gooseUp(ctx, db, logger)
	}
	if err != nil {
		observability.RecordDatabaseStartupEvent(ctx, "migrate", "error")
		return err
	}
	observability.RecordDatabaseStartupEvent(ctx, "migrate", "success")
	return nil
}

// MigrationStatus logs the applied state of each embedded migration.
func MigrationStatus(ctx context.Context, db *gorm.DB, logger *slog.Logger) error {
	if IsSQLite(db) {
		logger.InfoContext(ctx, "sqlite schema is managed by automigrate")
		return nil
	}
	sqlDB, err := prepareGoose(db, logger)
	if err != nil {
		return err
	}
	return goose.StatusContext(ctx, sqlDB, migrationsDir)
}

// Rollback reverts the most recent migration.
func Rollback(ctx context.Context, db *gorm.DB, logger *slog.Logger) error {
	if IsSQLite(db) {
		return fmt.Errorf("rollback is not supported on sqlite")
	}
	sqlDB, err := prepareGoose(db, logger)
	if err != nil {
		return err
	}
	return goose.DownContext(ctx, sqlDB, migrationsDir)
}

func gooseUp(ctx context.Context, db *gorm.DB, logger *slog.Logger) error {
	sqlDB, err := prepareGoose(db, logger)
	if err != nil {
		return err
	}
	if err := goose.UpContext(ctx, sqlDB, migrationsDir); err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}

func prepareGoose(db *gorm.DB, logger *slog.Logger) (*sql.DB, error) {
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	goose.SetBaseFS(migrationsFS)
	goose.SetLogger(gooseLogger{logger: logger})
	if err := goose.SetDialect("postgres"); err != nil {
		return nil, err
	}
	return sqlDB, nil
}

func autoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&domain.Account{},
		&domain.LocalCredential{},
		&domain.Recommendation{},
		&domain.RecommendationAttachment{},
		&domain.IdempotencyRecord{},
	)
}

type gooseLogger struct {
	logger *slog.Logger
}

func (l gooseLogger) Fatalf(format string, v ...any) {
	l.logger.Error(fmt.Sprintf(format, v...), "component", "goose")
}

func (l gooseLogger) Printf(format string, v ...any) {
	l.logger.Info(fmt.Sprintf(format, v...), "component", "goose")
}
