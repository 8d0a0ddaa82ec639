package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/sandeepkv93/endorsement-backend/internal/domain"
	"github.com/sandeepkv93/endorsement-backend/internal/observability"
)

type IdempotencyState string

const (
	IdempotencyStateNew        IdempotencyState = "new"
	IdempotencyStateReplay     IdempotencyState = "replay"
	IdempotencyStateConflict   IdempotencyState = "conflict"
	IdempotencyStateInProgress IdempotencyState = "in_progress"

	idempotencyCompleted = "completed"
)

type CachedHTTPResponse struct {
	StatusCode  int
	ContentType string
	Body        []byte
}

type IdempotencyBeginResult struct {
	State  IdempotencyState
	Cached *CachedHTTPResponse
}

type IdempotencyStore interface {
	Begin(ctx context.Context, scope, key, fingerprint string, ttl time.Duration) (IdempotencyBeginResult, error)
	Complete(ctx context.Context, scope, key, fingerprint string, resp CachedHTTPResponse, ttl time.Duration) error
	Release(ctx context.Context, scope, key, fingerprint string) error
}

// DBIdempotencyStore claims keys with an insert that ignores conflicts, so the
// unique (scope, key) index decides which concurrent request proceeds.
type DBIdempotencyStore struct {
	db  *gorm.DB
	now func() time.Time
}

func NewDBIdempotencyStore(db *gorm.DB) *DBIdempotencyStore {
	return &DBIdempotencyStore{db: db, now: time.Now}
}

func (s *DBIdempotencyStore) Begin(ctx context.Context, scope, key, fingerprint string, ttl time.Duration) (IdempotencyBeginResult, error) {
	now := s.now().UTC()
	claim := domain.IdempotencyRecord{
		Scope:          scope,
		IdempotencyKey: key,
		Fingerprint:    fingerprint,
		Status:         string(IdempotencyStateInProgress),
		ExpiresAt:      now.Add(ttl),
	}
	res := s.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&claim)
	if res.Error != nil {
		return IdempotencyBeginResult{}, res.Error
	}
	if res.RowsAffected == 1 {
		return IdempotencyBeginResult{State: IdempotencyStateNew}, nil
	}

	var rec domain.IdempotencyRecord
	if err := s.db.WithContext(ctx).Where("scope = ? AND idempotency_key = ?", scope, key).First(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// Released or swept between the insert and the read.
			return IdempotencyBeginResult{State: IdempotencyStateInProgress}, nil
		}
		return IdempotencyBeginResult{}, err
	}

	if !rec.ExpiresAt.After(now) {
		// Take over the expired record only if nobody else did first.
		upd := s.db.WithContext(ctx).Model(&domain.IdempotencyRecord{}).
			Where("id = ? AND expires_at <= ?", rec.ID, now).
			Updates(map[string]any{
				"fingerprint":     fingerprint,
				"status":          string(IdempotencyStateInProgress),
				"response_status": 0,
				"response_body":   nil,
				"content_type":    "",
				"expires_at":      now.Add(ttl),
				"updated_at":      now,
			})
		if upd.Error != nil {
			return IdempotencyBeginResult{}, upd.Error
		}
		if upd.RowsAffected == 1 {
			return IdempotencyBeginResult{State: IdempotencyStateNew}, nil
		}
		return IdempotencyBeginResult{State: IdempotencyStateInProgress}, nil
	}

	switch {
	case rec.Fingerprint != fingerprint:
		return IdempotencyBeginResult{State: IdempotencyStateConflict}, nil
	case rec.Status == idempotencyCompleted:
		return IdempotencyBeginResult{State: IdempotencyStateReplay, Cached: &CachedHTTPResponse{
			StatusCode:  rec.ResponseStatus,
			ContentType: rec.ContentType,
			Body:        append([]byte(nil), rec.ResponseBody...),
		}}, nil
	default:
		return IdempotencyBeginResult{State: IdempotencyStateInProgress}, nil
	}
}

func (s *DBIdempotencyStore) Complete(ctx context.Context, scope, key, fingerprint string, resp CachedHTTPResponse, ttl time.Duration) error {
	now := s.now().UTC()
	return s.db.WithContext(ctx).Model(&domain.IdempotencyRecord{}).
		Where("scope = ? AND idempotency_key = ? AND fingerprint = ? AND status <> ?", scope, key, fingerprint, idempotencyCompleted).
		Updates(map[string]any{
			"status":          idempotencyCompleted,
			"response_status": resp.StatusCode,
			"response_body":   resp.Body,
			"content_type":    resp.ContentType,
			"expires_at":      now.Add(ttl),
			"updated_at":      now,
		}).Error
}

// Release drops an unfinished claim so the client may retry with the same key.
func (s *DBIdempotencyStore) Release(ctx context.Context, scope, key, fingerprint string) error {
	return s.db.WithContext(ctx).
		Where("scope = ? AND idempotency_key = ? AND fingerprint = ? AND status <> ?", scope, key, fingerprint, idempotencyCompleted).
		Delete(&domain.IdempotencyRecord{}).Error
}

func (s *DBIdempotencyStore) CleanupExpired(ctx context.Context, now time.Time, batchSize int) (int64, error) {
	if batchSize <= 0 {
		batchSize = 500
	}
	scoped := s.db.WithContext(ctx)
	expired := scoped.Model(&domain.IdempotencyRecord{}).
		Select("id").
		Where("expires_at <= ?", now.UTC()).
		Order("id ASC").
		Limit(batchSize)
	res := scoped.Where("id IN (?)", expired).Delete(&domain.IdempotencyRecord{})
	if res.Error != nil {
		observability.RecordIdempotencyCleanup(ctx, "error", 0)
		return 0, res.Error
	}
	observability.RecordIdempotencyCleanup(ctx, "success", res.RowsAffected)
	return res.RowsAffected, nil
}

// RunCleanupLoop sweeps expired records until ctx is cancelled.
func (s *DBIdempotencyStore) RunCleanupLoop(ctx context.Context, interval time.Duration, batchSize int, logger *slog.Logger) {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	logger = observability.ComponentLogger(logger, "idempotency")
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			deleted, err := s.CleanupExpired(ctx, s.now(), batchSize)
			if err != nil {
				logger.WarnContext(ctx, "idempotency cleanup failed", "error", err)
				continue
			}
			if deleted > 0 {
				logger.InfoContext(ctx, "idempotency cleanup removed expired records", "deleted", deleted)
			}
		}
	}
}
