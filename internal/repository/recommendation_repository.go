package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/sandeepkv93/endorsement-backend/internal/domain"
	"github.com/sandeepkv93/endorsement-backend/internal/observability"
)

var (
	ErrRecommendationNotFound = errors.New("recommendation not found")
	ErrStaleTransition        = errors.New("recommendation is no longer pending")
	ErrAttachmentNotFound     = errors.New("attachment not found")
	ErrAttachmentLimit        = errors.New("attachment limit reached")
)

// KeysetQuery selects one page of recommendations owned by OwnerID, either as
// recipient or as author depending on the repository method.
type KeysetQuery struct {
	OwnerID string
	Status  domain.RecommendationStatus
	After   *Cursor
	Limit   int
}

type RecommendationRepository interface {
	Create(ctx context.Context, rec *domain.Recommendation) error
	FindByID(ctx context.Context, id string) (*domain.Recommendation, error)
	ListForRecipient(ctx context.Context, q KeysetQuery) ([]domain.Recommendation, error)
	ListForAuthor(ctx context.Context, q KeysetQuery) ([]domain.Recommendation, error)
	// TransitionStatus moves a pending record to a terminal status. It returns
	// ErrStaleTransition when the record is no longer pending.
	TransitionStatus(ctx context.Context, id string, to domain.RecommendationStatus, at time.Time) error
	DeletePending(ctx context.Context, id, authorID string) ([]domain.RecommendationAttachment, error)
	AddAttachment(ctx context.Context, att *domain.RecommendationAttachment, max int) error
	FindAttachment(ctx context.Context, recommendationID, attachmentID string) (*domain.RecommendationAttachment, error)
}

type GormRecommendationRepository struct{ db *gorm.DB }

func NewRecommendationRepository(db *gorm.DB) RecommendationRepository {
	return &GormRecommendationRepository{db: db}
}

func (r *GormRecommendationRepository) Create(ctx context.Context, rec *domain.Recommendation) error {
	if err := r.db.WithContext(ctx).Omit("Attachments").Create(rec).Error; err != nil {
		observability.RecordRepositoryOperation(ctx, "recommendation", "create", "error")
		return err
	}
	observability.RecordRepositoryOperation(ctx, "recommendation", "create", "success")
	return nil
}

func (r *GormRecommendationRepository) FindByID(ctx context.Context, id string) (*domain.Recommendation, error) {
	var rec domain.Recommendation
	err := r.db.WithContext(ctx).
		Preload("Attachments", func(db *gorm.DB) *gorm.DB { return db.Order("created_at asc") }).
		Where("id = ?", id).First(&rec).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			observability.RecordRepositoryOperation(ctx, "recommendation", "find_by_id", "not_found")
			return nil, ErrRecommendationNotFound
		}
		observability.RecordRepositoryOperation(ctx, "recommendation", "find_by_id", "error")
		return nil, err
	}
	observability.RecordRepositoryOperation(ctx, "recommendation", "find_by_id", "success")
	return &rec, nil
}

func (r *GormRecommendationRepository) ListForRecipient(ctx context.Context, q KeysetQuery) ([]domain.Recommendation, error) {
	return r.listPage(ctx, "list_for_recipient", "recipient_id", q)
}

func (r *GormRecommendationRepository) ListForAuthor(ctx context.Context, q KeysetQuery) ([]domain.Recommendation, error) {
	return r.listPage(ctx, "list_for_author", "author_id", q)
}

func (r *GormRecommendationRepository) listPage(ctx context.Context, op, ownerColumn string, q KeysetQuery) ([]domain.Recommendation, error) {
	tx := r.db.WithContext(ctx).Model(&domain.Recommendation{}).Where(ownerColumn+" = ?", q.OwnerID)
	if q.Status != "" {
		tx = tx.Where("status = ?", q.Status)
	}
	if q.After != nil {
		tx = tx.Where("((created_at < ?) OR (created_at = ? AND id < ?))", q.After.CreatedAt, q.After.CreatedAt, q.After.ID)
	}
	var items []domain.Recommendation
	err := tx.Order("created_at desc").Order("id desc").Limit(q.Limit).
		Preload("Attachments").
		Find(&items).Error
	if err != nil {
		observability.RecordRepositoryOperation(ctx, "recommendation", op, "error")
		return nil, err
	}
	observability.RecordRepositoryOperation(ctx, "recommendation", op, "success")
	return items, nil
}

func (r *GormRecommendationRepository) TransitionStatus(ctx context.Context, id string, to domain.RecommendationStatus, at time.Time) error {
	res := r.db.WithContext(ctx).Model(&domain.Recommendation{}).
		Where("id = ? AND status = ?", id, domain.StatusPending).
		Updates(map[string]any{"status": to, "updated_at": at})
	if res.Error != nil {
		observability.RecordRepositoryOperation(ctx, "recommendation", "transition_status", "error")
		return res.Error
	}
	if res.RowsAffected == 0 {
		observability.RecordRepositoryOperation(ctx, "recommendation", "transition_status", "conflict")
		return ErrStaleTransition
	}
	observability.RecordRepositoryOperation(ctx, "recommendation", "transition_status", "success")
	return nil
}

func (r *GormRecommendationRepository) DeletePending(ctx context.Context, id, authorID string) ([]domain.RecommendationAttachment, error) {
	var removed []domain.RecommendationAttachment
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("recommendation_id = ?", id).Find(&removed).Error; err != nil {
			return err
		}
		res := tx.Where("id = ? AND author_id = ? AND status = ?", id, authorID, domain.StatusPending).
			Delete(&domain.Recommendation{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrStaleTransition
		}
		return tx.Where("recommendation_id = ?", id).Delete(&domain.RecommendationAttachment{}).Error
	})
	switch {
	case err == nil:
		observability.RecordRepositoryOperation(ctx, "recommendation", "delete_pending", "success")
	case errors.Is(err, ErrStaleTransition):
		observability.RecordRepositoryOperation(ctx, "recommendation", "delete_pending", "conflict")
		return nil, err
	default:
		observability.RecordRepositoryOperation(ctx, "recommendation", "delete_pending", "error")
		return nil, err
	}
	return removed, nil
}

// AddAttachment inserts the attachment while the parent is still pending and
// below max attachments. The parent row stays locked until commit so
// concurrent uploads and status changes serialize on it.
func (r *GormRecommendationRepository) AddAttachment(ctx context.Context, att *domain.RecommendationAttachment, max int) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var parent domain.Recommendation
		if err := lockedParent(tx, att.RecommendationID).First(&parent).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrRecommendationNotFound
			}
			return err
		}
		if parent.Status != domain.StatusPending {
			return ErrStaleTransition
		}
		var count int64
		if err := tx.Model(&domain.RecommendationAttachment{}).Where("recommendation_id = ?", att.RecommendationID).Count(&count).Error; err != nil {
			return err
		}
		if max > 0 && count >= int64(max) {
			return ErrAttachmentLimit
		}
		return tx.Create(att).Error
	})
	observability.RecordRepositoryOperation(ctx, "recommendation_attachment", "create", attachmentOutcome(err))
	return err
}

// lockedParent selects a recommendation FOR UPDATE. SQLite has no row locks
// and its dialect drops the clause; its single writer serializes instead.
func lockedParent(tx *gorm.DB, recommendationID string) *gorm.DB {
	return tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Select("id", "status").
		Where("id = ?", recommendationID)
}

func attachmentOutcome(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, ErrAttachmentLimit):
		return "limit"
	case errors.Is(err, ErrStaleTransition):
		return "conflict"
	case errors.Is(err, ErrRecommendationNotFound):
		return "not_found"
	default:
		return "error"
	}
}

func (r *GormRecommendationRepository) FindAttachment(ctx context.Context, recommendationID, attachmentID string) (*domain.RecommendationAttachment, error) {
	var att domain.RecommendationAttachment
	err := r.db.WithContext(ctx).Where("id = ? AND recommendation_id = ?", attachmentID, recommendationID).First(&att).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAttachmentNotFound
		}
		return nil, err
	}
	return &att, nil
}
