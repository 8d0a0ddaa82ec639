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
	ErrCredentialExists   = errors.New("local credential already set")
	ErrCredentialNotFound = errors.New("local credential not found")
)

type LocalCredentialRepository interface {
	// Attach sets the first local credential of an account. The account flag
	// flips from false to true in the same transaction as the insert.
	Attach(ctx context.Context, accountID, passwordHash string) error
	FindByAccountID(ctx context.Context, accountID string) (*domain.LocalCredential, error)
}

type GormLocalCredentialRepository struct {
	db *gorm.DB
}

func NewLocalCredentialRepository(db *gorm.DB) LocalCredentialRepository {
	return &GormLocalCredentialRepository{db: db}
}

func (r *GormLocalCredentialRepository) Attach(ctx context.Context, accountID, passwordHash string) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&domain.Account{}).
			Where("id = ? AND has_local_credential = ?", accountID, false).
			Updates(map[string]any{"has_local_credential": true, "updated_at": time.Now().UTC()})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			var count int64
			if err := tx.Model(&domain.Account{}).Where("id = ?", accountID).Count(&count).Error; err != nil {
				return err
			}
			if count == 0 {
				return ErrAccountNotFound
			}
			return ErrCredentialExists
		}
		cred := domain.LocalCredential{AccountID: accountID, PasswordHash: passwordHash}
		res = tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&cred)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrCredentialExists
		}
		return nil
	})
	switch {
	case err == nil:
		observability.RecordRepositoryOperation(ctx, "local_credential", "attach", "success")
	case errors.Is(err, ErrCredentialExists):
		observability.RecordRepositoryOperation(ctx, "local_credential", "attach", "conflict")
	case errors.Is(err, ErrAccountNotFound):
		observability.RecordRepositoryOperation(ctx, "local_credential", "attach", "not_found")
	default:
		observability.RecordRepositoryOperation(ctx, "local_credential", "attach", "error")
	}
	return err
}

func (r *GormLocalCredentialRepository) FindByAccountID(ctx context.Context, accountID string) (*domain.LocalCredential, error) {
	var c domain.LocalCredential
	if err := r.db.WithContext(ctx).Where("account_id = ?", accountID).First(&c).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCredentialNotFound
		}
		return nil, err
	}
	return &c, nil
}
