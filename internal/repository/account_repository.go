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
	ErrAccountNotFound = errors.New("account not found")
	ErrEmailTaken      = errors.New("email already registered")
)

type AccountRepository interface {
	FindByID(ctx context.Context, id string) (*domain.Account, error)
	FindByEmail(ctx context.Context, email string) (*domain.Account, error)
	FindByProviderIdentity(ctx context.Context, identity domain.ProviderIdentity) (*domain.Account, error)
	// CreateIfAbsent inserts the account unless its email or provider identity
	// is already taken. created is false when another row won the insert.
	CreateIfAbsent(ctx context.Context, account *domain.Account) (created bool, err error)
	CreateWithCredential(ctx context.Context, account *domain.Account, passwordHash string) error
	LinkProviderIdentity(ctx context.Context, accountID string, identity domain.ProviderIdentity) (bool, error)
	TouchLastLogin(ctx context.Context, accountID string, at time.Time) error
}

type GormAccountRepository struct{ db *gorm.DB }

func NewAccountRepository(db *gorm.DB) AccountRepository {
	return &GormAccountRepository{db: db}
}

func (r *GormAccountRepository) FindByID(ctx context.Context, id string) (*domain.Account, error) {
	return r.findOne(ctx, "find_by_id", "id = ?", id)
}

func (r *GormAccountRepository) FindByEmail(ctx context.Context, email string) (*domain.Account, error) {
	return r.findOne(ctx, "find_by_email", "email = ?", domain.NormalizeEmail(email))
}

func (r *GormAccountRepository) FindByProviderIdentity(ctx context.Context, identity domain.ProviderIdentity) (*domain.Account, error) {
	return r.findOne(ctx, "find_by_provider", "provider = ? AND provider_subject_id = ?", identity.Provider, identity.SubjectID)
}

func (r *GormAccountRepository) findOne(ctx context.Context, op, query string, args ...any) (*domain.Account, error) {
	var account domain.Account
	if err := r.db.WithContext(ctx).Where(query, args...).First(&account).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			observability.RecordRepositoryOperation(ctx, "account", op, "not_found")
			return nil, ErrAccountNotFound
		}
		observability.RecordRepositoryOperation(ctx, "account", op, "error")
		return nil, err
	}
	observability.RecordRepositoryOperation(ctx, "account", op, "success")
	return &account, nil
}

func (r *GormAccountRepository) CreateIfAbsent(ctx context.Context, account *domain.Account) (bool, error) {
	account.Email = domain.NormalizeEmail(account.Email)
	res := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(account)
	if res.Error != nil {
		observability.RecordRepositoryOperation(ctx, "account", "create_if_absent", "error")
		return false, res.Error
	}
	if res.RowsAffected == 0 {
		observability.RecordRepositoryOperation(ctx, "account", "create_if_absent", "conflict")
		return false, nil
	}
	observability.RecordRepositoryOperation(ctx, "account", "create_if_absent", "success")
	return true, nil
}

func (r *GormAccountRepository) CreateWithCredential(ctx context.Context, account *domain.Account, passwordHash string) error {
	account.Email = domain.NormalizeEmail(account.Email)
	account.HasLocalCredential = true
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(account)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrEmailTaken
		}
		return tx.Create(&domain.LocalCredential{AccountID: account.ID, PasswordHash: passwordHash}).Error
	})
	switch {
	case err == nil:
		observability.RecordRepositoryOperation(ctx, "account", "create_with_credential", "success")
	case errors.Is(err, ErrEmailTaken):
		observability.RecordRepositoryOperation(ctx, "account", "create_with_credential", "conflict")
	default:
		observability.RecordRepositoryOperation(ctx, "account", "create_with_credential", "error")
	}
	return err
}

// LinkProviderIdentity attaches the identity only when the account has none yet.
// An empty profile_url is filled from the identity; a stored one is kept.
func (r *GormAccountRepository) LinkProviderIdentity(ctx context.Context, accountID string, identity domain.ProviderIdentity) (bool, error) {
	res := r.db.WithContext(ctx).Model(&domain.Account{}).
		Where("id = ? AND provider_subject_id IS NULL", accountID).
		Updates(map[string]any{
			"provider":            identity.Provider,
			"provider_subject_id": identity.SubjectID,
			"profile_url":         gorm.Expr("CASE WHEN profile_url = '' THEN ? ELSE profile_url END", domain.ProfileURLFor(identity)),
			"updated_at":          time.Now().UTC(),
		})
	if res.Error != nil {
		observability.RecordRepositoryOperation(ctx, "account", "link_provider", "error")
		return false, res.Error
	}
	observability.RecordRepositoryOperation(ctx, "account", "link_provider", "success")
	return res.RowsAffected == 1, nil
}

func (r *GormAccountRepository) TouchLastLogin(ctx context.Context, accountID string, at time.Time) error {
	res := r.db.WithContext(ctx).Model(&domain.Account{}).Where("id = ?", accountID).
		Update("last_login_at", at)
	if res.Error != nil {
		observability.RecordRepositoryOperation(ctx, "account", "touch_last_login", "error")
		return res.Error
	}
	if res.RowsAffected == 0 {
		observability.RecordRepositoryOperation(ctx, "account", "touch_last_login", "not_found")
		return ErrAccountNotFound
	}
	observability.RecordRepositoryOperation(ctx, "account", "touch_last_login", "success")
	return nil
}
