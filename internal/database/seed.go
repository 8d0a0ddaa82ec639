package database

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/sandeepkv93/endorsement-backend/internal/domain"
	"github.com/sandeepkv93/endorsement-backend/internal/observability"
	"github.com/sandeepkv93/endorsement-backend/internal/security"
)

type demoAccount struct {
	Email string
	Name  string
}

var demoAccounts = []demoAccount{
	{Email: "alice@demo.local", Name: "Alice Demo"},
	{Email: "bob@demo.local", Name: "Bob Demo"},
	{Email: "carol@demo.local", Name: "Carol Demo"},
}

type demoRecommendation struct {
	Author    string
	Recipient string
	Status    domain.RecommendationStatus
	Rating    int
}

var demoRecommendations = []demoRecommendation{
	{Author: "alice@demo.local", Recipient: "bob@demo.local", Status: domain.StatusApproved, Rating: 5},
	{Author: "carol@demo.local", Recipient: "bob@demo.local", Status: domain.StatusPending, Rating: 4},
	{Author: "bob@demo.local", Recipient: "alice@demo.local", Status: domain.StatusRejected, Rating: 3},
}

const demoParagraph = "Worked side by side on the billing platform rewrite, owned the hardest migrations, " +
	"mentored two new engineers through their first on-call rotations and kept every stakeholder informed. "

type SeedReport struct {
	CreatedAccounts        int  `json:"created_accounts"`
	CreatedRecommendations int  `json:"created_recommendations"`
	Noop                   bool `json:"noop"`
}

// SeedDemo creates the demo accounts, all sharing password, and a small set of
// recommendations between them. Existing rows are left untouched.
func SeedDemo(ctx context.Context, db *gorm.DB, hasher *security.PasswordHasher, password string) (*SeedReport, error) {
	start := time.Now()
	defer func() {
		observability.RecordDatabaseStartupDuration(ctx, "seed", time.Since(start))
	}()

	report := &SeedReport{}
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ids := make(map[string]string, len(demoAccounts))
		for _, a := range demoAccounts {
			id, created, err := seedAccount(tx, hasher, a, password)
			if err != nil {
				return err
			}
			ids[a.Email] = id
			if created {
				report.CreatedAccounts++
			}
		}
		for _, r := range demoRecommendations {
			created, err := seedRecommendation(tx, ids[r.Author], ids[r.Recipient], r)
			if err != nil {
				return err
			}
			if created {
				report.CreatedRecommendations++
			}
		}
		return nil
	})
	if err != nil {
		observability.RecordDatabaseStartupEvent(ctx, "seed", "error")
		return nil, err
	}
	report.Noop = report.CreatedAccounts == 0 && report.CreatedRecommendations == 0
	observability.RecordDatabaseStartupEvent(ctx, "seed", "success")
	return report, nil
}

func seedAccount(tx *gorm.DB, hasher *security.PasswordHasher, a demoAccount, password string) (string, bool, error) {
	var existing domain.Account
	err := tx.Where("email = ?", a.Email).First(&existing).Error
	if err == nil {
		return existing.ID, false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return "", false, err
	}
	hash, err := hasher.Hash(password)
	if err != nil {
		return "", false, err
	}
	account := domain.Account{
		ID:                 uuid.NewString(),
		Email:              a.Email,
		DisplayName:        a.Name,
		AvatarURL:          "https://api.dicebear.com/7.x/initials/svg?seed=" + a.Email,
		HasLocalCredential: true,
	}
	if err := tx.Create(&account).Error; err != nil {
		return "", false, err
	}
	if err := tx.Create(&domain.LocalCredential{AccountID: account.ID, PasswordHash: hash}).Error; err != nil {
		return "", false, err
	}
	return account.ID, true, nil
}

func seedRecommendation(tx *gorm.DB, authorID, recipientID string, r demoRecommendation) (bool, error) {
	var count int64
	if err := tx.Model(&domain.Recommendation{}).
		Where("author_id = ? AND recipient_id = ?", authorID, recipientID).
		Count(&count).Error; err != nil {
		return false, err
	}
	if count > 0 {
		return false, nil
	}
	now := time.Now().UTC().Truncate(time.Microsecond)
	rec := domain.Recommendation{
		ID:              uuid.NewString(),
		AuthorID:        authorID,
		RecipientID:     recipientID,
		Relationship:    domain.Relationship{Type: "colleague", Company: "Demo Corp", Duration: "3 years"},
		EndorsementText: strings.TrimSpace(strings.Repeat(demoParagraph, 5)),
		Rating:          r.Rating,
		Skills: []domain.Skill{
			{Name: "Mentoring", Kind: domain.SkillSoft},
			{Name: "Communication", Kind: domain.SkillSoft},
			{Name: "Go", Kind: domain.SkillHard},
			{Name: "PostgreSQL", Kind: domain.SkillHard},
		},
		AdditionalSections: []domain.Section{{Title: "Highlights", Content: "Led the zero-downtime cutover."}},
		Status:             r.Status,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if err := tx.Create(&rec).Error; err != nil {
		return false, err
	}
	return true, nil
}

// DemoPlan describes SeedDemo without touching the database.
func DemoPlan() []string {
	plan := make([]string, 0, len(demoAccounts)+len(demoRecommendations))
	for _, a := range demoAccounts {
		plan = append(plan, "account "+a.Email)
	}
	for _, r := range demoRecommendations {
		plan = append(plan, "recommendation "+r.Author+" -> "+r.Recipient+" ("+string(r.Status)+")")
	}
	return plan
}
