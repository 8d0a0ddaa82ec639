package domain

import (
	"net/url"
	"strings"
	"time"
)

const (
	ProviderLinkedIn       = "linkedin"
	linkedInProfileBaseURL = "https://www.linkedin.com/in/"
)

type Account struct {
	ID                 string     `gorm:"primaryKey;size:36" json:"id"`
	Email              string     `gorm:"uniqueIndex;size:255;not null" json:"email"`
	DisplayName        string     `gorm:"size:255;not null" json:"display_name"`
	AvatarURL          string     `gorm:"size:1024" json:"avatar_url"`
	ProfileURL         string     `gorm:"size:1024" json:"profile_url,omitempty"`
	Provider           *string    `gorm:"size:32;uniqueIndex:idx_accounts_provider_subject" json:"provider,omitempty"`
	ProviderSubjectID  *string    `gorm:"size:255;uniqueIndex:idx_accounts_provider_subject" json:"-"`
	HasLocalCredential bool       `gorm:"not null;default:false" json:"has_local_credential"`
	LastLoginAt        *time.Time `json:"last_login_at,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

type ProviderIdentity struct {
	Provider  string
	SubjectID string
}

// Identity reports the linked provider identity, if any.
func (a *Account) Identity() (ProviderIdentity, bool) {
	if a == nil || a.Provider == nil || a.ProviderSubjectID == nil {
		return ProviderIdentity{}, false
	}
	return ProviderIdentity{Provider: *a.Provider, SubjectID: *a.ProviderSubjectID}, true
}

func (a *Account) SetIdentity(id ProviderIdentity) {
	provider := id.Provider
	subject := id.SubjectID
	a.Provider = &provider
	a.ProviderSubjectID = &subject
	if a.ProfileURL == "" {
		a.ProfileURL = ProfileURLFor(id)
	}
}

// ProfileURLFor returns the public profile address for a provider identity,
// or "" when the provider has none.
func ProfileURLFor(id ProviderIdentity) string {
	if id.Provider != ProviderLinkedIn || strings.TrimSpace(id.SubjectID) == "" {
		return ""
	}
	return linkedInProfileBaseURL + url.PathEscape(id.SubjectID)
}

func NormalizeEmail(email string) string {
	return strings.TrimSpace(strings.ToLower(email))
}
