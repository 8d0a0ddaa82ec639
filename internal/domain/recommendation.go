package domain

import "time"

type RecommendationStatus string

const (
	StatusPending  RecommendationStatus = "pending"
	StatusApproved RecommendationStatus = "approved"
	StatusRejected RecommendationStatus = "rejected"
)

func (s RecommendationStatus) Valid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected:
		return true
	default:
		return false
	}
}

// Terminal statuses accept no further transitions.
func (s RecommendationStatus) Terminal() bool {
	return s == StatusApproved || s == StatusRejected
}

// CanTransition reports whether the moderation state machine allows from -> to.
func CanTransition(from, to RecommendationStatus) bool {
	return from == StatusPending && to.Terminal()
}

type SkillKind string

const (
	SkillSoft SkillKind = "soft"
	SkillHard SkillKind = "hard"
)

type Skill struct {
	Name string    `json:"name"`
	Kind SkillKind `json:"kind"`
}

type Section struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

type Relationship struct {
	Type     string `gorm:"size:64" json:"type"`
	Company  string `gorm:"size:255" json:"company"`
	Duration string `gorm:"size:64" json:"duration"`
}

type Recommendation struct {
	ID                 string                     `gorm:"primaryKey;size:36;index:idx_recommendations_recipient_created,priority:3;index:idx_recommendations_author_created,priority:3" json:"id"`
	AuthorID           string                     `gorm:"size:36;not null;index:idx_recommendations_author_created,priority:1" json:"author_id"`
	RecipientID        string                     `gorm:"size:36;not null;index:idx_recommendations_recipient_created,priority:1" json:"recipient_id"`
	Relationship       Relationship               `gorm:"embedded;embeddedPrefix:relationship_" json:"relationship"`
	EndorsementText    string                     `gorm:"type:text;not null" json:"endorsement_text"`
	Rating             int                        `gorm:"not null" json:"rating"`
	Skills             []Skill                    `gorm:"serializer:json;type:text" json:"skills"`
	AdditionalSections []Section                  `gorm:"serializer:json;type:text" json:"additional_sections"`
	Status             RecommendationStatus       `gorm:"size:16;not null;default:pending;index" json:"status"`
	CreatedAt          time.Time                  `gorm:"index:idx_recommendations_recipient_created,priority:2;index:idx_recommendations_author_created,priority:2" json:"created_at"`
	UpdatedAt          time.Time                  `json:"updated_at"`
	Attachments        []RecommendationAttachment `gorm:"foreignKey:RecommendationID" json:"attachments,omitempty"`
}

// VisibleTo hides pending and rejected records from everyone except the two parties.
func (r *Recommendation) VisibleTo(accountID string) bool {
	if r.Status == StatusApproved {
		return true
	}
	return accountID != "" && (accountID == r.AuthorID || accountID == r.RecipientID)
}

// CountSkills counts skills of one kind.
func CountSkills(skills []Skill, kind SkillKind) int {
	n := 0
	for _, s := range skills {
		if s.Kind == kind {
			n++
		}
	}
	return n
}

type RecommendationAttachment struct {
	ID               string    `gorm:"primaryKey;size:36" json:"id"`
	RecommendationID string    `gorm:"size:36;not null;index" json:"recommendation_id"`
	Name             string    `gorm:"size:255;not null" json:"name"`
	ObjectKey        string    `gorm:"size:512;not null" json:"-"`
	ContentType      string    `gorm:"size:128;not null" json:"content_type"`
	SizeBytes        int64     `gorm:"not null" json:"size_bytes"`
	CreatedAt        time.Time `json:"created_at"`
}
