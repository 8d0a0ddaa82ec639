package service

import (
	"html"
	"strings"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/text/unicode/norm"

	"github.com/sandeepkv93/endorsement-backend/internal/domain"
)

type RecommendationLimits struct {
	MinEndorsementLength int
	MaxSoftSkills        int
	MaxHardSkills        int
	MaxSections          int
}

var DefaultRecommendationLimits = RecommendationLimits{
	MinEndorsementLength: 750,
	MaxSoftSkills:        3,
	MaxHardSkills:        5,
	MaxSections:          3,
}

type RecommendationInput struct {
	Relationship       domain.Relationship `json:"relationship"`
	EndorsementText    string              `json:"endorsement_text"`
	Rating             int                 `json:"rating"`
	Skills             []domain.Skill      `json:"skills"`
	AdditionalSections []domain.Section    `json:"additional_sections"`
}

// RecommendationValidator enforces content rules. Free text (endorsement and
// section bodies) is kept exactly as submitted; short labels are trimmed,
// NFC-composed and must be plain text.
type RecommendationValidator struct {
	policy *bluemonday.Policy
	limits RecommendationLimits
}

func NewRecommendationValidator(limits RecommendationLimits) *RecommendationValidator {
	return &RecommendationValidator{policy: bluemonday.StrictPolicy(), limits: limits}
}

// EndorsementLength counts code points of the submitted text.
func (v *RecommendationValidator) EndorsementLength(s string) int {
	return utf8.RuneCountInString(s)
}

func (v *RecommendationValidator) label(s string) string {
	return strings.TrimSpace(norm.NFC.String(s))
}

// hasMarkup reports whether the strict policy would remove anything from s.
func (v *RecommendationValidator) hasMarkup(s string) bool {
	return html.UnescapeString(v.policy.Sanitize(s)) != html.UnescapeString(s)
}

func (v *RecommendationValidator) Normalize(in RecommendationInput) RecommendationInput {
	out := RecommendationInput{
		Relationship: domain.Relationship{
			Type:     v.label(in.Relationship.Type),
			Company:  v.label(in.Relationship.Company),
			Duration: v.label(in.Relationship.Duration),
		},
		EndorsementText: in.EndorsementText,
		Rating:          in.Rating,
	}
	for _, sk := range in.Skills {
		out.Skills = append(out.Skills, domain.Skill{Name: v.label(sk.Name), Kind: domain.SkillKind(strings.ToLower(strings.TrimSpace(string(sk.Kind))))})
	}
	for _, sec := range in.AdditionalSections {
		out.AdditionalSections = append(out.AdditionalSections, domain.Section{Title: v.label(sec.Title), Content: sec.Content})
	}
	return out
}

// Validate checks, in order: self-recommendation, rating, endorsement length,
// plain-text labels, then count limits.
func (v *RecommendationValidator) Validate(authorID, recipientID string, in RecommendationInput) error {
	if authorID == recipientID {
		return ErrSelfRecommendation
	}
	if in.Rating < 1 || in.Rating > 5 {
		return &InvalidRatingError{Rating: in.Rating}
	}
	if n := v.EndorsementLength(in.EndorsementText); n < v.limits.MinEndorsementLength {
		return &EndorsementTooShortError{Length: n, Required: v.limits.MinEndorsementLength}
	}

	labels := []string{in.Relationship.Type, in.Relationship.Company, in.Relationship.Duration}
	for _, sk := range in.Skills {
		labels = append(labels, sk.Name)
	}
	for _, sec := range in.AdditionalSections {
		labels = append(labels, sec.Title)
	}
	for _, l := range labels {
		if v.hasMarkup(l) {
			return ErrMarkupNotAllowed
		}
	}

	for _, sk := range in.Skills {
		if sk.Name == "" || (sk.Kind != domain.SkillSoft && sk.Kind != domain.SkillHard) {
			return ErrInvalidSkill
		}
	}
	if soft := domain.CountSkills(in.Skills, domain.SkillSoft); soft > v.limits.MaxSoftSkills {
		return &LimitExceededError{Limit: LimitSoftSkills, Max: v.limits.MaxSoftSkills, Got: soft}
	}
	if hard := domain.CountSkills(in.Skills, domain.SkillHard); hard > v.limits.MaxHardSkills {
		return &LimitExceededError{Limit: LimitHardSkills, Max: v.limits.MaxHardSkills, Got: hard}
	}
	if n := len(in.AdditionalSections); n > v.limits.MaxSections {
		return &LimitExceededError{Limit: LimitAdditionalSections, Max: v.limits.MaxSections, Got: n}
	}
	return nil
}
