package service

import (
	"errors"
	"fmt"
)

// ErrorKind groups service failures by how a caller should react to them.
type ErrorKind string

const (
	KindValidation    ErrorKind = "validation"
	KindAuthorization ErrorKind = "authorization"
	KindConflict      ErrorKind = "conflict"
	KindExternal      ErrorKind = "external"
	KindNotFound      ErrorKind = "not_found"
	KindInternal      ErrorKind = "internal"
)

var (
	ErrInvalidState         = errors.New("oauth state is missing, expired or does not match")
	ErrProviderExchange     = errors.New("identity provider exchange failed")
	ErrUnverifiedEmail      = errors.New("identity provider returned no verified email")
	ErrCredentialAlreadySet = errors.New("local credential already set")
	ErrInvalidCredentials   = errors.New("invalid credentials")
	ErrWeakPassword         = errors.New("password does not meet policy")
	ErrEmailTaken           = errors.New("email already registered")
	ErrInvalidEmail         = errors.New("invalid email")
	ErrNameRequired         = errors.New("name is required")
	ErrAccountNotFound      = errors.New("account not found")

	ErrSelfRecommendation     = errors.New("cannot recommend yourself")
	ErrInvalidRating          = errors.New("rating must be between 1 and 5")
	ErrRecipientNotFound      = errors.New("recipient not found")
	ErrRecommendationNotFound = errors.New("recommendation not found")
	ErrForbidden              = errors.New("not allowed")
	ErrInvalidTransition      = errors.New("invalid status transition")
	ErrInvalidCursor          = errors.New("invalid pagination cursor")
	ErrInvalidStatus          = errors.New("invalid status")
	ErrInvalidSkill           = errors.New("skills need a name and a kind of soft or hard")
	ErrMarkupNotAllowed       = errors.New("relationship, skill and section titles must be plain text")

	ErrAttachmentLimit    = errors.New("attachment limit reached")
	ErrAttachmentNotFound = errors.New("attachment not found")
	ErrFileTooBig         = errors.New("file exceeds 10MB limit")
	ErrInvalidFileType    = errors.New("invalid file type, only PDF, PNG and JPEG are allowed")
	ErrStorageDisabled    = errors.New("document storage is not configured")
)

// InvalidRatingError reports the rejected rating; errors.Is matches ErrInvalidRating.
type InvalidRatingError struct {
	Rating int
}

func (e *InvalidRatingError) Error() string {
	return fmt.Sprintf("rating %d out of range 1..5", e.Rating)
}

func (e *InvalidRatingError) Is(target error) bool { return target == ErrInvalidRating }

// EndorsementTooShortError carries the counted length so callers can show how much is left.
type EndorsementTooShortError struct {
	Length   int
	Required int
}

func (e *EndorsementTooShortError) Missing() int {
	if e.Length >= e.Required {
		return 0
	}
	return e.Required - e.Length
}

func (e *EndorsementTooShortError) Error() string {
	return fmt.Sprintf("endorsement too short: %d more characters needed", e.Missing())
}

const (
	LimitSoftSkills         = "soft_skills"
	LimitHardSkills         = "hard_skills"
	LimitAdditionalSections = "additional_sections"
)

type LimitExceededError struct {
	Limit string
	Max   int
	Got   int
}

func (e *LimitExceededError) Error() string {
	return fmt.Sprintf("%s limit exceeded: %d > %d", e.Limit, e.Got, e.Max)
}

// ProviderError describes which provider call failed; errors.Is matches ErrProviderExchange.
type ProviderError struct {
	Stage      string
	StatusCode int
	Err        error
}

func (e *ProviderError) Error() string {
	msg := "provider " + e.Stage + " failed"
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(": status %d", e.StatusCode)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ProviderError) Unwrap() error { return e.Err }

func (e *ProviderError) Is(target error) bool { return target == ErrProviderExchange }

// KindOf classifies err; unknown errors are internal.
func KindOf(err error) ErrorKind {
	var tooShort *EndorsementTooShortError
	var limit *LimitExceededError
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrSelfRecommendation), errors.Is(err, ErrInvalidRating),
		errors.As(err, &tooShort), errors.As(err, &limit),
		errors.Is(err, ErrWeakPassword), errors.Is(err, ErrInvalidCursor),
		errors.Is(err, ErrInvalidEmail), errors.Is(err, ErrNameRequired),
		errors.Is(err, ErrInvalidStatus), errors.Is(err, ErrInvalidSkill), errors.Is(err, ErrMarkupNotAllowed), errors.Is(err, ErrFileTooBig),
		errors.Is(err, ErrInvalidFileType), errors.Is(err, ErrAttachmentLimit):
		return KindValidation
	case errors.Is(err, ErrForbidden), errors.Is(err, ErrInvalidCredentials):
		return KindAuthorization
	case errors.Is(err, ErrInvalidTransition), errors.Is(err, ErrCredentialAlreadySet), errors.Is(err, ErrEmailTaken):
		return KindConflict
	case errors.Is(err, ErrProviderExchange), errors.Is(err, ErrUnverifiedEmail), errors.Is(err, ErrInvalidState):
		return KindExternal
	case errors.Is(err, ErrRecommendationNotFound), errors.Is(err, ErrAccountNotFound),
		errors.Is(err, ErrRecipientNotFound), errors.Is(err, ErrAttachmentNotFound):
		return KindNotFound
	default:
		return KindInternal
	}
}
