package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/sandeepkv93/endorsement-backend/internal/http/response"
	"github.com/sandeepkv93/endorsement-backend/internal/service"
)

var errorCodes = []struct {
	err    error
	status int
	code   string
}{
	{service.ErrInvalidState, http.StatusBadRequest, "INVALID_STATE"},
	{service.ErrUnverifiedEmail, http.StatusUnauthorized, "UNVERIFIED_EMAIL"},
	{service.ErrProviderExchange, http.StatusBadGateway, "PROVIDER_EXCHANGE_FAILED"},
	{service.ErrInvalidCredentials, http.StatusUnauthorized, "INVALID_CREDENTIALS"},
	{service.ErrForbidden, http.StatusForbidden, "FORBIDDEN"},
	{service.ErrSelfRecommendation, http.StatusUnprocessableEntity, "SELF_RECOMMENDATION"},
	{service.ErrInvalidRating, http.StatusUnprocessableEntity, "INVALID_RATING"},
	{service.ErrInvalidSkill, http.StatusUnprocessableEntity, "INVALID_SKILL"},
	{service.ErrMarkupNotAllowed, http.StatusUnprocessableEntity, "MARKUP_NOT_ALLOWED"},
	{service.ErrAttachmentLimit, http.StatusUnprocessableEntity, "ATTACHMENT_LIMIT"},
	{service.ErrFileTooBig, http.StatusRequestEntityTooLarge, "FILE_TOO_LARGE"},
	{service.ErrInvalidFileType, http.StatusUnsupportedMediaType, "UNSUPPORTED_FILE_TYPE"},
	{service.ErrWeakPassword, http.StatusBadRequest, "WEAK_PASSWORD"},
	{service.ErrInvalidEmail, http.StatusBadRequest, "INVALID_EMAIL"},
	{service.ErrNameRequired, http.StatusBadRequest, "NAME_REQUIRED"},
	{service.ErrInvalidCursor, http.StatusBadRequest, "INVALID_CURSOR"},
	{service.ErrInvalidStatus, http.StatusBadRequest, "INVALID_STATUS"},
	{service.ErrInvalidTransition, http.StatusConflict, "INVALID_TRANSITION"},
	{service.ErrCredentialAlreadySet, http.StatusConflict, "CREDENTIAL_ALREADY_SET"},
	{service.ErrEmailTaken, http.StatusConflict, "EMAIL_TAKEN"},
	{service.ErrRecommendationNotFound, http.StatusNotFound, "NOT_FOUND"},
	{service.ErrRecipientNotFound, http.StatusNotFound, "RECIPIENT_NOT_FOUND"},
	{service.ErrAccountNotFound, http.StatusNotFound, "NOT_FOUND"},
	{service.ErrAttachmentNotFound, http.StatusNotFound, "NOT_FOUND"},
	{service.ErrStorageDisabled, http.StatusServiceUnavailable, "STORAGE_DISABLED"},
}

// writeServiceError renders a service failure. Unknown errors are logged and
// reported as a generic 500 so internals never leak to clients.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var tooShort *service.EndorsementTooShortError
	if errors.As(err, &tooShort) {
		response.Error(w, r, http.StatusUnprocessableEntity, "ENDORSEMENT_TOO_SHORT", err.Error(), map[string]int{
			"length":   tooShort.Length,
			"required": tooShort.Required,
			"missing":  tooShort.Missing(),
		})
		return
	}
	var limit *service.LimitExceededError
	if errors.As(err, &limit) {
		response.Error(w, r, http.StatusUnprocessableEntity, "LIMIT_EXCEEDED", err.Error(), map[string]any{
			"limit": limit.Limit,
			"max":   limit.Max,
			"got":   limit.Got,
		})
		return
	}
	for _, m := range errorCodes {
		if errors.Is(err, m.err) {
			msg := m.err.Error()
			if errors.Is(err, service.ErrInvalidRating) {
				msg = err.Error()
			}
			response.Error(w, r, m.status, m.code, msg, nil)
			return
		}
	}
	slog.ErrorContext(r.Context(), "unhandled service error", "route", r.URL.Path, "error", err)
	response.Error(w, r, http.StatusInternalServerError, "INTERNAL", "internal error", nil)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case errors.As(err, &maxErr):
			response.Error(w, r, http.StatusRequestEntityTooLarge, "PAYLOAD_TOO_LARGE", "request body too large", nil)
		case errors.Is(err, io.EOF):
			response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "request body is empty", nil)
		default:
			response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", fmt.Sprintf("invalid payload: %s", strings.TrimPrefix(err.Error(), "json: ")), nil)
		}
		return false
	}
	return true
}
