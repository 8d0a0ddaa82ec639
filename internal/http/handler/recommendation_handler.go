package handler

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/sandeepkv93/endorsement-backend/internal/domain"
	"github.com/sandeepkv93/endorsement-backend/internal/http/middleware"
	"github.com/sandeepkv93/endorsement-backend/internal/http/response"
	"github.com/sandeepkv93/endorsement-backend/internal/observability"
	"github.com/sandeepkv93/endorsement-backend/internal/service"
)

const multipartMemory = 1 << 20

type RecommendationHandler struct {
	svc service.RecommendationServiceInterface
}

func NewRecommendationHandler(svc service.RecommendationServiceInterface) *RecommendationHandler {
	return &RecommendationHandler{svc: svc}
}

type createRecommendationRequest struct {
	RecipientID string `json:"recipient_id"`
	service.RecommendationInput
}

func (h *RecommendationHandler) Create(w http.ResponseWriter, r *http.Request) {
	var body createRecommendationRequest
	if !decodeJSON(w, r, &body) {
		return
	}
	if strings.TrimSpace(body.RecipientID) == "" {
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "recipient_id is required", nil)
		return
	}
	authorID := middleware.AccountID(r.Context())
	rec, err := h.svc.Create(r.Context(), authorID, body.RecipientID, body.RecommendationInput)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	observability.EmitAudit(r, observability.AuditInput{
		EventName:   "recommendation.created",
		ActorUserID: authorID,
		TargetType:  "recommendation",
		TargetID:    rec.ID,
		Action:      "create",
		Outcome:     "success",
	})
	response.JSON(w, r, http.StatusCreated, rec)
}

// Get hides records the caller may not see behind the same 404 as missing ones.
func (h *RecommendationHandler) Get(w http.ResponseWriter, r *http.Request) {
	rec, found, err := h.svc.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if !found || !rec.VisibleTo(middleware.AccountID(r.Context())) {
		writeServiceError(w, r, service.ErrRecommendationNotFound)
		return
	}
	response.JSON(w, r, http.StatusOK, rec)
}

func (h *RecommendationHandler) Received(w http.ResponseWriter, r *http.Request) {
	q, ok := listParams(w, r)
	if !ok {
		return
	}
	accountID := middleware.AccountID(r.Context())
	page, err := h.svc.ListForRecipient(r.Context(), service.ListQuery{
		RecipientID: accountID,
		Status:      domain.RecommendationStatus(r.URL.Query().Get("status")),
		Cursor:      q.cursor,
		PageSize:    q.pageSize,
		ViewerID:    accountID,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	response.JSON(w, r, http.StatusOK, page)
}

func (h *RecommendationHandler) Authored(w http.ResponseWriter, r *http.Request) {
	q, ok := listParams(w, r)
	if !ok {
		return
	}
	page, err := h.svc.ListForAuthor(r.Context(), middleware.AccountID(r.Context()), q.cursor, q.pageSize)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	response.JSON(w, r, http.StatusOK, page)
}

func (h *RecommendationHandler) SetStatus(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Status domain.RecommendationStatus `json:"status"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}
	id := chi.URLParam(r, "id")
	actorID := middleware.AccountID(r.Context())
	rec, err := h.svc.SetStatus(r.Context(), id, body.Status, actorID)
	if err != nil {
		observability.EmitAudit(r, observability.AuditInput{
			EventName:   "recommendation.status.change_failed",
			ActorUserID: actorID,
			TargetType:  "recommendation",
			TargetID:    id,
			Action:      string(body.Status),
			Outcome:     "failure",
			Reason:      string(service.KindOf(err)),
		})
		writeServiceError(w, r, err)
		return
	}
	observability.EmitAudit(r, observability.AuditInput{
		EventName:   "recommendation.status.changed",
		ActorUserID: actorID,
		TargetType:  "recommendation",
		TargetID:    id,
		Action:      string(rec.Status),
		Outcome:     "success",
	})
	response.JSON(w, r, http.StatusOK, rec)
}

func (h *RecommendationHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	actorID := middleware.AccountID(r.Context())
	if err := h.svc.DeletePending(r.Context(), id, actorID); err != nil {
		writeServiceError(w, r, err)
		return
	}
	observability.EmitAudit(r, observability.AuditInput{
		EventName:   "recommendation.deleted",
		ActorUserID: actorID,
		TargetType:  "recommendation",
		TargetID:    id,
		Action:      "delete",
		Outcome:     "success",
	})
	response.NoContent(w)
}

func (h *RecommendationHandler) UploadAttachment(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeServiceError(w, r, service.ErrFileTooBig)
			return
		}
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "expected multipart form with a file field", nil)
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	file, header, err := r.FormFile("file")
	if err != nil {
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "missing file field", nil)
		return
	}
	defer file.Close()

	att, err := h.svc.AddAttachment(r.Context(), chi.URLParam(r, "id"), middleware.AccountID(r.Context()), service.Upload{
		Name: header.Filename,
		Body: file,
		Size: header.Size,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	response.JSON(w, r, http.StatusCreated, att)
}

func (h *RecommendationHandler) AttachmentURL(w http.ResponseWriter, r *http.Request) {
	url, err := h.svc.AttachmentURL(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "attachment_id"), middleware.AccountID(r.Context()))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	response.JSON(w, r, http.StatusOK, map[string]string{"url": url})
}

type listParamsResult struct {
	cursor   string
	pageSize int
}

func listParams(w http.ResponseWriter, r *http.Request) (listParamsResult, bool) {
	q := r.URL.Query()
	out := listParamsResult{cursor: q.Get("cursor")}
	if raw := q.Get("page_size"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "page_size must be a positive integer", nil)
			return out, false
		}
		out.pageSize = n
	}
	return out, true
}
