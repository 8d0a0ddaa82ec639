package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sandeepkv93/endorsement-backend/internal/domain"
	"github.com/sandeepkv93/endorsement-backend/internal/http/middleware"
	"github.com/sandeepkv93/endorsement-backend/internal/http/response"
	"github.com/sandeepkv93/endorsement-backend/internal/service"
)

type AccountHandler struct {
	identity        service.IdentityServiceInterface
	recommendations service.RecommendationServiceInterface
}

func NewAccountHandler(identity service.IdentityServiceInterface, recommendations service.RecommendationServiceInterface) *AccountHandler {
	return &AccountHandler{identity: identity, recommendations: recommendations}
}

func (h *AccountHandler) Me(w http.ResponseWriter, r *http.Request) {
	account, err := h.identity.GetAccount(r.Context(), middleware.AccountID(r.Context()))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	response.JSON(w, r, http.StatusOK, account)
}

// Recommendations lists what an account has received, as seen by the caller.
func (h *AccountHandler) Recommendations(w http.ResponseWriter, r *http.Request) {
	q, ok := listParams(w, r)
	if !ok {
		return
	}
	page, err := h.recommendations.ListForRecipient(r.Context(), service.ListQuery{
		RecipientID: chi.URLParam(r, "id"),
		Status:      domain.RecommendationStatus(r.URL.Query().Get("status")),
		Cursor:      q.cursor,
		PageSize:    q.pageSize,
		ViewerID:    middleware.AccountID(r.Context()),
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	response.JSON(w, r, http.StatusOK, page)
}
