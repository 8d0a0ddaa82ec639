package handler

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/sandeepkv93/endorsement-backend/internal/http/middleware"
	"github.com/sandeepkv93/endorsement-backend/internal/http/response"
	"github.com/sandeepkv93/endorsement-backend/internal/observability"
	"github.com/sandeepkv93/endorsement-backend/internal/service"
)

type AuthHandler struct {
	identity service.IdentityServiceInterface
	guard    service.SignInGuard
}

func NewAuthHandler(identity service.IdentityServiceInterface, guard service.SignInGuard) *AuthHandler {
	if guard == nil {
		guard = service.NoopSignInGuard{}
	}
	return &AuthHandler{identity: identity, guard: guard}
}

func (h *AuthHandler) LinkedInLogin(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	status := "success"
	defer func() {
		observability.RecordAuthRequestDuration(r.Context(), "linkedin_login", status, time.Since(start))
	}()

	req, err := h.identity.BeginAuth(r.Context())
	if err != nil {
		status = "failure"
		observability.Audit(r, "auth.linkedin.login.failed", "reason", "state_generation")
		writeServiceError(w, r, err)
		return
	}
	observability.Audit(r, "auth.linkedin.login")
	response.JSON(w, r, http.StatusOK, req)
}

func (h *AuthHandler) LinkedInCallback(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	status := "success"
	defer func() {
		observability.RecordAuthRequestDuration(r.Context(), "linkedin_callback", status, time.Since(start))
	}()

	var body struct {
		Code        string `json:"code"`
		State       string `json:"state"`
		RedirectURI string `json:"redirect_uri"`
	}
	if !decodeJSON(w, r, &body) {
		status = "failure"
		return
	}
	result, err := h.identity.CompleteAuth(r.Context(), service.CallbackInput{
		Code:        strings.TrimSpace(body.Code),
		State:       strings.TrimSpace(body.State),
		RedirectURI: strings.TrimSpace(body.RedirectURI),
	})
	if err != nil {
		status = "failure"
		observability.Audit(r, "auth.linkedin.callback.failed", "reason", string(service.KindOf(err)))
		observability.RecordAuthLogin(r.Context(), "linkedin", "failure")
		writeServiceError(w, r, err)
		return
	}
	observability.EmitAudit(r, observability.AuditInput{
		EventName:   "auth.linkedin.callback",
		ActorUserID: result.Account.ID,
		TargetType:  "account",
		TargetID:    result.Account.ID,
		Action:      "login",
		Outcome:     "success",
	})
	response.JSON(w, r, http.StatusOK, result)
}

func (h *AuthHandler) LocalRegister(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	status := "success"
	defer func() {
		observability.RecordAuthRequestDuration(r.Context(), "local_register", status, time.Since(start))
	}()

	var body struct {
		Email    string `json:"email"`
		Name     string `json:"name"`
		Password string `json:"password"`
	}
	if !decodeJSON(w, r, &body) {
		status = "failure"
		return
	}
	ip := middleware.ClientIP(r)
	if h.throttled(w, r, service.SignInScopeRegister, body.Email, ip) {
		status = "throttled"
		return
	}
	result, err := h.identity.RegisterLocal(r.Context(), body.Email, body.Name, body.Password)
	if err != nil {
		status = "failure"
		if errors.Is(err, service.ErrEmailTaken) {
			_, _ = h.guard.RegisterFailure(r.Context(), service.SignInScopeRegister, body.Email, ip)
		}
		observability.Audit(r, "auth.local.register.failed", "reason", string(service.KindOf(err)))
		writeServiceError(w, r, err)
		return
	}
	observability.Audit(r, "auth.local.register", "account_id", result.Account.ID)
	response.JSON(w, r, http.StatusCreated, result)
}

func (h *AuthHandler) LocalLogin(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	status := "success"
	defer func() {
		observability.RecordAuthRequestDuration(r.Context(), "local_login", status, time.Since(start))
	}()

	var body struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if !decodeJSON(w, r, &body) {
		status = "failure"
		return
	}
	ip := middleware.ClientIP(r)
	if h.throttled(w, r, service.SignInScopeLocalLogin, body.Email, ip) {
		status = "throttled"
		return
	}
	result, err := h.identity.SignInLocal(r.Context(), body.Email, body.Password)
	if err != nil {
		status = "failure"
		if errors.Is(err, service.ErrInvalidCredentials) {
			_, _ = h.guard.RegisterFailure(r.Context(), service.SignInScopeLocalLogin, body.Email, ip)
		}
		observability.Audit(r, "auth.local.login.failed", "reason", string(service.KindOf(err)))
		writeServiceError(w, r, err)
		return
	}
	_ = h.guard.Reset(r.Context(), service.SignInScopeLocalLogin, body.Email, ip)
	observability.Audit(r, "auth.local.login", "account_id", result.Account.ID)
	response.JSON(w, r, http.StatusOK, result)
}

func (h *AuthHandler) AttachCredential(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Password string `json:"password"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}
	accountID := middleware.AccountID(r.Context())
	if err := h.identity.AttachLocalCredential(r.Context(), accountID, body.Password); err != nil {
		observability.Audit(r, "auth.local.credential.failed", "reason", string(service.KindOf(err)))
		writeServiceError(w, r, err)
		return
	}
	observability.EmitAudit(r, observability.AuditInput{
		EventName:   "auth.local.credential.attached",
		ActorUserID: accountID,
		TargetType:  "account",
		TargetID:    accountID,
		Action:      "attach_credential",
		Outcome:     "success",
	})
	response.JSON(w, r, http.StatusOK, map[string]bool{"has_local_credential": true})
}

// throttled writes a 429 when the email or client IP is cooling down. Guard
// backend errors let the attempt through.
func (h *AuthHandler) throttled(w http.ResponseWriter, r *http.Request, scope service.SignInScope, email, ip string) bool {
	wait, err := h.guard.Check(r.Context(), scope, email, ip)
	if err != nil {
		observability.Audit(r, "auth.throttle.unavailable", "error", err.Error())
		return false
	}
	if wait <= 0 {
		return false
	}
	seconds := int(wait.Round(time.Second) / time.Second)
	if seconds < 1 {
		seconds = 1
	}
	w.Header().Set("Retry-After", strconv.Itoa(seconds))
	observability.RecordRateLimitDecision(r.Context(), string(scope), "denied", "sign_in_guard", "email_ip")
	observability.Audit(r, "auth.local.throttled", "scope", string(scope))
	response.Error(w, r, http.StatusTooManyRequests, "TOO_MANY_ATTEMPTS", "too many failed attempts, try again later", map[string]int{"retry_after_seconds": seconds})
	return true
}
