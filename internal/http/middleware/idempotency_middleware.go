package middleware

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/sandeepkv93/endorsement-backend/internal/http/response"
	"github.com/sandeepkv93/endorsement-backend/internal/observability"
	"github.com/sandeepkv93/endorsement-backend/internal/service"
)

const (
	IdempotencyHeader   = "Idempotency-Key"
	idempotencyMaxKey   = 128
	idempotencyReplayed = "X-Idempotency-Replayed"
)

type IdempotencyMiddleware struct {
	store service.IdempotencyStore
	ttl   time.Duration
}

func NewIdempotencyMiddleware(store service.IdempotencyStore, ttl time.Duration) *IdempotencyMiddleware {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &IdempotencyMiddleware{store: store, ttl: ttl}
}

// Middleware makes a keyed write safe to retry. Requests without the header
// pass straight through. A replay returns the first response byte for byte.
func (m *IdempotencyMiddleware) Middleware(scope string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := strings.TrimSpace(r.Header.Get(IdempotencyHeader))
			if key == "" {
				next.ServeHTTP(w, r)
				return
			}
			if len(key) > idempotencyMaxKey {
				observability.RecordIdempotencyEvent(r.Context(), scope, "invalid_key")
				response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "invalid Idempotency-Key header", nil)
				return
			}

			body, err := io.ReadAll(r.Body)
			if err != nil {
				observability.RecordIdempotencyEvent(r.Context(), scope, "read_error")
				writeBodyReadError(w, r, err)
				return
			}
			r.Body = io.NopCloser(bytes.NewReader(body))
			fingerprint := fingerprintRequest(r, scope, body)

			begin, err := m.store.Begin(r.Context(), scope, key, fingerprint, m.ttl)
			if err != nil {
				observability.RecordIdempotencyEvent(r.Context(), scope, "store_error")
				observability.Audit(r, "idempotency.check.failed", "scope", scope, "error", err.Error())
				response.Error(w, r, http.StatusInternalServerError, "INTERNAL", "idempotency check failed", nil)
				return
			}

			switch begin.State {
			case service.IdempotencyStateConflict:
				m.reject(w, r, scope, key, "fingerprint_conflict", "IDEMPOTENCY_KEY_REUSED", "idempotency key was used with a different request")
				return
			case service.IdempotencyStateInProgress:
				m.reject(w, r, scope, key, "request_in_progress", "IDEMPOTENCY_IN_PROGRESS", "a request with this idempotency key is still in progress")
				return
			case service.IdempotencyStateReplay:
				observability.RecordIdempotencyEvent(r.Context(), scope, "replayed")
				writeCachedResponse(w, begin.Cached)
				return
			}

			rec := &captureWriter{ResponseWriter: w}
			next.ServeHTTP(rec, r)
			if rec.statusCode == 0 {
				rec.statusCode = http.StatusOK
			}

			if rec.statusCode >= http.StatusInternalServerError {
				observability.RecordIdempotencyEvent(r.Context(), scope, "released")
				if err := m.store.Release(r.Context(), scope, key, fingerprint); err != nil {
					observability.Audit(r, "idempotency.release.failed", "scope", scope, "error", err.Error())
				}
				return
			}
			observability.RecordIdempotencyEvent(r.Context(), scope, "stored")
			if err := m.store.Complete(r.Context(), scope, key, fingerprint, service.CachedHTTPResponse{
				StatusCode:  rec.statusCode,
				ContentType: rec.Header().Get("Content-Type"),
				Body:        rec.body.Bytes(),
			}, m.ttl); err != nil {
				observability.RecordIdempotencyEvent(r.Context(), scope, "store_error")
				observability.Audit(r, "idempotency.complete.failed", "scope", scope, "error", err.Error())
			}
		})
	}
}

func (m *IdempotencyMiddleware) reject(w http.ResponseWriter, r *http.Request, scope, key, reason, code, message string) {
	observability.RecordIdempotencyEvent(r.Context(), scope, reason)
	observability.EmitAudit(r, observability.AuditInput{
		EventName:   "idempotency.check",
		ActorUserID: AccountID(r.Context()),
		TargetType:  "idempotency_key",
		TargetID:    shortHash(key),
		Action:      "check",
		Outcome:     "rejected",
		Reason:      reason,
	})
	response.Error(w, r, http.StatusConflict, code, message, nil)
}

func writeBodyReadError(w http.ResponseWriter, r *http.Request, err error) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		response.Error(w, r, http.StatusRequestEntityTooLarge, "PAYLOAD_TOO_LARGE", "request body too large", nil)
		return
	}
	response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "invalid request payload", nil)
}

func writeCachedResponse(w http.ResponseWriter, cached *service.CachedHTTPResponse) {
	if cached == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	if cached.ContentType != "" {
		w.Header().Set("Content-Type", cached.ContentType)
	}
	w.Header().Set(idempotencyReplayed, "true")
	w.WriteHeader(cached.StatusCode)
	if len(cached.Body) > 0 {
		_, _ = w.Write(cached.Body)
	}
}

// fingerprintRequest binds a key to the route, the caller and the exact body.
func fingerprintRequest(r *http.Request, scope string, body []byte) string {
	route := r.URL.Path
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if pattern := rctx.RoutePattern(); pattern != "" {
			route = pattern
		}
	}
	actor := "ip:" + ClientIP(r)
	if id := AccountID(r.Context()); id != "" {
		actor = "acct:" + id
	}
	bodySum := sha256.Sum256(body)
	raw := strings.Join([]string{scope, r.Method, route, actor, hex.EncodeToString(bodySum[:])}, "\n")
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

func shortHash(v string) string {
	sum := sha256.Sum256([]byte(v))
	return hex.EncodeToString(sum[:])[:12]
}

type captureWriter struct {
	http.ResponseWriter
	statusCode int
	body       bytes.Buffer
}

func (w *captureWriter) WriteHeader(statusCode int) {
	if w.statusCode == 0 {
		w.statusCode = statusCode
	}
	w.ResponseWriter.WriteHeader(statusCode)
}

func (w *captureWriter) Write(p []byte) (int, error) {
	if w.statusCode == 0 {
		w.statusCode = http.StatusOK
	}
	w.body.Write(p)
	return w.ResponseWriter.Write(p)
}
