package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/sandeepkv93/endorsement-backend/internal/http/response"
	"github.com/sandeepkv93/endorsement-backend/internal/observability"
	"github.com/sandeepkv93/endorsement-backend/internal/security"
)

type contextKey string

const ClaimsContextKey contextKey = "claims"

// AuthMiddleware rejects requests without a valid bearer session credential
// before they reach any handler.
func AuthMiddleware(jwtMgr *security.JWTManager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := bearerToken(r)
			if raw == "" {
				observability.RecordAccessTokenValidation(r.Context(), "missing", "header")
				response.Error(w, r, http.StatusUnauthorized, "UNAUTHENTICATED", "missing session credential", nil)
				return
			}
			claims, err := jwtMgr.ParseSessionToken(raw)
			if err != nil {
				outcome := "invalid"
				if errors.Is(err, security.ErrTokenExpired) {
					outcome = "expired"
				}
				observability.RecordAccessTokenValidation(r.Context(), outcome, "header")
				response.Error(w, r, http.StatusUnauthorized, "UNAUTHENTICATED", "invalid or expired session credential", nil)
				return
			}
			observability.RecordAccessTokenValidation(r.Context(), "valid", "header")
			ctx := context.WithValue(r.Context(), ClaimsContextKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func ClaimsFromContext(ctx context.Context) (*security.Claims, bool) {
	c, ok := ctx.Value(ClaimsContextKey).(*security.Claims)
	return c, ok
}

// AccountID returns the authenticated account id, or "" outside AuthMiddleware.
func AccountID(ctx context.Context) string {
	if c, ok := ClaimsFromContext(ctx); ok {
		return c.Subject
	}
	return ""
}

func bearerToken(r *http.Request) string {
	auth := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(auth) < 7 || !strings.EqualFold(auth[:7], "bearer ") {
		return ""
	}
	return strings.TrimSpace(auth[7:])
}
