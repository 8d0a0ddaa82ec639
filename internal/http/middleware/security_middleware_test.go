package middleware

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func noContent() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusNoContent) })
}

func TestCORS(t *testing.T) {
	h := CORS([]string{"https://app.example.com"})(noContent())

	tests := []struct {
		name, origin, method string
		preflight            bool
		wantAllow            string
	}{
		{"known origin", "https://app.example.com", http.MethodGet, false, "https://app.example.com"},
		{"unknown origin", "https://evil.example.com", http.MethodGet, false, ""},
		{"preflight", "https://app.example.com", http.MethodOptions, true, "https://app.example.com"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(tc.method, "/api/v1/me", nil)
			req.Header.Set("Origin", tc.origin)
			if tc.preflight {
				req.Header.Set("Access-Control-Request-Method", http.MethodPatch)
			}
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, req)
			if got := rr.Header().Get("Access-Control-Allow-Origin"); got != tc.wantAllow {
				t.Fatalf("expected allow-origin %q, got %q", tc.wantAllow, got)
			}
			if rr.Header().Get("Access-Control-Allow-Credentials") != "" {
				t.Fatal("bearer-token API must not allow credentials")
			}
			if tc.wantAllow != "" && !strings.Contains(rr.Header().Get("Access-Control-Allow-Headers"), IdempotencyHeader) {
				t.Fatalf("expected %s in allowed headers, got %q", IdempotencyHeader, rr.Header().Get("Access-Control-Allow-Headers"))
			}
		})
	}
}

func TestSecurityHeaders(t *testing.T) {
	rr := httptest.NewRecorder()
	SecurityHeaders(noContent()).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	for _, h := range []string{"X-Content-Type-Options", "X-Frame-Options", "Content-Security-Policy"} {
		if rr.Header().Get(h) == "" {
			t.Fatalf("missing %s", h)
		}
	}
	if rr.Header().Get("Strict-Transport-Security") != "" {
		t.Fatal("HSTS must only be sent over TLS")
	}
}

func TestBodyLimitRejectsLargeBodies(t *testing.T) {
	var readErr error
	h := BodyLimit(8)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, readErr = io.ReadAll(r.Body)
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/", strings.NewReader("0123456789")))
	var maxErr *http.MaxBytesError
	if !errors.As(readErr, &maxErr) {
		t.Fatalf("expected MaxBytesError, got %v", readErr)
	}
}
