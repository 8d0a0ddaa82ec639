package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sandeepkv93/endorsement-backend/internal/security"
)

type stubLimiter struct {
	allow   bool
	retry   time.Duration
	err     error
	lastKey string
}

func (s *stubLimiter) Allow(_ context.Context, key string, _ int, _ time.Duration) (bool, time.Duration, error) {
	s.lastKey = key
	return s.allow, s.retry, s.err
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })
}

func TestRateLimiterDecisions(t *testing.T) {
	tests := []struct {
		name       string
		limiter    *stubLimiter
		mode       FailureMode
		wantStatus int
		wantRetry  string
	}{
		{"allowed", &stubLimiter{allow: true}, FailClosed, http.StatusOK, ""},
		{"denied", &stubLimiter{retry: 2500 * time.Millisecond}, FailClosed, http.StatusTooManyRequests, "3"},
		{"backend down fail closed", &stubLimiter{err: errors.New("down")}, FailClosed, http.StatusTooManyRequests, "60"},
		{"backend down fail open", &stubLimiter{err: errors.New("down")}, FailOpen, http.StatusOK, ""},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			h := NewDistributedRateLimiter(tc.limiter, 10, time.Minute, tc.mode, "api").Middleware()(okHandler())
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = "192.0.2.1:5555"
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, req)
			if rr.Code != tc.wantStatus {
				t.Fatalf("expected %d, got %d", tc.wantStatus, rr.Code)
			}
			if got := rr.Header().Get("Retry-After"); got != tc.wantRetry {
				t.Fatalf("expected Retry-After %q, got %q", tc.wantRetry, got)
			}
			if tc.limiter.lastKey != "api:ip:192.0.2.1" {
				t.Fatalf("unexpected key %q", tc.limiter.lastKey)
			}
		})
	}
}

func TestRateLimiterKeysAuthenticatedRequestsByAccount(t *testing.T) {
	jwt := security.NewJWTManager("iss", "aud", "abcdefghijklmnopqrstuvwxyz123456")
	token, _, err := jwt.SignSessionToken("acct-1", time.Hour)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	stub := &stubLimiter{allow: true}
	h := AuthMiddleware(jwt)(NewDistributedRateLimiter(stub, 10, time.Minute, FailClosed, "api").Middleware()(okHandler()))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	h.ServeHTTP(httptest.NewRecorder(), req)
	if stub.lastKey != "api:acct:acct-1" {
		t.Fatalf("expected account key, got %q", stub.lastKey)
	}
}

func TestLocalTokenBucketLimiter(t *testing.T) {
	l := NewLocalTokenBucketLimiter().(*localTokenBucketLimiter)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }
	ctx := context.Background()

	for i := range 3 {
		if ok, _, _ := l.Allow(ctx, "k", 3, time.Minute); !ok {
			t.Fatalf("burst request %d denied", i)
		}
	}
	ok, retry, _ := l.Allow(ctx, "k", 3, time.Minute)
	if ok || retry <= 0 || retry > 20*time.Second {
		t.Fatalf("expected denial with retry up to one refill interval, got ok=%v retry=%v", ok, retry)
	}
	if ok, _, _ := l.Allow(ctx, "other", 3, time.Minute); !ok {
		t.Fatal("keys must not share buckets")
	}
	now = now.Add(20 * time.Second)
	if ok, _, _ := l.Allow(ctx, "k", 3, time.Minute); !ok {
		t.Fatal("expected one token refilled")
	}
	if ok, _, _ := l.Allow(ctx, "k", 0, time.Minute); !ok {
		t.Fatal("non-positive limit disables limiting")
	}
}
