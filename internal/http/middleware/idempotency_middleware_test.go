package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go.uber.org/mock/gomock"

	"github.com/sandeepkv93/endorsement-backend/internal/service"
	servicegomock "github.com/sandeepkv93/endorsement-backend/internal/service/gomock"
)

func idempotentHandler(t *testing.T, store service.IdempotencyStore, status int, calls *int) http.Handler {
	t.Helper()
	mw := NewIdempotencyMiddleware(store, time.Hour)
	return mw.Middleware("recommendations.create")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*calls++
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(`{"success":true}`))
	}))
}

func keyedRequest(key, body string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/recommendations/", strings.NewReader(body))
	if key != "" {
		req.Header.Set(IdempotencyHeader, key)
	}
	return req
}

func TestIdempotencyMiddlewarePassesThroughWithoutKey(t *testing.T) {
	store := servicegomock.NewMockIdempotencyStore(gomock.NewController(t))
	calls := 0
	rr := httptest.NewRecorder()
	idempotentHandler(t, store, http.StatusCreated, &calls).ServeHTTP(rr, keyedRequest("", `{}`))
	if rr.Code != http.StatusCreated || calls != 1 {
		t.Fatalf("expected pass-through, got code=%d calls=%d", rr.Code, calls)
	}
}

func TestIdempotencyMiddlewareRejectsLongKey(t *testing.T) {
	store := servicegomock.NewMockIdempotencyStore(gomock.NewController(t))
	calls := 0
	rr := httptest.NewRecorder()
	idempotentHandler(t, store, http.StatusCreated, &calls).ServeHTTP(rr, keyedRequest(strings.Repeat("k", 129), `{}`))
	if rr.Code != http.StatusBadRequest || calls != 0 {
		t.Fatalf("expected 400 without calling the handler, got code=%d calls=%d", rr.Code, calls)
	}
}

func TestIdempotencyMiddlewareStoresFirstResponse(t *testing.T) {
	store := servicegomock.NewMockIdempotencyStore(gomock.NewController(t))
	var stored service.CachedHTTPResponse
	store.EXPECT().Begin(gomock.Any(), "recommendations.create", "key-1", gomock.Any(), time.Hour).
		Return(service.IdempotencyBeginResult{State: service.IdempotencyStateNew}, nil)
	store.EXPECT().Complete(gomock.Any(), "recommendations.create", "key-1", gomock.Any(), gomock.Any(), time.Hour).
		DoAndReturn(func(_ context.Context, _, _, _ string, resp service.CachedHTTPResponse, _ time.Duration) error {
			stored = resp
			return nil
		})

	calls := 0
	rr := httptest.NewRecorder()
	idempotentHandler(t, store, http.StatusCreated, &calls).ServeHTTP(rr, keyedRequest("key-1", `{"rating":5}`))
	if rr.Code != http.StatusCreated || calls != 1 {
		t.Fatalf("unexpected first response code=%d calls=%d", rr.Code, calls)
	}
	if stored.StatusCode != http.StatusCreated || string(stored.Body) != `{"success":true}` || stored.ContentType != "application/json" {
		t.Fatalf("unexpected stored response: %+v", stored)
	}
}

func TestIdempotencyMiddlewareBeginOutcomes(t *testing.T) {
	tests := []struct {
		name       string
		result     service.IdempotencyBeginResult
		err        error
		wantStatus int
		wantCode   string
		replayed   bool
	}{
		{
			name: "replay",
			result: service.IdempotencyBeginResult{State: service.IdempotencyStateReplay, Cached: &service.CachedHTTPResponse{
				StatusCode: http.StatusCreated, ContentType: "application/json", Body: []byte(`{"success":true,"data":{"id":"r1"}}`),
			}},
			wantStatus: http.StatusCreated,
			replayed:   true,
		},
		{name: "conflict", result: service.IdempotencyBeginResult{State: service.IdempotencyStateConflict}, wantStatus: http.StatusConflict, wantCode: "IDEMPOTENCY_KEY_REUSED"},
		{name: "in progress", result: service.IdempotencyBeginResult{State: service.IdempotencyStateInProgress}, wantStatus: http.StatusConflict, wantCode: "IDEMPOTENCY_IN_PROGRESS"},
		{name: "store error", err: errors.New("db down"), wantStatus: http.StatusInternalServerError, wantCode: "INTERNAL"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			store := servicegomock.NewMockIdempotencyStore(gomock.NewController(t))
			store.EXPECT().Begin(gomock.Any(), gomock.Any(), "key-1", gomock.Any(), gomock.Any()).Return(tc.result, tc.err)

			calls := 0
			rr := httptest.NewRecorder()
			idempotentHandler(t, store, http.StatusCreated, &calls).ServeHTTP(rr, keyedRequest("key-1", `{}`))
			if calls != 0 {
				t.Fatalf("handler must not run, ran %d times", calls)
			}
			if rr.Code != tc.wantStatus {
				t.Fatalf("expected %d, got %d", tc.wantStatus, rr.Code)
			}
			if tc.wantCode != "" && !strings.Contains(rr.Body.String(), tc.wantCode) {
				t.Fatalf("expected code %s in %s", tc.wantCode, rr.Body.String())
			}
			if got := rr.Header().Get("X-Idempotency-Replayed") == "true"; got != tc.replayed {
				t.Fatalf("replayed header = %v, want %v", got, tc.replayed)
			}
		})
	}
}

func TestIdempotencyMiddlewareReleasesOnServerError(t *testing.T) {
	store := servicegomock.NewMockIdempotencyStore(gomock.NewController(t))
	store.EXPECT().Begin(gomock.Any(), gomock.Any(), "key-1", gomock.Any(), gomock.Any()).
		Return(service.IdempotencyBeginResult{State: service.IdempotencyStateNew}, nil)
	store.EXPECT().Release(gomock.Any(), "recommendations.create", "key-1", gomock.Any()).Return(nil)

	calls := 0
	rr := httptest.NewRecorder()
	idempotentHandler(t, store, http.StatusInternalServerError, &calls).ServeHTTP(rr, keyedRequest("key-1", `{}`))
	if rr.Code != http.StatusInternalServerError || calls != 1 {
		t.Fatalf("unexpected response code=%d calls=%d", rr.Code, calls)
	}
}

func TestFingerprintRequestBindsBody(t *testing.T) {
	a := fingerprintRequest(keyedRequest("k", ""), "s", []byte(`{"rating":5}`))
	b := fingerprintRequest(keyedRequest("k", ""), "s", []byte(`{"rating":5}`))
	c := fingerprintRequest(keyedRequest("k", ""), "s", []byte(`{"rating":4}`))
	d := fingerprintRequest(keyedRequest("k", ""), "other", []byte(`{"rating":5}`))
	if a != b {
		t.Fatal("identical requests must share a fingerprint")
	}
	if a == c || a == d {
		t.Fatal("body and scope must change the fingerprint")
	}
}
