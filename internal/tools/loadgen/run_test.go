package loadgen

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestRunSignsInAndReplaysProfile(t *testing.T) {
	var authed, anonymous atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/v1/auth/local/login" {
			var body map[string]string
			_ = json.NewDecoder(r.Body).Decode(&body)
			if body["email"] != "alice@demo.local" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			_, _ = w.Write([]byte(`{"success":true,"data":{"credential":{"token":"tok-1"}}}`))
			return
		}
		if r.Header.Get("Authorization") == "Bearer tok-1" {
			authed.Add(1)
		} else {
			anonymous.Add(1)
		}
		if strings.Contains(r.URL.RawQuery, "not-a-cursor") {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	res, err := Run(context.Background(), Config{
		BaseURL:     srv.URL,
		Profile:     "mixed",
		Duration:    300 * time.Millisecond,
		RPS:         100,
		Concurrency: 3,
		Email:       "alice@demo.local",
		Password:    "pw",
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if res.TotalRequests == 0 || res.Status2xx == 0 || res.Status4xx == 0 {
		t.Fatalf("expected mixed traffic, got %+v", res)
	}
	if anonymous.Load() != 0 || authed.Load() == 0 {
		t.Fatalf("expected every request to carry the session token (authed=%d anonymous=%d)", authed.Load(), anonymous.Load())
	}
}

func TestRunRejectsBadInput(t *testing.T) {
	if _, err := Run(context.Background(), Config{Profile: "nope"}); err == nil {
		t.Fatal("expected unknown profile error")
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()
	if _, err := Run(context.Background(), Config{BaseURL: srv.URL, Email: "x@example.com", Password: "bad"}); err == nil {
		t.Fatal("expected sign-in failure")
	}
}

func TestIdempotentProfileReusesOneKey(t *testing.T) {
	var mu sync.Mutex
	keys := map[string]int{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		keys[r.Header.Get("Idempotency-Key")]++
		mu.Unlock()
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	res, err := Run(context.Background(), Config{
		BaseURL:     srv.URL,
		Profile:     "idempotent",
		Duration:    200 * time.Millisecond,
		RPS:         50,
		Concurrency: 2,
		RecipientID: "acct-9",
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if res.TotalRequests == 0 {
		t.Fatal("expected traffic")
	}
	mu.Lock()
	defer mu.Unlock()
	if len(keys) != 1 || keys["loadgen-replay-acct-9"] == 0 {
		t.Fatalf("expected a single reused key, got %v", keys)
	}
}
