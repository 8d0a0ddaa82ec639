package loadgen

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

type Config struct {
	BaseURL     string
	Profile     string
	Duration    time.Duration
	RPS         int
	Concurrency int
	Email       string
	Password    string
	RecipientID string
	Client      *http.Client
}

type Result struct {
	TotalRequests int64
	Failures      int64
	Status2xx     int64
	Status4xx     int64
	Status5xx     int64
}

type request struct {
	method         string
	path           string
	body           []byte
	idempotencyKey string
}

// Run signs in once, then replays the profile's requests at RPS until Duration elapses.
func Run(ctx context.Context, cfg Config) (Result, error) {
	cfg = withDefaults(cfg)
	plan, err := requestsForProfile(cfg.Profile, cfg.RecipientID)
	if err != nil {
		return Result{}, err
	}
	token, err := signIn(ctx, cfg)
	if err != nil {
		return Result{}, err
	}

	ctx, cancel := context.WithTimeout(ctx, cfg.Duration)
	defer cancel()

	var res Result
	limiter := rate.NewLimiter(rate.Limit(cfg.RPS), 1)
	var next atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < cfg.Concurrency; i++ {
		g.Go(func() error {
			for {
				if err := limiter.Wait(gctx); err != nil {
					return nil
				}
				req := plan[int(next.Add(1)-1)%len(plan)]
				status, err := send(gctx, cfg.Client, cfg.BaseURL, token, req)
				if err != nil {
					if gctx.Err() != nil {
						return nil
					}
					atomic.AddInt64(&res.Failures, 1)
					continue
				}
				atomic.AddInt64(&res.TotalRequests, 1)
				switch {
				case status >= 500:
					atomic.AddInt64(&res.Status5xx, 1)
				case status >= 400:
					atomic.AddInt64(&res.Status4xx, 1)
				case status >= 200 && status < 300:
					atomic.AddInt64(&res.Status2xx, 1)
				}
			}
		})
	}
	_ = g.Wait()
	return res, nil
}

func withDefaults(cfg Config) Config {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "http://localhost:8080"
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.Duration <= 0 {
		cfg.Duration = 10 * time.Second
	}
	if cfg.RPS <= 0 {
		cfg.RPS = 15
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 5
	}
	if cfg.Client == nil {
		cfg.Client = &http.Client{Timeout: 5 * time.Second}
	}
	return cfg
}

func requestsForProfile(profile, recipientID string) ([]request, error) {
	reads := []request{
		{method: http.MethodGet, path: "/api/v1/me"},
		{method: http.MethodGet, path: "/api/v1/recommendations/received?page_size=10"},
		{method: http.MethodGet, path: "/api/v1/recommendations/authored?page_size=10"},
	}
	invalid := []request{
		{method: http.MethodGet, path: "/api/v1/recommendations/received?cursor=not-a-cursor"},
		{method: http.MethodPatch, path: "/api/v1/recommendations/does-not-exist/status", body: []byte(`{"status":"approved"}`)},
		{method: http.MethodPost, path: "/api/v1/recommendations", body: createBody(recipientID, "too short")},
	}
	switch strings.ToLower(profile) {
	case "", "mixed":
		return append(reads, invalid...), nil
	case "read":
		return reads, nil
	case "error-heavy":
		return invalid, nil
	case "idempotent":
		// Every iteration after the first should be served as a replay.
		return []request{{
			method:         http.MethodPost,
			path:           "/api/v1/recommendations",
			body:           createBody(recipientID, strings.Repeat("Consistently raised the bar for the whole team. ", 20)),
			idempotencyKey: "loadgen-replay-" + recipientID,
		}}, nil
	default:
		return nil, fmt.Errorf("unknown profile: %s", profile)
	}
}

func createBody(recipientID, text string) []byte {
	body, _ := json.Marshal(map[string]any{
		"recipient_id":     recipientID,
		"relationship":     map[string]string{"type": "colleague", "company": "Load Corp", "duration": "1 year"},
		"endorsement_text": text,
		"rating":           4,
		"skills":           []map[string]string{{"name": "Go", "kind": "hard"}},
	})
	return body
}

func signIn(ctx context.Context, cfg Config) (string, error) {
	if cfg.Email == "" {
		return "", nil
	}
	payload, _ := json.Marshal(map[string]string{"email": cfg.Email, "password": cfg.Password})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, cfg.BaseURL+"/api/v1/auth/local/login", bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := cfg.Client.Do(req)
	if err != nil {
		return "", fmt.Errorf("sign in: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("sign in: unexpected status %d", resp.StatusCode)
	}
	var env struct {
		Data struct {
			Credential struct {
				Token string `json:"token"`
			} `json:"credential"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return "", fmt.Errorf("decode sign-in response: %w", err)
	}
	return env.Data.Credential.Token, nil
}

func send(ctx context.Context, client *http.Client, baseURL, token string, r request) (int, error) {
	var body io.Reader
	if r.body != nil {
		body = bytes.NewReader(r.body)
	}
	req, err := http.NewRequestWithContext(ctx, r.method, baseURL+r.path, body)
	if err != nil {
		return 0, err
	}
	if r.body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if r.idempotencyKey != "" {
		req.Header.Set("Idempotency-Key", r.idempotencyKey)
	}
	resp, err := client.Do(req)
	if err != nil {
		return 0, err
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()
	return resp.StatusCode, nil
}
