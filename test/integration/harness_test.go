package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/sandeepkv93/endorsement-backend/internal/database"
	"github.com/sandeepkv93/endorsement-backend/internal/http/handler"
	"github.com/sandeepkv93/endorsement-backend/internal/http/middleware"
	"github.com/sandeepkv93/endorsement-backend/internal/http/router"
	"github.com/sandeepkv93/endorsement-backend/internal/observability"
	"github.com/sandeepkv93/endorsement-backend/internal/repository"
	"github.com/sandeepkv93/endorsement-backend/internal/security"
	"github.com/sandeepkv93/endorsement-backend/internal/service"
)

const (
	testRedirectURI = "http://localhost:3000/auth/linkedin/callback"
	testPassword    = "correct-horse-battery"
)

type apiEnvelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string          `json:"code"`
		Message string          `json:"message"`
		Details json.RawMessage `json:"details"`
	} `json:"error"`
	RequestID string `json:"request_id"`
}

type harnessOptions struct {
	authRPM   int
	apiRPM    int
	signInPol *service.SignInPolicy
	minLength int
	documents service.DocumentStore
}

type harness struct {
	server   *httptest.Server
	linkedIn *fakeLinkedIn
	registry *prometheus.Registry
	client   *http.Client
}

// fakeLinkedIn mimics the token and userinfo endpoints. Each authorization
// code maps to one profile.
type fakeLinkedIn struct {
	mu       sync.Mutex
	profiles map[string]map[string]any
}

func (f *fakeLinkedIn) setProfile(code string, profile map[string]any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.profiles[code] = profile
}

func (f *fakeLinkedIn) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/oauth/v2/accessToken", func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		code := r.PostForm.Get("code")
		f.mu.Lock()
		_, ok := f.profiles[code]
		f.mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		if !ok {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":"invalid_grant"}`))
			return
		}
		_, _ = fmt.Fprintf(w, `{"access_token":"token-%s","expires_in":3600}`, code)
	})
	mux.HandleFunc("/v2/userinfo", func(w http.ResponseWriter, r *http.Request) {
		code := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer token-")
		f.mu.Lock()
		profile, ok := f.profiles[code]
		f.mu.Unlock()
		if !ok {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(profile)
	})
	return mux
}

func newHarness(t *testing.T, opts harnessOptions) *harness {
	t.Helper()
	if opts.authRPM == 0 {
		opts.authRPM = 1000
	}
	if opts.apiRPM == 0 {
		opts.apiRPM = 1000
	}
	if opts.minLength == 0 {
		opts.minLength = 40
	}
	policy := service.SignInPolicy{FreeAttempts: 100, BaseDelay: time.Second, Multiplier: 2, MaxDelay: time.Minute, ResetWindow: time.Hour}
	if opts.signInPol != nil {
		policy = *opts.signInPol
	}

	dsn := fmt.Sprintf("sqlite://file:%s?mode=memory&cache=shared", strings.NewReplacer("/", "_", " ", "_").Replace(t.Name()))
	db, err := database.Open(dsn)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	t.Cleanup(func() { _ = sqlDB.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	if err := database.Migrate(context.Background(), db, logger); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	linkedIn := &fakeLinkedIn{profiles: map[string]map[string]any{}}
	providerSrv := httptest.NewServer(linkedIn.handler())
	t.Cleanup(providerSrv.Close)

	registry := prometheus.NewRegistry()
	metrics := observability.NewDomainMetrics(registry)

	jwtMgr := security.NewJWTManager("endorsement-it", "endorsement-api", "integration-secret-0123456789abcdef")
	hasher := security.NewPasswordHasher(security.Argon2Params{Time: 1, Memory: 8 * 1024, Threads: 1, KeyLen: 32, SaltLen: 16})
	accounts := repository.NewAccountRepository(db)
	credentials := repository.NewLocalCredentialRepository(db)
	recommendations := repository.NewRecommendationRepository(db)

	provider := service.NewLinkedInProviderClient(service.LinkedInOptions{
		ClientID:     "it-client",
		ClientSecret: "it-secret",
		RedirectURL:  testRedirectURI,
		Scopes:       []string{"openid", "profile", "email"},
		AuthURL:      providerSrv.URL + "/oauth/v2/authorization",
		TokenURL:     providerSrv.URL + "/oauth/v2/accessToken",
		UserInfoURL:  providerSrv.URL + "/v2/userinfo",
		Timeout:      2 * time.Second,
	})
	identity := service.NewIdentityService(
		accounts, credentials, provider,
		service.NewInMemoryStateStore(),
		service.NewJWTCredentialIssuer(jwtMgr, time.Hour),
		hasher, metrics, logger,
		service.IdentityOptions{StateTTL: time.Minute, RedirectURI: testRedirectURI},
	)
	limits := service.DefaultRecommendationLimits
	limits.MinEndorsementLength = opts.minLength
	recs := service.NewRecommendationService(
		recommendations, accounts,
		service.NewRecommendationValidator(limits),
		opts.documents,
		service.NewLogEventPublisher(logger),
		service.NewInMemoryProfileCache(),
		metrics, logger,
		service.PagingOptions{DefaultPageSize: 10, MaxPageSize: 50, PublicCacheTTL: time.Minute},
	)

	h := router.NewRouter(router.Dependencies{
		AuthHandler:           handler.NewAuthHandler(identity, service.NewInMemorySignInGuard(policy)),
		AccountHandler:        handler.NewAccountHandler(identity, recs),
		RecommendationHandler: handler.NewRecommendationHandler(recs),
		JWTManager:            jwtMgr,
		CORSOrigins:           []string{"http://localhost:3000"},
		AuthRateLimitRPM:      opts.authRPM,
		APIRateLimitRPM:       opts.apiRPM,
		MetricsHandler:        observability.PrometheusHandler(registry),
		Idempotency:           middleware.NewIdempotencyMiddleware(service.NewDBIdempotencyStore(db), time.Hour),
	})
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	return &harness{server: srv, linkedIn: linkedIn, registry: registry, client: srv.Client()}
}

func (h *harness) do(t *testing.T, method, path, token string, body any) (*http.Response, apiEnvelope) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, h.server.URL+path, reader)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return h.send(t, req)
}

func (h *harness) send(t *testing.T, req *http.Request) (*http.Response, apiEnvelope) {
	t.Helper()
	resp, err := h.client.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	var env apiEnvelope
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &env); err != nil {
			t.Fatalf("decode envelope for %s %s (%d): %v body=%s", req.Method, req.URL.Path, resp.StatusCode, err, raw)
		}
	}
	return resp, env
}

func (h *harness) metricsText(t *testing.T) string {
	t.Helper()
	resp, err := h.client.Get(h.server.URL + "/metrics")
	if err != nil {
		t.Fatalf("get metrics: %v", err)
	}
	defer resp.Body.Close()
	raw, _ := io.ReadAll(resp.Body)
	return string(raw)
}

type authData struct {
	Credential struct {
		Token string `json:"token"`
	} `json:"credential"`
	Account struct {
		ID                 string `json:"id"`
		Email              string `json:"email"`
		DisplayName        string `json:"display_name"`
		HasLocalCredential bool   `json:"has_local_credential"`
	} `json:"account"`
	IsNewAccount bool `json:"is_new_account"`
}

func mustData[T any](t *testing.T, env apiEnvelope) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(env.Data, &out); err != nil {
		t.Fatalf("decode data: %v (%s)", err, env.Data)
	}
	return out
}

func expectStatus(t *testing.T, resp *http.Response, env apiEnvelope, want int) {
	t.Helper()
	if resp.StatusCode != want {
		code := ""
		if env.Error != nil {
			code = env.Error.Code
		}
		t.Fatalf("%s %s: expected %d, got %d (%s)", resp.Request.Method, resp.Request.URL.Path, want, resp.StatusCode, code)
	}
}

func expectError(t *testing.T, resp *http.Response, env apiEnvelope, status int, code string) {
	t.Helper()
	expectStatus(t, resp, env, status)
	if env.Success || env.Error == nil || env.Error.Code != code {
		t.Fatalf("expected error code %s, got %+v", code, env.Error)
	}
}

func (h *harness) register(t *testing.T, email, name string) authData {
	t.Helper()
	resp, env := h.do(t, http.MethodPost, "/api/v1/auth/local/register", "", map[string]string{
		"email": email, "name": name, "password": testPassword,
	})
	expectStatus(t, resp, env, http.StatusCreated)
	return mustData[authData](t, env)
}

func endorsementText(n int) string {
	return strings.Repeat("a", n)
}

func recommendationBody(recipientID string, textLen int) map[string]any {
	return map[string]any{
		"recipient_id":     recipientID,
		"relationship":     map[string]string{"type": "manager", "company": "Acme", "duration": "2 years"},
		"endorsement_text": endorsementText(textLen),
		"rating":           5,
		"skills": []map[string]string{
			{"name": "Go", "kind": "hard"},
			{"name": "Mentoring", "kind": "soft"},
		},
	}
}
