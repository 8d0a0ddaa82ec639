package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/sandeepkv93/endorsement-backend/internal/health"
	"github.com/sandeepkv93/endorsement-backend/internal/http/handler"
	"github.com/sandeepkv93/endorsement-backend/internal/http/middleware"
	"github.com/sandeepkv93/endorsement-backend/internal/http/response"
	"github.com/sandeepkv93/endorsement-backend/internal/security"
	"github.com/sandeepkv93/endorsement-backend/internal/service"
)

const (
	jsonBodyLimit       int64 = 1 << 20
	attachmentBodyLimit       = service.MaxDocumentSize + 1<<20
)

type Dependencies struct {
	AuthHandler           *handler.AuthHandler
	AccountHandler        *handler.AccountHandler
	RecommendationHandler *handler.RecommendationHandler
	JWTManager            *security.JWTManager
	CORSOrigins           []string
	AuthRateLimitRPM      int
	APIRateLimitRPM       int
	GlobalRateLimiter     RateLimiterFunc
	AuthRateLimiter       RateLimiterFunc
	Readiness             *health.CheckRunner
	MetricsHandler        http.Handler
	EnableOTelHTTP        bool
	// Idempotency is optional; create requests carrying an Idempotency-Key are deduplicated when set.
	Idempotency *middleware.IdempotencyMiddleware
}

type RateLimiterFunc func(http.Handler) http.Handler

func NewRouter(dep Dependencies) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.StructuredRequestLogger)
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.CORS(dep.CORSOrigins))

	authLimiter := dep.AuthRateLimiter
	if authLimiter == nil {
		authLimiter = middleware.NewRateLimiter(dep.AuthRateLimitRPM, time.Minute, "auth").Middleware()
	}
	apiLimiter := dep.GlobalRateLimiter
	if apiLimiter == nil {
		apiLimiter = middleware.NewRateLimiter(dep.APIRateLimitRPM, time.Minute, "api").Middleware()
	}

	r.Get("/health/live", func(w http.ResponseWriter, r *http.Request) {
		response.JSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/health/ready", func(w http.ResponseWriter, r *http.Request) {
		if dep.Readiness == nil {
			response.JSON(w, r, http.StatusOK, map[string]any{"status": "ready", "checks": []any{}})
			return
		}
		ready, results := dep.Readiness.Ready(r.Context())
		if ready {
			response.JSON(w, r, http.StatusOK, map[string]any{"status": "ready", "checks": results})
			return
		}
		response.Error(w, r, http.StatusServiceUnavailable, "DEPENDENCY_UNREADY", "dependencies are not ready", map[string]any{"checks": results})
	})
	if dep.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", dep.MetricsHandler)
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Use(middleware.BodyLimit(jsonBodyLimit), authLimiter)
			r.Get("/linkedin/login", dep.AuthHandler.LinkedInLogin)
			r.Post("/linkedin/callback", dep.AuthHandler.LinkedInCallback)
			r.Post("/local/register", dep.AuthHandler.LocalRegister)
			r.Post("/local/login", dep.AuthHandler.LocalLogin)
			r.With(middleware.AuthMiddleware(dep.JWTManager)).Post("/local/credential", dep.AuthHandler.AttachCredential)
		})

		r.Group(func(r chi.Router) {
			// Authenticate first so the API limiter keys by account.
			r.Use(middleware.AuthMiddleware(dep.JWTManager), apiLimiter)

			r.Get("/me", dep.AccountHandler.Me)
			r.Get("/accounts/{id}/recommendations", dep.AccountHandler.Recommendations)

			r.Route("/recommendations", func(r chi.Router) {
				r.Group(func(r chi.Router) {
					r.Use(middleware.BodyLimit(jsonBodyLimit))
					if dep.Idempotency != nil {
						r.With(dep.Idempotency.Middleware("recommendations.create")).Post("/", dep.RecommendationHandler.Create)
					} else {
						r.Post("/", dep.RecommendationHandler.Create)
					}
					r.Get("/received", dep.RecommendationHandler.Received)
					r.Get("/authored", dep.RecommendationHandler.Authored)
					r.Get("/{id}", dep.RecommendationHandler.Get)
					r.Patch("/{id}/status", dep.RecommendationHandler.SetStatus)
					r.Delete("/{id}", dep.RecommendationHandler.Delete)
					r.Get("/{id}/attachments/{attachment_id}", dep.RecommendationHandler.AttachmentURL)
				})
				r.With(middleware.BodyLimit(attachmentBodyLimit)).Post("/{id}/attachments", dep.RecommendationHandler.UploadAttachment)
			})
		})
	})

	var h http.Handler = r
	if dep.EnableOTelHTTP {
		h = otelhttp.NewHandler(r, "http.server")
	}
	return h
}
