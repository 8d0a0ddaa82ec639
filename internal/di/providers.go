package di

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/wire"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/sandeepkv93/endorsement-backend/internal/app"
	"github.com/sandeepkv93/endorsement-backend/internal/config"
	"github.com/sandeepkv93/endorsement-backend/internal/database"
	"github.com/sandeepkv93/endorsement-backend/internal/health"
	"github.com/sandeepkv93/endorsement-backend/internal/http/handler"
	"github.com/sandeepkv93/endorsement-backend/internal/http/middleware"
	"github.com/sandeepkv93/endorsement-backend/internal/http/router"
	"github.com/sandeepkv93/endorsement-backend/internal/observability"
	"github.com/sandeepkv93/endorsement-backend/internal/repository"
	"github.com/sandeepkv93/endorsement-backend/internal/security"
	"github.com/sandeepkv93/endorsement-backend/internal/service"
)

var ConfigSet = wire.NewSet(config.Load)

var ObservabilitySet = wire.NewSet(
	provideObservabilityRuntime,
	provideAppLogger,
	provideDomainMetrics,
)

var RuntimeInfraSet = wire.NewSet(
	provideRuntimeDB,
	provideRedisClient,
	provideDocuments,
	provideEvents,
	provideDocumentStore,
	provideEventPublisher,
	provideReadinessRunner,
)

var RepositorySet = wire.NewSet(
	repository.NewAccountRepository,
	repository.NewLocalCredentialRepository,
	repository.NewRecommendationRepository,
)

var SecuritySet = wire.NewSet(
	provideJWTManager,
	providePasswordHasher,
)

var ServiceSet = wire.NewSet(
	provideProviderClient,
	provideStateStore,
	provideCredentialIssuer,
	provideIdentityService,
	provideRecommendationValidator,
	provideProfileCache,
	provideRecommendationService,
	provideSignInGuard,
	provideIdempotencyStore,
	wire.Bind(new(service.IdentityServiceInterface), new(*service.IdentityService)),
	wire.Bind(new(service.RecommendationServiceInterface), new(*service.RecommendationService)),
)

var HTTPSet = wire.NewSet(
	handler.NewAuthHandler,
	handler.NewAccountHandler,
	handler.NewRecommendationHandler,
	provideGlobalRateLimiter,
	provideAuthRateLimiter,
	provideIdempotencyMiddleware,
	provideRouterDependencies,
	router.NewRouter,
	provideHTTPServer,
)

var AppSet = wire.NewSet(provideClosers, provideWorkers, app.New)

// Documents carries the optional MinIO store; Store is a nil interface when storage is off.
type Documents struct {
	Store service.DocumentStore
	minio *service.MinIODocumentStore
}

// Events carries the active publisher and, when Kafka is on, its client.
type Events struct {
	Publisher service.EventPublisher
	kafka     *service.KafkaEventPublisher
}

type GlobalRateLimiter router.RateLimiterFunc
type AuthRateLimiter router.RateLimiterFunc

func provideObservabilityRuntime(cfg *config.Config) (*observability.Runtime, error) {
	bootstrapLogger := observability.NewBootstrapLogger(cfg)
	return observability.InitRuntime(context.Background(), cfg, bootstrapLogger)
}

func provideAppLogger(cfg *config.Config, runtime *observability.Runtime) *slog.Logger {
	return observability.InitLogger(cfg, runtime.LoggerProvider)
}

func provideDomainMetrics(runtime *observability.Runtime) *observability.DomainMetrics {
	return runtime.Domain
}

func provideRuntimeDB(cfg *config.Config, logger *slog.Logger) (*gorm.DB, error) {
	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	if err := database.Migrate(context.Background(), db, logger); err != nil {
		return nil, err
	}
	return db, nil
}

func provideRedisClient(cfg *config.Config, logger *slog.Logger) redis.UniversalClient {
	if !cfg.RedisEnabled {
		return nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	observability.InstrumentRedisClient(client, cfg.RedisKeyPrefix, logger)
	return client
}

func provideDocuments(cfg *config.Config) (*Documents, error) {
	if !cfg.StorageEnabled {
		return &Documents{}, nil
	}
	store, err := service.NewMinIODocumentStore(cfg.MinIOEndpoint, cfg.MinIOAccessKey, cfg.MinIOSecretKey, cfg.MinIOBucket, cfg.MinIOUseSSL)
	if err != nil {
		return nil, err
	}
	return &Documents{Store: store, minio: store}, nil
}

func provideEvents(cfg *config.Config, logger *slog.Logger) (*Events, error) {
	if !cfg.KafkaEnabled {
		return &Events{Publisher: service.NewLogEventPublisher(logger)}, nil
	}
	kafka, err := service.NewKafkaEventPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
	if err != nil {
		return nil, err
	}
	return &Events{Publisher: kafka, kafka: kafka}, nil
}

func provideDocumentStore(d *Documents) service.DocumentStore { return d.Store }

func provideEventPublisher(e *Events) service.EventPublisher { return e.Publisher }

func provideReadinessRunner(cfg *config.Config, db *gorm.DB, redisClient redis.UniversalClient, docs *Documents, events *Events) *health.CheckRunner {
	checkers := []health.Checker{
		health.NewDBChecker(db),
		health.NewRedisChecker(redisClient),
	}
	if docs.minio != nil {
		checkers = append(checkers, health.NewPingChecker("storage", docs.minio))
	}
	if events.kafka != nil {
		checkers = append(checkers, health.NewPingChecker("events", events.kafka))
	}
	return health.NewCheckRunner(cfg.ReadinessCheckTimeout, 0, checkers...)
}

func provideJWTManager(cfg *config.Config) *security.JWTManager {
	return security.NewJWTManager(cfg.JWTIssuer, cfg.JWTAudience, cfg.JWTSessionSecret)
}

func providePasswordHasher() *security.PasswordHasher {
	return security.NewPasswordHasher(security.DefaultArgon2Params)
}

func provideProviderClient(cfg *config.Config) service.ProviderClient {
	return service.NewLinkedInProviderClient(service.LinkedInOptions{
		ClientID:     cfg.LinkedInClientID,
		ClientSecret: cfg.LinkedInClientSecret,
		RedirectURL:  cfg.LinkedInRedirectURL,
		Scopes:       cfg.LinkedInScopes,
		AuthURL:      cfg.LinkedInAuthURL,
		TokenURL:     cfg.LinkedInTokenURL,
		UserInfoURL:  cfg.LinkedInUserInfoURL,
		Timeout:      cfg.ProviderHTTPTimeout,
	})
}

func provideStateStore(cfg *config.Config, redisClient redis.UniversalClient) service.StateStore {
	if redisClient != nil {
		return service.NewRedisStateStore(redisClient, cfg.RedisKeyPrefix)
	}
	return service.NewInMemoryStateStore()
}

func provideSignInGuard(cfg *config.Config, redisClient redis.UniversalClient) service.SignInGuard {
	if redisClient != nil {
		return service.NewRedisSignInGuard(redisClient, cfg.RedisKeyPrefix, service.DefaultSignInPolicy)
	}
	return service.NewInMemorySignInGuard(service.DefaultSignInPolicy)
}

func provideCredentialIssuer(cfg *config.Config, jwt *security.JWTManager) service.CredentialIssuer {
	return service.NewJWTCredentialIssuer(jwt, cfg.SessionTTL)
}

func provideIdentityService(
	cfg *config.Config,
	accounts repository.AccountRepository,
	credentials repository.LocalCredentialRepository,
	provider service.ProviderClient,
	states service.StateStore,
	issuer service.CredentialIssuer,
	hasher *security.PasswordHasher,
	metrics *observability.DomainMetrics,
	logger *slog.Logger,
) *service.IdentityService {
	return service.NewIdentityService(accounts, credentials, provider, states, issuer, hasher, metrics, logger, service.IdentityOptions{
		StateTTL:          cfg.OAuthStateTTL,
		RedirectURI:       cfg.LinkedInRedirectURL,
		PasswordMinLength: cfg.PasswordMinLength,
	})
}

func provideRecommendationValidator() *service.RecommendationValidator {
	return service.NewRecommendationValidator(service.DefaultRecommendationLimits)
}

func provideRecommendationService(
	cfg *config.Config,
	recs repository.RecommendationRepository,
	accounts repository.AccountRepository,
	validator *service.RecommendationValidator,
	documents service.DocumentStore,
	events service.EventPublisher,
	cache service.ProfileCache,
	metrics *observability.DomainMetrics,
	logger *slog.Logger,
) *service.RecommendationService {
	return service.NewRecommendationService(recs, accounts, validator, documents, events, cache, metrics, logger, service.PagingOptions{
		DefaultPageSize: cfg.RecommendationPageSize,
		MaxPageSize:     cfg.RecommendationMaxPageSize,
		PublicCacheTTL:  cfg.ProfileCacheTTL,
	})
}

func provideProfileCache(cfg *config.Config, redisClient redis.UniversalClient) service.ProfileCache {
	if cfg.ProfileCacheTTL <= 0 {
		return service.NewNoopProfileCache()
	}
	if redisClient != nil {
		return service.NewRedisProfileCache(redisClient, cfg.RedisKeyPrefix+":profile_cache")
	}
	return service.NewInMemoryProfileCache()
}

func provideGlobalRateLimiter(cfg *config.Config, redisClient redis.UniversalClient) GlobalRateLimiter {
	if cfg.RateLimitRedisEnabled && redisClient != nil {
		limiter := middleware.NewRedisFixedWindowLimiter(redisClient, cfg.RedisKeyPrefix+":api")
		return GlobalRateLimiter(middleware.NewDistributedRateLimiter(limiter, cfg.APIRateLimitPerMin, time.Minute, middleware.FailOpen, "api").Middleware())
	}
	return GlobalRateLimiter(middleware.NewRateLimiter(cfg.APIRateLimitPerMin, time.Minute, "api").Middleware())
}

func provideAuthRateLimiter(cfg *config.Config, redisClient redis.UniversalClient) AuthRateLimiter {
	if cfg.RateLimitRedisEnabled && redisClient != nil {
		limiter := middleware.NewRedisFixedWindowLimiter(redisClient, cfg.RedisKeyPrefix+":auth")
		return AuthRateLimiter(middleware.NewDistributedRateLimiter(limiter, cfg.AuthRateLimitPerMin, time.Minute, middleware.FailClosed, "auth").Middleware())
	}
	return AuthRateLimiter(middleware.NewRateLimiter(cfg.AuthRateLimitPerMin, time.Minute, "auth").Middleware())
}

func provideIdempotencyStore(db *gorm.DB) *service.DBIdempotencyStore {
	return service.NewDBIdempotencyStore(db)
}

func provideIdempotencyMiddleware(cfg *config.Config, store *service.DBIdempotencyStore) *middleware.IdempotencyMiddleware {
	return middleware.NewIdempotencyMiddleware(store, cfg.IdempotencyTTL)
}

func provideRouterDependencies(
	authHandler *handler.AuthHandler,
	accountHandler *handler.AccountHandler,
	recommendationHandler *handler.RecommendationHandler,
	jwt *security.JWTManager,
	globalRateLimiter GlobalRateLimiter,
	authRateLimiter AuthRateLimiter,
	readiness *health.CheckRunner,
	idempotency *middleware.IdempotencyMiddleware,
	runtime *observability.Runtime,
	cfg *config.Config,
) router.Dependencies {
	dep := router.Dependencies{
		AuthHandler:           authHandler,
		AccountHandler:        accountHandler,
		RecommendationHandler: recommendationHandler,
		JWTManager:            jwt,
		CORSOrigins:           cfg.CORSAllowedOrigins,
		AuthRateLimitRPM:      cfg.AuthRateLimitPerMin,
		APIRateLimitRPM:       cfg.APIRateLimitPerMin,
		GlobalRateLimiter:     router.RateLimiterFunc(globalRateLimiter),
		AuthRateLimiter:       router.RateLimiterFunc(authRateLimiter),
		Readiness:             readiness,
		Idempotency:           idempotency,
		EnableOTelHTTP:        cfg.OTELMetricsEnabled || cfg.OTELTracingEnabled,
	}
	if runtime != nil && runtime.Registry != nil {
		dep.MetricsHandler = observability.PrometheusHandler(runtime.Registry)
	}
	return dep
}

func provideHTTPServer(cfg *config.Config, h http.Handler) *http.Server {
	return &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           h,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
	}
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

func provideClosers(events *Events) []io.Closer {
	var closers []io.Closer
	if events.kafka != nil {
		kafka := events.kafka
		closers = append(closers, closerFunc(func() error {
			kafka.Close()
			return nil
		}))
	}
	return closers
}

const idempotencyCleanupBatch = 500

func provideWorkers(cfg *config.Config, store *service.DBIdempotencyStore, logger *slog.Logger) []app.Worker {
	return []app.Worker{
		func(ctx context.Context) {
			store.RunCleanupLoop(ctx, cfg.IdempotencyCleanupInterval, idempotencyCleanupBatch, logger)
		},
	}
}

// MigrationRunner backs the migrate and seed CLIs.
type MigrationRunner struct {
	DB     *gorm.DB
	Logger *slog.Logger
	Hasher *security.PasswordHasher
}

func NewMigrationRunner(db *gorm.DB, logger *slog.Logger, hasher *security.PasswordHasher) *MigrationRunner {
	return &MigrationRunner{DB: db, Logger: logger, Hasher: hasher}
}

func (m *MigrationRunner) Up(ctx context.Context) error {
	return database.Migrate(ctx, m.DB, m.Logger)
}

func (m *MigrationRunner) Status(ctx context.Context) error {
	return database.MigrationStatus(ctx, m.DB, m.Logger)
}

func (m *MigrationRunner) Down(ctx context.Context) error {
	return database.Rollback(ctx, m.DB, m.Logger)
}

func (m *MigrationRunner) SeedDemo(ctx context.Context, password string) (*database.SeedReport, error) {
	return database.SeedDemo(ctx, m.DB, m.Hasher, password)
}

func (m *MigrationRunner) Close() error {
	sqlDB, err := m.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func provideToolLogger(cfg *config.Config) *slog.Logger {
	return observability.NewBootstrapLogger(cfg)
}

func provideOpenDB(cfg *config.Config) (*gorm.DB, error) {
	return database.Open(cfg.DatabaseURL)
}
