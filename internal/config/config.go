package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	Env      string `env:"APP_ENV" envDefault:"development"`
	HTTPPort string `env:"HTTP_PORT" envDefault:"8080"`

	DatabaseURL string `env:"DATABASE_URL"`

	JWTIssuer        string        `env:"JWT_ISSUER" envDefault:"endorsement-backend"`
	JWTAudience      string        `env:"JWT_AUDIENCE" envDefault:"endorsement-backend-api"`
	JWTSessionSecret string        `env:"JWT_SESSION_SECRET"`
	SessionTTL       time.Duration `env:"SESSION_TTL" envDefault:"24h"`
	OAuthStateTTL    time.Duration `env:"OAUTH_STATE_TTL" envDefault:"10m"`

	LinkedInClientID     string        `env:"LINKEDIN_CLIENT_ID"`
	LinkedInClientSecret string        `env:"LINKEDIN_CLIENT_SECRET"`
	LinkedInRedirectURL  string        `env:"LINKEDIN_REDIRECT_URL" envDefault:"http://localhost:3000/auth/linkedin/callback"`
	LinkedInScopes       []string      `env:"LINKEDIN_SCOPES" envDefault:"openid,profile,email" envSeparator:","`
	LinkedInAuthURL      string        `env:"LINKEDIN_AUTH_URL" envDefault:"https://www.linkedin.com/oauth/v2/authorization"`
	LinkedInTokenURL     string        `env:"LINKEDIN_TOKEN_URL" envDefault:"https://www.linkedin.com/oauth/v2/accessToken"`
	LinkedInUserInfoURL  string        `env:"LINKEDIN_USERINFO_URL" envDefault:"https://api.linkedin.com/v2/userinfo"`
	ProviderHTTPTimeout  time.Duration `env:"PROVIDER_HTTP_TIMEOUT" envDefault:"10s"`

	PasswordMinLength int `env:"PASSWORD_MIN_LENGTH" envDefault:"8"`

	RecommendationPageSize    int `env:"RECOMMENDATION_PAGE_SIZE" envDefault:"10"`
	RecommendationMaxPageSize int `env:"RECOMMENDATION_MAX_PAGE_SIZE" envDefault:"50"`

	ProfileCacheTTL time.Duration `env:"PROFILE_CACHE_TTL" envDefault:"30s"`

	IdempotencyTTL             time.Duration `env:"IDEMPOTENCY_TTL" envDefault:"24h"`
	IdempotencyCleanupInterval time.Duration `env:"IDEMPOTENCY_CLEANUP_INTERVAL" envDefault:"5m"`

	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envDefault:"http://localhost:3000" envSeparator:","`

	AuthRateLimitPerMin   int  `env:"AUTH_RATE_LIMIT_PER_MIN" envDefault:"30"`
	APIRateLimitPerMin    int  `env:"API_RATE_LIMIT_PER_MIN" envDefault:"120"`
	RateLimitRedisEnabled bool `env:"RATE_LIMIT_REDIS_ENABLED" envDefault:"false"`

	RedisEnabled   bool   `env:"REDIS_ENABLED" envDefault:"false"`
	RedisAddr      string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPassword  string `env:"REDIS_PASSWORD"`
	RedisDB        int    `env:"REDIS_DB" envDefault:"0"`
	RedisKeyPrefix string `env:"REDIS_KEY_PREFIX" envDefault:"endorse"`

	StorageEnabled bool   `env:"STORAGE_ENABLED" envDefault:"false"`
	MinIOEndpoint  string `env:"MINIO_ENDPOINT" envDefault:"localhost:9000"`
	MinIOAccessKey string `env:"MINIO_ACCESS_KEY"`
	MinIOSecretKey string `env:"MINIO_SECRET_KEY"`
	MinIOBucket    string `env:"MINIO_BUCKET" envDefault:"recommendation-documents"`
	MinIOUseSSL    bool   `env:"MINIO_USE_SSL" envDefault:"false"`

	KafkaEnabled bool     `env:"KAFKA_ENABLED" envDefault:"false"`
	KafkaBrokers []string `env:"KAFKA_BROKERS" envDefault:"localhost:9092" envSeparator:","`
	KafkaTopic   string   `env:"KAFKA_TOPIC" envDefault:"recommendation-events"`

	MetricsPrometheusEnabled bool `env:"METRICS_PROMETHEUS_ENABLED" envDefault:"true"`

	ReadinessCheckTimeout        time.Duration `env:"READINESS_CHECK_TIMEOUT" envDefault:"1s"`
	ShutdownTimeout              time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"20s"`
	ShutdownHTTPDrainTimeout     time.Duration `env:"SHUTDOWN_HTTP_DRAIN_TIMEOUT" envDefault:"10s"`
	ShutdownObservabilityTimeout time.Duration `env:"SHUTDOWN_OBSERVABILITY_TIMEOUT" envDefault:"8s"`

	OTELServiceName           string        `env:"OTEL_SERVICE_NAME" envDefault:"endorsement-backend"`
	OTELEnvironment           string        `env:"OTEL_ENVIRONMENT"`
	OTELExporterOTLPEndpoint  string        `env:"OTEL_EXPORTER_OTLP_ENDPOINT" envDefault:"localhost:4317"`
	OTELExporterOTLPInsecure  bool          `env:"OTEL_EXPORTER_OTLP_INSECURE" envDefault:"true"`
	OTELMetricsExportInterval time.Duration `env:"OTEL_METRICS_EXPORT_INTERVAL" envDefault:"10s"`
	OTELTraceSamplingRatio    float64       `env:"OTEL_TRACE_SAMPLING_RATIO" envDefault:"1.0"`
	OTELMetricsEnabled        bool          `env:"OTEL_METRICS_ENABLED" envDefault:"true"`
	OTELTracingEnabled        bool          `env:"OTEL_TRACING_ENABLED" envDefault:"true"`
	OTELLogsEnabled           bool          `env:"OTEL_LOGS_ENABLED" envDefault:"true"`
	OTELLogLevel              string        `env:"OTEL_LOG_LEVEL" envDefault:"info"`
}

func Load() (*Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}
	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) normalize() {
	c.Env = strings.ToLower(strings.TrimSpace(c.Env))
	c.OTELLogLevel = strings.ToLower(strings.TrimSpace(c.OTELLogLevel))
	if c.OTELEnvironment == "" {
		c.OTELEnvironment = c.Env
	}
	c.LinkedInScopes = trimAll(c.LinkedInScopes)
	c.CORSAllowedOrigins = trimAll(c.CORSAllowedOrigins)
	c.KafkaBrokers = trimAll(c.KafkaBrokers)
}

func (c *Config) Validate() error {
	var errs []string
	if c.DatabaseURL == "" {
		errs = append(errs, "DATABASE_URL is required")
	}
	if len(c.JWTSessionSecret) < 32 {
		errs = append(errs, "JWT_SESSION_SECRET must be at least 32 chars")
	}
	if c.SessionTTL <= 0 || c.SessionTTL > 7*24*time.Hour {
		errs = append(errs, "SESSION_TTL must be between 1s and 7d")
	}
	if c.OAuthStateTTL <= 0 || c.OAuthStateTTL > time.Hour {
		errs = append(errs, "OAUTH_STATE_TTL must be between 1s and 1h")
	}
	if c.LinkedInClientID == "" {
		errs = append(errs, "LINKEDIN_CLIENT_ID is required")
	}
	if c.LinkedInClientSecret == "" {
		errs = append(errs, "LINKEDIN_CLIENT_SECRET is required")
	}
	if _, err := url.ParseRequestURI(c.LinkedInRedirectURL); err != nil {
		errs = append(errs, "LINKEDIN_REDIRECT_URL must be an absolute URL")
	}
	if c.ProviderHTTPTimeout <= 0 {
		errs = append(errs, "PROVIDER_HTTP_TIMEOUT must be > 0")
	}
	if c.PasswordMinLength < 1 {
		errs = append(errs, "PASSWORD_MIN_LENGTH must be >= 1")
	}
	if c.RecommendationPageSize <= 0 || c.RecommendationMaxPageSize < c.RecommendationPageSize {
		errs = append(errs, "RECOMMENDATION_PAGE_SIZE must be > 0 and <= RECOMMENDATION_MAX_PAGE_SIZE")
	}
	if c.IdempotencyTTL <= 0 || c.IdempotencyCleanupInterval <= 0 {
		errs = append(errs, "IDEMPOTENCY_TTL and IDEMPOTENCY_CLEANUP_INTERVAL must be > 0")
	}
	if c.ProfileCacheTTL < 0 {
		errs = append(errs, "PROFILE_CACHE_TTL must be >= 0")
	}
	if c.AuthRateLimitPerMin <= 0 {
		errs = append(errs, "AUTH_RATE_LIMIT_PER_MIN must be > 0")
	}
	if c.APIRateLimitPerMin <= 0 {
		errs = append(errs, "API_RATE_LIMIT_PER_MIN must be > 0")
	}
	if (c.RedisEnabled || c.RateLimitRedisEnabled) && c.RedisAddr == "" {
		errs = append(errs, "REDIS_ADDR is required when redis is enabled")
	}
	if c.RateLimitRedisEnabled && !c.RedisEnabled {
		errs = append(errs, "RATE_LIMIT_REDIS_ENABLED requires REDIS_ENABLED=true")
	}
	if c.StorageEnabled && (c.MinIOEndpoint == "" || c.MinIOAccessKey == "" || c.MinIOSecretKey == "" || c.MinIOBucket == "") {
		errs = append(errs, "MINIO_ENDPOINT, MINIO_ACCESS_KEY, MINIO_SECRET_KEY and MINIO_BUCKET are required when STORAGE_ENABLED=true")
	}
	if c.KafkaEnabled && (len(c.KafkaBrokers) == 0 || c.KafkaTopic == "") {
		errs = append(errs, "KAFKA_BROKERS and KAFKA_TOPIC are required when KAFKA_ENABLED=true")
	}
	if c.ReadinessCheckTimeout <= 0 {
		errs = append(errs, "READINESS_CHECK_TIMEOUT must be > 0")
	}
	if c.ShutdownTimeout <= 0 || c.ShutdownHTTPDrainTimeout <= 0 || c.ShutdownObservabilityTimeout <= 0 {
		errs = append(errs, "shutdown timeouts must be > 0")
	}
	if c.ShutdownHTTPDrainTimeout > c.ShutdownTimeout {
		errs = append(errs, "SHUTDOWN_HTTP_DRAIN_TIMEOUT must be <= SHUTDOWN_TIMEOUT")
	}
	if (c.OTELMetricsEnabled || c.OTELTracingEnabled || c.OTELLogsEnabled) && c.OTELExporterOTLPEndpoint == "" {
		errs = append(errs, "OTEL_EXPORTER_OTLP_ENDPOINT is required when OTel is enabled")
	}
	if c.OTELTraceSamplingRatio < 0 || c.OTELTraceSamplingRatio > 1 {
		errs = append(errs, "OTEL_TRACE_SAMPLING_RATIO must be between 0 and 1")
	}
	if c.OTELMetricsExportInterval <= 0 {
		errs = append(errs, "OTEL_METRICS_EXPORT_INTERVAL must be > 0")
	}
	if !isValidLogLevel(c.OTELLogLevel) {
		errs = append(errs, "OTEL_LOG_LEVEL must be one of debug, info, warn, error")
	}
	if c.IsProduction() {
		errs = append(errs, c.productionViolations()...)
	}
	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

// productionViolations holds the rules relaxed for local profiles.
func (c *Config) productionViolations() []string {
	var errs []string
	if u, err := url.Parse(c.LinkedInRedirectURL); err == nil && u.Scheme != "https" {
		errs = append(errs, "LINKEDIN_REDIRECT_URL must use https in production")
	}
	for _, origin := range c.CORSAllowedOrigins {
		if origin == "*" {
			errs = append(errs, "CORS_ALLOWED_ORIGINS must not contain * in production")
			break
		}
	}
	if !c.RedisEnabled {
		errs = append(errs, "REDIS_ENABLED must be true in production so OAuth state survives restarts")
	}
	if c.StorageEnabled && !c.MinIOUseSSL {
		errs = append(errs, "MINIO_USE_SSL must be true in production")
	}
	if c.PasswordMinLength < 8 {
		errs = append(errs, "PASSWORD_MIN_LENGTH must be >= 8 in production")
	}
	return errs
}

func (c *Config) IsProduction() bool {
	switch c.Env {
	case "production", "prod":
		return true
	default:
		return false
	}
}

func isValidLogLevel(v string) bool {
	switch strings.ToLower(v) {
	case "debug", "info", "warn", "error":
		return true
	default:
		return false
	}
}

func trimAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, p := range in {
		if trim := strings.TrimSpace(p); trim != "" {
			out = append(out, trim)
		}
	}
	return out
}
