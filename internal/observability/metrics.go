package observability

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/sandeepkv93/endorsement-backend/internal/config"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/exemplar"
)

const meterName = "endorsement-backend"

type AppMetrics struct {
	authLoginCounter             metric.Int64Counter
	authReqDuration              metric.Float64Histogram
	accessTokenValidationCounter metric.Int64Counter
	oauthStateCounter            metric.Int64Counter
	identityResolutionCounter    metric.Int64Counter
	providerReqDuration          metric.Float64Histogram
	providerErrorsCounter        metric.Int64Counter
	recommendationOpsCounter     metric.Int64Counter
	recommendationOpDuration     metric.Float64Histogram
	recommendationPageSize       metric.Float64Histogram
	documentStorageCounter       metric.Int64Counter
	profileCacheCounter          metric.Int64Counter
	idempotencyCounter           metric.Int64Counter
	idempotencyCleanupDeleted    metric.Int64Counter
	eventPublishCounter          metric.Int64Counter
	rateLimitDecisionCounter     metric.Int64Counter
	rateLimitRetryAfter          metric.Float64Histogram
	healthCheckResultCounter     metric.Int64Counter
	healthCheckDuration          metric.Float64Histogram
	databaseStartupCounter       metric.Int64Counter
	databaseStartupDuration      metric.Float64Histogram
	repositoryOpsCounter         metric.Int64Counter
	toolCommandRuns              metric.Int64Counter
	toolCommandDuration          metric.Float64Histogram
}

var (
	metricsMu  sync.RWMutex
	appMetrics *AppMetrics
)

var secondsBuckets = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10}

func InitMetrics(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*sdkmetric.MeterProvider, error) {
	if !cfg.OTELMetricsEnabled {
		mp := sdkmetric.NewMeterProvider()
		otel.SetMeterProvider(mp)
		logger.Info("otel metrics disabled")
		return mp, nil
	}

	opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithEndpoint(cfg.OTELExporterOTLPEndpoint)}
	if cfg.OTELExporterOTLPInsecure {
		opts = append(opts, otlpmetricgrpc.WithInsecure())
	}
	exporter, err := otlpmetricgrpc.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create otlp metric exporter: %w", err)
	}
	res, err := serviceResource(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create metric resource: %w", err)
	}

	views := make([]sdkmetric.Option, 0, 3)
	for _, name := range []string{"auth.request.duration", "provider.request.duration", "recommendation.operation.duration"} {
		views = append(views, sdkmetric.WithView(sdkmetric.NewView(
			sdkmetric.Instrument{Name: name},
			sdkmetric.Stream{Aggregation: sdkmetric.AggregationExplicitBucketHistogram{Boundaries: secondsBuckets}},
		)))
	}
	mpOpts := append([]sdkmetric.Option{
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(cfg.OTELMetricsExportInterval))),
		sdkmetric.WithExemplarFilter(exemplar.TraceBasedFilter),
	}, views...)
	mp := sdkmetric.NewMeterProvider(mpOpts...)
	otel.SetMeterProvider(mp)

	m, err := newAppMetrics(mp.Meter(meterName))
	if err != nil {
		return nil, err
	}
	metricsMu.Lock()
	appMetrics = m
	metricsMu.Unlock()

	logger.Info("otel metrics initialized", "endpoint", cfg.OTELExporterOTLPEndpoint)
	return mp, nil
}

// newAppMetrics creates every instrument, stopping at the first failure.
func newAppMetrics(meter metric.Meter) (*AppMetrics, error) {
	var firstErr error
	counter := func(name, desc string) metric.Int64Counter {
		c, err := meter.Int64Counter(name, metric.WithDescription(desc))
		if err != nil && firstErr == nil {
			firstErr = fmt.Errorf("create counter %s: %w", name, err)
		}
		return c
	}
	seconds := func(name, desc string) metric.Float64Histogram {
		h, err := meter.Float64Histogram(name, metric.WithUnit("s"), metric.WithDescription(desc))
		if err != nil && firstErr == nil {
			firstErr = fmt.Errorf("create histogram %s: %w", name, err)
		}
		return h
	}
	plain := func(name, desc string) metric.Float64Histogram {
		h, err := meter.Float64Histogram(name, metric.WithDescription(desc))
		if err != nil && firstErr == nil {
			firstErr = fmt.Errorf("create histogram %s: %w", name, err)
		}
		return h
	}

	m := &AppMetrics{
		authLoginCounter:             counter("auth.login.attempts", "Sign-in attempts by provider and status"),
		authReqDuration:              seconds("auth.request.duration", "Duration of auth endpoint requests in seconds"),
		accessTokenValidationCounter: counter("auth.access_token.validation.events", "Bearer credential validation outcomes"),
		oauthStateCounter:            counter("auth.oauth.state.events", "OAuth anti-forgery state issue and consume outcomes"),
		identityResolutionCounter:    counter("identity.resolution.events", "Outcome of resolving a verified identity to an account"),
		providerReqDuration:          seconds("provider.request.duration", "Duration of identity provider calls in seconds"),
		providerErrorsCounter:        counter("provider.errors", "Identity provider failures by reason"),
		recommendationOpsCounter:     counter("recommendation.operations", "Recommendation lifecycle operations by outcome"),
		recommendationOpDuration:     seconds("recommendation.operation.duration", "Duration of recommendation operations in seconds"),
		recommendationPageSize:       plain("recommendation.list.page_size", "Effective page size of recommendation listings"),
		documentStorageCounter:       counter("document.storage.events", "Supporting document storage operations"),
		profileCacheCounter:          counter("profile.cache.events", "Public profile listing cache lookups and invalidations"),
		idempotencyCounter:           counter("http.idempotency.events", "Idempotency-Key handling outcomes by scope"),
		idempotencyCleanupDeleted:    counter("idempotency.cleanup.deleted", "Expired idempotency records removed by the sweeper"),
		eventPublishCounter:          counter("domain.event.publish", "Domain event publish outcomes"),
		rateLimitDecisionCounter:     counter("http.rate_limit.decisions", "Rate limiter decisions"),
		rateLimitRetryAfter:          seconds("http.rate_limit.retry_after", "Retry-after duration in seconds for throttled requests"),
		healthCheckResultCounter:     counter("health.check.results", "Readiness dependency check outcomes"),
		healthCheckDuration:          seconds("health.check.duration", "Duration of health dependency checks in seconds"),
		databaseStartupCounter:       counter("database.startup.events", "Database connect and migrate outcomes"),
		databaseStartupDuration:      seconds("database.startup.duration", "Duration of database startup phases in seconds"),
		repositoryOpsCounter:         counter("repository.operations", "Repository operations by outcome"),
		toolCommandRuns:              counter("tool.command.runs", "CLI tool command runs"),
		toolCommandDuration:          seconds("tool.command.duration", "Duration of CLI tool commands in seconds"),
	}
	if firstErr != nil {
		return nil, firstErr
	}
	return m, nil
}

func loadedMetrics() *AppMetrics {
	metricsMu.RLock()
	defer metricsMu.RUnlock()
	return appMetrics
}

func RecordAuthLogin(ctx context.Context, provider, status string) {
	m := loadedMetrics()
	if m == nil {
		return
	}
	m.authLoginCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("provider", provider),
		attribute.String("status", status),
	))
}

func RecordAuthRequestDuration(ctx context.Context, endpoint, status string, duration time.Duration) {
	m := loadedMetrics()
	if m == nil {
		return
	}
	m.authReqDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(
		attribute.String("endpoint", endpoint),
		attribute.String("status", status),
	))
}

func RecordAccessTokenValidation(ctx context.Context, outcome, source string) {
	m := loadedMetrics()
	if m == nil {
		return
	}
	m.accessTokenValidationCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("outcome", outcome),
		attribute.String("source", source),
	))
}

func RecordOAuthStateEvent(ctx context.Context, action, outcome string) {
	m := loadedMetrics()
	if m == nil {
		return
	}
	m.oauthStateCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("action", action),
		attribute.String("outcome", outcome),
	))
}

func RecordIdentityResolution(ctx context.Context, outcome string) {
	m := loadedMetrics()
	if m == nil {
		return
	}
	m.identityResolutionCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

func RecordProviderRequestDuration(ctx context.Context, stage, status string, duration time.Duration) {
	m := loadedMetrics()
	if m == nil {
		return
	}
	m.providerReqDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(
		attribute.String("stage", stage),
		attribute.String("status", status),
	))
}

func RecordProviderError(ctx context.Context, reason string) {
	m := loadedMetrics()
	if m == nil {
		return
	}
	m.providerErrorsCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", reason)))
}

func RecordRecommendationOperation(ctx context.Context, operation, outcome string, duration time.Duration) {
	m := loadedMetrics()
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("operation", operation),
		attribute.String("outcome", outcome),
	)
	m.recommendationOpsCounter.Add(ctx, 1, attrs)
	m.recommendationOpDuration.Record(ctx, duration.Seconds(), attrs)
}

func RecordRecommendationPageSize(ctx context.Context, listing string, pageSize int) {
	m := loadedMetrics()
	if m == nil {
		return
	}
	m.recommendationPageSize.Record(ctx, float64(pageSize), metric.WithAttributes(attribute.String("listing", listing)))
}

func RecordDocumentStorageEvent(ctx context.Context, operation, outcome string) {
	m := loadedMetrics()
	if m == nil {
		return
	}
	m.documentStorageCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("operation", operation),
		attribute.String("outcome", outcome),
	))
}

func RecordProfileCacheEvent(ctx context.Context, operation, outcome string) {
	m := loadedMetrics()
	if m == nil {
		return
	}
	m.profileCacheCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("operation", operation),
		attribute.String("outcome", outcome),
	))
}

func RecordIdempotencyEvent(ctx context.Context, scope, outcome string) {
	m := loadedMetrics()
	if m == nil {
		return
	}
	m.idempotencyCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("scope", scope),
		attribute.String("outcome", outcome),
	))
}

func RecordIdempotencyCleanup(ctx context.Context, outcome string, deleted int64) {
	m := loadedMetrics()
	if m == nil {
		return
	}
	m.idempotencyCleanupDeleted.Add(ctx, deleted, metric.WithAttributes(attribute.String("outcome", outcome)))
}

func RecordEventPublish(ctx context.Context, eventType, sink, outcome string) {
	m := loadedMetrics()
	if m == nil {
		return
	}
	m.eventPublishCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("event_type", eventType),
		attribute.String("sink", sink),
		attribute.String("outcome", outcome),
	))
}

func RecordRateLimitDecision(ctx context.Context, scope, outcome, mode, keyType string) {
	m := loadedMetrics()
	if m == nil {
		return
	}
	m.rateLimitDecisionCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("scope", scope),
		attribute.String("outcome", outcome),
		attribute.String("mode", mode),
		attribute.String("key_type", keyType),
	))
}

func RecordRateLimitRetryAfter(ctx context.Context, scope string, retryAfter time.Duration) {
	m := loadedMetrics()
	if m == nil {
		return
	}
	m.rateLimitRetryAfter.Record(ctx, retryAfter.Seconds(), metric.WithAttributes(attribute.String("scope", scope)))
}

func RecordHealthCheckResult(ctx context.Context, check, outcome string) {
	m := loadedMetrics()
	if m == nil {
		return
	}
	m.healthCheckResultCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("check", check),
		attribute.String("outcome", outcome),
	))
}

func RecordHealthCheckDuration(ctx context.Context, check string, duration time.Duration) {
	m := loadedMetrics()
	if m == nil {
		return
	}
	m.healthCheckDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attribute.String("check", check)))
}

func RecordDatabaseStartupEvent(ctx context.Context, phase, outcome string) {
	m := loadedMetrics()
	if m == nil {
		return
	}
	m.databaseStartupCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("phase", phase),
		attribute.String("outcome", outcome),
	))
}

func RecordDatabaseStartupDuration(ctx context.Context, phase string, duration time.Duration) {
	m := loadedMetrics()
	if m == nil {
		return
	}
	m.databaseStartupDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attribute.String("phase", phase)))
}

func RecordRepositoryOperation(ctx context.Context, repo, operation, outcome string) {
	m := loadedMetrics()
	if m == nil {
		return
	}
	m.repositoryOpsCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("repository", repo),
		attribute.String("operation", operation),
		attribute.String("outcome", outcome),
	))
}

func RecordToolCommandRun(ctx context.Context, tool, command, outcome string, duration time.Duration) {
	m := loadedMetrics()
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("tool", tool),
		attribute.String("command", command),
		attribute.String("outcome", outcome),
	)
	m.toolCommandRuns.Add(ctx, 1, attrs)
	m.toolCommandDuration.Record(ctx, duration.Seconds(), attrs)
}
