package observability

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/sandeepkv93/endorsement-backend/internal/config"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func recordEveryHelper(ctx context.Context) {
	RecordAuthLogin(ctx, "linkedin", "success")
	RecordAuthRequestDuration(ctx, "linkedin_callback", "success", 10*time.Millisecond)
	RecordAccessTokenValidation(ctx, "ok", "header")
	RecordOAuthStateEvent(ctx, "consume", "invalid")
	RecordIdentityResolution(ctx, "created")
	RecordProviderRequestDuration(ctx, "exchange", "success", 12*time.Millisecond)
	RecordProviderError(ctx, "timeout")
	RecordRecommendationOperation(ctx, "create", "success", 3*time.Millisecond)
	RecordRecommendationPageSize(ctx, "received", 10)
	RecordDocumentStorageEvent(ctx, "upload", "success")
	RecordProfileCacheEvent(ctx, "get", "hit")
	RecordIdempotencyEvent(ctx, "recommendations.create", "replayed")
	RecordIdempotencyCleanup(ctx, "success", 3)
	RecordEventPublish(ctx, "recommendation.created", "kafka", "success")
	RecordRateLimitDecision(ctx, "auth", "allow", "distributed", "ip")
	RecordRateLimitRetryAfter(ctx, "auth", time.Second)
	RecordHealthCheckResult(ctx, "db", "ready")
	RecordHealthCheckDuration(ctx, "db", 5*time.Millisecond)
	RecordDatabaseStartupEvent(ctx, "connect", "success")
	RecordDatabaseStartupDuration(ctx, "migrate", 15*time.Millisecond)
	RecordRepositoryOperation(ctx, "account", "create_if_absent", "success")
	RecordToolCommandRun(ctx, "migrate", "up", "success", 30*time.Millisecond)
}

func TestRecordMetricHelpersNoPanicWhenUninitialized(t *testing.T) {
	metricsMu.Lock()
	appMetrics = nil
	metricsMu.Unlock()

	recordEveryHelper(context.Background())
}

func TestRecordMetricHelpersEmitExpectedLabelCardinality(t *testing.T) {
	ctx := context.Background()
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	defer func() { _ = provider.Shutdown(ctx) }()

	m, err := newAppMetrics(provider.Meter("observability-test"))
	if err != nil {
		t.Fatalf("create metrics: %v", err)
	}
	metricsMu.Lock()
	appMetrics = m
	metricsMu.Unlock()
	defer func() {
		metricsMu.Lock()
		appMetrics = nil
		metricsMu.Unlock()
	}()

	recordEveryHelper(ctx)

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(ctx, &rm); err != nil {
		t.Fatalf("collect metrics: %v", err)
	}

	expected := map[string]int{
		"auth.login.attempts":                 2,
		"auth.request.duration":               2,
		"auth.access_token.validation.events": 2,
		"auth.oauth.state.events":             2,
		"identity.resolution.events":          1,
		"provider.request.duration":           2,
		"provider.errors":                     1,
		"recommendation.operations":           2,
		"recommendation.operation.duration":   2,
		"recommendation.list.page_size":       1,
		"document.storage.events":             2,
		"profile.cache.events":                2,
		"http.idempotency.events":             2,
		"idempotency.cleanup.deleted":         1,
		"domain.event.publish":                3,
		"http.rate_limit.decisions":           4,
		"http.rate_limit.retry_after":         1,
		"health.check.results":                2,
		"health.check.duration":               1,
		"database.startup.events":             2,
		"database.startup.duration":           1,
		"repository.operations":               3,
		"tool.command.runs":                   3,
		"tool.command.duration":               3,
	}

	observed := collectLabelCardinality(t, rm)
	for metricName, want := range expected {
		got, ok := observed[metricName]
		if !ok {
			t.Fatalf("missing metric datapoint for %s", metricName)
		}
		if got != want {
			t.Fatalf("metric %s label cardinality mismatch: got=%d want=%d", metricName, got, want)
		}
	}
}

func TestInitMetricsDisabledReturnsProvider(t *testing.T) {
	ctx := context.Background()
	cfg := &config.Config{OTELMetricsEnabled: false}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	mp, err := InitMetrics(ctx, cfg, logger)
	if err != nil {
		t.Fatalf("init metrics disabled: %v", err)
	}
	if mp == nil {
		t.Fatal("expected non-nil meter provider")
	}
	_ = mp.Shutdown(ctx)
}

func collectLabelCardinality(t *testing.T, rm metricdata.ResourceMetrics) map[string]int {
	t.Helper()
	out := map[string]int{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			switch data := m.Data.(type) {
			case metricdata.Sum[int64]:
				if len(data.DataPoints) > 0 {
					out[m.Name] = data.DataPoints[0].Attributes.Len()
				}
			case metricdata.Histogram[float64]:
				if len(data.DataPoints) > 0 {
					out[m.Name] = data.DataPoints[0].Attributes.Len()
				}
			}
		}
	}
	return out
}
