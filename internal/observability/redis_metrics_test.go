package observability

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func TestRedisKeyspaceHookAttributesCommands(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	defer func() { _ = provider.Shutdown(ctx) }()

	hook, err := newRedisKeyspaceHook(provider.Meter("redis-test"), "endorse", client.PoolStats)
	if err != nil {
		t.Fatalf("new hook: %v", err)
	}
	client.AddHook(hook)

	if err := client.Set(ctx, "endorse:oauth_state:abc", "1", 0).Err(); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := client.Get(ctx, "endorse:oauth_state:missing").Err(); err != redis.Nil {
		t.Fatalf("expected redis.Nil, got %v", err)
	}
	pipe := client.TxPipeline()
	pipe.SAdd(ctx, "endorse:profile_cache:index:r1", "k")
	pipe.Expire(ctx, "endorse:profile_cache:index:r1", 0)
	if _, err := pipe.Exec(ctx); err != nil {
		t.Fatalf("pipeline: %v", err)
	}
	_ = client.Get(ctx, "other:key").Err()

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(ctx, &rm); err != nil {
		t.Fatalf("collect: %v", err)
	}
	got := map[string]int64{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != "redis.keyspace.commands" {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			if !ok {
				t.Fatalf("unexpected data type %T", m.Data)
			}
			for _, dp := range sum.DataPoints {
				ks, _ := dp.Attributes.Value("keyspace")
				outcome, _ := dp.Attributes.Value("outcome")
				got[ks.AsString()+"/"+outcome.AsString()] += dp.Value
			}
		}
	}

	want := map[string]int64{
		"oauth_state/ok":   1,
		"oauth_state/miss": 1,
		"profile_cache/ok": 2,
		"foreign/miss":     1,
	}
	for k, v := range want {
		if got[k] != v {
			t.Fatalf("%s: expected %d, got %d (all=%v)", k, v, got[k], got)
		}
	}
}

func TestFirstKeyHandlesScripts(t *testing.T) {
	ctx := context.Background()
	cmd := redis.NewCmd(ctx, "evalsha", "deadbeef", 1, "endorse:rl:ip:1", 60000)
	if got := firstKey(cmd); got != "endorse:rl:ip:1" {
		t.Fatalf("unexpected key %q", got)
	}
	if got := firstKey(redis.NewStatusCmd(ctx, "ping")); got != "" {
		t.Fatalf("expected no key for ping, got %q", got)
	}
}
