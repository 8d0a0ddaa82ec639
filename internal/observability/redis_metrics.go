package observability

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var redisInstrumentationOnce sync.Once

// InstrumentRedisClient attaches a command hook that attributes traffic to the
// keyspace under keyPrefix (oauth_state, sign_in, profile_cache, rl, ...).
// Only the first call per process installs the hook.
func InstrumentRedisClient(client redis.UniversalClient, keyPrefix string, logger *slog.Logger) {
	if client == nil {
		return
	}
	if logger == nil {
		logger = slog.Default()
	}
	redisInstrumentationOnce.Do(func() {
		hook, err := newRedisKeyspaceHook(otel.Meter(meterName), keyPrefix, client.PoolStats)
		if err != nil {
			logger.Warn("redis instrumentation disabled", "error", err)
			return
		}
		client.AddHook(hook)
	})
}

type redisKeyspaceHook struct {
	prefix   string
	commands metric.Int64Counter
	latency  metric.Float64Histogram
}

func newRedisKeyspaceHook(meter metric.Meter, keyPrefix string, pool func() *redis.PoolStats) (*redisKeyspaceHook, error) {
	commands, err := meter.Int64Counter(
		"redis.keyspace.commands",
		metric.WithDescription("Redis commands by keyspace, command and outcome"),
	)
	if err != nil {
		return nil, err
	}
	latency, err := meter.Float64Histogram(
		"redis.keyspace.duration",
		metric.WithUnit("s"),
		metric.WithDescription("Redis round trip latency by keyspace"),
	)
	if err != nil {
		return nil, err
	}
	if pool != nil {
		inUse, err := meter.Int64ObservableGauge("redis.pool.in_use", metric.WithDescription("Redis connections currently checked out"))
		if err != nil {
			return nil, err
		}
		if _, err := meter.RegisterCallback(func(_ context.Context, o metric.Observer) error {
			if stats := pool(); stats != nil {
				o.ObserveInt64(inUse, int64(stats.TotalConns)-int64(stats.IdleConns))
			}
			return nil
		}, inUse); err != nil {
			return nil, err
		}
	}
	return &redisKeyspaceHook{prefix: strings.TrimSuffix(keyPrefix, ":"), commands: commands, latency: latency}, nil
}

func (h *redisKeyspaceHook) DialHook(next redis.DialHook) redis.DialHook { return next }

func (h *redisKeyspaceHook) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		start := time.Now()
		err := next(ctx, cmd)
		keyspace := h.keyspaceOf(cmd)
		h.record(ctx, keyspace, cmd, err)
		h.latency.Record(ctx, time.Since(start).Seconds(), metric.WithAttributes(attribute.String("keyspace", keyspace)))
		return err
	}
}

func (h *redisKeyspaceHook) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return func(ctx context.Context, cmds []redis.Cmder) error {
		start := time.Now()
		err := next(ctx, cmds)
		keyspace := "unknown"
		for _, cmd := range cmds {
			ks := h.keyspaceOf(cmd)
			if ks != "unknown" {
				keyspace = ks
			}
			h.record(ctx, ks, cmd, cmd.Err())
		}
		h.latency.Record(ctx, time.Since(start).Seconds(), metric.WithAttributes(attribute.String("keyspace", keyspace)))
		return err
	}
}

func (h *redisKeyspaceHook) record(ctx context.Context, keyspace string, cmd redis.Cmder, err error) {
	h.commands.Add(ctx, 1, metric.WithAttributes(
		attribute.String("keyspace", keyspace),
		attribute.String("command", strings.ToLower(cmd.Name())),
		attribute.String("outcome", redisOutcome(err)),
	))
}

// keyspaceOf returns the first key segment after the configured prefix.
func (h *redisKeyspaceHook) keyspaceOf(cmd redis.Cmder) string {
	key := firstKey(cmd)
	if key == "" {
		return "unknown"
	}
	if h.prefix != "" {
		rest, ok := strings.CutPrefix(key, h.prefix+":")
		if !ok {
			return "foreign"
		}
		key = rest
	}
	segment, _, _ := strings.Cut(key, ":")
	if segment == "" {
		return "unknown"
	}
	return segment
}

func firstKey(cmd redis.Cmder) string {
	args := cmd.Args()
	idx := 1
	switch strings.ToLower(cmd.Name()) {
	case "eval", "evalsha", "eval_ro", "evalsha_ro":
		idx = 3
	case "ping", "multi", "exec", "hello", "client":
		return ""
	}
	if len(args) <= idx {
		return ""
	}
	key, _ := args[idx].(string)
	return key
}

func redisOutcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, redis.Nil):
		return "miss"
	case errors.Is(err, context.DeadlineExceeded), strings.Contains(strings.ToLower(err.Error()), "timeout"):
		return "timeout"
	default:
		return "error"
	}
}
