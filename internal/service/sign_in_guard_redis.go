package service

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// KEYS[1] window hash. ARGV: now_ms, base_ms, multiplier, max_ms, reset_ms, free.
var signInFailureScript = redis.NewScript(`
local now = tonumber(ARGV[1])
local count = tonumber(redis.call("HGET", KEYS[1], "count") or "0")
local last = tonumber(redis.call("HGET", KEYS[1], "last") or "0")
if last == 0 or (now - last) > tonumber(ARGV[5]) then
  count = 0
end
count = count + 1
local delay = 0
local free = tonumber(ARGV[6])
if count > free then
  delay = math.floor(tonumber(ARGV[2]) * (tonumber(ARGV[3]) ^ (count - free - 1)))
end
if delay > tonumber(ARGV[4]) then
  delay = tonumber(ARGV[4])
end
redis.call("HSET", KEYS[1], "count", count, "last", now, "until", now + delay)
redis.call("PEXPIRE", KEYS[1], tonumber(ARGV[5]) + delay)
return delay
`)

// RedisSignInGuard shares failure windows across API instances.
type RedisSignInGuard struct {
	client redis.UniversalClient
	prefix string
	policy SignInPolicy
	now    func() time.Time
}

func NewRedisSignInGuard(client redis.UniversalClient, prefix string, policy SignInPolicy) *RedisSignInGuard {
	if prefix == "" {
		prefix = "endorsement"
	}
	return &RedisSignInGuard{client: client, prefix: prefix + ":sign_in", policy: policy.normalized(), now: time.Now}
}

func (g *RedisSignInGuard) Check(ctx context.Context, scope SignInScope, email, ip string) (time.Duration, error) {
	now := g.now().UnixMilli()
	var wait time.Duration
	for _, key := range guardKeys(scope, email, ip) {
		vals, err := g.client.HMGet(ctx, g.prefix+":"+key, "last", "until").Result()
		if err != nil {
			return 0, fmt.Errorf("read sign-in window: %w", err)
		}
		last, lastOK := redisInt(vals, 0)
		until, untilOK := redisInt(vals, 1)
		if !lastOK || !untilOK || now-last > g.policy.ResetWindow.Milliseconds() || until <= now {
			continue
		}
		wait = max(wait, time.Duration(until-now)*time.Millisecond)
	}
	return wait, nil
}

func (g *RedisSignInGuard) RegisterFailure(ctx context.Context, scope SignInScope, email, ip string) (time.Duration, error) {
	now := g.now().UnixMilli()
	var wait time.Duration
	for _, key := range guardKeys(scope, email, ip) {
		delayMS, err := signInFailureScript.Run(ctx, g.client, []string{g.prefix + ":" + key},
			now,
			g.policy.BaseDelay.Milliseconds(),
			g.policy.Multiplier,
			g.policy.MaxDelay.Milliseconds(),
			g.policy.ResetWindow.Milliseconds(),
			g.policy.FreeAttempts,
		).Int64()
		if err != nil {
			return 0, fmt.Errorf("record sign-in failure: %w", err)
		}
		wait = max(wait, time.Duration(delayMS)*time.Millisecond)
	}
	return wait, nil
}

func (g *RedisSignInGuard) Reset(ctx context.Context, scope SignInScope, email, ip string) error {
	return g.client.Del(ctx, g.prefix+":"+guardKeys(scope, email, ip)[0]).Err()
}

func redisInt(vals []any, i int) (int64, bool) {
	if i >= len(vals) || vals[i] == nil {
		return 0, false
	}
	s, ok := vals[i].(string)
	if !ok {
		return 0, false
	}
	var n int64
	if _, err := fmt.Sscan(s, &n); err != nil {
		return 0, false
	}
	return n, true
}
