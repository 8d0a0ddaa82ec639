package middleware

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/sandeepkv93/endorsement-backend/internal/http/response"
	"github.com/sandeepkv93/endorsement-backend/internal/observability"
)

type Limiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, time.Duration, error)
}

type FailureMode string

const (
	FailOpen   FailureMode = "fail_open"
	FailClosed FailureMode = "fail_closed"
)

type bucketEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// localTokenBucketLimiter keeps one token bucket per key in process memory.
// limit tokens refill evenly over window, with a burst of limit.
type localTokenBucketLimiter struct {
	mu        sync.Mutex
	buckets   map[string]*bucketEntry
	nextSweep time.Time
	now       func() time.Time
}

func NewLocalTokenBucketLimiter() Limiter {
	return &localTokenBucketLimiter{buckets: make(map[string]*bucketEntry), now: time.Now}
}

func (l *localTokenBucketLimiter) Allow(_ context.Context, key string, limit int, window time.Duration) (bool, time.Duration, error) {
	if limit <= 0 {
		return true, 0, nil
	}
	now := l.now()
	l.mu.Lock()
	defer l.mu.Unlock()

	if now.After(l.nextSweep) {
		for k, e := range l.buckets {
			if now.Sub(e.lastSeen) > 2*window {
				delete(l.buckets, k)
			}
		}
		l.nextSweep = now.Add(window)
	}

	e, ok := l.buckets[key]
	if !ok {
		e = &bucketEntry{limiter: rate.NewLimiter(rate.Every(window/time.Duration(limit)), limit)}
		l.buckets[key] = e
	}
	e.lastSeen = now
	res := e.limiter.ReserveN(now, 1)
	if delay := res.DelayFrom(now); delay > 0 {
		res.CancelAt(now)
		return false, delay, nil
	}
	return true, 0, nil
}

type RateLimiter struct {
	limiter Limiter
	limit   int
	window  time.Duration
	mode    FailureMode
	scope   string
	backend string
}

func NewRateLimiter(limit int, window time.Duration, scope string) *RateLimiter {
	rl := NewDistributedRateLimiter(NewLocalTokenBucketLimiter(), limit, window, FailClosed, scope)
	rl.backend = "local"
	return rl
}

func NewDistributedRateLimiter(limiter Limiter, limit int, window time.Duration, mode FailureMode, scope string) *RateLimiter {
	if scope == "" {
		scope = "api"
	}
	return &RateLimiter{limiter: limiter, limit: limit, window: window, mode: mode, scope: scope, backend: "redis"}
}

// Middleware keys authenticated requests by account and anonymous ones by client IP.
func (rl *RateLimiter) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key, keyType := rateLimitKey(r)
			allowed, retryAfter, err := rl.limiter.Allow(r.Context(), rl.scope+":"+key, rl.limit, rl.window)
			if err != nil {
				if rl.mode == FailOpen {
					observability.RecordRateLimitDecision(r.Context(), rl.scope, "backend_error_allowed", rl.backend, keyType)
					slog.WarnContext(r.Context(), "rate limiter backend unavailable, allowing request",
						"scope", rl.scope, "error", err.Error())
					next.ServeHTTP(w, r)
					return
				}
				observability.RecordRateLimitDecision(r.Context(), rl.scope, "backend_error_denied", rl.backend, keyType)
				w.Header().Set("Retry-After", retryAfterHeader(rl.window))
				response.Error(w, r, http.StatusTooManyRequests, "RATE_LIMITED", "too many requests", nil)
				return
			}
			if !allowed {
				observability.RecordRateLimitDecision(r.Context(), rl.scope, "denied", rl.backend, keyType)
				observability.RecordRateLimitRetryAfter(r.Context(), rl.scope, retryAfter)
				w.Header().Set("Retry-After", retryAfterHeader(retryAfter))
				response.Error(w, r, http.StatusTooManyRequests, "RATE_LIMITED", "too many requests", nil)
				return
			}
			observability.RecordRateLimitDecision(r.Context(), rl.scope, "allowed", rl.backend, keyType)
			next.ServeHTTP(w, r)
		})
	}
}

func rateLimitKey(r *http.Request) (string, string) {
	if id := AccountID(r.Context()); id != "" {
		return "acct:" + id, "account"
	}
	return "ip:" + ClientIP(r), "ip"
}

// ClientIP strips the port from RemoteAddr; chi's RealIP runs earlier in the chain.
func ClientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err == nil && host != "" {
		return host
	}
	return r.RemoteAddr
}

func retryAfterHeader(d time.Duration) string {
	seconds := int(d.Round(time.Second).Seconds())
	if seconds <= 0 {
		seconds = 1
	}
	return strconv.Itoa(seconds)
}
