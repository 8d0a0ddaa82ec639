package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"math"
	"strings"
	"sync"
	"time"
)

type SignInScope string

const (
	SignInScopeLocalLogin SignInScope = "local_login"
	SignInScopeRegister   SignInScope = "local_register"
)

// SignInPolicy describes the cooldown after repeated failures: FreeAttempts
// failures cost nothing, then each further failure waits
// BaseDelay*Multiplier^n up to MaxDelay. Counters reset after ResetWindow
// without failures.
type SignInPolicy struct {
	FreeAttempts int
	BaseDelay    time.Duration
	Multiplier   float64
	MaxDelay     time.Duration
	ResetWindow  time.Duration
}

var DefaultSignInPolicy = SignInPolicy{
	FreeAttempts: 5,
	BaseDelay:    2 * time.Second,
	Multiplier:   2,
	MaxDelay:     5 * time.Minute,
	ResetWindow:  30 * time.Minute,
}

// SignInGuard throttles local credential attempts per email and per client IP.
// Check returns the remaining cooldown; zero means the attempt may proceed.
type SignInGuard interface {
	Check(ctx context.Context, scope SignInScope, email, ip string) (time.Duration, error)
	RegisterFailure(ctx context.Context, scope SignInScope, email, ip string) (time.Duration, error)
	Reset(ctx context.Context, scope SignInScope, email, ip string) error
}

type NoopSignInGuard struct{}

func (NoopSignInGuard) Check(context.Context, SignInScope, string, string) (time.Duration, error) {
	return 0, nil
}

func (NoopSignInGuard) RegisterFailure(context.Context, SignInScope, string, string) (time.Duration, error) {
	return 0, nil
}

func (NoopSignInGuard) Reset(context.Context, SignInScope, string, string) error { return nil }

type failureWindow struct {
	count         int
	lastFailure   time.Time
	cooldownUntil time.Time
}

type InMemorySignInGuard struct {
	mu      sync.Mutex
	policy  SignInPolicy
	windows map[string]failureWindow
	now     func() time.Time
}

func NewInMemorySignInGuard(policy SignInPolicy) *InMemorySignInGuard {
	return &InMemorySignInGuard{
		policy:  policy.normalized(),
		windows: make(map[string]failureWindow),
		now:     time.Now,
	}
}

func (g *InMemorySignInGuard) Check(_ context.Context, scope SignInScope, email, ip string) (time.Duration, error) {
	now := g.now()
	g.mu.Lock()
	defer g.mu.Unlock()
	var wait time.Duration
	for _, key := range guardKeys(scope, email, ip) {
		wait = max(wait, g.remainingLocked(now, key))
	}
	return wait, nil
}

func (g *InMemorySignInGuard) RegisterFailure(_ context.Context, scope SignInScope, email, ip string) (time.Duration, error) {
	now := g.now()
	g.mu.Lock()
	defer g.mu.Unlock()
	var wait time.Duration
	for _, key := range guardKeys(scope, email, ip) {
		w := g.windows[key]
		if w.lastFailure.IsZero() || now.Sub(w.lastFailure) > g.policy.ResetWindow {
			w.count = 0
		}
		w.count++
		w.lastFailure = now
		delay := g.policy.delayFor(w.count)
		w.cooldownUntil = now.Add(delay)
		g.windows[key] = w
		wait = max(wait, delay)
	}
	return wait, nil
}

func (g *InMemorySignInGuard) Reset(_ context.Context, scope SignInScope, email, ip string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	// Only the email window is cleared; a success must not unlock a noisy IP.
	delete(g.windows, guardKeys(scope, email, ip)[0])
	return nil
}

func (g *InMemorySignInGuard) remainingLocked(now time.Time, key string) time.Duration {
	w, ok := g.windows[key]
	if !ok {
		return 0
	}
	if now.Sub(w.lastFailure) > g.policy.ResetWindow {
		delete(g.windows, key)
		return 0
	}
	if !now.Before(w.cooldownUntil) {
		return 0
	}
	return w.cooldownUntil.Sub(now)
}

func (p SignInPolicy) delayFor(failures int) time.Duration {
	if failures <= p.FreeAttempts {
		return 0
	}
	delay := time.Duration(float64(p.BaseDelay) * math.Pow(p.Multiplier, float64(failures-p.FreeAttempts-1)))
	if delay > p.MaxDelay || delay < 0 {
		return p.MaxDelay
	}
	return delay
}

func (p SignInPolicy) normalized() SignInPolicy {
	if p.FreeAttempts < 0 {
		p.FreeAttempts = 0
	}
	if p.BaseDelay <= 0 {
		p.BaseDelay = DefaultSignInPolicy.BaseDelay
	}
	if p.Multiplier < 1 {
		p.Multiplier = DefaultSignInPolicy.Multiplier
	}
	if p.MaxDelay < p.BaseDelay {
		p.MaxDelay = max(DefaultSignInPolicy.MaxDelay, p.BaseDelay)
	}
	if p.ResetWindow <= 0 {
		p.ResetWindow = DefaultSignInPolicy.ResetWindow
	}
	return p
}

// guardKeys returns the email key first, then the IP key. Emails are hashed so
// raw addresses never land in Redis.
func guardKeys(scope SignInScope, email, ip string) [2]string {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		email = "anonymous"
	}
	ip = strings.TrimSpace(ip)
	if ip == "" {
		ip = "unknown"
	}
	sum := sha256.Sum256([]byte(email))
	return [2]string{
		string(scope) + ":email:" + hex.EncodeToString(sum[:12]),
		string(scope) + ":ip:" + ip,
	}
}
