package service

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestInMemoryStateStoreSingleUse(t *testing.T) {
	store := NewInMemoryStateStore()
	ctx := context.Background()
	rec := StateRecord{RedirectURI: "http://localhost/cb", IssuedAt: time.Now().UTC()}
	if err := store.Put(ctx, "s1", rec, time.Minute); err != nil {
		t.Fatalf("put: %v", err)
	}
	got, ok, err := store.Consume(ctx, "s1")
	if err != nil || !ok || got.RedirectURI != rec.RedirectURI {
		t.Fatalf("expected first consume to succeed, got ok=%v err=%v rec=%+v", ok, err, got)
	}
	if _, ok, _ := store.Consume(ctx, "s1"); ok {
		t.Fatal("state must be single use")
	}
}

func TestInMemoryStateStoreExpiry(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	store := NewInMemoryStateStore()
	store.now = func() time.Time { return now }
	ctx := context.Background()
	if err := store.Put(ctx, "s1", StateRecord{}, time.Minute); err != nil {
		t.Fatalf("put: %v", err)
	}
	now = now.Add(2 * time.Minute)
	if _, ok, _ := store.Consume(ctx, "s1"); ok {
		t.Fatal("expired state must not be accepted")
	}
}

func TestRedisStateStore(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	store := NewRedisStateStore(client, "test")
	ctx := context.Background()

	if err := store.Put(ctx, "abc", StateRecord{RedirectURI: "http://localhost/cb"}, time.Minute); err != nil {
		t.Fatalf("put: %v", err)
	}
	if !mr.Exists("test:oauth_state:abc") {
		t.Fatal("expected namespaced key in redis")
	}
	if err := store.Put(ctx, "abc", StateRecord{}, time.Minute); err == nil {
		t.Fatal("expected collision on duplicate state")
	}

	rec, ok, err := store.Consume(ctx, "abc")
	if err != nil || !ok || rec.RedirectURI != "http://localhost/cb" {
		t.Fatalf("consume: ok=%v err=%v rec=%+v", ok, err, rec)
	}
	if _, ok, err := store.Consume(ctx, "abc"); err != nil || ok {
		t.Fatalf("second consume must miss, ok=%v err=%v", ok, err)
	}

	if err := store.Put(ctx, "ttl", StateRecord{}, time.Minute); err != nil {
		t.Fatalf("put: %v", err)
	}
	mr.FastForward(2 * time.Minute)
	if _, ok, _ := store.Consume(ctx, "ttl"); ok {
		t.Fatal("expired state must not be accepted")
	}
}
