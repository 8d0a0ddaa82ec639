package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

var errStateCollision = errors.New("oauth state already issued")

// StateRecord is what BeginAuth remembers about an in-flight authorization.
type StateRecord struct {
	RedirectURI string    `json:"redirect_uri"`
	IssuedAt    time.Time `json:"issued_at"`
}

// StateStore holds single-use anti-forgery states. Consume removes the state atomically.
type StateStore interface {
	Put(ctx context.Context, state string, rec StateRecord, ttl time.Duration) error
	Consume(ctx context.Context, state string) (StateRecord, bool, error)
}

type memoryStateEntry struct {
	rec       StateRecord
	expiresAt time.Time
}

type InMemoryStateStore struct {
	mu   sync.Mutex
	data map[string]memoryStateEntry
	now  func() time.Time
}

func NewInMemoryStateStore() *InMemoryStateStore {
	return &InMemoryStateStore{data: make(map[string]memoryStateEntry), now: time.Now}
}

func (s *InMemoryStateStore) Put(_ context.Context, state string, rec StateRecord, ttl time.Duration) error {
	now := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sweepLocked(now)
	if _, exists := s.data[state]; exists {
		return errStateCollision
	}
	s.data[state] = memoryStateEntry{rec: rec, expiresAt: now.Add(ttl)}
	return nil
}

func (s *InMemoryStateStore) Consume(_ context.Context, state string) (StateRecord, bool, error) {
	now := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.data[state]
	if !ok {
		return StateRecord{}, false, nil
	}
	delete(s.data, state)
	if !now.Before(entry.expiresAt) {
		return StateRecord{}, false, nil
	}
	return entry.rec, true, nil
}

func (s *InMemoryStateStore) sweepLocked(now time.Time) {
	for k, v := range s.data {
		if !now.Before(v.expiresAt) {
			delete(s.data, k)
		}
	}
}

type RedisStateStore struct {
	client redis.UniversalClient
	prefix string
}

func NewRedisStateStore(client redis.UniversalClient, prefix string) *RedisStateStore {
	if prefix == "" {
		prefix = "endorse"
	}
	return &RedisStateStore{client: client, prefix: prefix + ":oauth_state"}
}

func (s *RedisStateStore) Put(ctx context.Context, state string, rec StateRecord, ttl time.Duration) error {
	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode oauth state: %w", err)
	}
	ok, err := s.client.SetNX(ctx, s.key(state), payload, ttl).Result()
	if err != nil {
		return fmt.Errorf("store oauth state: %w", err)
	}
	if !ok {
		return errStateCollision
	}
	return nil
}

func (s *RedisStateStore) Consume(ctx context.Context, state string) (StateRecord, bool, error) {
	raw, err := s.client.GetDel(ctx, s.key(state)).Bytes()
	if errors.Is(err, redis.Nil) {
		return StateRecord{}, false, nil
	}
	if err != nil {
		return StateRecord{}, false, fmt.Errorf("consume oauth state: %w", err)
	}
	var rec StateRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return StateRecord{}, false, nil
	}
	return rec, true, nil
}

func (s *RedisStateStore) key(state string) string {
	return s.prefix + ":" + state
}
