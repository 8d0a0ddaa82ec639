package service

import (
	"context"
	"sync"
	"time"
)

// ProfileCache holds encoded pages of a recipient's public listing. Entries are
// grouped by recipient so one status change drops every cached page for them.
type ProfileCache interface {
	Get(ctx context.Context, recipientID, key string) ([]byte, bool, error)
	Set(ctx context.Context, recipientID, key string, value []byte, ttl time.Duration) error
	Invalidate(ctx context.Context, recipientID string) error
}

type NoopProfileCache struct{}

func NewNoopProfileCache() *NoopProfileCache { return &NoopProfileCache{} }

func (NoopProfileCache) Get(context.Context, string, string) ([]byte, bool, error) {
	return nil, false, nil
}

func (NoopProfileCache) Set(context.Context, string, string, []byte, time.Duration) error {
	return nil
}

func (NoopProfileCache) Invalidate(context.Context, string) error { return nil }

type cachedPage struct {
	payload   []byte
	expiresAt time.Time
}

type InMemoryProfileCache struct {
	mu    sync.RWMutex
	pages map[string]map[string]cachedPage
	now   func() time.Time
}

func NewInMemoryProfileCache() *InMemoryProfileCache {
	return &InMemoryProfileCache{pages: make(map[string]map[string]cachedPage), now: time.Now}
}

func (c *InMemoryProfileCache) Get(_ context.Context, recipientID, key string) ([]byte, bool, error) {
	c.mu.RLock()
	entry, ok := c.pages[recipientID][key]
	c.mu.RUnlock()
	if !ok {
		return nil, false, nil
	}
	if !c.now().Before(entry.expiresAt) {
		c.mu.Lock()
		if byKey, found := c.pages[recipientID]; found {
			delete(byKey, key)
			if len(byKey) == 0 {
				delete(c.pages, recipientID)
			}
		}
		c.mu.Unlock()
		return nil, false, nil
	}
	return append([]byte(nil), entry.payload...), true, nil
}

func (c *InMemoryProfileCache) Set(_ context.Context, recipientID, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	byKey, ok := c.pages[recipientID]
	if !ok {
		byKey = make(map[string]cachedPage)
		c.pages[recipientID] = byKey
	}
	byKey[key] = cachedPage{payload: append([]byte(nil), value...), expiresAt: c.now().Add(ttl)}
	return nil
}

func (c *InMemoryProfileCache) Invalidate(_ context.Context, recipientID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.pages, recipientID)
	return nil
}
