package service

import (
	"context"
	"sync"
	"time"
)

// FollowLookupCache remembers recent "does viewer follow subject" answers
// so hot state lookups skip a store read. It is advisory: a miss or a
// cache failure just falls through to the store, so the interface carries
// no errors. Entries are invalidated per viewer on every toggle.
type FollowLookupCache interface {
	Get(ctx context.Context, viewerID, subjectID string) (known, following bool)
	Set(ctx context.Context, viewerID, subjectID string, following bool)
	Invalidate(ctx context.Context, viewerID string)
}

type NoopFollowLookupCache struct{}

func NewNoopFollowLookupCache() *NoopFollowLookupCache {
	return &NoopFollowLookupCache{}
}

func (c *NoopFollowLookupCache) Get(context.Context, string, string) (bool, bool) { return false, false }
func (c *NoopFollowLookupCache) Set(context.Context, string, string, bool)        {}
func (c *NoopFollowLookupCache) Invalidate(context.Context, string)               {}

type followLookupEntry struct {
	following bool
	expiresAt time.Time
}

type InMemoryFollowLookupCache struct {
	mu    sync.RWMutex
	store map[string]map[string]followLookupEntry
	ttl   time.Duration
}

func NewInMemoryFollowLookupCache(ttl time.Duration) *InMemoryFollowLookupCache {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &InMemoryFollowLookupCache{
		store: make(map[string]map[string]followLookupEntry),
		ttl:   ttl,
	}
}

func (c *InMemoryFollowLookupCache) Get(_ context.Context, viewerID, subjectID string) (bool, bool) {
	now := time.Now().UTC()
	c.mu.RLock()
	viewer, ok := c.store[viewerID]
	if !ok {
		c.mu.RUnlock()
		return false, false
	}
	entry, ok := viewer[subjectID]
	c.mu.RUnlock()
	if !ok {
		return false, false
	}
	if now.After(entry.expiresAt) {
		c.mu.Lock()
		if viewer2, ok2 := c.store[viewerID]; ok2 {
			delete(viewer2, subjectID)
			if len(viewer2) == 0 {
				delete(c.store, viewerID)
			}
		}
		c.mu.Unlock()
		return false, false
	}
	return true, entry.following
}

func (c *InMemoryFollowLookupCache) Set(_ context.Context, viewerID, subjectID string, following bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	viewer, ok := c.store[viewerID]
	if !ok {
		viewer = make(map[string]followLookupEntry)
		c.store[viewerID] = viewer
	}
	viewer[subjectID] = followLookupEntry{
		following: following,
		expiresAt: time.Now().UTC().Add(c.ttl),
	}
}

func (c *InMemoryFollowLookupCache) Invalidate(_ context.Context, viewerID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.store, viewerID)
}
