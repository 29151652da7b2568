// Package cache holds frozen share snapshot bodies keyed by token digest.
// It never decides whether a share is live: callers check revocation and
// expiry against the store before every hit. ExpiresAt only bounds how long
// an entry is kept.
package cache

import (
	"container/list"
	"context"
	"sync"
	"time"
)

const MaxCacheSize = 150

type Entry struct {
	Snapshot  []byte    `json:"snapshot"`
	ExpiresAt time.Time `json:"expires_at"`
}

type Cache interface {
	Get(ctx context.Context, key string) (Entry, bool)
	Set(ctx context.Context, key string, e Entry)
	Invalidate(ctx context.Context, key string)
}

type lruEntry struct {
	key   string
	entry Entry
}

// LRU is an in-process cache. It is not shared between instances.
type LRU struct {
	mu      sync.Mutex
	items   map[string]*list.Element
	order   *list.List
	maxSize int
}

func NewLRU(maxSize int) *LRU {
	if maxSize <= 0 {
		maxSize = MaxCacheSize
	}
	return &LRU{
		items:   make(map[string]*list.Element),
		order:   list.New(),
		maxSize: maxSize,
	}
}

func (c *LRU) Get(_ context.Context, key string) (Entry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.items[key]; ok {
		c.order.MoveToFront(elem)
		return elem.Value.(*lruEntry).entry, true
	}
	return Entry{}, false
}

func (c *LRU) Set(_ context.Context, key string, e Entry) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.items[key]; ok {
		c.order.MoveToFront(elem)
		elem.Value.(*lruEntry).entry = e
		return
	}

	if c.order.Len() >= c.maxSize {
		if oldest := c.order.Back(); oldest != nil {
			delete(c.items, oldest.Value.(*lruEntry).key)
			c.order.Remove(oldest)
		}
	}

	c.items[key] = c.order.PushFront(&lruEntry{key: key, entry: e})
}

func (c *LRU) Invalidate(_ context.Context, key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.items[key]; ok {
		delete(c.items, key)
		c.order.Remove(elem)
	}
}

func (c *LRU) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}
