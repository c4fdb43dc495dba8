package cache

import (
	"container/list"
	"sync"
	"time"

	"github.com/ZaguanLabs/autotrans"
)

type memoryEntry struct {
	key     string
	value   string
	storeAt time.Time
}

// InMemoryCache is a process-local translation cache safe for concurrent use.
//
// By default entries live for the lifetime of the cache and the cache grows
// without bound, which matches one page session. WithTTL and WithMaxEntries
// turn it into an expiring or bounded cache for long-running processes.
type InMemoryCache struct {
	mu         sync.Mutex
	entries    map[string]*list.Element
	order      *list.List // front = most recently written
	ttl        time.Duration
	maxEntries int
	now        func() time.Time
}

// MemoryOption configures an InMemoryCache.
type MemoryOption func(*InMemoryCache)

// WithTTL expires entries older than ttl. Zero disables expiry.
func WithTTL(ttl time.Duration) MemoryOption {
	return func(c *InMemoryCache) {
		c.ttl = ttl
	}
}

// WithMaxEntries evicts the least recently written entries beyond n.
// Zero means unbounded.
func WithMaxEntries(n int) MemoryOption {
	return func(c *InMemoryCache) {
		c.maxEntries = n
	}
}

// NewInMemoryCache creates an empty cache.
func NewInMemoryCache(opts ...MemoryOption) *InMemoryCache {
	c := &InMemoryCache{
		entries: make(map[string]*list.Element),
		order:   list.New(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns the cached value for key.
func (c *InMemoryCache) Get(key string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.entries[key]
	if !ok {
		return "", false
	}
	entry := el.Value.(*memoryEntry)
	if c.expired(entry) {
		c.removeElement(el)
		return "", false
	}
	return entry.value, true
}

// Set stores value under key, replacing any previous value.
func (c *InMemoryCache) Set(key string, value string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.entries[key]; ok {
		entry := el.Value.(*memoryEntry)
		entry.value = value
		entry.storeAt = c.now()
		c.order.MoveToFront(el)
		return nil
	}

	c.entries[key] = c.order.PushFront(&memoryEntry{key: key, value: value, storeAt: c.now()})

	for c.maxEntries > 0 && c.order.Len() > c.maxEntries {
		c.removeElement(c.order.Back())
	}
	return nil
}

// Delete removes key from the cache.
func (c *InMemoryCache) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.entries[key]; ok {
		c.removeElement(el)
	}
}

// Len returns the number of stored entries, expired ones included until
// they are next touched.
func (c *InMemoryCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

// Clear removes all entries.
func (c *InMemoryCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*list.Element)
	c.order.Init()
}

// Entries returns a copy of all live entries.
func (c *InMemoryCache) Entries() map[string]string {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make(map[string]string, len(c.entries))
	for key, el := range c.entries {
		entry := el.Value.(*memoryEntry)
		if c.expired(entry) {
			continue
		}
		out[key] = entry.value
	}
	return out
}

func (c *InMemoryCache) expired(e *memoryEntry) bool {
	return c.ttl > 0 && c.now().Sub(e.storeAt) > c.ttl
}

func (c *InMemoryCache) removeElement(el *list.Element) {
	entry := c.order.Remove(el).(*memoryEntry)
	delete(c.entries, entry.key)
}

var (
	_ autotrans.TranslationCache = (*InMemoryCache)(nil)
	_ Clearable                  = (*InMemoryCache)(nil)
	_ Snapshotter                = (*InMemoryCache)(nil)
)
