package cache

import (
	"fmt"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/simplelru"

	"github.com/hamed0406/watchcore/internal/events"
)

// Stats is a point-in-time snapshot of the cache counters. Taking one
// never mutates the cache.
type Stats struct {
	Hits        uint64 `json:"hits"`
	Misses      uint64 `json:"misses"`
	Evictions   uint64 `json:"evictions"`
	Expirations uint64 `json:"expirations"`
	Size        int    `json:"size"`
}

type entry[V any] struct {
	val        V
	storedAt   time.Time
	lastAccess time.Time
	expiresAt  time.Time // zero means no expiry
}

// Cache is a size-bounded, TTL-aware key/value store. The least recently
// used entry is evicted when an insert would exceed MaxSize; entries past
// their TTL are logically absent from Get even before the sweeper purges
// them. Every mutation is announced through the injected publisher.
type Cache[K comparable, V any] struct {
	pub        events.Publisher
	defaultTTL time.Duration
	maxSize    int

	mu          sync.Mutex
	lru         *simplelru.LRU[K, *entry[V]]
	hits        uint64
	misses      uint64
	evictions   uint64
	expirations uint64

	stop     chan struct{}
	stopOnce sync.Once
}

// New builds a cache. maxSize must be positive; defaultTTL <= 0 means
// entries do not expire unless SetTTL says otherwise.
func New[K comparable, V any](maxSize int, defaultTTL time.Duration, pub events.Publisher) (*Cache[K, V], error) {
	if maxSize <= 0 {
		return nil, fmt.Errorf("cache: maxSize must be positive, got %d", maxSize)
	}
	if pub == nil {
		pub = events.Nop{}
	}
	lru, err := simplelru.NewLRU[K, *entry[V]](maxSize, nil)
	if err != nil {
		return nil, err
	}
	return &Cache[K, V]{
		pub:        pub,
		defaultTTL: defaultTTL,
		maxSize:    maxSize,
		lru:        lru,
		stop:       make(chan struct{}),
	}, nil
}

// Get returns the live value for key. A present-but-expired entry is
// removed, counted as an expiration (not a miss) and reported as absent.
func (c *Cache[K, V]) Get(key K) (V, bool) {
	var zero V
	now := time.Now()

	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.lru.Get(key)
	if !ok {
		c.misses++
		return zero, false
	}
	if e.expired(now) {
		c.lru.Remove(key)
		c.expirations++
		c.pub.Publish(events.ItemExpired, "", events.CachePayload{Key: keyString(key)})
		return zero, false
	}
	e.lastAccess = now
	c.hits++
	return e.val, true
}

// Set stores value under key with the default TTL.
func (c *Cache[K, V]) Set(key K, v V) {
	c.SetTTL(key, v, c.defaultTTL)
}

// SetTTL stores value under key with an explicit TTL; ttl <= 0 disables
// expiry for this entry.
func (c *Cache[K, V]) SetTTL(key K, v V, ttl time.Duration) {
	c.mu.Lock()
	c.insert(key, v, ttl, time.Now())
	c.mu.Unlock()
	c.pub.Publish(events.ItemCached, "", events.CachePayload{Key: keyString(key)})
}

// insert is the locked core of Set/BulkSet. It performs LRU eviction
// before the add so size never exceeds maxSize.
func (c *Cache[K, V]) insert(key K, v V, ttl time.Duration, now time.Time) {
	if !c.lru.Contains(key) && c.lru.Len() >= c.maxSize {
		if old, _, ok := c.lru.RemoveOldest(); ok {
			c.evictions++
			c.pub.Publish(events.ItemEvicted, "", events.CachePayload{Key: keyString(old)})
		}
	}
	e := &entry[V]{
		val:        v,
		storedAt:   now,
		lastAccess: now,
	}
	if ttl > 0 {
		e.expiresAt = now.Add(ttl)
	}
	c.lru.Add(key, e)
}

// Delete removes key if present and reports whether it was.
func (c *Cache[K, V]) Delete(key K) bool {
	c.mu.Lock()
	ok := c.lru.Remove(key)
	c.mu.Unlock()
	if ok {
		c.pub.Publish(events.ItemDeleted, "", events.CachePayload{Key: keyString(key)})
	}
	return ok
}

// Clear drops every entry.
func (c *Cache[K, V]) Clear() {
	c.mu.Lock()
	n := c.lru.Len()
	c.lru.Purge()
	c.mu.Unlock()
	c.pub.Publish(events.Cleared, "", events.CachePayload{Count: n})
}

// BulkSet stores all entries with the default TTL under one critical
// section and announces a single bulk-updated event.
func (c *Cache[K, V]) BulkSet(entries map[K]V) {
	if len(entries) == 0 {
		return
	}
	now := time.Now()
	c.mu.Lock()
	for k, v := range entries {
		c.insert(k, v, c.defaultTTL, now)
	}
	c.mu.Unlock()
	c.pub.Publish(events.BulkUpdated, "", events.CachePayload{Count: len(entries)})
}

// Stats snapshots the running counters.
func (c *Cache[K, V]) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Stats{
		Hits:        c.hits,
		Misses:      c.misses,
		Evictions:   c.evictions,
		Expirations: c.expirations,
		Size:        c.lru.Len(),
	}
}

// StartSweeper proactively purges expired entries every interval until
// Close is called.
func (c *Cache[K, V]) StartSweeper(interval time.Duration) {
	if interval <= 0 {
		return
	}
	go func() {
		t := time.NewTicker(interval)
		defer t.Stop()
		for {
			select {
			case <-c.stop:
				return
			case <-t.C:
				c.sweep(time.Now())
			}
		}
	}()
}

func (c *Cache[K, V]) sweep(now time.Time) {
	type expired struct{ key string }
	var out []expired

	c.mu.Lock()
	for _, k := range c.lru.Keys() {
		if e, ok := c.lru.Peek(k); ok && e.expired(now) {
			c.lru.Remove(k)
			c.expirations++
			out = append(out, expired{key: keyString(k)})
		}
	}
	c.mu.Unlock()

	for _, x := range out {
		c.pub.Publish(events.ItemExpired, "", events.CachePayload{Key: x.key})
	}
}

// Close stops the sweeper. Safe to call more than once.
func (c *Cache[K, V]) Close() {
	c.stopOnce.Do(func() { close(c.stop) })
}

func (e *entry[V]) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && now.After(e.expiresAt)
}

func keyString(k any) string { return fmt.Sprint(k) }
