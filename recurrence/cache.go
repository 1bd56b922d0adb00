package recurrence

import (
	"crypto/sha256"
	"fmt"
	"slices"
	"sort"
	"sync"
	"time"
)

// cacheEntry holds one cached expansion.
type cacheEntry struct {
	occurrences []time.Time
	expiresAt   time.Time
	accessedAt  time.Time
}

// Cache memoizes occurrence expansions keyed by rule and window. Entries
// expire after a TTL and the least recently accessed are evicted when the
// cache grows past its limit.
type Cache struct {
	entries         map[string]*cacheEntry
	mutex           sync.RWMutex
	ttl             time.Duration
	maxEntries      int
	cleanupInterval time.Duration
	stopCleanup     chan struct{}
}

// CacheConfig holds configuration for the expansion cache.
type CacheConfig struct {
	TTL             time.Duration // How long entries stay valid
	MaxEntries      int           // Maximum number of entries before eviction
	CleanupInterval time.Duration // How often expired entries are swept
}

// DefaultCacheConfig provides sensible defaults for expansion caching.
var DefaultCacheConfig = CacheConfig{
	TTL:             15 * time.Minute,
	MaxEntries:      1000,
	CleanupInterval: 5 * time.Minute,
}

// NewCache creates an expansion cache and starts its sweep goroutine; call
// Close to stop it.
func NewCache(config CacheConfig) *Cache {
	c := &Cache{
		entries:         make(map[string]*cacheEntry),
		ttl:             config.TTL,
		maxEntries:      config.MaxEntries,
		cleanupInterval: config.CleanupInterval,
		stopCleanup:     make(chan struct{}),
	}
	go c.cleanupLoop()
	return c
}

// cacheKey hashes every rule field that affects expansion, plus the window.
func cacheKey(r Rule, from, to time.Time) string {
	h := sha256.New()

	fmt.Fprintf(h, "%s|%d|%s", r.Kind, r.Interval, r.Start.Format(time.RFC3339Nano))
	if end, ok := r.End.Get(); ok {
		fmt.Fprintf(h, "|end=%s", end.Format(time.RFC3339Nano))
	}
	if n, ok := r.Count.Get(); ok {
		fmt.Fprintf(h, "|count=%d", n)
	}
	for _, d := range weekdayOffsets(r.Weekdays) {
		fmt.Fprintf(h, "|wd=%d", d)
	}
	fmt.Fprintf(h, "|dom=%d|moy=%d|ord=%d", r.DayOfMonth, r.MonthOfYear, r.Ordinal)
	fmt.Fprintf(h, "|%s|%s", from.Format(time.RFC3339Nano), to.Format(time.RFC3339Nano))

	return fmt.Sprintf("%x", h.Sum(nil))
}

// Get retrieves a cached expansion if present and unexpired. The result is
// a copy; callers may mutate it without corrupting the cache.
func (c *Cache) Get(r Rule, from, to time.Time) ([]time.Time, bool) {
	key := cacheKey(r, from, to)

	c.mutex.RLock()
	entry, exists := c.entries[key]
	c.mutex.RUnlock()

	if !exists {
		return nil, false
	}

	now := time.Now()
	if now.After(entry.expiresAt) {
		c.mutex.Lock()
		delete(c.entries, key)
		c.mutex.Unlock()
		return nil, false
	}

	c.mutex.Lock()
	entry.accessedAt = now
	c.mutex.Unlock()

	return slices.Clone(entry.occurrences), true
}

// Set stores an expansion result. The slice is copied so later caller
// mutations don't reach the cache.
func (c *Cache) Set(r Rule, from, to time.Time, occurrences []time.Time) {
	key := cacheKey(r, from, to)
	now := time.Now()

	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.entries[key] = &cacheEntry{
		occurrences: slices.Clone(occurrences),
		expiresAt:   now.Add(c.ttl),
		accessedAt:  now,
	}

	if len(c.entries) > c.maxEntries {
		c.evict()
	}
}

// evict removes expired entries and, if still over the limit, the least
// recently accessed ones. Callers must hold the write lock.
func (c *Cache) evict() {
	now := time.Now()
	for key, entry := range c.entries {
		if now.After(entry.expiresAt) {
			delete(c.entries, key)
		}
	}

	if len(c.entries) <= c.maxEntries {
		return
	}

	type keyAccess struct {
		key        string
		accessedAt time.Time
	}
	byAge := make([]keyAccess, 0, len(c.entries))
	for key, entry := range c.entries {
		byAge = append(byAge, keyAccess{key: key, accessedAt: entry.accessedAt})
	}
	sort.Slice(byAge, func(i, j int) bool {
		return byAge[i].accessedAt.Before(byAge[j].accessedAt)
	})

	toRemove := len(c.entries) - c.maxEntries
	for i := 0; i < toRemove && i < len(byAge); i++ {
		delete(c.entries, byAge[i].key)
	}
}

func (c *Cache) cleanupLoop() {
	ticker := time.NewTicker(c.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.mutex.Lock()
			c.evict()
			c.mutex.Unlock()
		case <-c.stopCleanup:
			return
		}
	}
}

// Close stops the sweep goroutine and clears the cache.
func (c *Cache) Close() {
	close(c.stopCleanup)
	c.mutex.Lock()
	c.entries = make(map[string]*cacheEntry)
	c.mutex.Unlock()
}

// Stats returns cache counters.
func (c *Cache) Stats() CacheStats {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	total := len(c.entries)
	expired := 0
	now := time.Now()
	for _, entry := range c.entries {
		if now.After(entry.expiresAt) {
			expired++
		}
	}

	return CacheStats{
		TotalEntries:   total,
		ExpiredEntries: expired,
		ActiveEntries:  total - expired,
	}
}

// CacheStats provides information about cache usage.
type CacheStats struct {
	TotalEntries   int
	ExpiredEntries int
	ActiveEntries  int
}
