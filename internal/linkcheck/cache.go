package linkcheck

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrCacheMiss is returned by ResultCache.Get when a URL has no entry.
var ErrCacheMiss = errors.New("linkcheck: cache miss")

// Default freshness windows. Healthy links are rechecked rarely; failures
// sooner, so transient outages clear without waiting out the long window.
const (
	defaultResultTTL  = time.Hour
	defaultFailureTTL = 10 * time.Minute
)

// Entry is one cached verification result.
type Entry struct {
	URL             string    `json:"url"`
	Status          int       `json:"status"`
	Valid           bool      `json:"valid"`
	Error           string    `json:"error,omitempty"`
	LastChecked     time.Time `json:"last_checked"`
	FailureCount    int       `json:"failure_count,omitempty"`
	FirstFailedAt   time.Time `json:"first_failed_at,omitzero"`
	ConsecutiveFail bool      `json:"consecutive_fail,omitempty"`
}

// ResultCache stores verification results between runs so unchanged links
// are not re-fetched on every rebuild.
type ResultCache interface {
	// Get returns the entry for a URL, or ErrCacheMiss.
	Get(ctx context.Context, url string) (*Entry, error)
	// Put stores an entry, stamping its LastChecked time.
	Put(ctx context.Context, entry *Entry) error
	// Fresh reports whether an entry is still within its freshness window.
	Fresh(entry *Entry) bool
	Close() error
}

// MemoryCache is the process-local ResultCache used when no NATS URL is
// configured. It holds results for the lifetime of the process, which makes
// repeated daemon rebuilds cheap without any external service.
type MemoryCache struct {
	mu         sync.Mutex
	entries    map[string]*Entry
	resultTTL  time.Duration
	failureTTL time.Duration
}

// NewMemoryCache returns an empty in-memory cache. Non-positive TTLs fall
// back to the defaults.
func NewMemoryCache(resultTTL, failureTTL time.Duration) *MemoryCache {
	if resultTTL <= 0 {
		resultTTL = defaultResultTTL
	}
	if failureTTL <= 0 {
		failureTTL = defaultFailureTTL
	}
	return &MemoryCache{
		entries:    make(map[string]*Entry),
		resultTTL:  resultTTL,
		failureTTL: failureTTL,
	}
}

// Get returns a copy of the stored entry so callers cannot mutate the cache.
func (c *MemoryCache) Get(_ context.Context, url string) (*Entry, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.entries[url]
	if !ok {
		return nil, ErrCacheMiss
	}
	cp := *entry
	return &cp, nil
}

// Put stores a copy of the entry keyed by its URL.
func (c *MemoryCache) Put(_ context.Context, entry *Entry) error {
	if entry == nil || entry.URL == "" {
		return nil
	}
	cp := *entry
	cp.LastChecked = time.Now()
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[entry.URL] = &cp
	return nil
}

// Fresh applies the result TTL to valid entries and the shorter failure TTL
// to broken ones.
func (c *MemoryCache) Fresh(entry *Entry) bool {
	if entry == nil {
		return false
	}
	ttl := c.resultTTL
	if !entry.Valid {
		ttl = c.failureTTL
	}
	return time.Since(entry.LastChecked) < ttl
}

// Len returns the number of cached entries.
func (c *MemoryCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *MemoryCache) Close() error { return nil }
