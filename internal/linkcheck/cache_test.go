package linkcheck

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestMemoryCacheRoundTrip(t *testing.T) {
	cache := NewMemoryCache(0, 0)
	ctx := context.Background()

	if _, err := cache.Get(ctx, "https://example.com/x"); !errors.Is(err, ErrCacheMiss) {
		t.Fatalf("expected ErrCacheMiss, got %v", err)
	}

	entry := &Entry{URL: "https://example.com/x", Status: 200, Valid: true}
	if err := cache.Put(ctx, entry); err != nil {
		t.Fatalf("Put: %v", err)
	}

	got, err := cache.Get(ctx, "https://example.com/x")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Status != 200 || !got.Valid {
		t.Errorf("entry = %+v, want status 200 valid", got)
	}
	if got.LastChecked.IsZero() {
		t.Errorf("LastChecked not stamped on Put")
	}
	if cache.Len() != 1 {
		t.Errorf("Len = %d, want 1", cache.Len())
	}
}

func TestMemoryCacheReturnsCopies(t *testing.T) {
	cache := NewMemoryCache(0, 0)
	ctx := context.Background()

	entry := &Entry{URL: "https://example.com/x", Status: 200, Valid: true}
	if err := cache.Put(ctx, entry); err != nil {
		t.Fatalf("Put: %v", err)
	}
	entry.Status = 500 // caller mutation after Put must not leak in

	got, err := cache.Get(ctx, "https://example.com/x")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Status != 200 {
		t.Fatalf("Status = %d, want 200 (cache shares caller memory)", got.Status)
	}
	got.Valid = false // mutation of the returned copy must not leak back

	again, err := cache.Get(ctx, "https://example.com/x")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !again.Valid {
		t.Fatalf("cached entry mutated through returned copy")
	}
}

func TestMemoryCacheFreshnessWindows(t *testing.T) {
	cache := NewMemoryCache(time.Hour, 10*time.Minute)

	recent := time.Now().Add(-time.Minute)
	old := time.Now().Add(-30 * time.Minute)
	ancient := time.Now().Add(-2 * time.Hour)

	cases := []struct {
		name  string
		entry *Entry
		want  bool
	}{
		{"nil entry", nil, false},
		{"recent valid", &Entry{Valid: true, LastChecked: recent}, true},
		{"recent failure", &Entry{Valid: false, LastChecked: recent}, true},
		{"failure past failure TTL", &Entry{Valid: false, LastChecked: old}, false},
		{"valid within result TTL", &Entry{Valid: true, LastChecked: old}, true},
		{"valid past result TTL", &Entry{Valid: true, LastChecked: ancient}, false},
	}
	for _, tc := range cases {
		if got := cache.Fresh(tc.entry); got != tc.want {
			t.Errorf("%s: Fresh = %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestMemoryCacheIgnoresEmptyEntries(t *testing.T) {
	cache := NewMemoryCache(0, 0)
	ctx := context.Background()
	if err := cache.Put(ctx, nil); err != nil {
		t.Fatalf("Put(nil): %v", err)
	}
	if err := cache.Put(ctx, &Entry{}); err != nil {
		t.Fatalf("Put(empty): %v", err)
	}
	if cache.Len() != 0 {
		t.Errorf("Len = %d, want 0", cache.Len())
	}
}

func TestCacheKeyIsKVSafe(t *testing.T) {
	key := cacheKey("https://example.com/path?q=1#frag")
	if len(key) != 32 {
		t.Fatalf("key length = %d, want 32", len(key))
	}
	for _, r := range key {
		if (r < '0' || r > '9') && (r < 'a' || r > 'f') {
			t.Fatalf("key %q contains non-hex rune %q", key, r)
		}
	}
	if key == cacheKey("https://example.com/other") {
		t.Fatalf("distinct URLs share a key")
	}
}
