package linkcheck

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"git.home.luguber.info/inful/docweaver/internal/config"
	"git.home.luguber.info/inful/docweaver/internal/logfields"
)

const kvMaxBytes = 100 * 1024 * 1024

// NATSCache is a ResultCache backed by a JetStream key-value bucket, shared
// between every process pointed at the same NATS server. It also publishes
// broken-link events on the configured subject.
type NATSCache struct {
	conn       *nats.Conn
	js         jetstream.JetStream
	kv         jetstream.KeyValue
	subject    string
	resultTTL  time.Duration
	failureTTL time.Duration
}

// NewNATSCache connects to the configured NATS server and opens the link
// cache bucket, creating it on first use.
func NewNATSCache(cfg config.NATSConfig) (*NATSCache, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("NATS URL is required")
	}

	conn, err := nats.Connect(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	js, err := jetstream.New(conn)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	c := &NATSCache{
		conn:       conn,
		js:         js,
		subject:    cfg.Subject,
		resultTTL:  defaultResultTTL,
		failureTTL: defaultFailureTTL,
	}
	if err := c.initBucket(cfg.KVBucket); err != nil {
		conn.Close()
		return nil, err
	}

	slog.Info("Link cache connected",
		logfields.URL(cfg.URL),
		slog.String("subject", cfg.Subject),
		slog.String("bucket", cfg.KVBucket))
	return c, nil
}

func (c *NATSCache) initBucket(bucket string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	kv, err := c.js.KeyValue(ctx, bucket)
	if err == nil {
		c.kv = kv
		return nil
	}

	kv, err = c.js.CreateKeyValue(ctx, jetstream.KeyValueConfig{
		Bucket:      bucket,
		Description: "Link verification cache",
		MaxBytes:    kvMaxBytes,
		History:     1,
	})
	if err != nil {
		return fmt.Errorf("failed to create KV bucket: %w", err)
	}
	c.kv = kv
	return nil
}

// cacheKey hashes a URL into the restricted character set KV keys allow.
func cacheKey(url string) string {
	sum := sha256.Sum256([]byte(url))
	return hex.EncodeToString(sum[:16])
}

// Get returns the cached entry for a URL, or ErrCacheMiss.
func (c *NATSCache) Get(ctx context.Context, url string) (*Entry, error) {
	kve, err := c.kv.Get(ctx, cacheKey(url))
	if err != nil {
		if err == jetstream.ErrKeyNotFound {
			return nil, ErrCacheMiss
		}
		return nil, fmt.Errorf("failed to get cache entry: %w", err)
	}
	var entry Entry
	if err := json.Unmarshal(kve.Value(), &entry); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cache entry: %w", err)
	}
	return &entry, nil
}

// Put stores an entry keyed by the hash of its URL.
func (c *NATSCache) Put(ctx context.Context, entry *Entry) error {
	if entry == nil || entry.URL == "" {
		return nil
	}
	entry.LastChecked = time.Now()
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal cache entry: %w", err)
	}
	if _, err := c.kv.Put(ctx, cacheKey(entry.URL), data); err != nil {
		return fmt.Errorf("failed to put cache entry: %w", err)
	}
	return nil
}

// Fresh applies the result TTL to valid entries and the failure TTL to
// broken ones. The bucket has no per-key TTL; staleness is decided on read.
func (c *NATSCache) Fresh(entry *Entry) bool {
	if entry == nil {
		return false
	}
	ttl := c.resultTTL
	if !entry.Valid {
		ttl = c.failureTTL
	}
	return time.Since(entry.LastChecked) < ttl
}

// PublishBroken publishes a broken-link event on the configured subject.
// With no subject configured the event is dropped.
func (c *NATSCache) PublishBroken(ctx context.Context, event *BrokenLinkEvent) error {
	if c.subject == "" {
		return nil
	}
	event.Timestamp = time.Now()
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	if _, err := c.js.Publish(ctx, c.subject, data); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}
	slog.Debug("Published broken link event",
		logfields.URL(event.URL),
		slog.String("source", event.Source))
	return nil
}

// Close closes the NATS connection.
func (c *NATSCache) Close() error {
	if c.conn != nil {
		c.conn.Close()
	}
	return nil
}
