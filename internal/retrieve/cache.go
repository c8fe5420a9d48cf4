package retrieve

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	redis "github.com/redis/go-redis/v9"

	"newsbrief/internal/model"
)

// Cache is the Redis-backed retrieval cache (SPEC_FULL.md's Retriever
// expansion): keyed by a hash of (query, window, language, sources,
// k_final, use_rerank), grounded on the teacher's orchestrator
// RedisDedupeStore get/set-with-TTL pattern.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCache constructs a Cache over an existing Redis client.
func NewCache(client *redis.Client, ttl time.Duration) *Cache {
	return &Cache{client: client, ttl: ttl}
}

type cacheEntry struct {
	WindowEnd time.Time       `json:"window_end"`
	Docs      []model.Document `json:"docs"`
}

// Get returns the cached documents for the given request shape, unless the
// window end has moved past the entry's captured "now" (SPEC_FULL.md's
// cache-invalidation rule).
func (c *Cache) Get(ctx context.Context, query string, window Window, language string, sources []string, kFinal int, useRerank bool) ([]model.Document, bool) {
	if c == nil || c.client == nil {
		return nil, false
	}
	key := cacheKey(query, window, language, sources, kFinal, useRerank)
	raw, err := c.client.Get(ctx, key).Result()
	if err != nil {
		return nil, false
	}
	var entry cacheEntry
	if err := json.Unmarshal([]byte(raw), &entry); err != nil {
		return nil, false
	}
	if window.End.After(entry.WindowEnd) {
		return nil, false
	}
	return entry.Docs, true
}

// Set stores the result under the request's cache key.
func (c *Cache) Set(ctx context.Context, query string, window Window, language string, sources []string, kFinal int, useRerank bool, docs []model.Document) error {
	if c == nil || c.client == nil {
		return nil
	}
	key := cacheKey(query, window, language, sources, kFinal, useRerank)
	entry := cacheEntry{WindowEnd: window.End, Docs: docs}
	raw, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, key, raw, c.ttl).Err()
}

func cacheKey(query string, window Window, language string, sources []string, kFinal int, useRerank bool) string {
	sorted := append([]string(nil), sources...)
	sort.Strings(sorted)
	h := sha256.New()
	fmt.Fprintf(h, "q=%s|ws=%d|we=%d|lang=%s|src=%s|k=%d|rr=%t",
		strings.ToLower(strings.TrimSpace(query)),
		window.Start.Unix(), window.End.Unix(),
		language, strings.Join(sorted, ","), kFinal, useRerank)
	return "retrieve:" + hex.EncodeToString(h.Sum(nil))
}
