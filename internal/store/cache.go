package store

import (
	"context"
	"crypto/sha1"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mohammad-safakhou/postcraft/config"
	"github.com/mohammad-safakhou/postcraft/tools/search"
)

// Cache stores fact-check search results and run summaries in Redis. A nil
// *Cache is valid and turns every operation into a no-op, so the workflow
// runs unchanged when no Redis host is configured.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
	logger *log.Logger
}

// NewCache connects to Redis using the provided settings. It returns
// (nil, nil) when no host is configured.
func NewCache(cfg config.RedisConfig) (*Cache, error) {
	if cfg.Host == "" {
		return nil, nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Timeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	ttl := cfg.CacheTTL
	if ttl <= 0 {
		ttl = 6 * time.Hour
	}
	return &Cache{
		client: client,
		ttl:    ttl,
		logger: log.New(log.Writer(), "[CACHE] ", log.LstdFlags),
	}, nil
}

// searchKey normalizes a query so trivially different phrasings share an entry
func searchKey(provider, query string) string {
	norm := strings.Join(strings.Fields(strings.ToLower(query)), " ")
	sum := sha1.Sum([]byte(norm))
	return fmt.Sprintf("postcraft:search:%s:%x", provider, sum)
}

// GetSearchResults returns cached results for a query, or (nil, false)
func (c *Cache) GetSearchResults(ctx context.Context, provider, query string) ([]search.Result, bool) {
	if c == nil {
		return nil, false
	}
	raw, err := c.client.Get(ctx, searchKey(provider, query)).Bytes()
	if err != nil {
		return nil, false
	}
	var results []search.Result
	if err := json.Unmarshal(raw, &results); err != nil {
		return nil, false
	}
	return results, true
}

// PutSearchResults caches results for a query. Errors are logged, not returned;
// a cache write failure must never fail a verification.
func (c *Cache) PutSearchResults(ctx context.Context, provider, query string, results []search.Result) {
	if c == nil {
		return
	}
	raw, err := json.Marshal(results)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, searchKey(provider, query), raw, c.ttl).Err(); err != nil {
		c.logger.Printf("search cache write failed: %v", err)
	}
}

// SaveRunSummary persists a completed run keyed by its ID for later inspection
func (c *Cache) SaveRunSummary(ctx context.Context, runID string, summary any) {
	if c == nil {
		return
	}
	raw, err := json.Marshal(summary)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, "postcraft:run:"+runID, raw, 0).Err(); err != nil {
		c.logger.Printf("run summary write failed: %v", err)
	}
}

// GetRunSummary loads a previously saved run into out
func (c *Cache) GetRunSummary(ctx context.Context, runID string, out any) bool {
	if c == nil {
		return false
	}
	raw, err := c.client.Get(ctx, "postcraft:run:"+runID).Bytes()
	if err != nil {
		return false
	}
	return json.Unmarshal(raw, out) == nil
}

// Close releases the underlying connection
func (c *Cache) Close() error {
	if c == nil {
		return nil
	}
	return c.client.Close()
}
