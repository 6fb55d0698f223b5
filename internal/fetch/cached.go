package fetch

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultCacheTTL is how long a fetched page is served from cache.
const DefaultCacheTTL = 6 * time.Hour

const cacheKeyPrefix = "jobtracker:page:"

// NewRedisClient parses redisURL and verifies connectivity.
func NewRedisClient(ctx context.Context, redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("redis.ParseURL: %w", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return client, nil
}

// CachedFetcher wraps a Fetcher with a read-through Redis cache of raw HTML.
// Only successful fetches are cached. Cache failures never fail the fetch.
type CachedFetcher struct {
	next Fetcher
	rdb  redis.Cmdable
	ttl  time.Duration
}

// NewCachedFetcher creates a cached fetcher. A zero ttl uses DefaultCacheTTL.
func NewCachedFetcher(next Fetcher, rdb redis.Cmdable, ttl time.Duration) *CachedFetcher {
	if next == nil {
		next = HTTP
	}
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &CachedFetcher{next: next, rdb: rdb, ttl: ttl}
}

// Fetch returns the cached page when present, otherwise fetches and caches it.
func (f *CachedFetcher) Fetch(ctx context.Context, urlStr string, opts *Options) (*Result, error) {
	key := cacheKey(urlStr)

	html, err := f.rdb.Get(ctx, key).Result()
	switch {
	case err == nil:
		return &Result{
			URL:         urlStr,
			HTML:        html,
			ContentType: "text/html; charset=utf-8",
			StatusCode:  200,
			FromCache:   true,
		}, nil
	case !errors.Is(err, redis.Nil):
		log.Printf("[fetch] cache read failed for %s: %v", urlStr, err)
	}

	result, err := f.next.Fetch(ctx, urlStr, opts)
	if err != nil {
		return result, err
	}

	if err := f.rdb.Set(ctx, key, result.HTML, f.ttl).Err(); err != nil {
		log.Printf("[fetch] cache write failed for %s: %v", urlStr, err)
	}
	return result, nil
}

// Invalidate drops a cached page.
func (f *CachedFetcher) Invalidate(ctx context.Context, urlStr string) error {
	return f.rdb.Del(ctx, cacheKey(urlStr)).Err()
}

func cacheKey(urlStr string) string {
	sum := sha256.Sum256([]byte(urlStr))
	return cacheKeyPrefix + hex.EncodeToString(sum[:])
}
