package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	goredis "github.com/go-redis/redis/v8"
)

const defaultCacheTTL = 60 * time.Second

// Cache stores fetched TickerData in Redis so repeated cycles within the TTL
// do not hammer the upstream API. A nil *Cache is valid and disables caching.
type Cache struct {
	client *goredis.Client
	ttl    time.Duration
}

// CacheConfig configures the Redis snapshot cache.
type CacheConfig struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration // default: 60s
}

// NewCache connects to Redis and pings the server.
func NewCache(cfg CacheConfig) (*Cache, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	ttl := cfg.TTL
	if ttl == 0 {
		ttl = defaultCacheTTL
	}
	log.Printf("[marketdata] snapshot cache connected to %s (ttl=%s)", cfg.Addr, ttl)
	return &Cache{client: client, ttl: ttl}, nil
}

// Client returns the underlying Redis client for health checks.
func (c *Cache) Client() *goredis.Client {
	if c == nil {
		return nil
	}
	return c.client
}

func cacheKey(ticker string) string {
	return "mdata:ticker:" + ticker
}

// Get returns the cached TickerData for the ticker, if present and fresh.
func (c *Cache) Get(ctx context.Context, ticker string) (TickerData, bool) {
	if c == nil {
		return TickerData{}, false
	}
	raw, err := c.client.Get(ctx, cacheKey(ticker)).Bytes()
	if err != nil {
		return TickerData{}, false
	}
	var data TickerData
	if err := json.Unmarshal(raw, &data); err != nil {
		return TickerData{}, false
	}
	return data, true
}

// Put stores TickerData under the ticker key with the configured TTL.
// Cache write failures are logged, never surfaced: the cache is advisory.
func (c *Cache) Put(ctx context.Context, ticker string, data TickerData) {
	if c == nil {
		return
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, cacheKey(ticker), raw, c.ttl).Err(); err != nil {
		log.Printf("[marketdata] cache write for %s failed: %v", ticker, err)
	}
}

// Close releases the Redis connection.
func (c *Cache) Close() error {
	if c == nil {
		return nil
	}
	return c.client.Close()
}

// CachedSource wraps a Source with the cache.
type CachedSource struct {
	Source Source
	Cache  *Cache
}

// FetchTickerData consults the cache before the underlying source.
func (s *CachedSource) FetchTickerData(ctx context.Context, ticker, startDate, endDate string) (TickerData, error) {
	if data, ok := s.Cache.Get(ctx, ticker); ok {
		return data, nil
	}
	data, err := s.Source.FetchTickerData(ctx, ticker, startDate, endDate)
	if err != nil {
		return TickerData{}, err
	}
	s.Cache.Put(ctx, ticker, data)
	return data, nil
}
