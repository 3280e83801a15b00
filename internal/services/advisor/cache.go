package advisor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// ForecastCache stores encoded forecasts by key.
type ForecastCache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, val []byte, ttl time.Duration) error
}

// RedisCache keeps forecasts in Redis so every replica shares them.
type RedisCache struct {
	rdb    *redis.Client
	prefix string
}

func NewRedisCache(rdb *redis.Client, prefix string) *RedisCache {
	if prefix == "" {
		prefix = "agronomy:forecast:"
	}
	return &RedisCache{rdb: rdb, prefix: prefix}
}

func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	b, err := c.rdb.Get(ctx, c.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return b, true, nil
}

func (c *RedisCache) Set(ctx context.Context, key string, val []byte, ttl time.Duration) error {
	return c.rdb.Set(ctx, c.prefix+key, val, ttl).Err()
}

type memEntry struct {
	val []byte
	exp time.Time
}

// MemoryCache is the single-process fallback used when no Redis is configured.
type MemoryCache struct {
	mu    sync.Mutex
	items map[string]memEntry
	now   func() time.Time
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{items: make(map[string]memEntry), now: time.Now}
}

func (c *MemoryCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.items[key]
	if !ok {
		return nil, false, nil
	}
	if !c.now().Before(e.exp) {
		delete(c.items, key)
		return nil, false, nil
	}
	return e.val, true, nil
}

func (c *MemoryCache) Set(_ context.Context, key string, val []byte, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[key] = memEntry{val: append([]byte(nil), val...), exp: c.now().Add(ttl)}
	return nil
}

// CachedWeather serves forecasts from cache, asking next on a miss.
// Cache errors are logged and bypassed.
type CachedWeather struct {
	next  WeatherClient
	cache ForecastCache
	ttl   time.Duration
}

func NewCachedWeather(next WeatherClient, cache ForecastCache, ttl time.Duration) *CachedWeather {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &CachedWeather{next: next, cache: cache, ttl: ttl}
}

func forecastKey(lat, lon float64, day time.Time) string {
	return fmt.Sprintf("%.3f:%.3f:%s", lat, lon, truncateDay(day).Format("2006-01-02"))
}

func (c *CachedWeather) Forecast(ctx context.Context, lat, lon float64, day time.Time) (Forecast, error) {
	key := forecastKey(lat, lon, day)
	if b, ok, err := c.cache.Get(ctx, key); err != nil {
		log.Printf("weather: cache get key=%s err=%v", key, err)
	} else if ok {
		var f Forecast
		if err := json.Unmarshal(b, &f); err == nil {
			return f, nil
		}
	}

	f, err := c.next.Forecast(ctx, lat, lon, day)
	if err != nil {
		return Forecast{}, err
	}
	if b, err := json.Marshal(f); err == nil {
		if err := c.cache.Set(ctx, key, b, c.ttl); err != nil {
			log.Printf("weather: cache set key=%s err=%v", key, err)
		}
	}
	return f, nil
}
