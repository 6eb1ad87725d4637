package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// Cache provides JSON value caching under a key namespace
// ⭐ SSOT: 缓存键格式只在这里
type Cache struct {
	client *Client
	prefix string
}

// NewCache creates a new cache helper
func NewCache(client *Client, prefix string) *Cache {
	return &Cache{
		client: client,
		prefix: prefix,
	}
}

func (c *Cache) key(key string) string {
	return fmt.Sprintf("%s:cache:%s", c.prefix, key)
}

// Get retrieves a cached value into dest, reporting whether it was present.
// 未命中不算错误.
func (c *Cache) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	data, err := c.client.rdb.Get(ctx, c.key(key)).Bytes()
	if err != nil {
		return false, nil
	}

	if err := json.Unmarshal(data, dest); err != nil {
		return false, fmt.Errorf("cache unmarshal failed: %w", err)
	}

	return true, nil
}

// Set stores a value with a TTL
func (c *Cache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("cache marshal failed: %w", err)
	}

	return c.client.rdb.Set(ctx, c.key(key), data, ttl).Err()
}

// Delete removes a cached value
func (c *Cache) Delete(ctx context.Context, key string) error {
	return c.client.rdb.Del(ctx, c.key(key)).Err()
}

// Predefined TTLs
const (
	TTLShort  = 1 * time.Minute  // 实时行情
	TTLMedium = 10 * time.Minute // 股票信息
	TTLDaily  = 24 * time.Hour   // 日线数据
)

// DailyKey builds the cache key for a stock's daily candles
func DailyKey(code string, date string, count int) string {
	return fmt.Sprintf("daily:%s:%s:%d", code, date, count)
}

// IntradayKey builds the cache key for a stock's minute candles
func IntradayKey(code string, date string) string {
	return fmt.Sprintf("minute:%s:%s", code, date)
}
