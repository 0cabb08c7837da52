package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache provides typed JSON caching utilities
// ⭐ SSOT: 캐시 헬퍼는 여기서만
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

func (c *Cache) fullKey(key string) string {
	return fmt.Sprintf("%s:cache:%s", c.prefix, key)
}

// Get retrieves a cached value
func (c *Cache) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	if !c.client.Enabled() {
		return false, nil
	}

	data, err := c.client.Redis().Get(ctx, c.fullKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("cache get failed: %w", err)
	}

	if err := json.Unmarshal(data, dest); err != nil {
		return false, fmt.Errorf("cache unmarshal failed: %w", err)
	}

	return true, nil
}

// Set stores a value in cache with TTL
func (c *Cache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if !c.client.Enabled() {
		return nil
	}

	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("cache marshal failed: %w", err)
	}

	return c.client.Redis().Set(ctx, c.fullKey(key), data, ttl).Err()
}

// Delete removes a cached value
func (c *Cache) Delete(ctx context.Context, key string) error {
	if !c.client.Enabled() {
		return nil
	}

	return c.client.Redis().Del(ctx, c.fullKey(key)).Err()
}

// Invalidate removes every key under a key prefix (재분류 후 호출)
func (c *Cache) Invalidate(ctx context.Context, keyPrefix string) (int, error) {
	if !c.client.Enabled() {
		return 0, nil
	}

	rdb := c.client.Redis()
	iter := rdb.Scan(ctx, 0, c.fullKey(keyPrefix)+"*", 500).Iterator()

	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return 0, fmt.Errorf("cache scan failed: %w", err)
	}
	if len(keys) == 0 {
		return 0, nil
	}

	if err := rdb.Del(ctx, keys...).Err(); err != nil {
		return 0, fmt.Errorf("cache delete failed: %w", err)
	}
	return len(keys), nil
}

// GetOrSet retrieves from cache or calls fn to populate it.
// 캐시 장애는 무시하고 fn 결과를 그대로 반환
func GetOrSet[T any](ctx context.Context, c *Cache, key string, ttl time.Duration, fn func() (T, error)) (T, error) {
	return GetOrSetWhen(ctx, c, key, ttl, fn, nil)
}

// GetOrSetWhen is GetOrSet that stores only values accepted by keep (nil keep stores all).
// 일시 상태(예: 스테이지 미적재 판정)를 캐시에 남기지 않을 때 사용
func GetOrSetWhen[T any](ctx context.Context, c *Cache, key string, ttl time.Duration, fn func() (T, error), keep func(T) bool) (T, error) {
	var cached T
	if found, err := c.Get(ctx, key, &cached); err == nil && found {
		return cached, nil
	}

	value, err := fn()
	if err != nil {
		return value, err
	}

	if keep == nil || keep(value) {
		_ = c.Set(ctx, key, value, ttl)
	}
	return value, nil
}

// Predefined TTLs
const (
	TTLShort  = 1 * time.Minute  // 게이트 판단
	TTLMedium = 10 * time.Minute // 스테이지 조회
	TTLDaily  = 24 * time.Hour   // 일별 데이터
)

// Cache key generators. 설정 해시가 바뀌면 키도 바뀜
func GateKey(configHash, sectorID, date string) string {
	return fmt.Sprintf("gate:%s:%s:%s", shortHash(configHash), sectorID, date)
}

func InstrumentGateKey(configHash, code, date string) string {
	return fmt.Sprintf("gate:%s:inst:%s:%s", shortHash(configHash), code, date)
}

func StageKey(configHash, kind, seriesID string) string {
	return fmt.Sprintf("stage:%s:%s:%s", shortHash(configHash), kind, seriesID)
}

func shortHash(h string) string {
	if len(h) > 12 {
		return h[:12]
	}
	return h
}
