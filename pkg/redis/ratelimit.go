package redis

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
)

// RateLimiter implements sliding window rate limiting using Redis
// ⭐ SSOT: 분산 레이트 리밋은 여기서만 (단일 인스턴스는 x/time/rate)
type RateLimiter struct {
	client *Client
	prefix string
	seq    atomic.Uint64
}

// RateLimitConfig defines rate limit parameters
type RateLimitConfig struct {
	Key    string        // Unique identifier (e.g., "api:10.0.0.1")
	Limit  int           // Maximum requests allowed
	Window time.Duration // Time window
}

// slidingWindowScript counts requests in a sorted set atomically
var slidingWindowScript = redis.NewScript(`
	local key = KEYS[1]
	local now = tonumber(ARGV[1])
	local window_start = tonumber(ARGV[2])
	local limit = tonumber(ARGV[3])
	local window_ms = tonumber(ARGV[4])
	local member = ARGV[5]

	-- Remove old entries outside the window
	redis.call('ZREMRANGEBYSCORE', key, '-inf', window_start)

	local count = redis.call('ZCARD', key)
	if count < limit then
		redis.call('ZADD', key, now, member)
		redis.call('PEXPIRE', key, window_ms)
		return {1, limit - count - 1}
	end
	return {0, 0}
`)

// NewRateLimiter creates a new rate limiter
func NewRateLimiter(client *Client, prefix string) *RateLimiter {
	return &RateLimiter{
		client: client,
		prefix: prefix,
	}
}

// Allow checks if a request is allowed under the rate limit
// Returns (allowed, remaining, error)
func (r *RateLimiter) Allow(ctx context.Context, cfg RateLimitConfig) (bool, int, error) {
	if !r.client.Enabled() {
		// If Redis is disabled, allow all requests
		return true, cfg.Limit, nil
	}

	key := fmt.Sprintf("%s:ratelimit:%s", r.prefix, cfg.Key)
	now := time.Now().UnixMilli()
	windowStart := now - cfg.Window.Milliseconds()
	// 같은 ms 내 요청도 구분되도록 멤버에 시퀀스 부여
	member := fmt.Sprintf("%d-%d", now, r.seq.Add(1))

	result, err := slidingWindowScript.Run(ctx, r.client.Redis(), []string{key},
		now,
		windowStart,
		cfg.Limit,
		cfg.Window.Milliseconds(),
		member,
	).Slice()
	if err != nil {
		return false, 0, fmt.Errorf("rate limit script failed: %w", err)
	}

	allowed := result[0].(int64) == 1
	remaining := int(result[1].(int64))

	return allowed, remaining, nil
}

// APIRateLimit builds the shared per-client limit of the HTTP API.
// 여러 API 인스턴스가 같은 Redis를 공유할 때 사용
func APIRateLimit(clientKey string, perSecond float64, burst int) RateLimitConfig {
	limit := burst
	if limit <= 0 {
		limit = int(perSecond)
	}
	if limit <= 0 {
		limit = 1
	}
	return RateLimitConfig{
		Key:    "api:" + clientKey,
		Limit:  limit,
		Window: time.Second,
	}
}
