package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// slidingWindowScript prunes, counts and conditionally records an attempt in
// one round trip. Scores are unix milliseconds.
var slidingWindowScript = redis.NewScript(`
local key = KEYS[1]
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local capacity = tonumber(ARGV[3])

redis.call('ZREMRANGEBYSCORE', key, '-inf', now - window)
local count = redis.call('ZCARD', key)
if count < capacity then
	redis.call('ZADD', key, now, ARGV[4])
	redis.call('PEXPIRE', key, window)
	return {1, capacity - count - 1, 0}
end

local retry = window
local oldest = redis.call('ZRANGE', key, 0, 0, 'WITHSCORES')
if oldest[2] then
	retry = tonumber(oldest[2]) + window - now
end
return {0, 0, retry}
`)

// RedisRateLimiter is a sliding window shared by every instance pointing at
// the same Redis. Keys expire with the window so idle sources cost nothing.
type RedisRateLimiter struct {
	rdb      redis.UniversalClient
	prefix   string
	capacity int
	window   time.Duration
	now      func() time.Time
}

type RedisLimiterOption func(*RedisRateLimiter)

func WithRedisPrefix(prefix string) RedisLimiterOption {
	return func(l *RedisRateLimiter) { l.prefix = strings.Trim(prefix, ":") }
}

func WithRedisClock(now func() time.Time) RedisLimiterOption {
	return func(l *RedisRateLimiter) { l.now = now }
}

func NewRedisRateLimiter(rdb redis.UniversalClient, capacity int, window time.Duration, opts ...RedisLimiterOption) *RedisRateLimiter {
	if capacity <= 0 {
		capacity = DefaultMaxSubmissions
	}
	if window <= 0 {
		window = DefaultRateWindow
	}
	l := &RedisRateLimiter{
		rdb:      rdb,
		prefix:   "ratelimit",
		capacity: capacity,
		window:   window,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *RedisRateLimiter) Capacity() int         { return l.capacity }
func (l *RedisRateLimiter) Window() time.Duration { return l.window }

func (l *RedisRateLimiter) Allow(ctx context.Context, key string) (RateDecision, error) {
	now := l.now().UnixMilli()
	res, err := slidingWindowScript.Run(ctx, l.rdb,
		[]string{l.prefix + ":" + key},
		now, l.window.Milliseconds(), l.capacity, uuid.NewString(),
	).Int64Slice()
	if err != nil {
		return RateDecision{}, fmt.Errorf("redis sliding window: %w", err)
	}
	if len(res) != 3 {
		return RateDecision{}, fmt.Errorf("redis sliding window: unexpected reply %v", res)
	}

	if res[0] == 1 {
		return RateDecision{Allowed: true, Remaining: int(res[1])}, nil
	}
	return RateDecision{Allowed: false, RetryAfter: time.Duration(res[2]) * time.Millisecond}, nil
}
