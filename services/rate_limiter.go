package services

import (
	"context"
	"sync"
	"time"
)

const (
	DefaultRateWindow     = 15 * time.Minute
	DefaultMaxSubmissions = 5
)

// RateDecision is the outcome of one admission attempt for a key.
type RateDecision struct {
	Allowed   bool
	Remaining int
	// RetryAfter is set when Allowed is false: time until the oldest entry
	// in the window expires.
	RetryAfter time.Duration
}

// RateLimiter gates attempts per source key with a sliding window.
type RateLimiter interface {
	Allow(ctx context.Context, key string) (RateDecision, error)
}

// MemoryRateLimiter keeps per-key timestamps in process. It is only correct
// for a single instance; use RedisRateLimiter when running several.
type MemoryRateLimiter struct {
	mu         sync.Mutex
	entries    map[string][]time.Time
	capacity   int
	window     time.Duration
	sweepEvery time.Duration
	now        func() time.Time
}

type MemoryLimiterOption func(*MemoryRateLimiter)

func WithLimiterClock(now func() time.Time) MemoryLimiterOption {
	return func(l *MemoryRateLimiter) { l.now = now }
}

func WithSweepEvery(d time.Duration) MemoryLimiterOption {
	return func(l *MemoryRateLimiter) { l.sweepEvery = d }
}

func NewMemoryRateLimiter(capacity int, window time.Duration, opts ...MemoryLimiterOption) *MemoryRateLimiter {
	if capacity <= 0 {
		capacity = DefaultMaxSubmissions
	}
	if window <= 0 {
		window = DefaultRateWindow
	}
	l := &MemoryRateLimiter{
		entries:    make(map[string][]time.Time),
		capacity:   capacity,
		window:     window,
		sweepEvery: 2 * time.Minute,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *MemoryRateLimiter) Capacity() int         { return l.capacity }
func (l *MemoryRateLimiter) Window() time.Duration { return l.window }

// Allow prunes the key's history, then admits and records now iff fewer
// than capacity attempts remain in the window.
func (l *MemoryRateLimiter) Allow(_ context.Context, key string) (RateDecision, error) {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	history := prune(l.entries[key], now, l.window)
	if len(history) >= l.capacity {
		l.entries[key] = history
		return RateDecision{
			Allowed:    false,
			RetryAfter: history[0].Add(l.window).Sub(now),
		}, nil
	}

	history = append(history, now)
	l.entries[key] = history
	return RateDecision{Allowed: true, Remaining: l.capacity - len(history)}, nil
}

// Sweep drops keys whose whole history has left the window.
func (l *MemoryRateLimiter) Sweep() {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	for key, history := range l.entries {
		history = prune(history, now, l.window)
		if len(history) == 0 {
			delete(l.entries, key)
			continue
		}
		l.entries[key] = history
	}
}

// Keys returns the number of tracked source keys.
func (l *MemoryRateLimiter) Keys() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

// StartJanitor sweeps idle keys periodically until ctx is cancelled.
func (l *MemoryRateLimiter) StartJanitor(ctx context.Context) {
	if l.sweepEvery <= 0 {
		return
	}

	t := time.NewTicker(l.sweepEvery)
	go func() {
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				l.Sweep()
			}
		}
	}()
}

// prune keeps timestamps younger than window, reusing the backing array.
func prune(history []time.Time, now time.Time, window time.Duration) []time.Time {
	i := 0
	for i < len(history) && now.Sub(history[i]) >= window {
		i++
	}
	if i == 0 {
		return history
	}
	return append(history[:0], history[i:]...)
}
