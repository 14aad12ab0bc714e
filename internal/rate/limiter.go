// Package rate implements fixed-window request limiting keyed by client and
// route.
package rate

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/redis/go-redis/v9"
)

// Result describes one Allow decision.
type Result struct {
	Allowed    bool
	Remaining  int64
	RetryAfter time.Duration
}

// Limiter decides whether another hit for key fits in the current window.
type Limiter interface {
	Allow(ctx context.Context, key string) (Result, error)
}

func windowKey(prefix, key string, now time.Time, window time.Duration) string {
	start := now.Truncate(window)
	return fmt.Sprintf("%s%s:%d", prefix, strings.ReplaceAll(key, " ", "_"), start.Unix())
}

func decide(hits, max int64, now time.Time, window time.Duration) Result {
	res := Result{Allowed: hits <= max, Remaining: max - hits}
	if res.Remaining < 0 {
		res.Remaining = 0
	}
	if !res.Allowed {
		res.RetryAfter = now.Truncate(window).Add(window).Sub(now)
	}
	return res
}

// RedisLimiter counts hits with INCR and expires each window with EXPIRE.
type RedisLimiter struct {
	Client *redis.Client
	Prefix string
	Max    int64
	Window time.Duration
}

// NewRedisLimiter creates a RedisLimiter allowing max hits per window.
func NewRedisLimiter(client *redis.Client, prefix string, max int, window time.Duration) *RedisLimiter {
	if prefix == "" {
		prefix = "rl:"
	}
	return &RedisLimiter{Client: client, Prefix: prefix, Max: int64(max), Window: window}
}

func (l *RedisLimiter) Allow(ctx context.Context, key string) (Result, error) {
	now := time.Now().UTC()
	redisKey := windowKey(l.Prefix, key, now, l.Window)

	pipe := l.Client.TxPipeline()
	incr := pipe.Incr(ctx, redisKey)
	pipe.ExpireNX(ctx, redisKey, l.Window)
	if _, err := pipe.Exec(ctx); err != nil {
		return Result{}, err
	}
	return decide(incr.Val(), l.Max, now, l.Window), nil
}

// MemoryLimiter is the in-process counterpart of RedisLimiter.
type MemoryLimiter struct {
	mu     sync.Mutex
	c      *gocache.Cache
	Max    int64
	Window time.Duration
	now    func() time.Time
}

// NewMemoryLimiter creates a MemoryLimiter allowing max hits per window.
func NewMemoryLimiter(max int, window time.Duration) *MemoryLimiter {
	return &MemoryLimiter{
		c:      gocache.New(window, window),
		Max:    int64(max),
		Window: window,
		now:    time.Now,
	}
}

func (l *MemoryLimiter) Allow(_ context.Context, key string) (Result, error) {
	now := l.now().UTC()
	k := windowKey("", key, now, l.Window)

	l.mu.Lock()
	defer l.mu.Unlock()
	hits, err := l.c.IncrementInt64(k, 1)
	if err != nil {
		l.c.Set(k, int64(1), l.Window)
		hits = 1
	}
	return decide(hits, l.Max, now, l.Window), nil
}
