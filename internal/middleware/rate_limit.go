package middleware

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/timehacker/api/internal/constants"
	apperrors "github.com/timehacker/api/internal/errors"
	ctxutil "github.com/timehacker/api/pkg/context"
	"github.com/timehacker/api/pkg/logger"
	"github.com/timehacker/api/pkg/redis"
)

// Limiter decides whether one more request under key fits the budget
type Limiter interface {
	Allow(ctx context.Context, key string) (Decision, error)
}

type Decision struct {
	Allowed   bool
	Limit     int
	Remaining int
	Reset     time.Duration
}

// MemoryLimiter is a per-process sliding window. Allow trims only the key
// it serves; idle keys are swept at most once per window.
type MemoryLimiter struct {
	mu         sync.Mutex
	hits       map[string][]time.Time
	maxRequest int
	duration   time.Duration
	now        func() time.Time
	lastSweep  time.Time
}

func NewMemoryLimiter(maxRequest int, duration time.Duration) *MemoryLimiter {
	return &MemoryLimiter{
		hits:       make(map[string][]time.Time),
		maxRequest: maxRequest,
		duration:   duration,
		now:        time.Now,
		lastSweep:  time.Now(),
	}
}

// prune drops hits outside the window. Must hold lock.
func (l *MemoryLimiter) prune(key string, now time.Time) []time.Time {
	hits := l.hits[key]
	i := 0
	for i < len(hits) && now.Sub(hits[i]) >= l.duration {
		i++
	}
	hits = hits[i:]
	if len(hits) == 0 {
		delete(l.hits, key)
		return nil
	}
	l.hits[key] = hits
	return hits
}

// sweep must hold lock
func (l *MemoryLimiter) sweep(now time.Time) {
	if now.Sub(l.lastSweep) < l.duration {
		return
	}
	l.lastSweep = now
	for key := range l.hits {
		l.prune(key, now)
	}
}

func (l *MemoryLimiter) Allow(_ context.Context, key string) (Decision, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.sweep(now)

	hits := l.prune(key, now)
	decision := Decision{Limit: l.maxRequest, Reset: l.duration}
	if len(hits) > 0 {
		decision.Reset = l.duration - now.Sub(hits[0])
	}

	if len(hits) >= l.maxRequest {
		return decision, nil
	}

	l.hits[key] = append(hits, now)
	decision.Allowed = true
	decision.Remaining = l.maxRequest - len(hits) - 1
	return decision, nil
}

// RedisLimiter is a fixed window shared by every replica
type RedisLimiter struct {
	client     *redis.Client
	maxRequest int
	duration   time.Duration
}

func NewRedisLimiter(client *redis.Client, maxRequest int, duration time.Duration) *RedisLimiter {
	return &RedisLimiter{client: client, maxRequest: maxRequest, duration: duration}
}

func (l *RedisLimiter) Allow(ctx context.Context, key string) (Decision, error) {
	count, ttl, err := l.client.IncrWindow(ctx, constants.KeyRateLimitPrefix+key, l.duration)
	if err != nil {
		return Decision{}, err
	}

	remaining := l.maxRequest - int(count)
	if remaining < 0 {
		remaining = 0
	}
	return Decision{
		Allowed:   count <= int64(l.maxRequest),
		Limit:     l.maxRequest,
		Remaining: remaining,
		Reset:     ttl,
	}, nil
}

// NewLimiter picks Redis when the client is connected
func NewLimiter(client *redis.Client, maxRequest int, duration time.Duration) Limiter {
	if maxRequest < 1 {
		maxRequest = 1
	}
	if client.IsEnabled() {
		return NewRedisLimiter(client, maxRequest, duration)
	}
	return NewMemoryLimiter(maxRequest, duration)
}

// RateLimit keys requests by scope and client IP. A limiter error lets
// the request through.
func RateLimit(limiter Limiter, scope string) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := ctxutil.WithFunction(c.Request.Context(), "middleware", "RateLimit")
		ip := c.ClientIP()

		decision, err := limiter.Allow(ctx, scope+":"+ip)
		if err != nil {
			logger.WarnWithContext(ctx, "Rate limiter unavailable, allowing request").
				String("scope", scope).
				Err(err).
				Log()
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(decision.Limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(decision.Remaining))

		if !decision.Allowed {
			retryAfter := int(decision.Reset.Round(time.Second) / time.Second)
			if retryAfter < 1 {
				retryAfter = 1
			}
			logger.WarnWithContext(ctx, "Rate limit exceeded").
				String("scope", scope).
				String("client_ip", ip).
				String("path", c.Request.URL.Path).
				Int("max_requests", decision.Limit).
				Int("retry_after", retryAfter).
				Log()

			c.Header(constants.HeaderRetryAfter, strconv.Itoa(retryAfter))
			AbortWithError(c, apperrors.ErrRateLimited)
			return
		}

		c.Next()
	}
}
