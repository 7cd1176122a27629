package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/timehacker/api/config"
	"github.com/timehacker/api/pkg/logger"
	"go.uber.org/zap"
)

var ErrDisabled = errors.New("redis: client disabled")

// incrWindowScript bumps a fixed-window counter and starts the window on
// the first hit, returning the count and the remaining window in ms.
var incrWindowScript = redis.NewScript(`
local n = redis.call("INCR", KEYS[1])
if n == 1 then
	redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return {n, redis.call("PTTL", KEYS[1])}
`)

// Client wraps go-redis. A disabled client answers every call with
// ErrDisabled so callers can fall back to in-process state.
type Client struct {
	rdb *redis.Client
}

func NewClient(cfg *config.Config) (*Client, error) {
	if !cfg.Redis.Enabled {
		logger.GetLogger().Info("Redis disabled")
		return &Client{}, nil
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:         cfg.RedisAddress(),
		Password:     cfg.Redis.Password,
		DB:           cfg.Redis.Database,
		PoolSize:     cfg.Redis.PoolSize,
		MinIdleConns: cfg.Redis.MinIdleConns,
		DialTimeout:  cfg.Redis.DialTimeout,
		ReadTimeout:  cfg.Redis.ReadTimeout,
		WriteTimeout: cfg.Redis.WriteTimeout,
		PoolTimeout:  cfg.Redis.PoolTimeout,
	})

	client := &Client{rdb: rdb}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx); err != nil {
		_ = rdb.Close()
		logger.GetLogger().Error("Failed to connect to Redis",
			zap.String("address", cfg.RedisAddress()),
			zap.Error(err),
		)
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logger.GetLogger().Info("Successfully connected to Redis",
		zap.String("address", cfg.RedisAddress()),
		zap.Int("database", cfg.Redis.Database),
	)

	return client, nil
}

// NewFromRedis wraps an existing go-redis client
func NewFromRedis(rdb *redis.Client) *Client {
	return &Client{rdb: rdb}
}

func (c *Client) IsEnabled() bool {
	return c != nil && c.rdb != nil
}

func (c *Client) Ping(ctx context.Context) error {
	if !c.IsEnabled() {
		return ErrDisabled
	}
	return c.rdb.Ping(ctx).Err()
}

func (c *Client) Close() error {
	if !c.IsEnabled() {
		return nil
	}
	return c.rdb.Close()
}

// IncrWindow counts one hit against key in a fixed window and reports the
// running count plus the time left before the window resets.
func (c *Client) IncrWindow(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	if !c.IsEnabled() {
		return 0, 0, ErrDisabled
	}

	res, err := incrWindowScript.Run(ctx, c.rdb, []string{key}, window.Milliseconds()).Int64Slice()
	if err != nil {
		logger.GetLogger().Error("Failed to increment rate window",
			zap.String("key", key),
			zap.Error(err),
		)
		return 0, 0, fmt.Errorf("failed to increment window: %w", err)
	}
	if len(res) != 2 {
		return 0, 0, fmt.Errorf("unexpected window reply length %d", len(res))
	}

	ttl := time.Duration(res[1]) * time.Millisecond
	if ttl < 0 {
		ttl = window
	}
	return res[0], ttl, nil
}

// Stats returns connection pool counters
func (c *Client) Stats() map[string]interface{} {
	if !c.IsEnabled() {
		return map[string]interface{}{"enabled": false}
	}
	poolStats := c.rdb.PoolStats()
	return map[string]interface{}{
		"enabled":     true,
		"hits":        poolStats.Hits,
		"misses":      poolStats.Misses,
		"total_conns": poolStats.TotalConns,
		"idle_conns":  poolStats.IdleConns,
		"stale_conns": poolStats.StaleConns,
	}
}
