// Package redis backs the sequence counter with Redis INCR.
//
// Redis persistence settings decide whether counters survive a restart. The
// stores reject duplicate tracking numbers, so a counter that restarts below
// the issued range surfaces as conflicts, never as silent duplicates.
package redis

import (
	"context"
	"errors"
	"fmt"

	goredis "github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"github.com/raycargo/backoffice/internal/domain"
)

const keyPrefix = "seq:"

// Config holds connection settings.
type Config struct {
	Addr     string
	Password string
	DB       int
}

// NewClient connects and pings Redis.
func NewClient(ctx context.Context, cfg Config, logger *zap.Logger) (*goredis.Client, error) {
	rdb := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("redis ping %s: %w", cfg.Addr, err)
	}
	logger.Info("redis connection established", zap.String("addr", cfg.Addr))
	return rdb, nil
}

// Counter implements port.SequenceCounter and port.HealthChecker.
type Counter struct {
	rdb goredis.Cmdable
}

// NewCounter wraps a client (or a redismock client in tests).
func NewCounter(rdb goredis.Cmdable) *Counter {
	return &Counter{rdb: rdb}
}

// Next increments and returns the counter for key. INCR on a missing key
// starts at 1.
func (c *Counter) Next(ctx context.Context, key string) (int64, error) {
	v, err := c.rdb.Incr(ctx, keyPrefix+key).Result()
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return 0, &domain.ErrTimeout{Operation: "redis incr " + key}
		}
		return 0, &domain.ErrExternalService{Service: "redis", Err: err}
	}
	return v, nil
}

// Name implements port.HealthChecker.
func (c *Counter) Name() string { return "redis" }

// Ping implements port.HealthChecker.
func (c *Counter) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}
