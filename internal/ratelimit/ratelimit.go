package ratelimit

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/yungbote/shopfloor-backend/internal/logger"
)

// Limiter is a fixed-window counter used on the operator login path.
// PIN entry at a kiosk is low-volume, so a coarse window is enough; the
// point is to blunt PIN guessing across the company.
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

type redisLimiter struct {
	log         *logger.Logger
	rdb         *goredis.Client
	maxRequests int
	window      time.Duration
}

func NewRedisLimiter(log *logger.Logger, maxRequests int, window time.Duration) (Limiter, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	addr := strings.TrimSpace(os.Getenv("REDIS_ADDR"))
	if addr == "" {
		return nil, fmt.Errorf("missing REDIS_ADDR")
	}

	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &redisLimiter{
		log:         log.With("component", "RedisLimiter"),
		rdb:         rdb,
		maxRequests: maxRequests,
		window:      window,
	}, nil
}

func (l *redisLimiter) Allow(ctx context.Context, key string) (bool, error) {
	if key == "" {
		return true, nil
	}
	redisKey := "ratelimit:" + key

	count, err := l.rdb.Incr(ctx, redisKey).Result()
	if err != nil {
		return false, fmt.Errorf("ratelimit incr: %w", err)
	}
	if count == 1 {
		if err := l.rdb.Expire(ctx, redisKey, l.window).Err(); err != nil {
			l.log.Warn("Failed to set ratelimit window expiry", "key", key, "error", err)
		}
	}
	if count > int64(l.maxRequests) {
		l.log.Warn("Rate limit exceeded", "key", key, "count", count)
		return false, nil
	}
	return true, nil
}

// NoopLimiter always allows; used when Redis is not configured
// (single-kiosk installs).
type NoopLimiter struct{}

func (NoopLimiter) Allow(ctx context.Context, key string) (bool, error) { return true, nil }
