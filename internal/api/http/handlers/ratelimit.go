package handlers

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/ticketbot/internal/persistence"
)

// Limiter decides whether a Slack user may make another request now.
type Limiter interface {
	Allow(ctx context.Context, userID string) bool
}

// RedisLimiter is a fixed-window limiter per Slack user. It fails open.
type RedisLimiter struct {
	redis  *persistence.Redis
	limit  int
	window time.Duration
	logger *zap.Logger
}

// NewRedisLimiter builds a limiter. A non-positive limit disables it.
func NewRedisLimiter(redis *persistence.Redis, limit int, window time.Duration, logger *zap.Logger) *RedisLimiter {
	if logger == nil {
		logger = zap.NewNop()
	}
	if window <= 0 {
		window = time.Minute
	}
	return &RedisLimiter{redis: redis, limit: limit, window: window, logger: logger}
}

func (l *RedisLimiter) Allow(ctx context.Context, userID string) bool {
	if l == nil || l.limit <= 0 || userID == "" {
		return true
	}
	ok, err := l.redis.Allow(ctx, userID, l.limit, l.window)
	if err != nil && !errors.Is(err, persistence.ErrRedisDisabled) {
		l.logger.Warn("rate limiter unavailable, allowing request", zap.String("user_id", userID), zap.Error(err))
	}
	return ok
}
