package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/spec-kit/ticketbot/internal/config"
)

// ErrRedisDisabled is returned when REDIS_ADDR is empty.
var ErrRedisDisabled = errors.New("redis client not configured")

// Redis wraps the go-redis client.
type Redis struct {
	Client *redis.Client
	prefix string
}

// NewRedis connects to Redis using the provided configuration. An empty
// address yields a disabled client; callers treat that as fail-open.
func NewRedis(cfg config.RedisConfig, logger *zap.Logger) *Redis {
	if cfg.Addr == "" {
		logger.Warn("REDIS_ADDR not provided; rate limiting and sweep locking disabled")
		return &Redis{prefix: cfg.KeyPrefix}
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := client.Ping(context.Background()).Err(); err != nil {
		logger.Warn("unable to reach redis", zap.Error(err))
	} else {
		logger.Info("connected to redis")
	}

	return &Redis{Client: client, prefix: cfg.KeyPrefix}
}

// Close closes the client.
func (r *Redis) Close() {
	if r != nil && r.Client != nil {
		_ = r.Client.Close()
	}
}

// Ping verifies Redis connectivity.
func (r *Redis) Ping(ctx context.Context) error {
	if r == nil || r.Client == nil {
		return ErrRedisDisabled
	}
	return r.Client.Ping(ctx).Err()
}

// Lock is a held SET NX lease.
type Lock struct {
	key   string
	token string
}

// TryLock acquires key for ttl. ok is false when another holder has it.
func (r *Redis) TryLock(ctx context.Context, key string, ttl time.Duration) (*Lock, bool, error) {
	if r == nil || r.Client == nil {
		return nil, false, ErrRedisDisabled
	}
	lock := &Lock{key: r.prefix + "lock:" + key, token: uuid.NewString()}
	ok, err := r.Client.SetNX(ctx, lock.key, lock.token, ttl).Result()
	if err != nil {
		return nil, false, err
	}
	if !ok {
		return nil, false, nil
	}
	return lock, true, nil
}

var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
    return redis.call("DEL", KEYS[1])
end
return 0`)

// Release drops the lock if this holder still owns it.
func (r *Redis) Release(ctx context.Context, lock *Lock) error {
	if r == nil || r.Client == nil || lock == nil {
		return nil
	}
	return releaseScript.Run(ctx, r.Client, []string{lock.key}, lock.token).Err()
}

// Allow counts one hit for subject in the current fixed window and reports
// whether it is within limit.
func (r *Redis) Allow(ctx context.Context, subject string, limit int, window time.Duration) (bool, error) {
	if r == nil || r.Client == nil {
		return true, ErrRedisDisabled
	}
	bucket := time.Now().UnixNano() / int64(window)
	key := fmt.Sprintf("%sratelimit:%s:%d", r.prefix, subject, bucket)

	pipe := r.Client.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, window)
	if _, err := pipe.Exec(ctx); err != nil {
		return true, err
	}
	return incr.Val() <= int64(limit), nil
}
