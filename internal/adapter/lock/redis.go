package lock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/eslsoft/storyquest/internal/entity"
	"github.com/eslsoft/storyquest/internal/infrastructure/config"
	"github.com/eslsoft/storyquest/internal/infrastructure/metrics"
	"github.com/eslsoft/storyquest/internal/usecase"
)

const _keyPrefix = "storyquest:generation:"

// releaseScript deletes the key only while it still carries our token.
var releaseScript = goredis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// extendScript refreshes the expiry only while the key still carries our token.
var extendScript = goredis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0
`)

// RedisGuard holds per-task generation locks in Redis so every instance sees them.
type RedisGuard struct {
	rdb goredis.UniversalClient
	log logrus.FieldLogger
}

var _ usecase.GenerationGuard = (*RedisGuard)(nil)

func NewRedisClient(ctx context.Context, cfg config.RedisConfig) (*goredis.Client, error) {
	rdb := goredis.NewClient(&goredis.Options{
		Addr:        cfg.Addr,
		Password:    cfg.Password,
		DB:          cfg.DB,
		DialTimeout: 5 * time.Second,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return rdb, nil
}

func NewRedisGuard(rdb goredis.UniversalClient, logger logrus.FieldLogger) *RedisGuard {
	return &RedisGuard{rdb: rdb, log: logger.WithField("component", "generation_guard")}
}

func (g *RedisGuard) Acquire(ctx context.Context, key string, ttl time.Duration) (usecase.Lease, error) {
	token := uuid.NewString()
	redisKey := _keyPrefix + key
	ok, err := g.rdb.SetNX(ctx, redisKey, token, ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("acquire generation lock: %w", err)
	}
	if !ok {
		metrics.GuardContention.Inc()
		return nil, entity.ErrGenerationInProgress
	}
	return &redisLease{guard: g, key: redisKey, token: token}, nil
}

type redisLease struct {
	guard *RedisGuard
	key   string
	token string
}

func (l *redisLease) Extend(ctx context.Context, ttl time.Duration) error {
	n, err := extendScript.Run(ctx, l.guard.rdb, []string{l.key}, l.token, ttl.Milliseconds()).Int()
	if err != nil && !errors.Is(err, goredis.Nil) {
		return fmt.Errorf("extend generation lock: %w", err)
	}
	if n == 0 {
		return usecase.ErrLeaseLost
	}
	return nil
}

func (l *redisLease) Release(ctx context.Context) error {
	n, err := releaseScript.Run(ctx, l.guard.rdb, []string{l.key}, l.token).Int()
	if err != nil && !errors.Is(err, goredis.Nil) {
		return fmt.Errorf("release generation lock: %w", err)
	}
	if n == 0 {
		l.guard.log.WithField("key", l.key).Warn("generation lock expired before release")
	}
	return nil
}
