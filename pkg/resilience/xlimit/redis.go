package xlimit

import (
	"context"
	"fmt"

	"github.com/go-redis/redis_rate/v10"
	"github.com/redis/go-redis/v9"
)

type redisLimiter struct {
	limiter *redis_rate.Limiter
	limit   redis_rate.Limit
}

// NewRedis 创建基于 Redis 的分布式限流器。
func NewRedis(client redis.UniversalClient, rule Rule) (Limiter, error) {
	if client == nil {
		return nil, ErrNilClient
	}
	if err := rule.Validate(); err != nil {
		return nil, err
	}
	return &redisLimiter{
		limiter: redis_rate.NewLimiter(client),
		limit: redis_rate.Limit{
			Rate:   rule.Rate,
			Burst:  rule.burst(),
			Period: rule.Period,
		},
	}, nil
}

func (l *redisLimiter) Allow(ctx context.Context, key string) (Result, error) {
	if err := validateKey(key); err != nil {
		return Result{}, err
	}
	res, err := l.limiter.AllowN(ctx, key, l.limit, 1)
	if err != nil {
		return Result{}, fmt.Errorf("xlimit: allow %s: %w", key, err)
	}
	return Result{
		Allowed:    res.Allowed > 0,
		Remaining:  res.Remaining,
		RetryAfter: max(res.RetryAfter, 0),
	}, nil
}

func (l *redisLimiter) Reset(ctx context.Context, key string) error {
	if err := validateKey(key); err != nil {
		return err
	}
	return l.limiter.Reset(ctx, key)
}
