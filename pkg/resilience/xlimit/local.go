package xlimit

import (
	"context"
	"math"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

type localLimiter struct {
	limit    rate.Limit
	burst    int
	now      func() time.Time
	limiters sync.Map // map[string]*rate.Limiter
}

// LocalOption 配置进程内限流器。
type LocalOption func(*localLimiter)

// WithClock 替换时钟，测试使用。
func WithClock(now func() time.Time) LocalOption {
	return func(l *localLimiter) {
		if now != nil {
			l.now = now
		}
	}
}

// NewLocal 创建进程内令牌桶限流器，每个 key 一个 rate.Limiter。
func NewLocal(rule Rule, opts ...LocalOption) (Limiter, error) {
	if err := rule.Validate(); err != nil {
		return nil, err
	}
	l := &localLimiter{
		limit: rate.Limit(float64(rule.Rate) / rule.Period.Seconds()),
		burst: rule.burst(),
		now:   time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(l)
		}
	}
	return l, nil
}

func (l *localLimiter) Allow(ctx context.Context, key string) (Result, error) {
	if err := validateKey(key); err != nil {
		return Result{}, err
	}
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	lim := l.limiter(key)
	now := l.now()
	if lim.AllowN(now, 1) {
		return Result{Allowed: true, Remaining: int(lim.TokensAt(now))}, nil
	}
	// 只读取令牌数估算等待时间，不占用后续配额
	missing := 1 - lim.TokensAt(now)
	wait := time.Duration(math.Round(missing / float64(l.limit) * float64(time.Second)))
	return Result{Allowed: false, RetryAfter: wait}, nil
}

func (l *localLimiter) Reset(_ context.Context, key string) error {
	if err := validateKey(key); err != nil {
		return err
	}
	l.limiters.Delete(key)
	return nil
}

func (l *localLimiter) limiter(key string) *rate.Limiter {
	if v, ok := l.limiters.Load(key); ok {
		return v.(*rate.Limiter)
	}
	actual, _ := l.limiters.LoadOrStore(key, rate.NewLimiter(l.limit, l.burst))
	return actual.(*rate.Limiter)
}
