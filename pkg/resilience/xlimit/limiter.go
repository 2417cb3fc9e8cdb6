package xlimit

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Rule 限流规则：每 Period 允许 Rate 次，突发上限 Burst。
type Rule struct {
	Rate   int           `koanf:"rate"`
	Burst  int           `koanf:"burst"`
	Period time.Duration `koanf:"period"`
}

// Validate 校验规则。Burst 为 0 时取 Rate。
func (r Rule) Validate() error {
	if r.Rate <= 0 || r.Period <= 0 || r.Burst < 0 {
		return fmt.Errorf("%w: rate=%d burst=%d period=%s", ErrInvalidRule, r.Rate, r.Burst, r.Period)
	}
	return nil
}

func (r Rule) burst() int {
	if r.Burst == 0 {
		return r.Rate
	}
	return r.Burst
}

// Result 一次限流判定的结果。
type Result struct {
	Allowed    bool
	Remaining  int
	RetryAfter time.Duration
}

// Limiter 按 key 限流，并发安全。
type Limiter interface {
	// Allow 消耗一个配额。存储异常时返回 error，由调用方决定放行还是拒绝。
	Allow(ctx context.Context, key string) (Result, error)
	// Reset 清除 key 的计数。
	Reset(ctx context.Context, key string) error
}

func validateKey(key string) error {
	if strings.TrimSpace(key) == "" {
		return ErrEmptyKey
	}
	return nil
}
