package xdlock

import (
	"context"
	"errors"
	"time"

	"github.com/omeyang/xseckill/pkg/resilience/xretry"
)

// TryLockRetry 以固定间隔有界重试 TryLock。
//
// attempts 为总尝试次数（含首次），小于 1 时按 1 处理。
// 重试耗尽返回 ErrLockBusy；锁存储异常立即返回，不再重试。
func TryLockRetry(ctx context.Context, l Locker, key string, ttl time.Duration, attempts uint, delay time.Duration) (string, error) {
	if l == nil {
		return "", ErrNilClient
	}
	if attempts < 1 {
		attempts = 1
	}

	var token string
	err := xretry.Do(ctx, func() error {
		t, ok, err := l.TryLock(ctx, key, ttl)
		if err != nil {
			return xretry.Unrecoverable(err)
		}
		if !ok {
			return ErrLockBusy
		}
		token = t
		return nil
	},
		xretry.Attempts(attempts),
		xretry.Delay(delay),
		xretry.DelayType(xretry.FixedDelay),
		xretry.LastErrorOnly(true),
	)
	if err != nil {
		if errors.Is(err, ErrLockBusy) {
			return "", ErrLockBusy
		}
		return "", err
	}
	return token, nil
}
