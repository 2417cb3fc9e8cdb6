package xcache

import (
	"context"
	"time"
)

// detachedCtx 保留 Value，但不继承 Done/Err/Deadline。
// 用于 singleflight、后台重建和解锁，避免首个调用者取消影响其他等待者。
type detachedCtx struct {
	context.Context
}

func (detachedCtx) Deadline() (time.Time, bool) { return time.Time{}, false }
func (detachedCtx) Done() <-chan struct{}       { return nil }
func (detachedCtx) Err() error                  { return nil }

// detach 返回脱离 ctx 取消链的 context，timeout > 0 时附加独立超时。
func detach(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	var base context.Context = detachedCtx{Context: ctx}
	if ctx == nil {
		base = context.Background()
	}
	if timeout <= 0 {
		return context.WithCancel(base)
	}
	return context.WithTimeout(base, timeout)
}
