package xcache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/omeyang/xseckill/pkg/resilience/xretry"
)

// errLockContended 内部信号：锁被他人持有，需要等待后重读缓存。
var errLockContended = errors.New("xcache: rebuild lock contended")

// getMutex 进程内 singleflight 合并 + 跨进程分布式锁，保证同一 key 同时只有一次回源。
func (g *Gateway) getMutex(ctx context.Context, key, lockKey, id string, load LoadFunc, ttl time.Duration) ([]byte, error) {
	data, hit, err := g.read(ctx, key)
	if err != nil {
		return nil, err
	}
	if hit {
		return hitValue(data)
	}

	ch := g.group.DoChan(key, func() (any, error) {
		// 首个调用者取消不影响其他等待者
		sfCtx, cancel := detach(ctx, g.opts.loadTimeout)
		defer cancel()
		return g.rebuildWithLock(sfCtx, key, lockKey, id, load, ttl)
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		v, _ := res.Val.([]byte)
		return v, nil
	}
}

// rebuildWithLock 按固定间隔有界重试：每轮先读缓存，再尝试拿锁。
func (g *Gateway) rebuildWithLock(ctx context.Context, key, lockKey, id string, load LoadFunc, ttl time.Duration) ([]byte, error) {
	data, err := xretry.DoWithData(ctx, func() ([]byte, error) {
		return g.tryRebuild(ctx, key, lockKey, id, load, ttl)
	},
		xretry.Attempts(g.opts.maxRetries+1),
		xretry.Delay(g.opts.retryInterval),
		xretry.DelayType(xretry.FixedDelay),
		xretry.RetryIf(func(err error) bool { return errors.Is(err, errLockContended) }),
		xretry.LastErrorOnly(true),
	)
	if errors.Is(err, errLockContended) {
		return nil, fmt.Errorf("%w: %s", ErrLockBusy, lockKey)
	}
	return data, err
}

func (g *Gateway) tryRebuild(ctx context.Context, key, lockKey, id string, load LoadFunc, ttl time.Duration) ([]byte, error) {
	data, hit, err := g.read(ctx, key)
	if err != nil {
		return nil, err
	}
	if hit {
		return hitValue(data)
	}

	token, ok, err := g.opts.locker.TryLock(ctx, lockKey, g.opts.lockTTL)
	if err != nil {
		return nil, unavailable("lock", lockKey, err)
	}
	if !ok {
		return nil, errLockContended
	}
	defer g.unlock(ctx, lockKey, token)

	// 拿到锁后再查一次，其他进程可能刚写完
	data, hit, err = g.read(ctx, key)
	if err != nil {
		return nil, err
	}
	if hit {
		return hitValue(data)
	}
	return g.fill(ctx, key, id, load, ttl)
}
