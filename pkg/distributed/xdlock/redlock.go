package xdlock

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/go-redsync/redsync/v4"
	rsredis "github.com/go-redsync/redsync/v4/redis"
	"github.com/go-redsync/redsync/v4/redis/goredis/v9"
	"github.com/redis/go-redis/v9"
)

// redlockLocker 基于 redsync 的多节点锁。
type redlockLocker struct {
	rs   *redsync.Redsync
	opts *options
}

// NewRedlock 创建基于多个独立 Redis 节点的 Locker，过半节点加锁成功才算持有。
// 单个 client 时退化为普通 Redis 锁。
func NewRedlock(clients []redis.UniversalClient, opts ...Option) (Locker, error) {
	if len(clients) == 0 {
		return nil, ErrNilClient
	}
	pools := make([]rsredis.Pool, len(clients))
	for i, client := range clients {
		if client == nil {
			return nil, errors.Join(ErrNilClient, errors.New("client at index "+strconv.Itoa(i)+" is nil"))
		}
		pools[i] = goredis.NewPool(client)
	}
	return &redlockLocker{rs: redsync.New(pools...), opts: applyOptions(opts)}, nil
}

// TryLock 只尝试一轮加锁（WithTries(1)），不在 redsync 内部重试。
func (l *redlockLocker) TryLock(ctx context.Context, key string, ttl time.Duration) (string, bool, error) {
	if err := validateLock(key, ttl); err != nil {
		return "", false, err
	}

	token := l.opts.tokenFunc()
	mutex := l.rs.NewMutex(key,
		redsync.WithExpiry(ttl),
		redsync.WithTries(1),
		redsync.WithGenValueFunc(func() (string, error) { return token, nil }),
	)
	if err := mutex.TryLockContext(ctx); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", false, ctxErr
		}
		if isHeld(err) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("xdlock: try lock %s: %w", key, err)
	}
	return token, true, nil
}

// Unlock 在过半节点上比较并删除。
func (l *redlockLocker) Unlock(ctx context.Context, key, token string) (bool, error) {
	if err := validateUnlock(key, token); err != nil {
		return false, err
	}

	mutex := l.rs.NewMutex(key, redsync.WithValue(token))
	ok, err := mutex.UnlockContext(ctx)
	if err != nil {
		if isHeld(err) || errors.Is(err, redsync.ErrLockAlreadyExpired) {
			return false, nil
		}
		return false, fmt.Errorf("xdlock: unlock %s: %w", key, err)
	}
	return ok, nil
}

// isHeld 判断 redsync 错误是否仅表示"锁被他人持有"。
// 任一节点返回 RedisError 时视为存储异常。
func isHeld(err error) bool {
	var redisErr *redsync.RedisError
	if errors.As(err, &redisErr) {
		return false
	}
	var taken *redsync.ErrTaken
	var nodeTaken *redsync.ErrNodeTaken
	return errors.As(err, &taken) || errors.As(err, &nodeTaken) || errors.Is(err, redsync.ErrFailed)
}
