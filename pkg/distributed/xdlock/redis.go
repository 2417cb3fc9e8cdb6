package xdlock

import (
	"context"
	_ "embed"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

//go:embed lua/unlock.lua
var unlockLuaSource string

var unlockScript = redis.NewScript(unlockLuaSource)

// redisLocker 基于单个 Redis 节点的锁。
type redisLocker struct {
	client redis.UniversalClient
	opts   *options
}

// NewRedis 创建基于单个 Redis（或集群）的 Locker。
func NewRedis(client redis.UniversalClient, opts ...Option) (Locker, error) {
	if client == nil {
		return nil, ErrNilClient
	}
	return &redisLocker{client: client, opts: applyOptions(opts)}, nil
}

// TryLock 使用 SET key token NX PX ttl。
func (l *redisLocker) TryLock(ctx context.Context, key string, ttl time.Duration) (string, bool, error) {
	if err := validateLock(key, ttl); err != nil {
		return "", false, err
	}

	token := l.opts.tokenFunc()
	ok, err := l.client.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return "", false, fmt.Errorf("xdlock: try lock %s: %w", key, err)
	}
	if !ok {
		return "", false, nil
	}
	return token, true, nil
}

// Unlock 通过 Lua 脚本原子地比较并删除。
func (l *redisLocker) Unlock(ctx context.Context, key, token string) (bool, error) {
	if err := validateUnlock(key, token); err != nil {
		return false, err
	}

	n, err := unlockScript.Run(ctx, l.client, []string{key}, token).Int64()
	if err != nil {
		return false, fmt.Errorf("xdlock: unlock %s: %w", key, err)
	}
	return n == 1, nil
}

// WarmupScripts 预加载解锁脚本，避免首次调用时的 NOSCRIPT 回退。
func WarmupScripts(ctx context.Context, client redis.UniversalClient) error {
	if client == nil {
		return ErrNilClient
	}
	return unlockScript.Load(ctx, client).Err()
}
