package xdlock

import (
	"context"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
)

const localShards = 64

type localEntry struct {
	token    string
	expireAt time.Time
}

type localShard struct {
	mu      sync.Mutex
	entries map[string]localEntry
}

// localLocker 进程内锁表，按 key 哈希分片降低竞争。
type localLocker struct {
	shards [localShards]localShard
	opts   *options
}

// NewLocal 创建进程内 Locker，语义与 NewRedis 一致（含 TTL 过期）。
// 适用于单实例部署，多实例部署必须使用 NewRedis 或 NewRedlock。
func NewLocal(opts ...Option) Locker {
	l := &localLocker{opts: applyOptions(opts)}
	for i := range l.shards {
		l.shards[i].entries = make(map[string]localEntry)
	}
	return l
}

func (l *localLocker) shard(key string) *localShard {
	return &l.shards[xxhash.Sum64String(key)%localShards]
}

// TryLock 在 key 不存在或已过期时写入新令牌。
func (l *localLocker) TryLock(ctx context.Context, key string, ttl time.Duration) (string, bool, error) {
	if err := validateLock(key, ttl); err != nil {
		return "", false, err
	}
	if err := ctx.Err(); err != nil {
		return "", false, err
	}

	s := l.shard(key)
	now := l.opts.now()

	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.entries[key]; ok && now.Before(e.expireAt) {
		return "", false, nil
	}
	token := l.opts.tokenFunc()
	s.entries[key] = localEntry{token: token, expireAt: now.Add(ttl)}
	return token, true, nil
}

// Unlock 令牌匹配且未过期时删除。过期条目顺带清理。
func (l *localLocker) Unlock(ctx context.Context, key, token string) (bool, error) {
	if err := validateUnlock(key, token); err != nil {
		return false, err
	}
	if err := ctx.Err(); err != nil {
		return false, err
	}

	s := l.shard(key)
	now := l.opts.now()

	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[key]
	if !ok {
		return false, nil
	}
	if !now.Before(e.expireAt) {
		delete(s.entries, key)
		return false, nil
	}
	if e.token != token {
		return false, nil
	}
	delete(s.entries, key)
	return true, nil
}
