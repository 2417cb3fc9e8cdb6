package xcache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/omeyang/xseckill/internal/keys"
)

// logicalEntry 逻辑过期信封，expireTime 为 Unix 毫秒。
type logicalEntry struct {
	Data       json.RawMessage `json:"data"`
	ExpireTime int64           `json:"expireTime"`
}

// rebuildTask 提交到重建池的任务，持有重建锁的令牌。
type rebuildTask struct {
	ctx     context.Context
	key     string
	lockKey string
	token   string
	id      string
	load    LoadFunc
	ttl     time.Duration
}

// SetWithLogicalExpire 写入逻辑过期条目，物理上不过期。value 必须是合法 JSON。
func (g *Gateway) SetWithLogicalExpire(ctx context.Context, keyPrefix, id string, value []byte, ttl time.Duration) error {
	if err := validateKey(keyPrefix, id); err != nil {
		return err
	}
	if ttl <= 0 {
		return ErrInvalidTTL
	}
	return g.writeLogical(ctx, keys.Cache(keyPrefix, id), value, ttl)
}

func (g *Gateway) writeLogical(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if !json.Valid(value) {
		return ErrInvalidPayload
	}
	b, err := json.Marshal(logicalEntry{
		Data:       value,
		ExpireTime: g.opts.now().Add(ttl).UnixMilli(),
	})
	if err != nil {
		return fmt.Errorf("xcache: encode entry %s: %w", key, err)
	}
	if err := g.client.Set(ctx, key, b, 0).Err(); err != nil {
		return unavailable("set", key, err)
	}
	return nil
}

// getLogical 未过期直接返回；已过期返回旧值，并尝试触发一次后台重建。
func (g *Gateway) getLogical(ctx context.Context, key, lockKey, id string, load LoadFunc, ttl time.Duration) ([]byte, error) {
	raw, hit, err := g.read(ctx, key)
	if err != nil {
		return nil, err
	}
	if !hit {
		return nil, ErrNotFound
	}
	entry, err := decodeEntry(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrCorruptEntry, key, err)
	}
	if g.fresh(entry) {
		return entry.Data, nil
	}

	g.triggerRebuild(ctx, rebuildTask{key: key, lockKey: lockKey, id: id, load: load, ttl: ttl})
	return entry.Data, nil
}

// triggerRebuild 拿到锁才提交重建；锁被占用说明已有重建在途。
// 重建池满或已关闭时释放锁，本次只返回旧值。
func (g *Gateway) triggerRebuild(ctx context.Context, task rebuildTask) {
	token, ok, err := g.opts.locker.TryLock(ctx, task.lockKey, g.opts.lockTTL)
	if err != nil {
		g.opts.logger.Warn("xcache: rebuild lock failed, serving stale",
			slog.String("key", task.key), slog.Any("error", err))
		return
	}
	if !ok {
		return
	}

	task.token = token
	task.ctx = detachedCtx{Context: ctx}
	if err := g.rebuild.Submit(task); err != nil {
		g.unlock(ctx, task.lockKey, token)
		g.opts.logger.Warn("xcache: rebuild skipped, serving stale",
			slog.String("key", task.key), slog.Any("error", err))
	}
}

// runRebuild 在重建池中执行。无论结果如何都释放锁。
func (g *Gateway) runRebuild(task rebuildTask) {
	ctx, cancel := detach(task.ctx, g.opts.loadTimeout)
	defer cancel()
	defer g.unlock(ctx, task.lockKey, task.token)

	// 排队期间可能已被其他进程刷新
	raw, hit, err := g.read(ctx, task.key)
	if err != nil {
		g.opts.logger.Warn("xcache: rebuild read failed", slog.String("key", task.key), slog.Any("error", err))
		return
	}
	if hit {
		if entry, err := decodeEntry(raw); err == nil && g.fresh(entry) {
			return
		}
	}

	data, err := g.load(ctx, task.id, task.load)
	switch {
	case errors.Is(err, ErrNotFound):
		if err := g.client.Del(ctx, task.key).Err(); err != nil {
			g.opts.logger.Warn("xcache: rebuild delete failed", slog.String("key", task.key), slog.Any("error", err))
		}
	case err != nil:
		g.opts.logger.Warn("xcache: rebuild load failed", slog.String("key", task.key), slog.Any("error", err))
	default:
		if err := g.writeLogical(ctx, task.key, data, task.ttl); err != nil {
			g.opts.logger.Warn("xcache: rebuild write failed", slog.String("key", task.key), slog.Any("error", err))
		}
	}
}

func (g *Gateway) fresh(e logicalEntry) bool {
	return g.opts.now().UnixMilli() < e.ExpireTime
}

func decodeEntry(raw []byte) (logicalEntry, error) {
	var e logicalEntry
	if err := json.Unmarshal(raw, &e); err != nil {
		return logicalEntry{}, err
	}
	if len(e.Data) == 0 {
		return logicalEntry{}, errors.New("missing data field")
	}
	return e, nil
}
