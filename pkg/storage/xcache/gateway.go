package xcache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"github.com/omeyang/xseckill/internal/keys"
	"github.com/omeyang/xseckill/pkg/distributed/xdlock"
	"github.com/omeyang/xseckill/pkg/observability/xmetrics"
	"github.com/omeyang/xseckill/pkg/util/xpool"
)

// LoadFunc 按 id 回源。返回 ErrNotFound 或空数据表示数据不存在。
type LoadFunc func(ctx context.Context, id string) ([]byte, error)

// Gateway 旁路缓存网关，并发安全。
type Gateway struct {
	client   redis.UniversalClient
	strategy Strategy
	opts     *options
	group    singleflight.Group
	rebuild  *xpool.Pool[rebuildTask]
}

// NewGateway 创建缓存网关。StrategyLogicalExpire 会启动后台重建池，使用完毕后需调用 Close。
func NewGateway(client redis.UniversalClient, strategy Strategy, opts ...Option) (*Gateway, error) {
	if client == nil {
		return nil, ErrNilClient
	}
	if !strategy.valid() {
		return nil, fmt.Errorf("%w: %d", ErrInvalidStrategy, int(strategy))
	}

	o := defaultOptions()
	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}
	if o.locker == nil {
		l, err := xdlock.NewRedis(client)
		if err != nil {
			return nil, err
		}
		o.locker = l
	}

	g := &Gateway{client: client, strategy: strategy, opts: o}
	if strategy == StrategyLogicalExpire {
		pool, err := xpool.New(o.rebuildWorkers, o.rebuildQueue, g.runRebuild,
			xpool.WithLogger(o.logger), xpool.WithName("xcache-rebuild"))
		if err != nil {
			return nil, err
		}
		g.rebuild = pool
	}
	return g, nil
}

// Strategy 返回网关使用的策略。
func (g *Gateway) Strategy() Strategy {
	return g.strategy
}

// Get 读取 {keyPrefix}{id}，未命中时按策略回源。
//
// ttl 在 StrategyPenetration/StrategyMutex 下是物理 TTL，在 StrategyLogicalExpire 下是逻辑有效期。
// 数据不存在时返回 ErrNotFound；缓存或锁存储异常时返回包装了 ErrUnavailable 的错误。
func (g *Gateway) Get(ctx context.Context, keyPrefix, id string, load LoadFunc, ttl time.Duration) (data []byte, err error) {
	if err := validateKey(keyPrefix, id); err != nil {
		return nil, err
	}
	if load == nil {
		return nil, ErrNilLoader
	}
	if ttl <= 0 {
		return nil, ErrInvalidTTL
	}

	ctx, span := xmetrics.Start(ctx, g.opts.observer, xmetrics.SpanOptions{
		Component: "xcache",
		Operation: "get_" + g.strategy.String(),
	})
	defer func() {
		res := xmetrics.Result{Err: err}
		if errors.Is(err, ErrNotFound) {
			res.Status = xmetrics.StatusOK
		}
		span.End(res)
	}()

	key := keys.Cache(keyPrefix, id)
	lockKey := lockKeyFor(keyPrefix, id)
	switch g.strategy {
	case StrategyMutex:
		return g.getMutex(ctx, key, lockKey, id, load, ttl)
	case StrategyLogicalExpire:
		return g.getLogical(ctx, key, lockKey, id, load, ttl)
	default:
		return g.getPenetration(ctx, key, id, load, ttl)
	}
}

// Set 写入带物理 TTL 的普通条目。
func (g *Gateway) Set(ctx context.Context, keyPrefix, id string, value []byte, ttl time.Duration) error {
	if err := validateKey(keyPrefix, id); err != nil {
		return err
	}
	if ttl <= 0 {
		return ErrInvalidTTL
	}
	key := keys.Cache(keyPrefix, id)
	if err := g.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return unavailable("set", key, err)
	}
	return nil
}

// Invalidate 删除缓存条目。数据库更新成功后调用。
func (g *Gateway) Invalidate(ctx context.Context, keyPrefix, id string) error {
	if err := validateKey(keyPrefix, id); err != nil {
		return err
	}
	key := keys.Cache(keyPrefix, id)
	if err := g.client.Del(ctx, key).Err(); err != nil {
		return unavailable("del", key, err)
	}
	return nil
}

// Close 停止重建池并等待在途重建完成。
func (g *Gateway) Close() error {
	return g.Shutdown(context.Background())
}

// Shutdown 停止重建池，ctx 到期时返回 ctx.Err()。
func (g *Gateway) Shutdown(ctx context.Context) error {
	if g.rebuild == nil {
		return nil
	}
	return g.rebuild.Shutdown(ctx)
}

// =============================================================================
// 穿透保护
// =============================================================================

func (g *Gateway) getPenetration(ctx context.Context, key, id string, load LoadFunc, ttl time.Duration) ([]byte, error) {
	data, hit, err := g.read(ctx, key)
	if err != nil {
		return nil, err
	}
	if hit {
		return hitValue(data)
	}
	return g.fill(ctx, key, id, load, ttl)
}

// fill 回源并写缓存。不存在时写入空值标记。
// 写缓存失败只记录日志，回源结果照常返回。
func (g *Gateway) fill(ctx context.Context, key, id string, load LoadFunc, ttl time.Duration) ([]byte, error) {
	data, err := g.load(ctx, id, load)
	if errors.Is(err, ErrNotFound) {
		if setErr := g.client.Set(ctx, key, "", g.opts.nullTTL).Err(); setErr != nil {
			g.opts.logger.Warn("xcache: write null marker failed", slog.String("key", key), slog.Any("error", setErr))
		}
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if setErr := g.client.Set(ctx, key, data, ttl).Err(); setErr != nil {
		g.opts.logger.Warn("xcache: write cache failed", slog.String("key", key), slog.Any("error", setErr))
	}
	return data, nil
}

// =============================================================================
// 内部工具
// =============================================================================

// read 返回 (data, hit, err)，key 不存在时 hit 为 false。
func (g *Gateway) read(ctx context.Context, key string) ([]byte, bool, error) {
	data, err := g.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, unavailable("get", key, err)
	}
	return data, true, nil
}

// load 调用回源函数，空结果视为不存在，panic 转为 ErrLoadPanic。
func (g *Gateway) load(ctx context.Context, id string, load LoadFunc) (data []byte, err error) {
	defer func() {
		if r := recover(); r != nil {
			data, err = nil, fmt.Errorf("%w: %v", ErrLoadPanic, r)
		}
	}()
	data, err = load(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("xcache: load %s: %w", id, err)
	}
	if len(data) == 0 {
		return nil, ErrNotFound
	}
	return data, nil
}

// unlock 使用独立 ctx 释放锁，不受调用方取消影响。
func (g *Gateway) unlock(ctx context.Context, lockKey, token string) {
	unlockCtx, cancel := detach(ctx, g.opts.lockTTL)
	defer cancel()
	released, err := g.opts.locker.Unlock(unlockCtx, lockKey, token)
	if err != nil {
		g.opts.logger.Warn("xcache: unlock failed", slog.String("key", lockKey), slog.Any("error", err))
		return
	}
	if !released {
		g.opts.logger.Warn("xcache: rebuild lock expired before unlock, consider a larger lock ttl",
			slog.String("key", lockKey), slog.Duration("lock_ttl", g.opts.lockTTL))
	}
}

// hitValue 处理缓存命中，空值标记返回 ErrNotFound。
func hitValue(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, ErrNotFound
	}
	return data, nil
}

func unavailable(op, key string, err error) error {
	return fmt.Errorf("%w: %s %s: %w", ErrUnavailable, op, key, err)
}

func validateKey(keyPrefix, id string) error {
	if strings.TrimSpace(keyPrefix) == "" || strings.TrimSpace(id) == "" {
		return ErrEmptyKey
	}
	return nil
}

// lockKeyFor 由 cache:shop: 与 7 得到 lock:cache:shop:7。
func lockKeyFor(keyPrefix, id string) string {
	return xdlock.Key(strings.TrimSuffix(keyPrefix, ":"), id)
}
