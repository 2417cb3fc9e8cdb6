package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync/atomic"

	"github.com/redis/go-redis/v9"

	"github.com/omeyang/xseckill/pkg/business/xseckill"
	"github.com/omeyang/xseckill/pkg/distributed/xdlock"
	"github.com/omeyang/xseckill/pkg/observability/xlog"
	"github.com/omeyang/xseckill/pkg/observability/xmetrics"
	"github.com/omeyang/xseckill/pkg/resilience/xbreaker"
	"github.com/omeyang/xseckill/pkg/resilience/xlimit"
	"github.com/omeyang/xseckill/pkg/storage/xcache"
	"github.com/omeyang/xseckill/pkg/storage/xmongo"
	"github.com/omeyang/xseckill/pkg/util/xid"
	"github.com/omeyang/xseckill/pkg/util/xsys"
)

// orderStore 订单与券的持久化存储。
type orderStore interface {
	xseckill.Repository
	xseckill.VoucherSource
	SaveVoucher(ctx context.Context, v xseckill.Voucher) error
}

// app 一次命令执行所需的全部组件。
type app struct {
	cfg      Config
	logger   *slog.Logger
	client   redis.UniversalClient
	store    orderStore
	cached   *xseckill.CachedVoucherSource
	reserver xseckill.Reserver
	ids      xid.Generator
	worker   *xseckill.Worker
	ctrl     *xseckill.Controller

	persisted atomic.Int64
	dropped   atomic.Int64
	closers   []func() error
}

// newApp 按配置组装组件。返回错误时已创建的资源已释放。
func newApp(ctx context.Context, cfg Config, logLevel string, stderr io.Writer) (*app, error) {
	a := &app{cfg: cfg}
	if err := a.init(ctx, logLevel, stderr); err != nil {
		_ = a.Close()
		return nil, err
	}
	return a, nil
}

func (a *app) init(ctx context.Context, logLevel string, stderr io.Writer) error {
	cfg := a.cfg
	if err := a.initLogger(logLevel, stderr); err != nil {
		return err
	}
	if cfg.FileLimit > 0 {
		// 调整失败不影响功能，只是并发上限受限
		if soft, err := xsys.EnsureFileLimit(cfg.FileLimit); err != nil {
			a.logger.Warn("raise file limit failed", slog.Uint64("want", cfg.FileLimit), slog.Any("error", err))
		} else {
			a.logger.Debug("file limit", slog.Uint64("soft", soft))
		}
	}
	observer, err := xmetrics.NewOTelObserver()
	if err != nil {
		return err
	}

	locker, limiter, err := a.initShared(ctx)
	if err != nil {
		return err
	}
	if err := a.initStore(ctx, observer); err != nil {
		return err
	}

	opts := []xseckill.Option{
		xseckill.WithLogger(a.logger),
		xseckill.WithObserver(observer),
		xseckill.WithIDNamespace(cfg.IDNamespace),
		xseckill.WithBreaker(xbreaker.New("reserve", cfg.Breaker)),
		xseckill.WithOnPersisted(func(_ xseckill.PendingOrderTask, err error) {
			if err != nil {
				a.dropped.Add(1)
				return
			}
			a.persisted.Add(1)
		}),
	}
	if limiter != nil {
		opts = append(opts, xseckill.WithLimiter(limiter))
	}
	if cfg.SoldOut.Size > 0 {
		opts = append(opts, xseckill.WithSoldOutCache(cfg.SoldOut))
	}

	a.worker, err = xseckill.NewWorker(locker, a.store, cfg.Worker, opts...)
	if err != nil {
		return err
	}
	a.closers = append(a.closers, a.worker.Close)

	var vouchers xseckill.VoucherSource = a.store
	if a.cached != nil {
		vouchers = a.cached
	}
	a.ctrl, err = xseckill.NewController(vouchers, a.reserver, a.ids, a.worker, opts...)
	if err != nil {
		return err
	}
	a.closers = append(a.closers, func() error { a.ctrl.Close(); return nil })
	return nil
}

func (a *app) initLogger(override string, stderr io.Writer) error {
	level := a.cfg.Log.Level
	if override != "" {
		level = override
	}
	b := xlog.New().SetOutput(stderr).SetLevelString(level).SetFormat(a.cfg.Log.Format)
	if a.cfg.Log.File != "" {
		b.SetRotation(a.cfg.Log.File, a.cfg.Log.Rotation)
	}
	logger, cleanup, err := b.Build()
	if err != nil {
		return err
	}
	a.logger = logger
	a.closers = append(a.closers, cleanup)
	return nil
}

// initShared 创建准入存储、订单锁、ID 生成器和限流器。
func (a *app) initShared(ctx context.Context) (xdlock.Locker, xlimit.Limiter, error) {
	if a.cfg.Mode == ModeLocal {
		a.reserver = xseckill.NewLocalReserver()
		ids, err := xid.NewSnowflake()
		if err != nil {
			return nil, nil, err
		}
		a.ids = ids
		var limiter xlimit.Limiter
		if a.cfg.Limit.Rate > 0 {
			if limiter, err = xlimit.NewLocal(a.cfg.Limit); err != nil {
				return nil, nil, err
			}
		}
		return xdlock.NewLocal(), limiter, nil
	}

	a.client = a.newRedisClient(a.cfg.Redis.Addr)
	a.closers = append(a.closers, a.client.Close)
	if err := errors.Join(
		xseckill.WarmupScripts(ctx, a.client),
		xdlock.WarmupScripts(ctx, a.client),
	); err != nil {
		return nil, nil, fmt.Errorf("redis %s: %w", a.cfg.Redis.Addr, err)
	}

	reserver, err := xseckill.NewRedisReserver(a.client)
	if err != nil {
		return nil, nil, err
	}
	a.reserver = reserver
	if a.ids, err = xid.NewRedis(a.client); err != nil {
		return nil, nil, err
	}

	locker, err := a.newLocker()
	if err != nil {
		return nil, nil, err
	}

	var limiter xlimit.Limiter
	if a.cfg.Limit.Rate > 0 {
		if limiter, err = xlimit.NewRedis(a.client, a.cfg.Limit); err != nil {
			return nil, nil, err
		}
	}
	return locker, limiter, nil
}

func (a *app) newLocker() (xdlock.Locker, error) {
	if len(a.cfg.Redis.LockAddrs) == 0 {
		return xdlock.NewRedis(a.client)
	}
	clients := make([]redis.UniversalClient, len(a.cfg.Redis.LockAddrs))
	for i, addr := range a.cfg.Redis.LockAddrs {
		clients[i] = a.newRedisClient(addr)
		a.closers = append(a.closers, clients[i].Close)
	}
	return xdlock.NewRedlock(clients)
}

func (a *app) newRedisClient(addr string) redis.UniversalClient {
	return redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: a.cfg.Redis.Password,
		DB:       a.cfg.Redis.DB,
	})
}

// initStore 配置了 Mongo 时使用 MongoRepository，否则使用进程内存储。
// Redis 模式下券经过缓存读取，进程内存储时缓存是跨进程共享券快照的唯一位置。
func (a *app) initStore(ctx context.Context, observer xmetrics.Observer) error {
	if a.cfg.Mongo.URI == "" {
		a.store = xseckill.NewMemoryStore()
	} else {
		m, err := xmongo.Connect(a.cfg.Mongo, xmongo.WithLogger(a.logger), xmongo.WithObserver(observer))
		if err != nil {
			return err
		}
		a.closers = append(a.closers, func() error { return m.Close(context.Background()) })
		repo, err := xseckill.NewMongoRepository(m, a.cfg.Mongo.Database)
		if err != nil {
			return err
		}
		if err := repo.EnsureIndexes(ctx); err != nil {
			return err
		}
		a.store = repo
	}

	if a.client == nil {
		return nil
	}
	gateway, err := xcache.NewGateway(a.client, a.cfg.Cache.Strategy,
		xcache.WithLogger(a.logger), xcache.WithObserver(observer))
	if err != nil {
		return err
	}
	a.closers = append(a.closers, gateway.Close)
	a.cached, err = xseckill.NewCachedVoucherSource(gateway, a.store, a.cfg.Cache.Voucher)
	if err != nil {
		return err
	}
	a.closers = append(a.closers, func() error { a.cached.Close(); return nil })
	return nil
}

// saveVoucher 写入存储并写穿缓存。
func (a *app) saveVoucher(ctx context.Context, v xseckill.Voucher) error {
	if err := a.store.SaveVoucher(ctx, v); err != nil {
		return err
	}
	if a.cached != nil {
		return a.cached.Put(ctx, v)
	}
	return nil
}

// Close 逆序释放资源，先排空 worker 再断开存储。
func (a *app) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
