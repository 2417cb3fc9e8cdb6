package xseckill

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/omeyang/xseckill/pkg/distributed/xdlock"
	"github.com/omeyang/xseckill/pkg/observability/xmetrics"
	"github.com/omeyang/xseckill/pkg/util/xpool"
)

const (
	// DefaultQueueSize 待落库队列容量。
	DefaultQueueSize = 100_000
	// DefaultOrderLockTTL 按用户加锁的 TTL。
	DefaultOrderLockTTL = 5 * time.Second
	// DefaultPersistTimeout 单个任务从加锁到落库的超时。
	DefaultPersistTimeout = 3 * time.Second
	// DefaultDrainTimeout Run 退出时等待队列排空的上限。
	DefaultDrainTimeout = 30 * time.Second

	orderLockResource = "order"
	lockAttempts      = 3
	lockRetryDelay    = 50 * time.Millisecond
)

// WorkerConfig Worker 配置，零值字段使用默认值。
type WorkerConfig struct {
	QueueSize      int           `koanf:"queue_size"`
	LockTTL        time.Duration `koanf:"lock_ttl"`
	PersistTimeout time.Duration `koanf:"persist_timeout"`
	DrainTimeout   time.Duration `koanf:"drain_timeout"`
}

func (c *WorkerConfig) applyDefaults() {
	if c.QueueSize <= 0 {
		c.QueueSize = DefaultQueueSize
	}
	if c.LockTTL <= 0 {
		c.LockTTL = DefaultOrderLockTTL
	}
	if c.PersistTimeout <= 0 {
		c.PersistTimeout = DefaultPersistTimeout
	}
	if c.DrainTimeout <= 0 {
		c.DrainTimeout = DefaultDrainTimeout
	}
}

// Worker 单协程顺序消费待落库订单。
//
// 锁 TTL 需大于一次落库的耗时；落库慢于 TTL 时锁会被他人拿走，这里不做续期。
type Worker struct {
	locker xdlock.Locker
	repo   Repository
	cfg    WorkerConfig
	opts   *options
	pool   *xpool.Pool[PendingOrderTask]
}

// NewWorker 创建并启动 Worker。
func NewWorker(locker xdlock.Locker, repo Repository, cfg WorkerConfig, opts ...Option) (*Worker, error) {
	if locker == nil || repo == nil {
		return nil, fmt.Errorf("%w: locker and repository are required", ErrNilDependency)
	}
	cfg.applyDefaults()
	w := &Worker{locker: locker, repo: repo, cfg: cfg, opts: applyOptions(opts)}

	pool, err := xpool.New(1, cfg.QueueSize, w.handle,
		xpool.WithLogger(w.opts.logger), xpool.WithName("xseckill-order"))
	if err != nil {
		return nil, err
	}
	w.pool = pool
	return w, nil
}

// Submit 非阻塞投递。队列满返回 ErrOverloaded，Worker 已关闭返回 ErrUnavailable。
func (w *Worker) Submit(task PendingOrderTask) error {
	err := w.pool.Submit(task)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, xpool.ErrQueueFull):
		return fmt.Errorf("%w: %w", ErrOverloaded, err)
	default:
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
}

// Pending 返回排队中的任务数。
func (w *Worker) Pending() int {
	return w.pool.Len()
}

// Run 阻塞到 ctx 结束，随后停止接收并在 DrainTimeout 内排空队列。
func (w *Worker) Run(ctx context.Context) error {
	<-ctx.Done()
	drainCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), w.cfg.DrainTimeout)
	defer cancel()
	return w.Shutdown(drainCtx)
}

// Shutdown 停止接收新任务并等待队列排空。
func (w *Worker) Shutdown(ctx context.Context) error {
	return w.pool.Shutdown(ctx)
}

// Close 等价于 Shutdown(context.Background())。
func (w *Worker) Close() error {
	return w.pool.Close()
}

// handle 处理单个任务，所有路径都释放用户锁。失败只记日志，任务被丢弃。
func (w *Worker) handle(task PendingOrderTask) {
	ctx, cancel := context.WithTimeout(context.Background(), w.cfg.PersistTimeout)
	defer cancel()

	ctx, span := xmetrics.Start(ctx, w.opts.observer, xmetrics.SpanOptions{
		Component: component,
		Operation: "persist",
	})
	reason, err := w.persist(ctx, task)
	span.End(xmetrics.Result{Status: statusOf(reason, err), Err: err})

	switch {
	case err != nil:
		w.opts.logger.Error("xseckill: order dropped",
			slog.String("reason", string(reason)),
			slog.Int64("order_id", task.OrderID),
			slog.Int64("user_id", task.UserID),
			slog.Int64("voucher_id", task.VoucherID),
			slog.Time("admitted_at", task.AdmittedAt),
			slog.Any("error", err),
		)
	case reason == ReasonDuplicateOrder:
		w.opts.logger.Info("xseckill: order already persisted",
			slog.Int64("order_id", task.OrderID),
			slog.Int64("user_id", task.UserID),
			slog.Int64("voucher_id", task.VoucherID),
		)
	}
	if w.opts.onPersisted != nil {
		w.opts.onPersisted(task, err)
	}
}

// persist 返回 ("", nil) 表示已写入；(ReasonDuplicateOrder, nil) 表示订单已存在。
func (w *Worker) persist(ctx context.Context, task PendingOrderTask) (Reason, error) {
	lockKey := xdlock.Key(orderLockResource, strconv.FormatInt(task.UserID, 10))
	token, err := xdlock.TryLockRetry(ctx, w.locker, lockKey, w.cfg.LockTTL, lockAttempts, lockRetryDelay)
	if errors.Is(err, xdlock.ErrLockBusy) {
		return ReasonLockBusy, fmt.Errorf("%w: %s", ErrLockBusy, lockKey)
	}
	if err != nil {
		return ReasonUnavailable, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	defer w.unlock(lockKey, token)

	exists, err := w.repo.Exists(ctx, task.UserID, task.VoucherID)
	if err != nil {
		return ReasonPersistFailure, fmt.Errorf("%w: %w", ErrPersistFailure, err)
	}
	if exists {
		return ReasonDuplicateOrder, nil
	}

	err = w.repo.PersistOrder(ctx, task.order())
	if errors.Is(err, ErrDuplicateOrder) {
		return ReasonDuplicateOrder, nil
	}
	if err != nil {
		return ReasonPersistFailure, fmt.Errorf("%w: %w", ErrPersistFailure, err)
	}
	return "", nil
}

// unlock 使用独立 ctx，落库超时不影响释放。
func (w *Worker) unlock(lockKey, token string) {
	ctx, cancel := context.WithTimeout(context.Background(), w.cfg.LockTTL)
	defer cancel()
	released, err := w.locker.Unlock(ctx, lockKey, token)
	if err != nil {
		w.opts.logger.Warn("xseckill: release order lock failed", slog.String("key", lockKey), slog.Any("error", err))
		return
	}
	if !released {
		w.opts.logger.Warn("xseckill: order lock expired before release", slog.String("key", lockKey),
			slog.Duration("lock_ttl", w.cfg.LockTTL))
	}
}

func statusOf(reason Reason, err error) xmetrics.Status {
	if err == nil && reason == "" {
		return xmetrics.StatusOK
	}
	return xmetrics.Status(reason)
}
