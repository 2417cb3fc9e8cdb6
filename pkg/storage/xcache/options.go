package xcache

import (
	"log/slog"
	"time"

	"github.com/omeyang/xseckill/pkg/distributed/xdlock"
	"github.com/omeyang/xseckill/pkg/observability/xmetrics"
)

const (
	// DefaultNullTTL 空值标记的 TTL。
	DefaultNullTTL = 2 * time.Minute
	// DefaultLockTTL 重建锁的 TTL。
	DefaultLockTTL = 10 * time.Second
	// DefaultRetryInterval 互斥模式下等待锁的间隔。
	DefaultRetryInterval = 50 * time.Millisecond
	// DefaultMaxRetries 互斥模式下的最大重试次数。
	DefaultMaxRetries = 100
	// DefaultRebuildWorkers 逻辑过期重建池的 worker 数。
	DefaultRebuildWorkers = 10
	// DefaultRebuildQueue 逻辑过期重建池的队列长度。
	DefaultRebuildQueue = 1024
	// DefaultLoadTimeout 脱离调用方 ctx 后回源的超时。
	DefaultLoadTimeout = 30 * time.Second
)

// Option 配置 Gateway。
type Option func(*options)

type options struct {
	locker         xdlock.Locker
	logger         *slog.Logger
	observer       xmetrics.Observer
	now            func() time.Time
	nullTTL        time.Duration
	lockTTL        time.Duration
	retryInterval  time.Duration
	maxRetries     uint
	rebuildWorkers int
	rebuildQueue   int
	loadTimeout    time.Duration
}

func defaultOptions() *options {
	return &options{
		logger:         slog.Default(),
		now:            time.Now,
		nullTTL:        DefaultNullTTL,
		lockTTL:        DefaultLockTTL,
		retryInterval:  DefaultRetryInterval,
		maxRetries:     DefaultMaxRetries,
		rebuildWorkers: DefaultRebuildWorkers,
		rebuildQueue:   DefaultRebuildQueue,
		loadTimeout:    DefaultLoadTimeout,
	}
}

// WithLocker 设置重建锁，默认使用同一 Redis 的 xdlock.NewRedis。
func WithLocker(l xdlock.Locker) Option {
	return func(o *options) {
		if l != nil {
			o.locker = l
		}
	}
}

// WithLogger 设置日志记录器。
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithObserver 设置指标观测器。
func WithObserver(observer xmetrics.Observer) Option {
	return func(o *options) {
		o.observer = observer
	}
}

// WithClock 替换时钟，影响逻辑过期判断。
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

// WithNullTTL 设置空值标记的 TTL。
func WithNullTTL(ttl time.Duration) Option {
	return func(o *options) {
		if ttl > 0 {
			o.nullTTL = ttl
		}
	}
}

// WithLockTTL 设置重建锁 TTL，应大于回源耗时。
func WithLockTTL(ttl time.Duration) Option {
	return func(o *options) {
		if ttl > 0 {
			o.lockTTL = ttl
		}
	}
}

// WithRetry 设置互斥模式下的等待间隔和最大重试次数。
func WithRetry(interval time.Duration, maxRetries uint) Option {
	return func(o *options) {
		if interval > 0 {
			o.retryInterval = interval
		}
		o.maxRetries = maxRetries
	}
}

// WithRebuildPool 设置逻辑过期重建池的大小。
func WithRebuildPool(workers, queue int) Option {
	return func(o *options) {
		if workers > 0 {
			o.rebuildWorkers = workers
		}
		if queue > 0 {
			o.rebuildQueue = queue
		}
	}
}

// WithLoadTimeout 设置脱离调用方 ctx 的回源超时，0 表示不限制。
func WithLoadTimeout(timeout time.Duration) Option {
	return func(o *options) {
		if timeout >= 0 {
			o.loadTimeout = timeout
		}
	}
}
