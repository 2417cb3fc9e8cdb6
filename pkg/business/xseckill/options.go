package xseckill

import (
	"log/slog"
	"time"

	"github.com/omeyang/xseckill/pkg/observability/xmetrics"
	"github.com/omeyang/xseckill/pkg/resilience/xbreaker"
	"github.com/omeyang/xseckill/pkg/resilience/xlimit"
	"github.com/omeyang/xseckill/pkg/util/xlru"
)

const (
	component = "xseckill"

	// DefaultIDNamespace 订单号的 ID 命名空间。
	DefaultIDNamespace = "order"
)

// Option 配置 Controller 和 Worker。只对其中一方有意义的选项会被另一方忽略。
type Option func(*options)

type options struct {
	logger      *slog.Logger
	observer    xmetrics.Observer
	now         func() time.Time
	idNamespace string
	limiter     xlimit.Limiter
	breaker     *xbreaker.Breaker
	soldOut     *xlru.Config
	onPersisted func(PendingOrderTask, error)
}

func applyOptions(opts []Option) *options {
	o := &options{
		logger:      slog.Default(),
		now:         time.Now,
		idNamespace: DefaultIDNamespace,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}
	return o
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

// WithClock 替换时钟，影响时间窗判断和订单创建时间。
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

// WithIDNamespace 设置订单号命名空间，默认 order。
func WithIDNamespace(ns string) Option {
	return func(o *options) {
		if ns != "" {
			o.idNamespace = ns
		}
	}
}

// WithLimiter 按券限流，超限返回 Overloaded。限流器自身异常时放行。
func WithLimiter(l xlimit.Limiter) Option {
	return func(o *options) {
		o.limiter = l
	}
}

// WithBreaker 用熔断器保护 Reserver 调用，熔断时返回 Unavailable。
func WithBreaker(b *xbreaker.Breaker) Option {
	return func(o *options) {
		o.breaker = b
	}
}

// WithSoldOutCache 在进程内记住已售罄的券，TTL 内直接返回 SoldOut。
func WithSoldOutCache(cfg xlru.Config) Option {
	return func(o *options) {
		o.soldOut = &cfg
	}
}

// WithOnPersisted 设置 Worker 处理完每个任务后的回调，err 为 nil 表示已写入或订单已存在。
func WithOnPersisted(fn func(PendingOrderTask, error)) Option {
	return func(o *options) {
		o.onPersisted = fn
	}
}
