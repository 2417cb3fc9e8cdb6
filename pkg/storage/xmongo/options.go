package xmongo

import (
	"log/slog"
	"time"

	"github.com/omeyang/xseckill/pkg/observability/xmetrics"
)

const (
	defaultHealthTimeout = 5 * time.Second
	defaultOpTimeout     = 5 * time.Second
)

// Config 连接配置。
type Config struct {
	URI      string `koanf:"uri"`
	Database string `koanf:"database"`
	// OpTimeout 单次操作的兜底超时，调用方 ctx 已有 deadline 时不生效。
	OpTimeout time.Duration `koanf:"op_timeout"`
	// SlowThreshold 慢操作阈值，0 表示不记录。
	SlowThreshold time.Duration `koanf:"slow_threshold"`
}

// Option 配置 Mongo。
type Option func(*options)

type options struct {
	healthTimeout time.Duration
	opTimeout     time.Duration
	slowThreshold time.Duration
	logger        *slog.Logger
	observer      xmetrics.Observer
}

func defaultOptions() *options {
	return &options{
		healthTimeout: defaultHealthTimeout,
		opTimeout:     defaultOpTimeout,
		logger:        slog.Default(),
	}
}

// WithHealthTimeout 设置健康检查超时，非正数忽略。
func WithHealthTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.healthTimeout = d
		}
	}
}

// WithOpTimeout 设置操作兜底超时，0 表示完全依赖调用方 ctx。
func WithOpTimeout(d time.Duration) Option {
	return func(o *options) {
		if d >= 0 {
			o.opTimeout = d
		}
	}
}

// WithSlowThreshold 设置慢操作阈值。
func WithSlowThreshold(d time.Duration) Option {
	return func(o *options) {
		if d >= 0 {
			o.slowThreshold = d
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
