package xbreaker

import (
	"context"
	"time"

	"github.com/sony/gobreaker/v2"
)

type (
	// State 熔断器状态。
	State = gobreaker.State
	// Counts 统计计数。
	Counts = gobreaker.Counts
)

// 熔断器状态。
const (
	StateClosed   = gobreaker.StateClosed
	StateHalfOpen = gobreaker.StateHalfOpen
	StateOpen     = gobreaker.StateOpen
)

// Config 熔断器配置，零值字段使用默认值。
type Config struct {
	// FailureThreshold 连续失败多少次后打开，默认 5。
	FailureThreshold uint32 `koanf:"failure_threshold"`
	// Timeout 打开后多久进入半开，默认 10s。
	Timeout time.Duration `koanf:"timeout"`
	// MaxRequests 半开状态允许的探测请求数，默认 1。
	MaxRequests uint32 `koanf:"max_requests"`
}

const (
	defaultFailureThreshold = 5
	defaultTimeout          = 10 * time.Second
	defaultMaxRequests      = 1
)

// Option 配置 Breaker。
type Option func(*settings)

type settings struct {
	excluded      func(error) bool
	onStateChange func(name string, from, to State)
}

// WithExcluded 设置不计入统计的错误，例如调用方自己取消的 context。
func WithExcluded(fn func(error) bool) Option {
	return func(s *settings) {
		s.excluded = fn
	}
}

// WithOnStateChange 设置状态变化回调。
func WithOnStateChange(fn func(name string, from, to State)) Option {
	return func(s *settings) {
		s.onStateChange = fn
	}
}

// Breaker 熔断器。
type Breaker struct {
	name string
	cb   *gobreaker.CircuitBreaker[any]
}

// New 创建熔断器。
func New(name string, cfg Config, opts ...Option) *Breaker {
	if cfg.FailureThreshold == 0 {
		cfg.FailureThreshold = defaultFailureThreshold
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.MaxRequests == 0 {
		cfg.MaxRequests = defaultMaxRequests
	}
	s := &settings{}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}

	threshold := cfg.FailureThreshold
	st := gobreaker.Settings{
		Name:        name,
		MaxRequests: cfg.MaxRequests,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures >= threshold
		},
		IsExcluded:    s.excluded,
		OnStateChange: s.onStateChange,
	}
	return &Breaker{name: name, cb: gobreaker.NewCircuitBreaker[any](st)}
}

// Do 执行受保护的操作。ctx 已结束时直接返回 ctx 错误。
func (b *Breaker) Do(ctx context.Context, fn func() error) error {
	if fn == nil {
		return ErrNilFunc
	}
	_, err := Execute(ctx, b, func() (struct{}, error) {
		return struct{}{}, fn()
	})
	return err
}

// Execute 执行受保护的操作并返回结果。
func Execute[T any](ctx context.Context, b *Breaker, fn func() (T, error)) (T, error) {
	var zero T
	if fn == nil {
		return zero, ErrNilFunc
	}
	if err := ctx.Err(); err != nil {
		return zero, err
	}
	res, err := b.cb.Execute(func() (any, error) {
		return fn()
	})
	if err != nil {
		return zero, wrap(err, b.name)
	}
	typed, _ := res.(T)
	return typed, nil
}

// State 返回当前状态。
func (b *Breaker) State() State {
	return b.cb.State()
}

// Counts 返回当前统计。
func (b *Breaker) Counts() Counts {
	return b.cb.Counts()
}

// Name 返回熔断器名称。
func (b *Breaker) Name() string {
	return b.name
}
