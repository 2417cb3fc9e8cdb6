package xretry

import (
	"context"

	retry "github.com/avast/retry-go/v5"
)

type (
	// Option 是 retry-go 的配置选项类型。
	Option = retry.Option

	// OnRetryFunc 是重试回调函数类型。
	OnRetryFunc = retry.OnRetryFunc

	// RetryIfFunc 是重试条件判断函数类型。
	RetryIfFunc = retry.RetryIfFunc

	// DelayTypeFunc 是延迟类型函数。
	DelayTypeFunc = retry.DelayTypeFunc

	// Error 表示重试过程中累积的错误列表。
	Error = retry.Error
)

var (
	// Attempts 设置总尝试次数（包含首次尝试），0 表示无限重试。
	Attempts = retry.Attempts

	// Delay 设置基础重试间隔。
	Delay = retry.Delay

	// MaxDelay 设置最大重试间隔。
	MaxDelay = retry.MaxDelay

	// MaxJitter 设置最大抖动时间。
	MaxJitter = retry.MaxJitter

	// DelayType 设置延迟类型。
	DelayType = retry.DelayType

	// OnRetry 设置重试回调函数。
	OnRetry = retry.OnRetry

	// RetryIf 设置重试条件，会覆盖默认的 Unrecoverable 判断。
	RetryIf = retry.RetryIf

	// LastErrorOnly 只返回最后一个错误。
	LastErrorOnly = retry.LastErrorOnly
)

var (
	// BackOffDelay 指数退避延迟。
	BackOffDelay = retry.BackOffDelay

	// FixedDelay 固定延迟。
	FixedDelay = retry.FixedDelay

	// RandomDelay 随机延迟。
	RandomDelay = retry.RandomDelay

	// CombineDelay 组合多个延迟类型。
	CombineDelay = retry.CombineDelay
)

var (
	// Unrecoverable 将错误标记为不可恢复（不再重试）。
	Unrecoverable = retry.Unrecoverable

	// IsRecoverable 检查错误是否可恢复。
	IsRecoverable = retry.IsRecoverable
)

// Do 执行带重试的操作。
//
// 注意：传入 RetryIf 会覆盖默认的 Unrecoverable 判断。
func Do(ctx context.Context, fn func() error, opts ...Option) error {
	return retry.New(defaultOpts(ctx, opts)...).Do(fn)
}

// DoWithData 执行带重试且有返回值的操作。
func DoWithData[T any](ctx context.Context, fn func() (T, error), opts ...Option) (T, error) {
	return retry.NewWithData[T](defaultOpts(ctx, opts)...).Do(fn)
}

func defaultOpts(ctx context.Context, opts []Option) []Option {
	if ctx == nil {
		ctx = context.Background()
	}
	allOpts := make([]Option, 0, len(opts)+2)
	allOpts = append(allOpts, retry.Context(ctx), retry.RetryIf(IsRecoverable))
	return append(allOpts, opts...)
}
