package xbreaker

import (
	"errors"
	"fmt"

	"github.com/sony/gobreaker/v2"
)

var (
	// ErrOpenState 熔断器处于打开状态。
	ErrOpenState = gobreaker.ErrOpenState

	// ErrTooManyRequests 半开状态下探测请求已满。
	ErrTooManyRequests = gobreaker.ErrTooManyRequests

	// ErrNilFunc 操作函数为 nil。
	ErrNilFunc = errors.New("xbreaker: function cannot be nil")
)

// BreakerError 熔断器拒绝执行时返回的错误。
type BreakerError struct {
	Err   error
	Name  string
	State State
}

func (e *BreakerError) Error() string {
	return fmt.Sprintf("breaker %s: %v", e.Name, e.Err)
}

func (e *BreakerError) Unwrap() error {
	return e.Err
}

// wrap 只包装当前熔断器直接返回的哨兵错误，不遍历错误链。
// 状态由错误推导，避免 Execute 返回后再查询 State 的竞态。
func wrap(err error, name string) error {
	switch err {
	case gobreaker.ErrOpenState:
		return &BreakerError{Err: err, Name: name, State: StateOpen}
	case gobreaker.ErrTooManyRequests:
		return &BreakerError{Err: err, Name: name, State: StateHalfOpen}
	default:
		return err
	}
}

// IsBreakerError 判断 err 是否为熔断拒绝（打开或半开已满）。
func IsBreakerError(err error) bool {
	return errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests)
}
