package xseckill

import (
	"errors"
	"fmt"
)

// Reason 准入或落库失败的原因。
type Reason string

// 失败原因。
const (
	ReasonNotStarted     Reason = "not_started"
	ReasonEnded          Reason = "ended"
	ReasonSoldOut        Reason = "sold_out"
	ReasonDuplicateOrder Reason = "duplicate_order"
	ReasonOverloaded     Reason = "overloaded"
	ReasonLockBusy       Reason = "lock_busy"
	ReasonUnavailable    Reason = "unavailable"
	ReasonPersistFailure Reason = "persist_failure"
)

// 每个 Reason 对应一个哨兵，errors.Is(err, ErrSoldOut) 对 *AdmissionError 同样成立。
var (
	ErrNotStarted     = errors.New("xseckill: seckill not started")
	ErrEnded          = errors.New("xseckill: seckill ended")
	ErrSoldOut        = errors.New("xseckill: sold out")
	ErrDuplicateOrder = errors.New("xseckill: duplicate order")
	ErrOverloaded     = errors.New("xseckill: overloaded")
	ErrLockBusy       = errors.New("xseckill: lock busy")
	ErrUnavailable    = errors.New("xseckill: store unavailable")
	ErrPersistFailure = errors.New("xseckill: persist failure")
)

var (
	// ErrVoucherNotFound 券不存在。
	ErrVoucherNotFound = errors.New("xseckill: voucher not found")

	// ErrInvalidArgument 参数无效。
	ErrInvalidArgument = errors.New("xseckill: invalid argument")

	// ErrNilDependency 必需的依赖为 nil。
	ErrNilDependency = errors.New("xseckill: nil dependency")
)

var reasonSentinels = map[Reason]error{
	ReasonNotStarted:     ErrNotStarted,
	ReasonEnded:          ErrEnded,
	ReasonSoldOut:        ErrSoldOut,
	ReasonDuplicateOrder: ErrDuplicateOrder,
	ReasonOverloaded:     ErrOverloaded,
	ReasonLockBusy:       ErrLockBusy,
	ReasonUnavailable:    ErrUnavailable,
	ReasonPersistFailure: ErrPersistFailure,
}

// AdmissionError 准入失败。Cause 记录底层错误，可能为 nil。
type AdmissionError struct {
	Reason    Reason
	VoucherID int64
	UserID    int64
	Cause     error
}

func (e *AdmissionError) Error() string {
	msg := fmt.Sprintf("xseckill: admit user %d voucher %d: %s", e.UserID, e.VoucherID, e.Reason)
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

// Is 按 Reason 匹配对应哨兵。
func (e *AdmissionError) Is(target error) bool {
	s, ok := reasonSentinels[e.Reason]
	return ok && s == target
}

func (e *AdmissionError) Unwrap() error {
	return e.Cause
}

// ReasonOf 提取 err 中的失败原因，非 AdmissionError 返回空串。
func ReasonOf(err error) Reason {
	var ae *AdmissionError
	if errors.As(err, &ae) {
		return ae.Reason
	}
	return ""
}

func reject(reason Reason, userID, voucherID int64, cause error) error {
	return &AdmissionError{Reason: reason, UserID: userID, VoucherID: voucherID, Cause: cause}
}
