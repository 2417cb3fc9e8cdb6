package xseckill

import (
	"fmt"
	"time"
)

// Voucher 秒杀券快照。准入时间窗为 [BeginTime, EndTime)。
type Voucher struct {
	ID        int64     `json:"id" bson:"_id"`
	Stock     int64     `json:"stock" bson:"stock"`
	BeginTime time.Time `json:"beginTime" bson:"begin_time"`
	EndTime   time.Time `json:"endTime" bson:"end_time"`
}

// Validate 校验券字段。
func (v Voucher) Validate() error {
	switch {
	case v.ID <= 0:
		return fmt.Errorf("%w: voucher id %d", ErrInvalidArgument, v.ID)
	case v.Stock < 0:
		return fmt.Errorf("%w: voucher %d stock %d", ErrInvalidArgument, v.ID, v.Stock)
	case !v.EndTime.After(v.BeginTime):
		return fmt.Errorf("%w: voucher %d ends before it begins", ErrInvalidArgument, v.ID)
	}
	return nil
}

// Window 秒杀时间窗状态。
type Window int

// 时间窗状态。
const (
	WindowNotStarted Window = iota
	WindowOpen
	WindowClosed
)

func (w Window) String() string {
	switch w {
	case WindowNotStarted:
		return "not_started"
	case WindowOpen:
		return "open"
	case WindowClosed:
		return "closed"
	default:
		return fmt.Sprintf("Window(%d)", int(w))
	}
}

// WindowAt 返回 now 时刻的时间窗状态。
func (v Voucher) WindowAt(now time.Time) Window {
	if now.Before(v.BeginTime) {
		return WindowNotStarted
	}
	if !now.Before(v.EndTime) {
		return WindowClosed
	}
	return WindowOpen
}

// Order 秒杀订单。同一 (UserID, VoucherID) 至多一条。
type Order struct {
	ID        int64     `json:"id" bson:"_id"`
	UserID    int64     `json:"userId" bson:"user_id"`
	VoucherID int64     `json:"voucherId" bson:"voucher_id"`
	CreatedAt time.Time `json:"createdAt" bson:"created_at"`
}

// PendingOrderTask 已准入、待落库的订单。
type PendingOrderTask struct {
	OrderID    int64
	UserID     int64
	VoucherID  int64
	AdmittedAt time.Time
}

func (t PendingOrderTask) order() Order {
	return Order{
		ID:        t.OrderID,
		UserID:    t.UserID,
		VoucherID: t.VoucherID,
		CreatedAt: t.AdmittedAt,
	}
}

// Outcome 原子准入操作的结果码，与 Lua 脚本返回值一致。
type Outcome int64

// 准入结果码。
const (
	OutcomeAdmitted  Outcome = 0
	OutcomeSoldOut   Outcome = 1
	OutcomeDuplicate Outcome = 2
)

func (o Outcome) String() string {
	switch o {
	case OutcomeAdmitted:
		return "admitted"
	case OutcomeSoldOut:
		return "sold_out"
	case OutcomeDuplicate:
		return "duplicate"
	default:
		return fmt.Sprintf("Outcome(%d)", int64(o))
	}
}
