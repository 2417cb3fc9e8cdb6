package xseckill

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/omeyang/xseckill/pkg/context/xctx"
	"github.com/omeyang/xseckill/pkg/observability/xmetrics"
	"github.com/omeyang/xseckill/pkg/resilience/xbreaker"
	"github.com/omeyang/xseckill/pkg/util/xid"
	"github.com/omeyang/xseckill/pkg/util/xlru"
)

const releaseTimeout = time.Second

// Controller 秒杀准入入口，并发安全。
type Controller struct {
	vouchers VoucherSource
	reserver Reserver
	ids      xid.Generator
	worker   *Worker
	opts     *options
	soldOut  *xlru.Cache[int64, struct{}]
}

// NewController 创建 Controller。
func NewController(vouchers VoucherSource, reserver Reserver, ids xid.Generator, worker *Worker, opts ...Option) (*Controller, error) {
	if vouchers == nil || reserver == nil || ids == nil || worker == nil {
		return nil, fmt.Errorf("%w: voucher source, reserver, id generator and worker are required", ErrNilDependency)
	}
	c := &Controller{
		vouchers: vouchers,
		reserver: reserver,
		ids:      ids,
		worker:   worker,
		opts:     applyOptions(opts),
	}
	if c.opts.soldOut != nil {
		cache, err := xlru.New[int64, struct{}](*c.opts.soldOut)
		if err != nil {
			return nil, fmt.Errorf("xseckill: sold-out cache: %w", err)
		}
		c.soldOut = cache
	}
	return c, nil
}

// AdmitCurrent 以 ctx 中的当前用户发起准入。
func (c *Controller) AdmitCurrent(ctx context.Context, voucherID int64) (int64, error) {
	userID, err := xctx.RequireUserID(ctx)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrInvalidArgument, err)
	}
	return c.Admit(ctx, userID, voucherID)
}

// Admit 为 userID 抢购 voucherID，成功返回订单号。订单异步落库。
//
// 失败时返回 *AdmissionError，可用 errors.Is(err, ErrSoldOut) 等判断；
// 券不存在返回 ErrVoucherNotFound，参数无效返回 ErrInvalidArgument。
func (c *Controller) Admit(ctx context.Context, userID, voucherID int64) (orderID int64, err error) {
	if userID <= 0 || voucherID <= 0 {
		return 0, fmt.Errorf("%w: user %d voucher %d", ErrInvalidArgument, userID, voucherID)
	}

	ctx, span := xmetrics.Start(ctx, c.opts.observer, xmetrics.SpanOptions{
		Component: component,
		Operation: "admit",
	})
	defer func() {
		span.End(xmetrics.Result{Status: admitStatus(err), Err: err})
	}()

	if c.soldOut != nil && c.soldOut.Contains(voucherID) {
		return 0, reject(ReasonSoldOut, userID, voucherID, nil)
	}
	if err := c.allow(ctx, userID, voucherID); err != nil {
		return 0, err
	}

	v, err := c.vouchers.LoadVoucher(ctx, voucherID)
	if errors.Is(err, ErrVoucherNotFound) {
		return 0, err
	}
	if err != nil {
		return 0, reject(ReasonUnavailable, userID, voucherID, err)
	}
	now := c.opts.now()
	switch v.WindowAt(now) {
	case WindowNotStarted:
		return 0, reject(ReasonNotStarted, userID, voucherID, nil)
	case WindowClosed:
		return 0, reject(ReasonEnded, userID, voucherID, nil)
	}

	// 先取号再预占：取号失败不会留下已扣减的库存
	id, err := c.ids.NextID(ctx, c.opts.idNamespace)
	if err != nil {
		return 0, reject(ReasonUnavailable, userID, voucherID, err)
	}

	outcome, err := c.reserve(ctx, voucherID, userID)
	if err != nil {
		return 0, reject(ReasonUnavailable, userID, voucherID, err)
	}
	switch outcome {
	case OutcomeSoldOut:
		if c.soldOut != nil {
			c.soldOut.Set(voucherID, struct{}{})
		}
		return 0, reject(ReasonSoldOut, userID, voucherID, nil)
	case OutcomeDuplicate:
		return 0, reject(ReasonDuplicateOrder, userID, voucherID, nil)
	}

	task := PendingOrderTask{OrderID: int64(id), UserID: userID, VoucherID: voucherID, AdmittedAt: now}
	if err := c.worker.Submit(task); err != nil {
		c.release(ctx, voucherID, userID)
		reason := ReasonUnavailable
		if errors.Is(err, ErrOverloaded) {
			reason = ReasonOverloaded
		}
		return 0, reject(reason, userID, voucherID, err)
	}
	return task.OrderID, nil
}

// Close 释放售罄缓存。
func (c *Controller) Close() {
	if c.soldOut != nil {
		c.soldOut.Close()
	}
}

// ForgetSoldOut 清除券的售罄标记，重新预热库存后调用。
func (c *Controller) ForgetSoldOut(voucherID int64) {
	if c.soldOut != nil {
		c.soldOut.Delete(voucherID)
	}
}

func (c *Controller) allow(ctx context.Context, userID, voucherID int64) error {
	if c.opts.limiter == nil {
		return nil
	}
	res, err := c.opts.limiter.Allow(ctx, "seckill:"+strconv.FormatInt(voucherID, 10))
	if err != nil {
		c.opts.logger.WarnContext(ctx, "xseckill: rate limiter failed, allowing request",
			slog.Int64("voucher_id", voucherID), slog.Any("error", err))
		return nil
	}
	if !res.Allowed {
		return reject(ReasonOverloaded, userID, voucherID,
			fmt.Errorf("rate limited, retry after %s", res.RetryAfter))
	}
	return nil
}

func (c *Controller) reserve(ctx context.Context, voucherID, userID int64) (Outcome, error) {
	if c.opts.breaker == nil {
		return c.reserver.Reserve(ctx, voucherID, userID)
	}
	return xbreaker.Execute(ctx, c.opts.breaker, func() (Outcome, error) {
		return c.reserver.Reserve(ctx, voucherID, userID)
	})
}

// release 入队失败时归还库存，调用方取消不影响归还。
// 归还期间其他请求可能已把券标记为售罄，归还成功后清除该标记。
func (c *Controller) release(ctx context.Context, voucherID, userID int64) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), releaseTimeout)
	defer cancel()
	released, err := c.reserver.Release(ctx, voucherID, userID)
	if err != nil {
		c.opts.logger.ErrorContext(ctx, "xseckill: release reservation failed",
			slog.Int64("voucher_id", voucherID), slog.Int64("user_id", userID), slog.Any("error", err))
		return
	}
	if released {
		c.ForgetSoldOut(voucherID)
	}
}

func admitStatus(err error) xmetrics.Status {
	if err == nil {
		return xmetrics.StatusOK
	}
	if r := ReasonOf(err); r != "" {
		return xmetrics.Status(r)
	}
	return xmetrics.StatusError
}
