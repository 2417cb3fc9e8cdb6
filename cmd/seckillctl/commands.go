package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/urfave/cli/v3"
	"golang.org/x/sync/errgroup"

	"github.com/omeyang/xseckill/pkg/business/xseckill"
	"github.com/omeyang/xseckill/pkg/lifecycle/xrun"
	"github.com/omeyang/xseckill/pkg/util/xid"
	"github.com/omeyang/xseckill/pkg/util/xjson"
)

// withApp 加载配置、组装组件后执行 fn，结束时排空 worker 并释放资源。
func withApp(ctx context.Context, cmd *cli.Command, fn func(ctx context.Context, a *app, out io.Writer) error) error {
	root := cmd.Root()
	cfg, err := loadConfig(root.String("config"))
	if err != nil {
		return err
	}
	a, err := newApp(ctx, cfg, root.String("log-level"), root.ErrWriter)
	if err != nil {
		return err
	}
	return errors.Join(fn(ctx, a, root.Writer), a.Close())
}

// =============================================================================
// preload
// =============================================================================

func preloadCommand() *cli.Command {
	return &cli.Command{
		Name:  "preload",
		Usage: "写入券并预热库存，同时清空已购用户集合",
		Flags: []cli.Flag{
			&cli.Int64Flag{Name: "voucher", Aliases: []string{"v"}, Usage: "券 ID"},
			&cli.Int64Flag{Name: "stock", Aliases: []string{"s"}, Usage: "库存", Value: 100},
			&cli.StringFlag{Name: "begin", Usage: "开始时间 (RFC3339)，缺省为当前时间"},
			&cli.DurationFlag{Name: "duration", Usage: "秒杀持续时间", Value: time.Hour},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			v, err := voucherFromFlags(cmd, time.Now())
			if err != nil {
				return err
			}
			return withApp(ctx, cmd, func(ctx context.Context, a *app, out io.Writer) error {
				return cmdPreload(ctx, a, out, v)
			})
		},
	}
}

func voucherFromFlags(cmd *cli.Command, now time.Time) (xseckill.Voucher, error) {
	id := cmd.Int64("voucher")
	if id <= 0 {
		return xseckill.Voucher{}, usagef("--voucher 必须为正数")
	}
	begin := now
	if s := cmd.String("begin"); s != "" {
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			return xseckill.Voucher{}, usagef("--begin: %v", err)
		}
		begin = t
	}
	v := xseckill.Voucher{
		ID:        id,
		Stock:     cmd.Int64("stock"),
		BeginTime: begin,
		EndTime:   begin.Add(cmd.Duration("duration")),
	}
	if err := v.Validate(); err != nil {
		return xseckill.Voucher{}, &usageError{msg: err.Error()}
	}
	return v, nil
}

func cmdPreload(ctx context.Context, a *app, out io.Writer, v xseckill.Voucher) error {
	if err := a.saveVoucher(ctx, v); err != nil {
		return err
	}
	if err := a.reserver.Preload(ctx, v); err != nil {
		return err
	}
	a.ctrl.ForgetSoldOut(v.ID)
	a.logger.InfoContext(ctx, "voucher preloaded", slog.Int64("voucher_id", v.ID), slog.Int64("stock", v.Stock))
	return xjson.Encode(out, v)
}

// =============================================================================
// admit
// =============================================================================

type admitResult struct {
	OrderID   int64  `json:"order_id,omitempty"`
	UserID    int64  `json:"user_id"`
	VoucherID int64  `json:"voucher_id"`
	Rejected  string `json:"rejected,omitempty"`
	Error     string `json:"error,omitempty"`
	Persisted bool   `json:"persisted"`
}

func admitCommand() *cli.Command {
	return &cli.Command{
		Name:  "admit",
		Usage: "为单个用户抢购一次，等待订单落库后退出",
		Flags: []cli.Flag{
			&cli.Int64Flag{Name: "voucher", Aliases: []string{"v"}, Usage: "券 ID"},
			&cli.Int64Flag{Name: "user", Aliases: []string{"u"}, Usage: "用户 ID"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			voucherID, userID := cmd.Int64("voucher"), cmd.Int64("user")
			if voucherID <= 0 || userID <= 0 {
				return usagef("--voucher 和 --user 必须为正数")
			}
			return withApp(ctx, cmd, func(ctx context.Context, a *app, out io.Writer) error {
				return cmdAdmit(ctx, a, out, userID, voucherID)
			})
		},
	}
}

func cmdAdmit(ctx context.Context, a *app, out io.Writer, userID, voucherID int64) error {
	res := admitResult{UserID: userID, VoucherID: voucherID}
	orderID, err := a.ctrl.Admit(ctx, userID, voucherID)
	if err != nil {
		reason := xseckill.ReasonOf(err)
		if reason == "" {
			return err
		}
		res.Rejected = string(reason)
		if encErr := xjson.Encode(out, res); encErr != nil {
			return encErr
		}
		return &exitError{code: 1}
	}

	// 单次命令需要等订单真正落库
	if err := a.worker.Shutdown(ctx); err != nil {
		return err
	}
	res.OrderID = orderID
	res.Persisted = a.persisted.Load() == 1
	return xjson.Encode(out, res)
}

// =============================================================================
// bench
// =============================================================================

type benchResult struct {
	VoucherID  int64   `json:"voucher_id"`
	Stock      int64   `json:"stock"`
	Users      int     `json:"users"`
	Attempts   int     `json:"attempts"`
	Admitted   int     `json:"admitted"`
	SoldOut    int     `json:"sold_out"`
	Duplicate  int     `json:"duplicate"`
	Overloaded int     `json:"overloaded"`
	Failed     int     `json:"failed"`
	Persisted  int64   `json:"persisted"`
	Dropped    int64   `json:"dropped"`
	Remaining  int64   `json:"remaining"`
	Elapsed    string  `json:"elapsed"`
	QPS        float64 `json:"qps"`
}

type benchParams struct {
	voucher     xseckill.Voucher
	users       int
	repeat      int
	concurrency int
	userBase    int64
}

func benchCommand() *cli.Command {
	return &cli.Command{
		Name:  "bench",
		Usage: "预热一张券后让 N 个并发用户抢购，输出准入统计",
		Flags: []cli.Flag{
			&cli.Int64Flag{Name: "voucher", Aliases: []string{"v"}, Usage: "券 ID", Value: 1},
			&cli.Int64Flag{Name: "stock", Aliases: []string{"s"}, Usage: "库存", Value: 100},
			&cli.IntFlag{Name: "users", Aliases: []string{"n"}, Usage: "用户数", Value: 1000},
			&cli.IntFlag{Name: "repeat", Usage: "每个用户的抢购次数", Value: 1},
			&cli.IntFlag{Name: "concurrency", Usage: "并发数", Value: 64},
			&cli.Int64Flag{Name: "user-base", Usage: "起始用户 ID", Value: 1},
			&cli.DurationFlag{Name: "duration", Usage: "秒杀持续时间", Value: time.Hour},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			// 开始时间前移，保证压测时处于时间窗内
			v, err := voucherFromFlags(cmd, time.Now().Add(-time.Second))
			if err != nil {
				return err
			}
			p := benchParams{
				voucher:     v,
				users:       cmd.Int("users"),
				repeat:      cmd.Int("repeat"),
				concurrency: cmd.Int("concurrency"),
				userBase:    cmd.Int64("user-base"),
			}
			if p.users <= 0 || p.repeat <= 0 || p.concurrency <= 0 || p.userBase <= 0 {
				return usagef("--users、--repeat、--concurrency、--user-base 必须为正数")
			}
			return withApp(ctx, cmd, func(ctx context.Context, a *app, out io.Writer) error {
				return cmdBench(ctx, a, out, p)
			})
		},
	}
}

func cmdBench(ctx context.Context, a *app, out io.Writer, p benchParams) error {
	if err := a.saveVoucher(ctx, p.voucher); err != nil {
		return err
	}
	if err := a.reserver.Preload(ctx, p.voucher); err != nil {
		return err
	}
	a.ctrl.ForgetSoldOut(p.voucher.ID)

	res := benchResult{VoucherID: p.voucher.ID, Stock: p.voucher.Stock, Users: p.users, Attempts: p.users * p.repeat}
	var mu sync.Mutex
	count := func(err error) {
		mu.Lock()
		defer mu.Unlock()
		switch {
		case err == nil:
			res.Admitted++
		case errors.Is(err, xseckill.ErrSoldOut):
			res.SoldOut++
		case errors.Is(err, xseckill.ErrDuplicateOrder):
			res.Duplicate++
		case errors.Is(err, xseckill.ErrOverloaded):
			res.Overloaded++
		default:
			res.Failed++
		}
	}

	start := time.Now()
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.concurrency)
	for i := range res.Attempts {
		userID := p.userBase + int64(i%p.users)
		g.Go(func() error {
			_, err := a.ctrl.Admit(gctx, userID, p.voucher.ID)
			count(err)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	elapsed := time.Since(start)

	if err := a.worker.Shutdown(ctx); err != nil {
		return err
	}
	remaining, err := a.reserver.Stock(ctx, p.voucher.ID)
	if err != nil {
		return err
	}
	res.Persisted = a.persisted.Load()
	res.Dropped = a.dropped.Load()
	res.Remaining = remaining
	res.Elapsed = elapsed.Round(time.Millisecond).String()
	if elapsed > 0 {
		res.QPS = float64(res.Attempts) / elapsed.Seconds()
	}
	if int64(res.Admitted) > p.voucher.Stock {
		a.logger.ErrorContext(ctx, "admitted more orders than stock",
			slog.Int("admitted", res.Admitted), slog.Int64("stock", p.voucher.Stock))
	}
	return xjson.Encode(out, res)
}

// =============================================================================
// nextid
// =============================================================================

type idResult struct {
	ID       uint64     `json:"id"`
	Time     *time.Time `json:"time,omitempty"`
	Sequence *uint32    `json:"sequence,omitempty"`
}

func nextIDCommand() *cli.Command {
	return &cli.Command{
		Name:  "nextid",
		Usage: "生成 ID",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "namespace", Usage: "命名空间，缺省为配置中的 id_namespace"},
			&cli.IntFlag{Name: "count", Aliases: []string{"n"}, Usage: "生成个数", Value: 1},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			n := cmd.Int("count")
			if n <= 0 {
				return usagef("--count 必须为正数")
			}
			return withApp(ctx, cmd, func(ctx context.Context, a *app, out io.Writer) error {
				ns := cmd.String("namespace")
				if ns == "" {
					ns = a.cfg.IDNamespace
				}
				return cmdNextID(ctx, a.ids, out, ns, n)
			})
		},
	}
}

func cmdNextID(ctx context.Context, ids xid.Generator, out io.Writer, namespace string, n int) error {
	decomposer, _ := ids.(interface{ Decompose(uint64) xid.Components })
	results := make([]idResult, 0, n)
	for range n {
		id, err := ids.NextID(ctx, namespace)
		if err != nil {
			return err
		}
		r := idResult{ID: id}
		if decomposer != nil {
			c := decomposer.Decompose(id)
			r.Time, r.Sequence = &c.Time, &c.Sequence
		}
		results = append(results, r)
	}
	return xjson.Encode(out, results)
}

// =============================================================================
// serve
// =============================================================================

// errInputClosed 输入读完，serve 正常退出。
var errInputClosed = errors.New("admission input closed")

type serveSummary struct {
	Admitted  int   `json:"admitted"`
	Rejected  int   `json:"rejected"`
	Invalid   int   `json:"invalid"`
	Persisted int64 `json:"persisted"`
	Dropped   int64 `json:"dropped"`
}

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "从标准输入逐行读取 \"<user> <voucher>\" 并准入，订单由本进程的 worker 落库；输入结束或收到 SIGINT/SIGTERM 后排空队列退出",
		Flags: []cli.Flag{
			&cli.Int64SliceFlag{Name: "warm", Usage: "定期预热的券 ID，逻辑过期策略下使用"},
			&cli.DurationFlag{Name: "interval", Usage: "预热与状态日志间隔", Value: 10 * time.Second},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			interval := cmd.Duration("interval")
			if interval <= 0 {
				return usagef("--interval 必须为正数")
			}
			warm := cmd.Int64Slice("warm")
			in := cmd.Root().Reader
			return withApp(ctx, cmd, func(ctx context.Context, a *app, out io.Writer) error {
				return cmdServe(ctx, a, in, out, warm, interval)
			})
		},
	}
}

func cmdServe(ctx context.Context, a *app, in io.Reader, out io.Writer, warm []int64, interval time.Duration) error {
	a.logger.InfoContext(ctx, "seckillctl serving", slog.String("mode", a.cfg.Mode),
		slog.String("warm", fmt.Sprint(warm)))

	tick := func(ctx context.Context) error {
		if a.cached != nil && len(warm) > 0 {
			if err := a.cached.Warm(ctx, warm...); err != nil {
				a.logger.WarnContext(ctx, "voucher warm failed", slog.Any("error", err))
			}
		}
		a.logger.InfoContext(ctx, "order worker status",
			slog.Int("pending", a.worker.Pending()),
			slog.Int64("persisted", a.persisted.Load()),
			slog.Int64("dropped", a.dropped.Load()))
		return nil
	}
	if err := tick(ctx); err != nil {
		return err
	}

	var summary serveSummary
	admit := func(ctx context.Context) error {
		return serveAdmissions(ctx, a, in, out, &summary)
	}
	err := xrun.Run(ctx, []xrun.Option{xrun.WithLogger(a.logger), xrun.WithName("seckillctl")},
		a.worker.Run,
		admit,
		xrun.Ticker(interval, tick),
	)
	if err != nil && !errors.Is(err, errInputClosed) && !errors.Is(err, xrun.ErrSignal) &&
		!errors.Is(err, context.Canceled) {
		return err
	}

	// worker.Run 返回时队列已排空
	summary.Persisted = a.persisted.Load()
	summary.Dropped = a.dropped.Load()
	return xjson.Encode(out, summary)
}

// serveAdmissions 逐行准入，每行输出一个结果。读完输入时返回 errInputClosed，
// 让 worker 开始排空。
func serveAdmissions(ctx context.Context, a *app, in io.Reader, out io.Writer, summary *serveSummary) error {
	if in == nil {
		return errInputClosed
	}
	lines := make(chan string)
	scanErr := make(chan error, 1)
	// Scan 不响应 ctx，读取放到独立协程
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(in)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
		scanErr <- sc.Err()
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case line, ok := <-lines:
			if !ok {
				select {
				case err := <-scanErr:
					if err != nil {
						return fmt.Errorf("read admissions: %w", err)
					}
				default:
				}
				return errInputClosed
			}
			res, skip := admitLine(ctx, a, line)
			if skip {
				continue
			}
			switch {
			case res.Error != "":
				summary.Invalid++
			case res.Rejected != "":
				summary.Rejected++
			default:
				summary.Admitted++
			}
			if err := xjson.Encode(out, res); err != nil {
				return err
			}
		}
	}
}

// admitLine 解析 "<user> <voucher>" 并准入。空行和 # 注释行跳过。
func admitLine(ctx context.Context, a *app, line string) (admitResult, bool) {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "#") {
		return admitResult{}, true
	}
	fields := strings.Fields(line)
	if len(fields) != 2 {
		return admitResult{Error: fmt.Sprintf("want \"<user> <voucher>\", got %q", line)}, false
	}
	userID, uerr := strconv.ParseInt(fields[0], 10, 64)
	voucherID, verr := strconv.ParseInt(fields[1], 10, 64)
	if err := errors.Join(uerr, verr); err != nil {
		return admitResult{Error: err.Error()}, false
	}

	res := admitResult{UserID: userID, VoucherID: voucherID}
	orderID, err := a.ctrl.Admit(ctx, userID, voucherID)
	switch {
	case err == nil:
		res.OrderID = orderID
	case xseckill.ReasonOf(err) != "":
		res.Rejected = string(xseckill.ReasonOf(err))
	default:
		res.Error = err.Error()
	}
	return res, false
}
