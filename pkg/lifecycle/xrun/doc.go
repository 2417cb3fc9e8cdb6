// Package xrun 基于 errgroup 管理后台服务的并发运行与协调关闭。
//
// seckillctl serve 用它同时运行订单消费者、周期性状态日志和信号监听，
// 任一服务出错或收到 SIGINT/SIGTERM 时其余服务都会收到取消信号。
//
//	err := xrun.Run(ctx, []xrun.Option{xrun.WithLogger(logger)},
//	    worker.Run,
//	    xrun.Ticker(time.Minute, reportQueueDepth),
//	)
//	if errors.Is(err, xrun.ErrSignal) { ... }
package xrun
