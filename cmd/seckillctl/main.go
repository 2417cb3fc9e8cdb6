// seckillctl 是秒杀准入链路的命令行工具。
//
// 用法:
//
//	seckillctl [全局选项] <命令> [命令参数]
//
// 全局选项:
//
//	-c, --config     配置文件路径（.yaml/.yml/.json），缺省时使用内置默认值
//	-l, --log-level  覆盖配置中的日志级别
//
// 命令:
//
//	preload   写入券并预热库存
//	admit     为单个用户抢购一次
//	bench     N 个并发用户抢购同一张券，输出准入统计
//	nextid    生成订单号
//	serve     从标准输入逐行读取 "<user> <voucher>" 准入，落库后退出
//
// 退出码:
//
//	0: 成功
//	1: 执行失败或准入被拒绝
//	2: 参数错误
//
// 示例:
//
//	seckillctl -c seckill.yaml preload --voucher 1 --stock 100
//	seckillctl -c seckill.yaml admit --voucher 1 --user 1001
//	seckillctl -c seckill.yaml bench --voucher 1 --stock 100 --users 5000
//	seckillctl -c seckill.yaml nextid --count 3
//	printf '1001 1\n1002 1\n' | seckillctl -c seckill.yaml serve
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v3"
)

// 版本信息，可通过 -ldflags "-X main.Version=..." 注入。
var (
	Version   = "0.1.0-dev"
	GitCommit = "unknown"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := run(ctx, os.Args, os.Stdin, os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func createApp(stdin io.Reader, stdout, stderr io.Writer) *cli.Command {
	return &cli.Command{
		Name:      "seckillctl",
		Usage:     "秒杀准入链路命令行工具",
		Version:   fmt.Sprintf("%s (commit: %s)", Version, GitCommit),
		Reader:    stdin,
		Writer:    stdout,
		ErrWriter: stderr,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "配置文件路径",
			},
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "日志级别 (debug/info/warn/error)",
			},
		},
		Commands: []*cli.Command{
			preloadCommand(),
			admitCommand(),
			benchCommand(),
			nextIDCommand(),
			serveCommand(),
		},
		OnUsageError: func(_ context.Context, _ *cli.Command, err error, _ bool) error {
			return &usageError{msg: err.Error()}
		},
		// 退出码由 run 统一映射，禁止框架直接 os.Exit
		ExitErrHandler: func(context.Context, *cli.Command, error) {},
	}
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	app := createApp(stdin, stdout, stderr)
	err := app.Run(ctx, args)
	if err == nil {
		return 0
	}

	var exitErr *exitError
	if errors.As(err, &exitErr) {
		return exitErr.code
	}
	var usageErr *usageError
	if errors.As(err, &usageErr) {
		fmt.Fprintf(stderr, "参数错误: %v\n", usageErr)
		return 2
	}
	fmt.Fprintf(stderr, "错误: %v\n", err)
	return 1
}

// exitError 命令已完成输出，只需设置退出码。
type exitError struct {
	code int
}

func (e *exitError) Error() string { return fmt.Sprintf("exit status %d", e.code) }

// usageError 参数错误，退出码 2。
type usageError struct {
	msg string
}

func (e *usageError) Error() string { return e.msg }

func usagef(format string, args ...any) error {
	return &usageError{msg: fmt.Sprintf(format, args...)}
}
