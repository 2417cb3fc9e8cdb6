package xrun

import (
	"log/slog"
	"os"
	"syscall"
)

// Option 配置 Group。
type Option func(*groupOptions)

type groupOptions struct {
	name    string
	logger  *slog.Logger
	signals []os.Signal
}

func defaultOptions() *groupOptions {
	return &groupOptions{
		name:    "xrun",
		logger:  slog.Default(),
		signals: []os.Signal{syscall.SIGINT, syscall.SIGTERM},
	}
}

// WithLogger 设置日志记录器。
func WithLogger(logger *slog.Logger) Option {
	return func(o *groupOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithName 设置 Group 名称，用于日志。
func WithName(name string) Option {
	return func(o *groupOptions) {
		if name != "" {
			o.name = name
		}
	}
}

// WithSignals 设置 Run 监听的信号，默认 SIGINT、SIGTERM。
func WithSignals(signals ...os.Signal) Option {
	return func(o *groupOptions) {
		if len(signals) > 0 {
			o.signals = signals
		}
	}
}
