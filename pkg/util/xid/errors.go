package xid

import "errors"

var (
	// ErrNilClient Redis 客户端为空。
	ErrNilClient = errors.New("xid: client is nil")

	// ErrEmptyNamespace 命名空间为空。
	ErrEmptyNamespace = errors.New("xid: namespace must not be empty")

	// ErrBeforeEpoch 当前时间早于 epoch。
	ErrBeforeEpoch = errors.New("xid: clock is before epoch")

	// ErrOverTimeLimit 时间戳超出 31 bit，生成器无法继续工作。
	ErrOverTimeLimit = errors.New("xid: time component overflow")

	// ErrSequenceOverflow 单日序列号超出 32 bit。
	ErrSequenceOverflow = errors.New("xid: sequence overflow")

	// ErrInvalidConfig 配置参数无效。
	ErrInvalidConfig = errors.New("xid: invalid config")
)
