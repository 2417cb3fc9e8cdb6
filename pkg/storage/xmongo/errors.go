package xmongo

import "errors"

var (
	// ErrNilClient 传入的客户端为 nil。
	ErrNilClient = errors.New("xmongo: nil client")

	// ErrClosed 客户端已关闭。
	ErrClosed = errors.New("xmongo: client closed")

	// ErrNilFunc 操作函数为 nil。
	ErrNilFunc = errors.New("xmongo: nil operation")

	// ErrEmptyURI 连接串为空。
	ErrEmptyURI = errors.New("xmongo: empty uri")
)
