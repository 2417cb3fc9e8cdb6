package xdlock

import "errors"

var (
	// ErrLockBusy 重试耗尽仍未获取到锁。
	ErrLockBusy = errors.New("xdlock: lock is busy")

	// ErrNilClient 客户端为空。
	ErrNilClient = errors.New("xdlock: client is nil")

	// ErrEmptyKey 锁 key 为空。
	ErrEmptyKey = errors.New("xdlock: key must not be empty")

	// ErrEmptyToken 解锁令牌为空。
	ErrEmptyToken = errors.New("xdlock: token must not be empty")

	// ErrInvalidTTL TTL 必须为正数，保证持有者崩溃后锁能自动过期。
	ErrInvalidTTL = errors.New("xdlock: ttl must be positive")
)
