package xcache

import "errors"

var (
	// ErrNotFound 数据不存在（回源确认不存在、命中空值标记或逻辑过期模式下物理未命中）。
	ErrNotFound = errors.New("xcache: not found")

	// ErrUnavailable 缓存或锁存储不可用。
	ErrUnavailable = errors.New("xcache: store unavailable")

	// ErrLockBusy 互斥重建模式下重试耗尽仍未拿到锁，也未等到其他进程写入缓存。
	ErrLockBusy = errors.New("xcache: rebuild lock busy")

	// ErrNilClient 客户端为 nil。
	ErrNilClient = errors.New("xcache: nil client")

	// ErrNilLoader 回源函数为 nil。
	ErrNilLoader = errors.New("xcache: nil loader function")

	// ErrEmptyKey key 前缀或 id 为空。
	ErrEmptyKey = errors.New("xcache: empty key")

	// ErrInvalidTTL TTL 必须为正数。
	ErrInvalidTTL = errors.New("xcache: ttl must be positive")

	// ErrInvalidStrategy 未知的缓存策略。
	ErrInvalidStrategy = errors.New("xcache: invalid strategy")

	// ErrInvalidPayload 逻辑过期模式下缓存值必须是合法 JSON。
	ErrInvalidPayload = errors.New("xcache: logical-expire payload must be valid JSON")

	// ErrCorruptEntry 缓存中的逻辑过期信封无法解析。
	ErrCorruptEntry = errors.New("xcache: corrupt logical-expire entry")

	// ErrLoadPanic 回源函数发生 panic。
	ErrLoadPanic = errors.New("xcache: load function panicked")
)
