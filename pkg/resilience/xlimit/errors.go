package xlimit

import "errors"

var (
	// ErrNilClient Redis 客户端为空。
	ErrNilClient = errors.New("xlimit: client is nil")

	// ErrInvalidRule 限流规则无效。
	ErrInvalidRule = errors.New("xlimit: rate and period must be positive")

	// ErrEmptyKey 限流 key 为空。
	ErrEmptyKey = errors.New("xlimit: key must not be empty")
)
