package xlru

import "errors"

var (
	// ErrInvalidSize 缓存容量必须在 (0, 16777216] 内。
	ErrInvalidSize = errors.New("xlru: size must be in (0, 16777216]")

	// ErrInvalidTTL TTL 不能为负。
	ErrInvalidTTL = errors.New("xlru: ttl must not be negative")
)
