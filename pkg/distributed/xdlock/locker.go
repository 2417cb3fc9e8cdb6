package xdlock

import (
	"context"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/omeyang/xseckill/internal/keys"
)

// Locker 是跨进程的具名互斥锁。
//
// 所有实现都是并发安全的。
type Locker interface {
	// TryLock 尝试获取锁，立即返回。
	//
	// 返回值：
	//   - token, true, nil：获取成功，token 用于 Unlock
	//   - "", false, nil：锁被他人持有
	//   - "", false, err：锁存储异常
	TryLock(ctx context.Context, key string, ttl time.Duration) (token string, ok bool, err error)

	// Unlock 在令牌匹配时释放锁。
	// 令牌不匹配或锁已过期时返回 false, nil，锁保持原状。
	Unlock(ctx context.Context, key, token string) (bool, error)
}

// Key 返回 lock:{resource}:{id}。
func Key(resource, id string) string {
	return keys.Lock(resource, id)
}

// =============================================================================
// 令牌生成
// =============================================================================

// tokenSource 生成 {node}-{seq} 格式的持有者令牌。
type tokenSource struct {
	node string
	seq  atomic.Uint64
}

func newTokenSource() *tokenSource {
	return &tokenSource{node: uuid.NewString()}
}

func (s *tokenSource) next() string {
	return s.node + "-" + strconv.FormatUint(s.seq.Add(1), 10)
}

// =============================================================================
// 选项
// =============================================================================

// Option 配置 Locker。
type Option func(*options)

type options struct {
	tokenFunc func() string
	now       func() time.Time
}

func defaultOptions() *options {
	src := newTokenSource()
	return &options{
		tokenFunc: src.next,
		now:       time.Now,
	}
}

func applyOptions(opts []Option) *options {
	o := defaultOptions()
	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}
	return o
}

// WithTokenFunc 替换令牌生成函数。生成的令牌必须全局唯一。
func WithTokenFunc(fn func() string) Option {
	return func(o *options) {
		if fn != nil {
			o.tokenFunc = fn
		}
	}
}

// WithClock 替换时钟，仅 NewLocal 使用。
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

// =============================================================================
// 参数校验
// =============================================================================

func validateLock(key string, ttl time.Duration) error {
	if strings.TrimSpace(key) == "" {
		return ErrEmptyKey
	}
	if ttl <= 0 {
		return ErrInvalidTTL
	}
	return nil
}

func validateUnlock(key, token string) error {
	if strings.TrimSpace(key) == "" {
		return ErrEmptyKey
	}
	if token == "" {
		return ErrEmptyToken
	}
	return nil
}
