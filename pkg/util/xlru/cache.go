package xlru

import (
	"reflect"
	"sync"
	"sync/atomic"
	"time"
	"unsafe"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

const maxSize = 1 << 24

// Config 缓存配置。
type Config struct {
	// Size 最大条目数。
	Size int `koanf:"size"`
	// TTL 条目存活时间，0 表示不过期。
	TTL time.Duration `koanf:"ttl"`
}

// Cache 带 TTL 的 LRU 缓存，并发安全。Close 后读返回零值，写被忽略。
type Cache[K comparable, V any] struct {
	lru       *expirable.LRU[K, V]
	closed    atomic.Bool
	closeOnce sync.Once
}

// New 创建缓存。
func New[K comparable, V any](cfg Config) (*Cache[K, V], error) {
	if cfg.Size <= 0 || cfg.Size > maxSize {
		return nil, ErrInvalidSize
	}
	if cfg.TTL < 0 {
		return nil, ErrInvalidTTL
	}
	return &Cache[K, V]{lru: expirable.NewLRU[K, V](cfg.Size, nil, cfg.TTL)}, nil
}

// Get 返回未过期的值。
func (c *Cache[K, V]) Get(key K) (value V, ok bool) {
	if c.closed.Load() {
		return value, false
	}
	return c.lru.Get(key)
}

// Contains 判断 key 是否存在且未过期，不更新 LRU 顺序。
func (c *Cache[K, V]) Contains(key K) bool {
	if c.closed.Load() {
		return false
	}
	// 上游 Contains 不检查过期
	_, ok := c.lru.Peek(key)
	return ok
}

// Set 写入或刷新条目。
func (c *Cache[K, V]) Set(key K, value V) {
	if c.closed.Load() {
		return
	}
	c.lru.Add(key, value)
}

// Delete 删除条目，返回 key 是否存在。
func (c *Cache[K, V]) Delete(key K) bool {
	if c.closed.Load() {
		return false
	}
	return c.lru.Remove(key)
}

// Len 返回条目数，可能包含尚未清理的过期条目。
func (c *Cache[K, V]) Len() int {
	if c.closed.Load() {
		return 0
	}
	return c.lru.Len()
}

// Close 清空缓存并停止后台过期清理 goroutine，可重复调用。
func (c *Cache[K, V]) Close() {
	c.closed.Store(true)
	c.closeOnce.Do(func() {
		c.lru.Purge()
		stopCleanupGoroutine(c.lru)
	})
}

// stopCleanupGoroutine 关闭 expirable.LRU 未导出的 done 通道。
//
// golang-lru v2.0.7 在 TTL > 0 时启动清理 goroutine，但没有公开的 Close。
// 上游结构变化时返回 false，goroutine 会泄漏，由 TestStopCleanupGoroutine 捕获。
// 升级 golang-lru 后若已提供 Close，应改为直接调用。
func stopCleanupGoroutine(lru any) (stopped bool) {
	defer func() {
		if r := recover(); r != nil {
			stopped = false
		}
	}()

	v := reflect.ValueOf(lru)
	if v.Kind() != reflect.Pointer || v.IsNil() {
		return false
	}
	done := v.Elem().FieldByName("done")
	if !done.IsValid() || done.IsNil() || done.Type() != reflect.TypeOf(make(chan struct{})) {
		return false
	}
	ch := *(*chan struct{})(unsafe.Pointer(done.UnsafeAddr())) //nolint:gosec // 访问上游未导出字段
	close(ch)
	return true
}
