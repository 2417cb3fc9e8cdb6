package xcache

import (
	"fmt"
	"time"

	"github.com/dgraph-io/ristretto/v2"
)

// MemoryConfig 进程内近端缓存配置。
type MemoryConfig struct {
	// MaxEntries 最大条目数，默认 10000。
	MaxEntries int64 `koanf:"max_entries"`
	// TTL 条目存活时间，默认 1s。近端缓存只用于削峰，TTL 应远小于 Redis TTL。
	TTL time.Duration `koanf:"ttl"`
}

const (
	defaultMemoryMaxEntries = 10000
	defaultMemoryTTL        = time.Second
)

// Memory 基于 ristretto 的进程内缓存，每个条目 cost 为 1。
//
// ristretto 异步写入，Set 后立即 Get 可能未命中；测试中可调用 Wait。
type Memory[V any] struct {
	cache *ristretto.Cache[string, V]
	ttl   time.Duration
}

// NewMemory 创建进程内缓存，使用完毕后需调用 Close。
func NewMemory[V any](cfg MemoryConfig) (*Memory[V], error) {
	if cfg.MaxEntries <= 0 {
		cfg.MaxEntries = defaultMemoryMaxEntries
	}
	if cfg.TTL <= 0 {
		cfg.TTL = defaultMemoryTTL
	}
	c, err := ristretto.NewCache(&ristretto.Config[string, V]{
		NumCounters: cfg.MaxEntries * 10,
		MaxCost:     cfg.MaxEntries,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("xcache: new memory cache: %w", err)
	}
	return &Memory[V]{cache: c, ttl: cfg.TTL}, nil
}

// Get 读取条目。
func (m *Memory[V]) Get(key string) (V, bool) {
	return m.cache.Get(key)
}

// Set 写入条目，可能被准入策略拒绝。
func (m *Memory[V]) Set(key string, value V) bool {
	return m.cache.SetWithTTL(key, value, 1, m.ttl)
}

// Delete 删除条目。
func (m *Memory[V]) Delete(key string) {
	m.cache.Del(key)
}

// Wait 等待缓冲写入完成。
func (m *Memory[V]) Wait() {
	m.cache.Wait()
}

// Close 停止 ristretto 后台 goroutine。
func (m *Memory[V]) Close() {
	m.cache.Close()
}
