package xid

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/omeyang/xseckill/internal/keys"
)

// =============================================================================
// 位布局
// =============================================================================

const (
	// TimestampBits 秒级时间戳位数。
	TimestampBits = 31
	// SequenceBits 序列号位数。
	SequenceBits = 32

	maxTimestamp = 1<<TimestampBits - 1
	maxSequence  = 1<<SequenceBits - 1

	// defaultCounterTTL 计数器按天分桶，保留两天足以覆盖跨日钳制。
	defaultCounterTTL = 48 * time.Hour
)

// DefaultEpoch 默认起始时间 2022-01-01T00:00:00Z。
var DefaultEpoch = time.Unix(1640995200, 0).UTC()

// Generator 按命名空间生成 ID。
type Generator interface {
	NextID(ctx context.Context, namespace string) (uint64, error)
}

// Components 是 ID 拆解后的组成部分。
type Components struct {
	ID       uint64
	Time     time.Time
	Sequence uint32
}

// Decompose 按默认 epoch 拆解 RedisGenerator 生成的 ID。
func Decompose(id uint64) Components {
	return decompose(id, DefaultEpoch)
}

func decompose(id uint64, epoch time.Time) Components {
	sec := int64(id >> SequenceBits)
	return Components{
		ID:       id,
		Time:     epoch.Add(time.Duration(sec) * time.Second),
		Sequence: uint32(id & maxSequence),
	}
}

// =============================================================================
// RedisGenerator
// =============================================================================

// RedisGenerator 以 Redis INCR 作为跨进程共享的序列号来源。
type RedisGenerator struct {
	client     redis.UniversalClient
	epoch      time.Time
	now        func() time.Time
	counterTTL time.Duration

	mu      sync.Mutex
	lastSec int64
}

// Option 配置 RedisGenerator。
type Option func(*RedisGenerator)

// WithEpoch 设置起始时间。所有共享同一计数器的进程必须使用相同 epoch。
func WithEpoch(epoch time.Time) Option {
	return func(g *RedisGenerator) {
		g.epoch = epoch.UTC()
	}
}

// WithClock 替换时钟，测试使用。
func WithClock(now func() time.Time) Option {
	return func(g *RedisGenerator) {
		if now != nil {
			g.now = now
		}
	}
}

// WithCounterTTL 设置计数器 key 的过期时间，0 表示不过期。
func WithCounterTTL(ttl time.Duration) Option {
	return func(g *RedisGenerator) {
		g.counterTTL = ttl
	}
}

// NewRedis 创建基于 Redis 的 ID 生成器。
func NewRedis(client redis.UniversalClient, opts ...Option) (*RedisGenerator, error) {
	if client == nil {
		return nil, ErrNilClient
	}
	g := &RedisGenerator{
		client:     client,
		epoch:      DefaultEpoch,
		now:        time.Now,
		counterTTL: defaultCounterTTL,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(g)
		}
	}
	if g.counterTTL < 0 {
		return nil, fmt.Errorf("%w: counter ttl must be non-negative, got %s", ErrInvalidConfig, g.counterTTL)
	}
	return g, nil
}

// NextID 生成 namespace 下的下一个 ID。
func (g *RedisGenerator) NextID(ctx context.Context, namespace string) (uint64, error) {
	if strings.TrimSpace(namespace) == "" {
		return 0, ErrEmptyNamespace
	}

	sec, err := g.timestamp()
	if err != nil {
		return 0, err
	}

	// 计数器按钳制后的时间分桶，同一秒必然落在同一个计数器上
	key := keys.Counter(namespace, g.epoch.Add(time.Duration(sec)*time.Second))
	seq, err := g.incr(ctx, key)
	if err != nil {
		return 0, err
	}
	if seq < 0 || seq > maxSequence {
		return 0, fmt.Errorf("%w: %s reached %d", ErrSequenceOverflow, key, seq)
	}

	return uint64(sec)<<SequenceBits | uint64(seq), nil
}

// Decompose 按本生成器的 epoch 拆解 ID。
func (g *RedisGenerator) Decompose(id uint64) Components {
	return decompose(id, g.epoch)
}

// timestamp 返回距 epoch 的秒数，不小于此前返回过的值。
func (g *RedisGenerator) timestamp() (int64, error) {
	sec := g.now().Unix() - g.epoch.Unix()
	if sec < 0 {
		return 0, ErrBeforeEpoch
	}

	g.mu.Lock()
	if sec < g.lastSec {
		sec = g.lastSec
	} else {
		g.lastSec = sec
	}
	g.mu.Unlock()

	if sec > maxTimestamp {
		return 0, ErrOverTimeLimit
	}
	return sec, nil
}

func (g *RedisGenerator) incr(ctx context.Context, key string) (int64, error) {
	if g.counterTTL == 0 {
		seq, err := g.client.Incr(ctx, key).Result()
		if err != nil {
			return 0, fmt.Errorf("xid: incr %s: %w", key, err)
		}
		return seq, nil
	}

	var incr *redis.IntCmd
	_, err := g.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, key)
		pipe.Expire(ctx, key, g.counterTTL)
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("xid: incr %s: %w", key, err)
	}
	return incr.Val(), nil
}
