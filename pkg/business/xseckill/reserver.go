package xseckill

//go:generate mockgen -source=reserver.go -destination=mock_reserver_test.go -package=xseckill

import (
	"context"
	_ "embed"
	"encoding/binary"
	"errors"
	"fmt"
	"strconv"
	"sync"

	"github.com/cespare/xxhash/v2"
	"github.com/redis/go-redis/v9"

	"github.com/omeyang/xseckill/internal/keys"
)

// Reserver 在共享存储上原子地完成 库存检查 + 一人一单检查 + 扣减。
type Reserver interface {
	// Reserve 为 userID 预占 voucherID 的一份库存。
	// 对同一券的并发调用必须线性化，库存永不为负。
	Reserve(ctx context.Context, voucherID, userID int64) (Outcome, error)

	// Release 撤销 Reserve 的效果：移出已下单集合并归还一份库存。
	// 用户不在集合中时返回 false。
	Release(ctx context.Context, voucherID, userID int64) (bool, error)

	// Preload 写入券的初始库存并清空已下单集合。
	Preload(ctx context.Context, v Voucher) error

	// Stock 返回剩余库存，未预热返回 0。
	Stock(ctx context.Context, voucherID int64) (int64, error)
}

// =============================================================================
// RedisReserver
// =============================================================================

var (
	//go:embed lua/reserve.lua
	reserveLuaSource string
	//go:embed lua/release.lua
	releaseLuaSource string

	reserveScript = redis.NewScript(reserveLuaSource)
	releaseScript = redis.NewScript(releaseLuaSource)
)

// RedisReserver 基于 Lua 脚本的准入实现，适用于多实例部署。
//
// 库存 key 与已下单集合 key 没有 hash tag，Redis Cluster 下两者可能不在同一 slot，
// 集群部署需保证它们路由到同一节点。
type RedisReserver struct {
	client redis.UniversalClient
}

// NewRedisReserver 创建 RedisReserver。
func NewRedisReserver(client redis.UniversalClient) (*RedisReserver, error) {
	if client == nil {
		return nil, fmt.Errorf("%w: redis client", ErrNilDependency)
	}
	return &RedisReserver{client: client}, nil
}

// Reserve 执行准入脚本。
func (r *RedisReserver) Reserve(ctx context.Context, voucherID, userID int64) (Outcome, error) {
	n, err := reserveScript.Run(ctx, r.client,
		[]string{keys.Stock(voucherID), keys.OrderSet(voucherID)},
		strconv.FormatInt(userID, 10),
	).Int64()
	if err != nil {
		return 0, fmt.Errorf("xseckill: reserve voucher %d: %w", voucherID, err)
	}
	o := Outcome(n)
	if o < OutcomeAdmitted || o > OutcomeDuplicate {
		return 0, fmt.Errorf("xseckill: reserve voucher %d: unexpected script result %d", voucherID, n)
	}
	return o, nil
}

// Release 执行归还脚本。
func (r *RedisReserver) Release(ctx context.Context, voucherID, userID int64) (bool, error) {
	n, err := releaseScript.Run(ctx, r.client,
		[]string{keys.Stock(voucherID), keys.OrderSet(voucherID)},
		strconv.FormatInt(userID, 10),
	).Int64()
	if err != nil {
		return false, fmt.Errorf("xseckill: release voucher %d: %w", voucherID, err)
	}
	return n == 1, nil
}

// Preload 在事务中写库存并删除已下单集合，新建秒杀券时调用。
func (r *RedisReserver) Preload(ctx context.Context, v Voucher) error {
	if err := v.Validate(); err != nil {
		return err
	}
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, keys.Stock(v.ID), v.Stock, 0)
		pipe.Del(ctx, keys.OrderSet(v.ID))
		return nil
	})
	if err != nil {
		return fmt.Errorf("xseckill: preload voucher %d: %w", v.ID, err)
	}
	return nil
}

// Stock 读取剩余库存。
func (r *RedisReserver) Stock(ctx context.Context, voucherID int64) (int64, error) {
	n, err := r.client.Get(ctx, keys.Stock(voucherID)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("xseckill: stock voucher %d: %w", voucherID, err)
	}
	return n, nil
}

// WarmupScripts 预加载准入与归还脚本。
func WarmupScripts(ctx context.Context, client redis.UniversalClient) error {
	if client == nil {
		return fmt.Errorf("%w: redis client", ErrNilDependency)
	}
	return errors.Join(
		reserveScript.Load(ctx, client).Err(),
		releaseScript.Load(ctx, client).Err(),
	)
}

// =============================================================================
// LocalReserver
// =============================================================================

const localPartitions = 32

type localPartition struct {
	mu     sync.Mutex
	stock  map[int64]int64
	buyers map[int64]map[int64]struct{}
}

// LocalReserver 进程内准入实现，按券 ID 分片加锁。只适用于单进程部署。
type LocalReserver struct {
	parts [localPartitions]localPartition
}

// NewLocalReserver 创建 LocalReserver。
func NewLocalReserver() *LocalReserver {
	r := &LocalReserver{}
	for i := range r.parts {
		r.parts[i].stock = make(map[int64]int64)
		r.parts[i].buyers = make(map[int64]map[int64]struct{})
	}
	return r
}

func (r *LocalReserver) part(voucherID int64) *localPartition {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], uint64(voucherID))
	return &r.parts[xxhash.Sum64(b[:])%localPartitions]
}

// Reserve 在分片锁内完成检查与扣减。
func (r *LocalReserver) Reserve(ctx context.Context, voucherID, userID int64) (Outcome, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	p := r.part(voucherID)
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.stock[voucherID] <= 0 {
		return OutcomeSoldOut, nil
	}
	buyers := p.buyers[voucherID]
	if _, ok := buyers[userID]; ok {
		return OutcomeDuplicate, nil
	}
	if buyers == nil {
		buyers = make(map[int64]struct{})
		p.buyers[voucherID] = buyers
	}
	p.stock[voucherID]--
	buyers[userID] = struct{}{}
	return OutcomeAdmitted, nil
}

// Release 归还库存。
func (r *LocalReserver) Release(ctx context.Context, voucherID, userID int64) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	p := r.part(voucherID)
	p.mu.Lock()
	defer p.mu.Unlock()

	buyers := p.buyers[voucherID]
	if _, ok := buyers[userID]; !ok {
		return false, nil
	}
	delete(buyers, userID)
	p.stock[voucherID]++
	return true, nil
}

// Preload 写库存并清空已下单集合。
func (r *LocalReserver) Preload(ctx context.Context, v Voucher) error {
	if err := v.Validate(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	p := r.part(v.ID)
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stock[v.ID] = v.Stock
	delete(p.buyers, v.ID)
	return nil
}

// Stock 读取剩余库存。
func (r *LocalReserver) Stock(ctx context.Context, voucherID int64) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	p := r.part(voucherID)
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stock[voucherID], nil
}
