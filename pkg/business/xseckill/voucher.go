package xseckill

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/omeyang/xseckill/pkg/storage/xcache"
)

const (
	defaultVoucherKeyPrefix = "cache:voucher:"
	defaultVoucherTTL       = 30 * time.Minute
)

// CachedVoucherConfig 券缓存配置。
type CachedVoucherConfig struct {
	// KeyPrefix Redis key 前缀，默认 cache:voucher:。
	KeyPrefix string `koanf:"key_prefix"`
	// TTL 物理 TTL 或逻辑有效期，取决于网关策略，默认 30m。
	TTL time.Duration `koanf:"ttl"`
	// Near 进程内近端缓存，MaxEntries 为 0 时使用 xcache 默认值。
	Near xcache.MemoryConfig `koanf:"near"`
	// DisableNear 关闭近端缓存。
	DisableNear bool `koanf:"disable_near"`
}

// CachedVoucherSource 读穿缓存的券源：近端 ristretto -> Redis 网关 -> 下游 VoucherSource。
//
// 网关使用逻辑过期策略时，未预热的券会返回 ErrVoucherNotFound，需先调用 Warm。
type CachedVoucherSource struct {
	gateway *xcache.Gateway
	source  VoucherSource
	near    *xcache.Memory[Voucher]
	prefix  string
	ttl     time.Duration
}

// NewCachedVoucherSource 创建带缓存的券源。使用完毕后调用 Close 释放近端缓存。
func NewCachedVoucherSource(gateway *xcache.Gateway, source VoucherSource, cfg CachedVoucherConfig) (*CachedVoucherSource, error) {
	if gateway == nil || source == nil {
		return nil, fmt.Errorf("%w: cache gateway and voucher source are required", ErrNilDependency)
	}
	if cfg.KeyPrefix == "" {
		cfg.KeyPrefix = defaultVoucherKeyPrefix
	}
	if cfg.TTL <= 0 {
		cfg.TTL = defaultVoucherTTL
	}
	c := &CachedVoucherSource{gateway: gateway, source: source, prefix: cfg.KeyPrefix, ttl: cfg.TTL}
	if !cfg.DisableNear {
		near, err := xcache.NewMemory[Voucher](cfg.Near)
		if err != nil {
			return nil, err
		}
		c.near = near
	}
	return c, nil
}

// LoadVoucher 读取券。
func (c *CachedVoucherSource) LoadVoucher(ctx context.Context, voucherID int64) (Voucher, error) {
	id := strconv.FormatInt(voucherID, 10)
	if c.near != nil {
		if v, ok := c.near.Get(id); ok {
			return v, nil
		}
	}

	v, err := xcache.Query(ctx, c.gateway, c.prefix, voucherID, c.loadOne, c.ttl)
	if errors.Is(err, xcache.ErrNotFound) {
		return Voucher{}, fmt.Errorf("%w: %d", ErrVoucherNotFound, voucherID)
	}
	if err != nil {
		return Voucher{}, err
	}
	if c.near != nil {
		c.near.Set(id, *v)
	}
	return *v, nil
}

// Invalidate 券更新后删除两级缓存。
func (c *CachedVoucherSource) Invalidate(ctx context.Context, voucherID int64) error {
	id := strconv.FormatInt(voucherID, 10)
	if c.near != nil {
		c.near.Delete(id)
	}
	return c.gateway.Invalidate(ctx, c.prefix, id)
}

// Put 创建或更新券后写穿缓存，按网关策略写普通 TTL 条目或逻辑过期条目。
func (c *CachedVoucherSource) Put(ctx context.Context, v Voucher) error {
	if err := v.Validate(); err != nil {
		return err
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("xseckill: encode voucher %d: %w", v.ID, err)
	}
	id := strconv.FormatInt(v.ID, 10)
	if c.gateway.Strategy() == xcache.StrategyLogicalExpire {
		err = c.gateway.SetWithLogicalExpire(ctx, c.prefix, id, data, c.ttl)
	} else {
		err = c.gateway.Set(ctx, c.prefix, id, data, c.ttl)
	}
	if err != nil {
		return err
	}
	if c.near != nil {
		c.near.Delete(id)
	}
	return nil
}

// Warm 把券预热为逻辑过期条目。不存在的券跳过。
func (c *CachedVoucherSource) Warm(ctx context.Context, voucherIDs ...int64) error {
	ids := make([]string, len(voucherIDs))
	for i, id := range voucherIDs {
		ids[i] = strconv.FormatInt(id, 10)
	}
	return c.gateway.Warm(ctx, c.prefix, ids, func(ctx context.Context, id string) ([]byte, error) {
		voucherID, err := strconv.ParseInt(id, 10, 64)
		if err != nil {
			return nil, err
		}
		v, err := c.loadOne(ctx, voucherID)
		if err != nil || v == nil {
			return nil, err
		}
		return json.Marshal(v)
	}, c.ttl)
}

// Close 停止近端缓存。
func (c *CachedVoucherSource) Close() {
	if c.near != nil {
		c.near.Close()
	}
}

// loadOne 回源，不存在返回 (nil, nil)。
func (c *CachedVoucherSource) loadOne(ctx context.Context, voucherID int64) (*Voucher, error) {
	v, err := c.source.LoadVoucher(ctx, voucherID)
	if errors.Is(err, ErrVoucherNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &v, nil
}
