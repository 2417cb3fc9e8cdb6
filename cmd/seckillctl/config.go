package main

import (
	"fmt"
	"time"

	"github.com/omeyang/xseckill/pkg/business/xseckill"
	"github.com/omeyang/xseckill/pkg/config/xconf"
	"github.com/omeyang/xseckill/pkg/observability/xlog"
	"github.com/omeyang/xseckill/pkg/resilience/xbreaker"
	"github.com/omeyang/xseckill/pkg/resilience/xlimit"
	"github.com/omeyang/xseckill/pkg/storage/xcache"
	"github.com/omeyang/xseckill/pkg/storage/xmongo"
	"github.com/omeyang/xseckill/pkg/util/xlru"
)

// 运行模式。
const (
	ModeRedis = "redis"
	ModeLocal = "local"
)

// Config seckillctl 配置。
type Config struct {
	// Mode redis 使用共享存储；local 为单进程模式，只适合 bench。
	Mode        string                `koanf:"mode"`
	IDNamespace string                `koanf:"id_namespace"`
	Redis       RedisConfig           `koanf:"redis"`
	Mongo       xmongo.Config         `koanf:"mongo"`
	Log         LogConfig             `koanf:"log"`
	Worker      xseckill.WorkerConfig `koanf:"worker"`
	Cache       CacheConfig           `koanf:"cache"`
	// Limit Rate 为 0 时不限流。
	Limit   xlimit.Rule     `koanf:"limit"`
	Breaker xbreaker.Config `koanf:"breaker"`
	// SoldOut Size 为 0 时不缓存售罄标记。
	SoldOut xlru.Config `koanf:"sold_out"`
	// FileLimit 启动时把打开文件数提升到该值，0 表示不调整。
	FileLimit uint64 `koanf:"file_limit"`
}

// RedisConfig Redis 连接。
type RedisConfig struct {
	Addr     string `koanf:"addr"`
	Password string `koanf:"password"`
	DB       int    `koanf:"db"`
	// LockAddrs 非空时订单锁改用 Redlock，节点应为奇数个且相互独立。
	LockAddrs []string `koanf:"lock_addrs"`
}

// CacheConfig 券缓存。
type CacheConfig struct {
	Strategy xcache.Strategy              `koanf:"strategy"`
	Voucher  xseckill.CachedVoucherConfig `koanf:"voucher"`
}

// LogConfig 日志。File 非空时输出到轮转文件。
type LogConfig struct {
	Level    string              `koanf:"level"`
	Format   string              `koanf:"format"`
	File     string              `koanf:"file"`
	Rotation xlog.RotationConfig `koanf:"rotation"`
}

func defaultConfig() Config {
	return Config{
		Mode:        ModeRedis,
		IDNamespace: xseckill.DefaultIDNamespace,
		Redis:       RedisConfig{Addr: "127.0.0.1:6379"},
		Mongo:       xmongo.Config{Database: "xseckill"},
		Log:         LogConfig{Level: "info", Format: "text"},
		Cache:       CacheConfig{Strategy: xcache.StrategyPenetration},
		SoldOut:     xlru.Config{Size: 1024, TTL: time.Second},
	}
}

// loadConfig 在默认值上覆盖配置文件，path 为空时直接返回默认值。
func loadConfig(path string) (Config, error) {
	cfg := defaultConfig()
	if path != "" {
		if err := xconf.Load(path, &cfg); err != nil {
			return Config{}, err
		}
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	switch c.Mode {
	case ModeRedis:
		if c.Redis.Addr == "" {
			return fmt.Errorf("config: redis.addr is required in %s mode", ModeRedis)
		}
	case ModeLocal:
	default:
		return fmt.Errorf("config: unknown mode %q", c.Mode)
	}
	if c.Limit.Rate > 0 {
		if err := c.Limit.Validate(); err != nil {
			return fmt.Errorf("config: limit: %w", err)
		}
	}
	return nil
}
