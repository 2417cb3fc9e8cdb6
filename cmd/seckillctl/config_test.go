package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omeyang/xseckill/pkg/config/xconf"
	"github.com/omeyang/xseckill/pkg/storage/xcache"
)

func writeConfig(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := loadConfig("")
	require.NoError(t, err)

	assert.Equal(t, ModeRedis, cfg.Mode)
	assert.Equal(t, "127.0.0.1:6379", cfg.Redis.Addr)
	assert.Equal(t, "order", cfg.IDNamespace)
	assert.Equal(t, xcache.StrategyPenetration, cfg.Cache.Strategy)
	assert.Equal(t, 1024, cfg.SoldOut.Size)
	assert.Zero(t, cfg.Limit.Rate)
}

func TestLoadConfig_YAMLOverridesDefaults(t *testing.T) {
	path := writeConfig(t, "seckill.yaml", `
mode: local
worker:
  queue_size: 256
  lock_ttl: 3s
cache:
  strategy: mutex
  voucher:
    ttl: 10m
limit:
  rate: 500
  period: 1s
log:
  level: debug
`)

	cfg, err := loadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, ModeLocal, cfg.Mode)
	assert.Equal(t, 256, cfg.Worker.QueueSize)
	assert.Equal(t, 3*time.Second, cfg.Worker.LockTTL)
	assert.Equal(t, xcache.StrategyMutex, cfg.Cache.Strategy)
	assert.Equal(t, 10*time.Minute, cfg.Cache.Voucher.TTL)
	assert.Equal(t, 500, cfg.Limit.Rate)
	assert.Equal(t, time.Second, cfg.Limit.Period)
	assert.Equal(t, "debug", cfg.Log.Level)
	// 未出现的字段保留默认值
	assert.Equal(t, "text", cfg.Log.Format)
	assert.Equal(t, "order", cfg.IDNamespace)
}

func TestLoadConfig_JSON(t *testing.T) {
	path := writeConfig(t, "seckill.json", `{"redis": {"addr": "10.0.0.1:6379", "db": 2}}`)

	cfg, err := loadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "10.0.0.1:6379", cfg.Redis.Addr)
	assert.Equal(t, 2, cfg.Redis.DB)
}

func TestLoadConfig_Invalid(t *testing.T) {
	tests := []struct {
		name string
		file string
		body string
	}{
		{"unknown_mode", "a.yaml", "mode: cluster\n"},
		{"empty_redis_addr", "b.yaml", "redis:\n  addr: \"\"\n"},
		{"bad_limit", "c.yaml", "limit:\n  rate: 10\n"},
		{"bad_strategy", "d.yaml", "cache:\n  strategy: lru\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := loadConfig(writeConfig(t, tt.file, tt.body))
			assert.Error(t, err)
		})
	}

	_, err := loadConfig(writeConfig(t, "seckill.toml", "mode = 'local'"))
	assert.ErrorIs(t, err, xconf.ErrUnsupportedFormat)
}
