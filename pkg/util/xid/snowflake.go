package xid

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"
	"github.com/sony/sonyflake/v2"
)

// EnvMachineID 显式指定 sonyflake 机器号（0-65535）的环境变量。
const EnvMachineID = "XSECKILL_MACHINE_ID"

// 测试注入点
var osHostname = os.Hostname

// SnowflakeGenerator 基于 sonyflake 的本地 ID 生成器。
type SnowflakeGenerator struct {
	sf *sonyflake.Sonyflake
}

// SnowflakeOption 配置 SnowflakeGenerator。
type SnowflakeOption func(*snowflakeOptions)

type snowflakeOptions struct {
	machineID func() (uint16, error)
}

// WithMachineID 设置机器号获取函数，默认 DefaultMachineID。
func WithMachineID(fn func() (uint16, error)) SnowflakeOption {
	return func(o *snowflakeOptions) {
		if fn != nil {
			o.machineID = fn
		}
	}
}

// NewSnowflake 创建 sonyflake 生成器。
func NewSnowflake(opts ...SnowflakeOption) (*SnowflakeGenerator, error) {
	o := &snowflakeOptions{machineID: DefaultMachineID}
	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}

	sf, err := sonyflake.New(sonyflake.Settings{
		StartTime: DefaultEpoch,
		MachineID: func() (int, error) {
			id, err := o.machineID()
			return int(id), err
		},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return &SnowflakeGenerator{sf: sf}, nil
}

// NextID 生成下一个 ID，namespace 只做非空校验。
func (g *SnowflakeGenerator) NextID(ctx context.Context, namespace string) (uint64, error) {
	if strings.TrimSpace(namespace) == "" {
		return 0, ErrEmptyNamespace
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	id, err := g.sf.NextID()
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrOverTimeLimit, err)
	}
	return uint64(id), nil
}

// DefaultMachineID 依次尝试 XSECKILL_MACHINE_ID 环境变量和主机名哈希。
//
// 主机名哈希在大规模部署下有碰撞风险，生产环境应显式分配机器号。
func DefaultMachineID() (uint16, error) {
	if s := os.Getenv(EnvMachineID); s != "" {
		id, err := strconv.ParseUint(s, 10, 16)
		if err != nil {
			return 0, fmt.Errorf("xid: invalid %s value %q: %w", EnvMachineID, s, err)
		}
		return uint16(id), nil
	}

	hostname, err := osHostname()
	if err != nil {
		return 0, fmt.Errorf("xid: resolve machine id: %w", err)
	}
	if hostname == "" {
		return 0, fmt.Errorf("xid: resolve machine id: empty hostname")
	}
	return hashToMachineID(hostname), nil
}

// hashToMachineID 将 64 位哈希异或折叠为 16 位。
func hashToMachineID(s string) uint16 {
	h := xxhash.Sum64String(s)
	return uint16(h ^ h>>16 ^ h>>32 ^ h>>48)
}
