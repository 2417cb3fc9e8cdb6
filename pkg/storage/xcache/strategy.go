package xcache

import (
	"fmt"
	"strings"
)

// Strategy 缓存击穿/穿透保护策略。
type Strategy int

// 可选策略。
const (
	StrategyPenetration Strategy = iota + 1
	StrategyMutex
	StrategyLogicalExpire
)

func (s Strategy) String() string {
	switch s {
	case StrategyPenetration:
		return "penetration"
	case StrategyMutex:
		return "mutex"
	case StrategyLogicalExpire:
		return "logical_expire"
	default:
		return fmt.Sprintf("Strategy(%d)", int(s))
	}
}

func (s Strategy) valid() bool {
	return s >= StrategyPenetration && s <= StrategyLogicalExpire
}

// ParseStrategy 解析配置中的策略名，大小写不敏感，"-" 与 "_" 等价。
func ParseStrategy(name string) (Strategy, error) {
	switch strings.ReplaceAll(strings.ToLower(strings.TrimSpace(name)), "-", "_") {
	case "penetration", "null":
		return StrategyPenetration, nil
	case "mutex":
		return StrategyMutex, nil
	case "logical_expire", "logical":
		return StrategyLogicalExpire, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrInvalidStrategy, name)
	}
}

// UnmarshalText 支持从配置文件直接解析。
func (s *Strategy) UnmarshalText(text []byte) error {
	v, err := ParseStrategy(string(text))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// MarshalText 输出策略名。
func (s Strategy) MarshalText() ([]byte, error) {
	if !s.valid() {
		return nil, fmt.Errorf("%w: %d", ErrInvalidStrategy, int(s))
	}
	return []byte(s.String()), nil
}
