// Package keys 集中定义 Redis key 约定，供各包共享。
//
// 所有 key 都是普通字符串拼接，不做转义；调用方保证 id 中不含换行等控制字符。
package keys

import (
	"strconv"
	"time"
)

const (
	// LockPrefix 分布式锁 key 前缀，完整格式为 lock:{resource}:{id}。
	LockPrefix = "lock:"

	// CounterPrefix ID 生成器计数器 key 前缀。
	CounterPrefix = "icr:"

	// StockPrefix 秒杀库存 key 前缀。
	StockPrefix = "seckill:stock:"

	// OrderSetPrefix 秒杀下单用户集合 key 前缀。
	OrderSetPrefix = "seckill:order:"

	// counterDayLayout 计数器按天分桶，格式 yyyy:MM:dd。
	counterDayLayout = "2006:01:02"
)

// Lock 返回 lock:{resource}:{id}。
func Lock(resource, id string) string {
	return LockPrefix + resource + ":" + id
}

// Cache 返回 {prefix}{id}。
func Cache(prefix, id string) string {
	return prefix + id
}

// Counter 返回 icr:{namespace}:{yyyy:MM:dd}，日期取 UTC。
func Counter(namespace string, at time.Time) string {
	return CounterPrefix + namespace + ":" + at.UTC().Format(counterDayLayout)
}

// Stock 返回 seckill:stock:{voucherID}。
func Stock(voucherID int64) string {
	return StockPrefix + strconv.FormatInt(voucherID, 10)
}

// OrderSet 返回 seckill:order:{voucherID}。
func OrderSet(voucherID int64) string {
	return OrderSetPrefix + strconv.FormatInt(voucherID, 10)
}
