// Package xbreaker 基于 sony/gobreaker/v2 的熔断器。
//
// 库存存储连续失败达到阈值后熔断器打开，准入请求快速返回 Unavailable，
// 不再排队等待已经不可用的 Redis；超时后进入半开状态放行探测请求。
package xbreaker
