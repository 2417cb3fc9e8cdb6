// Package xmetrics 提供统一的操作观测接口，底层基于 OpenTelemetry trace 与 metrics。
//
// Start 创建名为 component.operation 的 span，ctx 中的 user_id、request_id 作为 span 属性。
// End 设置 span 状态并记录两个指标：
//   - xseckill.operation.total：计数器
//   - xseckill.operation.duration：耗时直方图（秒）
//
// 属性为 component、operation、status。status 可以由调用方显式指定
// （例如 sold_out、duplicate），为空时按 Err 推导为 ok 或 error。
//
// 默认使用 NoopObserver，调用方通过 Start 辅助函数可以安全传入 nil Observer。
package xmetrics
