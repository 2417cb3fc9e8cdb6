// Package observability 提供可观测性相关的子包。
//
// 子包列表：
//   - xlog: 基于 log/slog 的日志构建器，支持文件轮转和 context 字段注入
//   - xmetrics: 操作级观测接口，默认空实现，可接入 OpenTelemetry 指标
package observability
