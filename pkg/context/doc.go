// Package context 提供请求上下文相关的子包。
//
// 子包列表：
//   - xctx: 在 context.Context 中传递当前用户 ID 和请求 ID，并为日志提供字段
package context
