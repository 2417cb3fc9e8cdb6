// Package xctx 提供请求级 context 字段的存取，替代隐式的线程本地状态。
//
// 当前用户 ID 和请求 ID 通过 context 显式传递：
//
//	ctx, _ = xctx.WithUserID(ctx, 1001)
//	uid, err := xctx.RequireUserID(ctx)
//
// xctx 只负责存取，不校验值的业务有效性。LogAttrs 把已有字段转换为 slog 属性，
// 供 xlog 的 EnrichHandler 自动注入日志。
package xctx
