// Package xmongo 提供 MongoDB 客户端的薄包装。
//
// xmongo 不代理 driver 的 CRUD API，只补充：
//   - Connect：按 URI 创建客户端
//   - Health：带超时的 Ping
//   - Do：为一次集合操作加兜底超时、指标和慢操作日志
//   - Close：断开连接，重复调用返回 ErrClosed
//
// 业务代码通过 Database/Client 拿到原生对象，把操作放进 Do 的回调里执行：
//
//	err := m.Do(ctx, "voucher_orders", "insert", func(ctx context.Context) error {
//	    _, err := coll.InsertOne(ctx, doc)
//	    return err
//	})
package xmongo
