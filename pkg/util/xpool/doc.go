// Package xpool 提供有界的泛型 worker pool。
//
// Pool 用于把请求线程之外的工作交给固定数量的 worker 执行，例如缓存后台重建
// 和订单异步落库（单 worker 即 FIFO 顺序消费）。
//
// # 注意事项
//
//   - New 创建后自动启动 worker
//   - Submit 是非阻塞的，队列满时返回 ErrQueueFull，关闭后返回 ErrPoolClosed
//   - Shutdown(ctx) 停止接收新任务并等待队列排空；ctx 到期后立即返回，
//     残留 worker 继续处理剩余任务，可通过 Done() 等待最终完成
//   - handler panic 会被恢复并记录日志，任务被丢弃，不会重试
//   - Close/Shutdown 不可在 handler 内调用，否则会死锁
package xpool
