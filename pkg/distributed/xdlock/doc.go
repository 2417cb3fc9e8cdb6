// Package xdlock 提供跨进程的具名互斥锁（KeyedMutex），释放时校验持有者令牌。
//
// # 后端
//
//   - NewRedis：单 Redis 节点，SET NX PX 加锁，Lua 脚本原子比较并删除
//   - NewRedlock：多个独立 Redis 节点，基于 redsync 的 Redlock 算法（过半节点成功）
//   - NewLocal：进程内分片互斥表，用于单实例部署和测试
//
// 三者实现同一个 Locker 接口，调用方可以互换。
//
// # 语义
//
// TryLock 只尝试一次，不阻塞、不重试；锁被占用时返回 ok=false 且 err=nil。
// 需要重试时使用 TryLockRetry（有界次数，耗尽返回 ErrLockBusy）。
//
// Unlock 只在存储的令牌等于调用方令牌时删除锁；令牌不匹配或锁已过期返回 false。
//
// # 令牌
//
// 令牌格式为 {node}-{seq}：node 是进程启动时生成的 UUID，seq 是进程内单调递增序号，
// 保证跨进程、跨重启、跨 goroutine 唯一。
//
// # TTL 风险
//
// 锁不会自动续期。TTL 必须大于临界区的最长执行时间并留出余量，
// 否则锁可能在临界区执行中途过期并被其他持有者获取。
//
// # Key 约定
//
// 使用 Key(resource, id) 生成 lock:{resource}:{id}。
package xdlock
