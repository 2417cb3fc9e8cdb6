// Package xcache 提供带击穿/穿透保护的 Redis 旁路缓存网关。
//
// Gateway 在构造时选定一种策略，三种策略共用同一个 Get 签名，调用方可以互换：
//
//   - StrategyPenetration：回源返回"不存在"时写入短 TTL 的空值标记，
//     之后对同一 id 的请求直接返回 ErrNotFound，不再打到数据库。
//   - StrategyMutex：缓存未命中时先在进程内用 singleflight 合并，
//     再用分布式锁保证跨进程只有一个回源；拿不到锁的调用方按固定间隔有界重试。
//   - StrategyLogicalExpire：缓存条目内嵌逻辑过期时间，物理上不过期。
//     逻辑过期后立即返回旧值，并由后台重建池异步刷新，重建池满时只返回旧值。
//     热点 key 需要预先通过 Warm 或 SetWithLogicalExpire 写入，物理未命中直接返回 ErrNotFound。
//
// 每次写入都是一次 SET，不存在部分写入。
//
// 锁 TTL 必须大于回源耗时，否则锁可能在回源期间过期并被他人获取。锁不会自动续期。
package xcache
