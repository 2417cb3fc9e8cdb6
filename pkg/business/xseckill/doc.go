// Package xseckill 实现秒杀下单的准入控制和异步落库。
//
// 请求路径：
//
//	Controller.Admit
//	  -> 售罄短路 / 限流 / 读取券信息（可经缓存）/ 校验时间窗
//	  -> 生成订单号
//	  -> Reserver.Reserve：一次原子操作完成 库存检查 + 一人一单检查 + 扣减
//	  -> Worker.Submit：投递到有界内存队列，立即返回订单号
//
// 落库路径由 Worker 单协程顺序消费：按用户加分布式锁，查库复核一人一单，写订单，释放锁。
//
// # 一致性
//
// 调用方拿到订单号时订单尚未落库。队列只在内存中，进程重启会丢失已准入未落库的订单；
// 落库失败只记录日志并丢弃任务，不回补库存，也不通知调用方。
//
// Reserver 有两种实现：RedisReserver 用 Lua 脚本保证多实例部署下的原子性；
// LocalReserver 用按券分片的互斥锁，只适用于单进程部署。
package xseckill
