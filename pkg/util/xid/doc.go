// Package xid 生成全局唯一、按时间粗略有序的 64 位 ID。
//
// # 位布局（RedisGenerator）
//
//	| 1 bit 符号位(恒 0) | 31 bit 秒级时间戳 | 32 bit 序列号 |
//
// 各段含义：
//
//	时间戳  距 epoch（默认 2022-01-01T00:00:00Z）的秒数，约 68 年
//	序列号  Redis INCR icr:{namespace}:{yyyy:MM:dd}，按天分桶，天然无需重置
//
// 同一命名空间内，同一进程的顺序调用严格递增；共享同一 Redis 的多个进程在同一秒内不会碰撞。
// 时钟回拨时时间戳被钳制到进程内已见过的最大秒数。
//
// 下游可以直接按 ID 排序得到粗粒度的时间序，也可用 Decompose 拆出时间和序列号。
//
// # SnowflakeGenerator
//
// 单实例部署或没有共享计数器存储时，NewSnowflake 基于 sonyflake 本地生成 ID，
// 布局为 sonyflake v2 默认布局（39 bit 10ms 时间 + 8 bit 序列 + 16 bit 机器号），
// 忽略命名空间参数。
package xid
