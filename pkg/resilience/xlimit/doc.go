// Package xlimit 提供按 key 的限流器。
//
// NewRedis 基于 go-redis/redis_rate（GCRA）在多实例间共享配额；
// NewLocal 为单实例部署提供进程内令牌桶（每个 key 一个 x/time/rate.Limiter），语义一致。
//
// 秒杀准入按券 ID 限流，超出配额的请求直接返回 Overloaded，
// 在流量洪峰时保护库存脚本所在的 Redis。
package xlimit
