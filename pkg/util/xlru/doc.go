// Package xlru 提供带 TTL 的进程内 LRU 缓存，基于 hashicorp/golang-lru/v2/expirable。
//
// 秒杀准入使用它记录短时间内已确认售罄的券，命中时直接拒绝而不访问 Redis。
// 条目到期后自动失效，补货后最多延迟一个 TTL 生效。
package xlru
