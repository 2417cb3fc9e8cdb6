// Package storage 提供数据存储相关的子包。
//
// 子包列表：
//   - xcache: Redis 读穿缓存网关，支持空值标记、互斥重建、逻辑过期三种策略，附带 ristretto 近端缓存
//   - xmongo: MongoDB 客户端封装，统一超时、慢操作日志和观测
package storage
