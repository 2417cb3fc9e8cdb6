// Package util 提供通用工具相关的子包。
//
// 子包列表：
//   - xid: 按命名空间生成趋势递增的 64 位 ID，Redis 计数器或 sonyflake
//   - xjson: JSON 缩进输出
//   - xlru: 带 TTL 的泛型 LRU 缓存
//   - xpool: 泛型 worker pool，有界队列、非阻塞提交、优雅关闭
//   - xsys: 打开文件数上限调整
package util
