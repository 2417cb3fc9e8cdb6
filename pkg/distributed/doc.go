// Package distributed 提供跨进程协调相关的子包。
//
// 子包列表：
//   - xdlock: 带 token 校验的互斥锁，支持单节点 Redis、Redlock 和进程内三种实现
package distributed
