// Package xsys 调整进程的打开文件数上限。
//
// 压测和常驻服务会同时持有大量 Redis/Mongo 连接，默认的 RLIMIT_NOFILE 往往不够。
// [EnsureFileLimit] 只提升 soft limit，不超过 hard limit，也不会降低已有的值。
// 非 Unix 平台返回 [ErrUnsupportedPlatform]。
package xsys
