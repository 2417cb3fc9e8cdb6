// Package xretry 是 avast/retry-go/v5 的薄封装，统一重试入口。
//
// Do/DoWithData 默认遵守 ctx 取消，并跳过 Unrecoverable 包装的错误。
// 锁竞争重试、缓存重建等待等有界重试场景都通过这里执行。
package xretry
