// Package xlog 基于 log/slog 构建结构化日志。
//
// Builder 负责输出目标、级别、格式（text/json）和文件轮转（lumberjack）：
//
//	logger, cleanup, err := xlog.New().
//	    SetLevelString("info").
//	    SetFormat("json").
//	    SetRotation("/var/log/seckill.log", xlog.RotationConfig{MaxSizeMB: 100}).
//	    Build()
//	defer cleanup()
//
// 默认启用 EnrichHandler，从 context 中自动注入 user_id、request_id。
// 记录日志时需使用带 ctx 的方法（InfoContext 等）才能注入。
package xlog
