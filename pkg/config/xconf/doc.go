// Package xconf 基于 koanf 加载 YAML/JSON 配置。
//
// Load 把文件内容覆盖到调用方提供的默认值上，文件中缺失的字段保留默认值：
//
//	cfg := DefaultConfig()
//	if err := xconf.Load("seckill.yaml", &cfg); err != nil { ... }
//
// 结构体字段使用 koanf 标签映射，嵌套键以 "." 分隔。
package xconf
