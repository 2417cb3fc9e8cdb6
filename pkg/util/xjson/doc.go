// Package xjson 提供命令行和日志使用的 JSON 输出工具。
//
//   - [Encode]: 以两空格缩进写入 io.Writer，不转义 HTML 字符，末尾带换行。
//   - [Pretty]: 返回缩进后的字符串，失败时返回 "<marshal error: ...>"，便于直接写日志。
package xjson
