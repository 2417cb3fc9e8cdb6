package xjson

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
)

// ErrNilWriter 输出目标为 nil。
var ErrNilWriter = errors.New("xjson: writer is nil")

const indent = "  "

// Encode 将 v 缩进序列化后写入 w。
func Encode(w io.Writer, v any) error {
	if w == nil {
		return ErrNilWriter
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", indent)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("xjson: encode %T: %w", v, err)
	}
	return nil
}

// Pretty 返回 v 的缩进 JSON，不含末尾换行。
func Pretty(v any) string {
	var b strings.Builder
	if err := Encode(&b, v); err != nil {
		return fmt.Sprintf("<marshal error: %v>", err)
	}
	return strings.TrimSuffix(b.String(), "\n")
}
