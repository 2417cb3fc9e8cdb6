package xctx

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"
)

// contextKey 包私有类型，避免与其他包的 context key 冲突。
type contextKey string

const (
	keyUserID    = contextKey("xctx:user_id")
	keyRequestID = contextKey("xctx:request_id")
)

// 日志属性 Key
const (
	KeyUserID    = "user_id"
	KeyRequestID = "request_id"
)

var (
	// ErrNilContext 表示传入的 context 为 nil。
	ErrNilContext = errors.New("xctx: nil context")

	// ErrMissingUserID user_id 缺失
	ErrMissingUserID = errors.New("xctx: missing user_id")

	// ErrMissingRequestID request_id 缺失
	ErrMissingRequestID = errors.New("xctx: missing request_id")
)

// =============================================================================
// UserID
// =============================================================================

// WithUserID 将当前用户 ID 注入 context。
func WithUserID(ctx context.Context, userID int64) (context.Context, error) {
	if ctx == nil {
		return nil, ErrNilContext
	}
	return context.WithValue(ctx, keyUserID, userID), nil
}

// UserID 从 context 提取当前用户 ID。
func UserID(ctx context.Context) (int64, bool) {
	if ctx == nil {
		return 0, false
	}
	v, ok := ctx.Value(keyUserID).(int64)
	return v, ok
}

// RequireUserID 提取当前用户 ID，不存在时返回 ErrMissingUserID。
func RequireUserID(ctx context.Context) (int64, error) {
	if ctx == nil {
		return 0, ErrNilContext
	}
	v, ok := UserID(ctx)
	if !ok {
		return 0, ErrMissingUserID
	}
	return v, nil
}

// =============================================================================
// RequestID
// =============================================================================

// WithRequestID 将请求 ID 注入 context。
func WithRequestID(ctx context.Context, requestID string) (context.Context, error) {
	if ctx == nil {
		return nil, ErrNilContext
	}
	return context.WithValue(ctx, keyRequestID, requestID), nil
}

// RequestID 从 context 提取请求 ID，不存在返回空字符串。
func RequestID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	v, _ := ctx.Value(keyRequestID).(string)
	return v
}

// EnsureRequestID 已有请求 ID 时原样返回，否则生成 UUID 注入。
func EnsureRequestID(ctx context.Context) (context.Context, error) {
	if ctx == nil {
		return nil, ErrNilContext
	}
	if RequestID(ctx) != "" {
		return ctx, nil
	}
	return WithRequestID(ctx, uuid.NewString())
}

// =============================================================================
// 日志属性
// =============================================================================

// LogAttrs 返回 context 中已存在字段对应的 slog 属性。
func LogAttrs(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}
	var attrs []slog.Attr
	if uid, ok := UserID(ctx); ok {
		attrs = append(attrs, slog.Int64(KeyUserID, uid))
	}
	if rid := RequestID(ctx); rid != "" {
		attrs = append(attrs, slog.String(KeyRequestID, rid))
	}
	return attrs
}
