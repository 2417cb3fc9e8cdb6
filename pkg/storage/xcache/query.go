package xcache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Query 是 Get 的类型化版本：回源结果和缓存值都以 JSON 编码。
//
// load 返回 (nil, nil) 或 ErrNotFound 表示数据不存在。
func Query[T any, ID any](ctx context.Context, g *Gateway, keyPrefix string, id ID, load func(context.Context, ID) (*T, error), ttl time.Duration) (*T, error) {
	if load == nil {
		return nil, ErrNilLoader
	}
	data, err := g.Get(ctx, keyPrefix, fmt.Sprint(id), func(ctx context.Context, _ string) ([]byte, error) {
		v, err := load(ctx, id)
		if err != nil {
			return nil, err
		}
		if v == nil {
			return nil, ErrNotFound
		}
		return json.Marshal(v)
	}, ttl)
	if err != nil {
		return nil, err
	}

	var v *T
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("xcache: decode %s%v: %w", keyPrefix, id, err)
	}
	if v == nil {
		return nil, ErrNotFound
	}
	return v, nil
}

// Warm 预热逻辑过期条目。回源不存在的 id 跳过，其余错误汇总返回。
func (g *Gateway) Warm(ctx context.Context, keyPrefix string, ids []string, load LoadFunc, ttl time.Duration) error {
	if load == nil {
		return ErrNilLoader
	}
	var errs []error
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return errors.Join(append(errs, err)...)
		}
		if err := validateKey(keyPrefix, id); err != nil {
			errs = append(errs, err)
			continue
		}
		data, err := g.load(ctx, id, load)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if err := g.SetWithLogicalExpire(ctx, keyPrefix, id, data, ttl); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
