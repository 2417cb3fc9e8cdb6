package xmongo

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"go.mongodb.org/mongo-driver/v2/mongo"
	mopts "go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"

	"github.com/omeyang/xseckill/pkg/observability/xmetrics"
)

const component = "xmongo"

// clientOperations 是 Health/Close 依赖的客户端子集，测试中可替换。
type clientOperations interface {
	Ping(ctx context.Context, rp *readpref.ReadPref) error
	Disconnect(ctx context.Context) error
}

// Mongo 包装 mongo.Client，并发安全。
type Mongo struct {
	client *mongo.Client
	ops    clientOperations
	opts   *options
	now    func() time.Time
	closed atomic.Bool
}

// New 包装已创建的客户端。
func New(client *mongo.Client, opts ...Option) (*Mongo, error) {
	if client == nil {
		return nil, ErrNilClient
	}
	return newMongo(client, client, opts), nil
}

// Connect 按 cfg.URI 创建客户端并包装。driver 延迟建连，不可达要等到 Health 或首次操作才暴露。
func Connect(cfg Config, opts ...Option) (*Mongo, error) {
	if strings.TrimSpace(cfg.URI) == "" {
		return nil, ErrEmptyURI
	}
	client, err := mongo.Connect(mopts.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, fmt.Errorf("xmongo connect: %w", err)
	}
	if cfg.OpTimeout > 0 {
		opts = append([]Option{WithOpTimeout(cfg.OpTimeout)}, opts...)
	}
	if cfg.SlowThreshold > 0 {
		opts = append([]Option{WithSlowThreshold(cfg.SlowThreshold)}, opts...)
	}
	return New(client, opts...)
}

func newMongo(client *mongo.Client, ops clientOperations, opts []Option) *Mongo {
	o := defaultOptions()
	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}
	return &Mongo{client: client, ops: ops, opts: o, now: time.Now}
}

// Client 返回底层客户端。
func (m *Mongo) Client() *mongo.Client {
	return m.client
}

// Database 返回指定数据库。
func (m *Mongo) Database(name string) *mongo.Database {
	return m.client.Database(name)
}

// Health 执行 Ping。
func (m *Mongo) Health(ctx context.Context) (err error) {
	if m.closed.Load() {
		return ErrClosed
	}
	ctx, span := xmetrics.Start(ctx, m.opts.observer, xmetrics.SpanOptions{
		Component: component,
		Operation: "health",
	})
	defer func() { span.End(xmetrics.Result{Err: err}) }()

	ctx, cancel := context.WithTimeout(ctx, m.opts.healthTimeout)
	defer cancel()
	if err = m.ops.Ping(ctx, readpref.Primary()); err != nil {
		return fmt.Errorf("xmongo health: %w", err)
	}
	return nil
}

// Do 执行一次集合操作：ctx 没有 deadline 时加兜底超时，记录指标，超过阈值打慢操作日志。
func (m *Mongo) Do(ctx context.Context, collection, op string, fn func(ctx context.Context) error) (err error) {
	if fn == nil {
		return ErrNilFunc
	}
	if m.closed.Load() {
		return ErrClosed
	}

	if _, ok := ctx.Deadline(); !ok && m.opts.opTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.opts.opTimeout)
		defer cancel()
	}

	ctx, span := xmetrics.Start(ctx, m.opts.observer, xmetrics.SpanOptions{
		Component: component,
		Operation: op,
	})
	start := m.now()
	defer func() {
		span.End(xmetrics.Result{Err: err})
		if d := m.now().Sub(start); m.opts.slowThreshold > 0 && d >= m.opts.slowThreshold {
			m.opts.logger.WarnContext(ctx, "xmongo: slow operation",
				slog.String("collection", collection),
				slog.String("op", op),
				slog.Duration("duration", d),
			)
		}
	}()

	return fn(ctx)
}

// Close 断开连接。重复调用返回 ErrClosed。
func (m *Mongo) Close(ctx context.Context) error {
	if !m.closed.CompareAndSwap(false, true) {
		return ErrClosed
	}
	if err := m.ops.Disconnect(ctx); err != nil {
		return fmt.Errorf("xmongo close: %w", err)
	}
	return nil
}
