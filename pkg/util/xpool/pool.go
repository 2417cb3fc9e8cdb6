package xpool

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"runtime/debug"
	"sync"
)

const (
	maxWorkers   = 1 << 16
	maxQueueSize = 1 << 24
)

var _ io.Closer = (*Pool[struct{}])(nil)

// Pool 是有界的泛型 worker pool。
type Pool[T any] struct {
	handler func(T)
	queue   chan T
	opts    options

	// mu 保护 closed 与 queue 的关闭：Submit 持读锁发送，Shutdown 持写锁关闭。
	mu     sync.RWMutex
	closed bool

	wg   sync.WaitGroup
	done chan struct{}
}

// New 创建并启动 worker pool。
//
// workers 取值 [1, 65536]，queueSize 取值 [1, 16777216]。
func New[T any](workers, queueSize int, handler func(T), opts ...Option) (*Pool[T], error) {
	if handler == nil {
		return nil, ErrNilHandler
	}
	if workers < 1 || workers > maxWorkers {
		return nil, fmt.Errorf("%w: %d", ErrInvalidWorkers, workers)
	}
	if queueSize < 1 || queueSize > maxQueueSize {
		return nil, fmt.Errorf("%w: %d", ErrInvalidQueueSize, queueSize)
	}

	o := defaultOptions()
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}

	p := &Pool[T]{
		handler: handler,
		queue:   make(chan T, queueSize),
		opts:    o,
		done:    make(chan struct{}),
	}

	p.wg.Add(workers)
	for range workers {
		go p.worker()
	}
	go func() {
		p.wg.Wait()
		close(p.done)
	}()

	return p, nil
}

func (p *Pool[T]) worker() {
	defer p.wg.Done()
	for task := range p.queue {
		p.run(task)
	}
}

// run 执行单个任务并恢复 panic。
func (p *Pool[T]) run(task T) {
	defer func() {
		if r := recover(); r != nil {
			p.opts.logger.Error("xpool: worker panic recovered",
				slog.String("pool", p.opts.name),
				slog.String("task_type", fmt.Sprintf("%T", task)),
				slog.Any("panic", r),
				slog.String("stack", string(debug.Stack())),
			)
		}
	}()
	p.handler(task)
}

// Submit 非阻塞提交任务。
func (p *Pool[T]) Submit(task T) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return ErrPoolClosed
	}
	select {
	case p.queue <- task:
		return nil
	default:
		return ErrQueueFull
	}
}

// Len 返回当前排队（未被 worker 取走）的任务数。
func (p *Pool[T]) Len() int {
	return len(p.queue)
}

// Cap 返回队列容量。
func (p *Pool[T]) Cap() int {
	return cap(p.queue)
}

// Shutdown 停止接收新任务并等待队列中的任务处理完成。
//
// ctx 到期时返回 ctx.Err()，剩余任务仍由后台 worker 继续处理。
// 重复调用是安全的。
func (p *Pool[T]) Shutdown(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}

	p.mu.Lock()
	if !p.closed {
		p.closed = true
		close(p.queue)
	}
	p.mu.Unlock()

	select {
	case <-p.done:
		return nil
	case <-ctx.Done():
		p.opts.logger.Warn("xpool: shutdown interrupted, workers still draining",
			slog.String("pool", p.opts.name),
			slog.Int("pending", len(p.queue)),
		)
		return ctx.Err()
	}
}

// Close 等价于 Shutdown(context.Background())。
func (p *Pool[T]) Close() error {
	return p.Shutdown(context.Background())
}

// Done 返回在所有 worker 退出后关闭的 channel。
func (p *Pool[T]) Done() <-chan struct{} {
	return p.done
}
