package xdlock

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// 测试辅助
// =============================================================================

func newMiniredisClient(t *testing.T) (*miniredis.Miniredis, redis.UniversalClient) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// lockerCase 让同一组契约测试覆盖所有实现。
type lockerCase struct {
	name   string
	new    func(t *testing.T) Locker
	expire func(t *testing.T, d time.Duration)
}

func lockerCases(t *testing.T) []lockerCase {
	t.Helper()

	var (
		redisMR   *miniredis.Miniredis
		redlockMR []*miniredis.Miniredis
		clock     = &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	)

	return []lockerCase{
		{
			name: "redis",
			new: func(t *testing.T) Locker {
				mr, client := newMiniredisClient(t)
				redisMR = mr
				l, err := NewRedis(client)
				require.NoError(t, err)
				return l
			},
			expire: func(_ *testing.T, d time.Duration) { redisMR.FastForward(d) },
		},
		{
			name: "redlock",
			new: func(t *testing.T) Locker {
				redlockMR = nil
				clients := make([]redis.UniversalClient, 0, 3)
				for range 3 {
					mr, client := newMiniredisClient(t)
					redlockMR = append(redlockMR, mr)
					clients = append(clients, client)
				}
				l, err := NewRedlock(clients)
				require.NoError(t, err)
				return l
			},
			expire: func(_ *testing.T, d time.Duration) {
				for _, mr := range redlockMR {
					mr.FastForward(d)
				}
			},
		},
		{
			name: "local",
			new: func(_ *testing.T) Locker {
				return NewLocal(WithClock(clock.Now))
			},
			expire: func(_ *testing.T, d time.Duration) { clock.Advance(d) },
		},
	}
}

// =============================================================================
// 契约测试
// =============================================================================

func TestLocker_TryLockExclusive(t *testing.T) {
	for _, tc := range lockerCases(t) {
		t.Run(tc.name, func(t *testing.T) {
			l := tc.new(t)
			ctx := context.Background()
			key := Key("order", "1001")

			token, ok, err := l.TryLock(ctx, key, 5*time.Second)
			require.NoError(t, err)
			require.True(t, ok)
			assert.NotEmpty(t, token)

			_, ok, err = l.TryLock(ctx, key, 5*time.Second)
			require.NoError(t, err)
			assert.False(t, ok, "第二次加锁应失败")

			released, err := l.Unlock(ctx, key, token)
			require.NoError(t, err)
			assert.True(t, released)

			token2, ok, err := l.TryLock(ctx, key, 5*time.Second)
			require.NoError(t, err)
			assert.True(t, ok, "释放后应可重新加锁")
			assert.NotEqual(t, token, token2)
		})
	}
}

func TestLocker_UnlockForeignTokenIsNoop(t *testing.T) {
	for _, tc := range lockerCases(t) {
		t.Run(tc.name, func(t *testing.T) {
			l := tc.new(t)
			ctx := context.Background()
			key := Key("order", "1002")

			token, ok, err := l.TryLock(ctx, key, 5*time.Second)
			require.NoError(t, err)
			require.True(t, ok)

			released, err := l.Unlock(ctx, key, "someone-else")
			require.NoError(t, err)
			assert.False(t, released)

			// 锁仍由原持有者占用
			_, ok, err = l.TryLock(ctx, key, 5*time.Second)
			require.NoError(t, err)
			assert.False(t, ok)

			released, err = l.Unlock(ctx, key, token)
			require.NoError(t, err)
			assert.True(t, released)
		})
	}
}

func TestLocker_ExpiredHolderCannotReleaseNewOwner(t *testing.T) {
	for _, tc := range lockerCases(t) {
		t.Run(tc.name, func(t *testing.T) {
			l := tc.new(t)
			ctx := context.Background()
			key := Key("cache:shop", "7")

			// Given: A 持有锁后超时
			stale, ok, err := l.TryLock(ctx, key, time.Second)
			require.NoError(t, err)
			require.True(t, ok)
			tc.expire(t, 2*time.Second)

			// When: B 获取到锁，A 再尝试释放
			fresh, ok, err := l.TryLock(ctx, key, 10*time.Second)
			require.NoError(t, err)
			require.True(t, ok)

			released, err := l.Unlock(ctx, key, stale)
			require.NoError(t, err)

			// Then: A 的释放无效，B 的锁仍在
			assert.False(t, released)
			_, ok, err = l.TryLock(ctx, key, 10*time.Second)
			require.NoError(t, err)
			assert.False(t, ok)

			released, err = l.Unlock(ctx, key, fresh)
			require.NoError(t, err)
			assert.True(t, released)
		})
	}
}

func TestLocker_ConcurrentTryLockSingleWinner(t *testing.T) {
	for _, tc := range lockerCases(t) {
		t.Run(tc.name, func(t *testing.T) {
			l := tc.new(t)
			ctx := context.Background()
			key := Key("order", "race")

			const workers = 32
			var (
				wins atomic.Int32
				wg   sync.WaitGroup
			)
			start := make(chan struct{})
			for range workers {
				wg.Add(1)
				go func() {
					defer wg.Done()
					<-start
					_, ok, err := l.TryLock(ctx, key, 10*time.Second)
					assert.NoError(t, err)
					if ok {
						wins.Add(1)
					}
				}()
			}
			close(start)
			wg.Wait()

			if tc.name == "redlock" {
				// 多节点下各自拿到少数派节点时可能无人胜出，但绝不会出现两个持有者
				assert.LessOrEqual(t, wins.Load(), int32(1))
				return
			}
			assert.Equal(t, int32(1), wins.Load())
		})
	}
}

func TestLocker_InvalidArguments(t *testing.T) {
	for _, tc := range lockerCases(t) {
		t.Run(tc.name, func(t *testing.T) {
			l := tc.new(t)
			ctx := context.Background()

			_, _, err := l.TryLock(ctx, "", time.Second)
			assert.ErrorIs(t, err, ErrEmptyKey)

			_, _, err = l.TryLock(ctx, "k", 0)
			assert.ErrorIs(t, err, ErrInvalidTTL)

			_, err = l.Unlock(ctx, "k", "")
			assert.ErrorIs(t, err, ErrEmptyToken)

			_, err = l.Unlock(ctx, " ", "t")
			assert.ErrorIs(t, err, ErrEmptyKey)
		})
	}
}

// =============================================================================
// 实现相关
// =============================================================================

func TestNewRedis_NilClient(t *testing.T) {
	_, err := NewRedis(nil)
	assert.ErrorIs(t, err, ErrNilClient)
}

func TestNewRedlock_NilClient(t *testing.T) {
	_, err := NewRedlock(nil)
	assert.ErrorIs(t, err, ErrNilClient)

	_, err = NewRedlock([]redis.UniversalClient{nil})
	assert.ErrorIs(t, err, ErrNilClient)
}

func TestRedis_StoresTokenWithTTL(t *testing.T) {
	mr, client := newMiniredisClient(t)
	l, err := NewRedis(client, WithTokenFunc(func() string { return "node-a-1" }))
	require.NoError(t, err)

	key := Key("order", "42")
	token, ok, err := l.TryLock(context.Background(), key, 5*time.Second)
	require.NoError(t, err)
	require.True(t, ok)

	assert.Equal(t, "node-a-1", token)
	got, err := mr.Get("lock:order:42")
	require.NoError(t, err)
	assert.Equal(t, "node-a-1", got)
	assert.Equal(t, 5*time.Second, mr.TTL("lock:order:42"))
}

func TestRedis_StoreErrorSurfaced(t *testing.T) {
	mr, client := newMiniredisClient(t)
	l, err := NewRedis(client)
	require.NoError(t, err)
	mr.SetError("LOADING server is loading")

	_, ok, err := l.TryLock(context.Background(), "lock:x:1", time.Second)
	assert.Error(t, err)
	assert.False(t, ok)

	_, err = l.Unlock(context.Background(), "lock:x:1", "t")
	assert.Error(t, err)
}

func TestRedlock_MinorityNodeHeldStillAcquires(t *testing.T) {
	var (
		nodes   []*miniredis.Miniredis
		clients []redis.UniversalClient
	)
	for range 3 {
		mr, client := newMiniredisClient(t)
		nodes = append(nodes, mr)
		clients = append(clients, client)
	}
	l, err := NewRedlock(clients)
	require.NoError(t, err)

	// 一个节点上残留他人的锁，另外两个节点仍构成多数派
	require.NoError(t, nodes[0].Set("lock:order:9", "other"))

	token, ok, err := l.TryLock(context.Background(), "lock:order:9", 5*time.Second)
	require.NoError(t, err)
	require.True(t, ok)

	got, err := nodes[1].Get("lock:order:9")
	require.NoError(t, err)
	assert.Equal(t, token, got)
}

func TestRedlock_MajorityHeldFails(t *testing.T) {
	var (
		nodes   []*miniredis.Miniredis
		clients []redis.UniversalClient
	)
	for range 3 {
		mr, client := newMiniredisClient(t)
		nodes = append(nodes, mr)
		clients = append(clients, client)
	}
	l, err := NewRedlock(clients)
	require.NoError(t, err)

	require.NoError(t, nodes[0].Set("lock:order:9", "other"))
	require.NoError(t, nodes[1].Set("lock:order:9", "other"))

	_, ok, err := l.TryLock(context.Background(), "lock:order:9", 5*time.Second)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestLocal_CanceledContext(t *testing.T) {
	l := NewLocal()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := l.TryLock(ctx, "k", time.Second)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestTokenSource_Unique(t *testing.T) {
	a, b := newTokenSource(), newTokenSource()
	seen := make(map[string]struct{})
	for range 100 {
		for _, s := range []*tokenSource{a, b} {
			tok := s.next()
			_, dup := seen[tok]
			require.False(t, dup, tok)
			seen[tok] = struct{}{}
		}
	}
}

func TestKey(t *testing.T) {
	assert.Equal(t, "lock:order:1001", Key("order", "1001"))
}

func TestWarmupScripts(t *testing.T) {
	_, client := newMiniredisClient(t)
	require.NoError(t, WarmupScripts(context.Background(), client))
	assert.ErrorIs(t, WarmupScripts(context.Background(), nil), ErrNilClient)

	exists, err := client.ScriptExists(context.Background(), unlockScript.Hash()).Result()
	require.NoError(t, err)
	assert.Equal(t, []bool{true}, exists)
}
