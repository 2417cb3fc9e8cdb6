package xlru

import (
	"testing"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_Validation(t *testing.T) {
	_, err := New[int64, struct{}](Config{Size: 0})
	assert.ErrorIs(t, err, ErrInvalidSize)

	_, err = New[int64, struct{}](Config{Size: maxSize + 1})
	assert.ErrorIs(t, err, ErrInvalidSize)

	_, err = New[int64, struct{}](Config{Size: 1, TTL: -time.Second})
	assert.ErrorIs(t, err, ErrInvalidTTL)
}

func TestCache_SetGetDelete(t *testing.T) {
	c, err := New[int64, string](Config{Size: 2, TTL: time.Minute})
	require.NoError(t, err)
	defer c.Close()

	c.Set(1, "a")
	c.Set(2, "b")
	v, ok := c.Get(1)
	require.True(t, ok)
	assert.Equal(t, "a", v)

	// 容量为 2，写入第三个淘汰最久未访问的 2
	c.Set(3, "c")
	assert.False(t, c.Contains(2))
	assert.True(t, c.Contains(1))
	assert.Equal(t, 2, c.Len())

	assert.True(t, c.Delete(1))
	assert.False(t, c.Delete(1))
}

func TestCache_Expiry(t *testing.T) {
	c, err := New[int64, struct{}](Config{Size: 8, TTL: 20 * time.Millisecond})
	require.NoError(t, err)
	defer c.Close()

	c.Set(7, struct{}{})
	assert.True(t, c.Contains(7))

	assert.Eventually(t, func() bool { return !c.Contains(7) }, time.Second, 5*time.Millisecond)
}

func TestCache_ClosedIgnoresOperations(t *testing.T) {
	c, err := New[int64, int](Config{Size: 8, TTL: time.Minute})
	require.NoError(t, err)
	c.Set(1, 1)
	c.Close()
	c.Close()

	c.Set(2, 2)
	_, ok := c.Get(1)
	assert.False(t, ok)
	assert.False(t, c.Contains(2))
	assert.False(t, c.Delete(1))
	assert.Zero(t, c.Len())
}

func TestStopCleanupGoroutine(t *testing.T) {
	lru := expirable.NewLRU[string, int](4, nil, time.Minute)
	assert.True(t, stopCleanupGoroutine(lru), "上游结构变化，需检查 done 字段")
	assert.False(t, stopCleanupGoroutine(lru), "重复关闭应返回 false")
	assert.False(t, stopCleanupGoroutine(nil))
}
