package xcache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type shop struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

func TestQuery_TypedRoundTripThroughCache(t *testing.T) {
	mr, client := setup(t)
	g := newGateway(t, client, StrategyMutex)
	calls := 0
	load := func(_ context.Context, id int64) (*shop, error) {
		calls++
		if id != 7 {
			return nil, nil
		}
		return &shop{ID: 7, Name: "noodles"}, nil
	}
	ctx := context.Background()

	got, err := Query(ctx, g, shopPrefix, int64(7), load, time.Minute)
	require.NoError(t, err)
	assert.Equal(t, &shop{ID: 7, Name: "noodles"}, got)

	got, err = Query(ctx, g, shopPrefix, int64(7), load, time.Minute)
	require.NoError(t, err)
	assert.Equal(t, "noodles", got.Name)
	assert.Equal(t, 1, calls)

	raw, err := mr.Get("cache:shop:7")
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":7,"name":"noodles"}`, raw)

	_, err = Query(ctx, g, shopPrefix, int64(8), load, time.Minute)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = Query[shop, int64](ctx, g, shopPrefix, 7, nil, time.Minute)
	assert.ErrorIs(t, err, ErrNilLoader)
}

func TestWarm(t *testing.T) {
	mr, client := setup(t)
	clock := &fakeClock{now: time.Unix(1700000000, 0)}
	g := newGateway(t, client, StrategyLogicalExpire, WithClock(clock.Now))
	dbErr := errors.New("db down")
	load := func(_ context.Context, id string) ([]byte, error) {
		switch id {
		case "1":
			return []byte(`{"id":1}`), nil
		case "2":
			return nil, ErrNotFound
		default:
			return nil, dbErr
		}
	}

	err := g.Warm(context.Background(), shopPrefix, []string{"1", "2", "3"}, load, time.Hour)

	assert.ErrorIs(t, err, dbErr)
	assert.True(t, mr.Exists("cache:shop:1"))
	assert.False(t, mr.Exists("cache:shop:2"))
	assert.False(t, mr.Exists("cache:shop:3"))

	v, err := g.Get(context.Background(), shopPrefix, "1", load, time.Hour)
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":1}`, string(v))
}

func TestMemory(t *testing.T) {
	m, err := NewMemory[*shop](MemoryConfig{MaxEntries: 100, TTL: time.Minute})
	require.NoError(t, err)
	defer m.Close()

	m.Set("7", &shop{ID: 7})
	m.Wait()
	v, ok := m.Get("7")
	require.True(t, ok)
	assert.Equal(t, int64(7), v.ID)

	m.Delete("7")
	m.Wait()
	_, ok = m.Get("7")
	assert.False(t, ok)
}
