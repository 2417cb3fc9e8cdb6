package xbreaker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errStore = errors.New("redis: connection refused")

func TestBreaker_OpensAfterConsecutiveFailures(t *testing.T) {
	var transitions []State
	b := New("reserver", Config{FailureThreshold: 3, Timeout: time.Hour},
		WithOnStateChange(func(_ string, _, to State) { transitions = append(transitions, to) }),
	)
	ctx := context.Background()

	for range 3 {
		assert.ErrorIs(t, b.Do(ctx, func() error { return errStore }), errStore)
	}
	assert.Equal(t, StateOpen, b.State())
	assert.Equal(t, []State{StateOpen}, transitions)

	// 打开后不再执行操作
	called := false
	err := b.Do(ctx, func() error { called = true; return nil })
	assert.False(t, called)
	assert.True(t, IsBreakerError(err))

	var be *BreakerError
	require.ErrorAs(t, err, &be)
	assert.Equal(t, "reserver", be.Name)
	assert.Equal(t, StateOpen, be.State)
	assert.ErrorIs(t, err, ErrOpenState)
}

func TestBreaker_SuccessResetsConsecutiveFailures(t *testing.T) {
	b := New("reserver", Config{FailureThreshold: 2})
	ctx := context.Background()

	_ = b.Do(ctx, func() error { return errStore })
	require.NoError(t, b.Do(ctx, func() error { return nil }))
	_ = b.Do(ctx, func() error { return errStore })

	assert.Equal(t, StateClosed, b.State())
	assert.Equal(t, uint32(1), b.Counts().ConsecutiveFailures)
}

func TestBreaker_HalfOpenAfterTimeout(t *testing.T) {
	b := New("reserver", Config{FailureThreshold: 1, Timeout: 20 * time.Millisecond})
	ctx := context.Background()

	_ = b.Do(ctx, func() error { return errStore })
	require.Equal(t, StateOpen, b.State())

	assert.Eventually(t, func() bool { return b.State() == StateHalfOpen }, time.Second, 5*time.Millisecond)

	require.NoError(t, b.Do(ctx, func() error { return nil }))
	assert.Equal(t, StateClosed, b.State())
}

func TestBreaker_ExcludedErrorsDoNotCount(t *testing.T) {
	b := New("reserver", Config{FailureThreshold: 1},
		WithExcluded(func(err error) bool { return errors.Is(err, context.Canceled) }),
	)

	err := b.Do(context.Background(), func() error { return context.Canceled })
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, StateClosed, b.State())
}

func TestExecute_ReturnsValueAndHonorsContext(t *testing.T) {
	b := New("reserver", Config{})

	v, err := Execute(context.Background(), b, func() (int64, error) { return 42, nil })
	require.NoError(t, err)
	assert.Equal(t, int64(42), v)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = Execute(ctx, b, func() (int64, error) { return 1, nil })
	assert.ErrorIs(t, err, context.Canceled)

	_, err = Execute[int64](context.Background(), b, nil)
	assert.ErrorIs(t, err, ErrNilFunc)
	assert.ErrorIs(t, b.Do(context.Background(), nil), ErrNilFunc)
}
