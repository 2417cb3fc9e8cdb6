package xdlock

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubLocker struct {
	busyUntil int32
	calls     atomic.Int32
	err       error
}

func (s *stubLocker) TryLock(_ context.Context, _ string, _ time.Duration) (string, bool, error) {
	n := s.calls.Add(1)
	if s.err != nil {
		return "", false, s.err
	}
	if n <= s.busyUntil {
		return "", false, nil
	}
	return "tok", true, nil
}

func (s *stubLocker) Unlock(context.Context, string, string) (bool, error) { return true, nil }

func TestTryLockRetry_SucceedsAfterContention(t *testing.T) {
	l := &stubLocker{busyUntil: 2}

	token, err := TryLockRetry(context.Background(), l, "k", time.Second, 5, time.Millisecond)

	require.NoError(t, err)
	assert.Equal(t, "tok", token)
	assert.Equal(t, int32(3), l.calls.Load())
}

func TestTryLockRetry_ExhaustedReturnsBusy(t *testing.T) {
	l := &stubLocker{busyUntil: 100}

	_, err := TryLockRetry(context.Background(), l, "k", time.Second, 3, time.Millisecond)

	assert.ErrorIs(t, err, ErrLockBusy)
	assert.Equal(t, int32(3), l.calls.Load())
}

func TestTryLockRetry_StoreErrorNotRetried(t *testing.T) {
	storeErr := errors.New("connection refused")
	l := &stubLocker{err: storeErr}

	_, err := TryLockRetry(context.Background(), l, "k", time.Second, 5, time.Millisecond)

	assert.ErrorIs(t, err, storeErr)
	assert.Equal(t, int32(1), l.calls.Load())
}

func TestTryLockRetry_ZeroAttemptsTriesOnce(t *testing.T) {
	l := &stubLocker{busyUntil: 100}

	_, err := TryLockRetry(context.Background(), l, "k", time.Second, 0, time.Millisecond)

	assert.ErrorIs(t, err, ErrLockBusy)
	assert.Equal(t, int32(1), l.calls.Load())
}

func TestTryLockRetry_NilLocker(t *testing.T) {
	_, err := TryLockRetry(context.Background(), nil, "k", time.Second, 1, 0)
	assert.ErrorIs(t, err, ErrNilClient)
}
