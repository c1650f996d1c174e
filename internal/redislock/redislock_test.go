package redislock

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"
)

func startMiniredis(t *testing.T) *Connection {
	t.Helper()

	srv, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(srv.Close)

	return NewConnection("redis://" + srv.Addr())
}

func TestRedisLocker_TryLock_SecondCallerBlocked(t *testing.T) {
	conn := startMiniredis(t)
	locker := NewRedisLocker(conn)
	ctx := context.Background()

	acquired, err := locker.TryLock(ctx, "lock:test", time.Minute)
	require.NoError(t, err)
	require.True(t, acquired)

	acquired, err = locker.TryLock(ctx, "lock:test", time.Minute)
	require.NoError(t, err)
	require.False(t, acquired)
}

func TestRedisLocker_UnlockAllowsReacquire(t *testing.T) {
	conn := startMiniredis(t)
	locker := NewRedisLocker(conn)
	ctx := context.Background()

	acquired, err := locker.TryLock(ctx, "lock:test", time.Minute)
	require.NoError(t, err)
	require.True(t, acquired)

	require.NoError(t, locker.Unlock(ctx, "lock:test"))

	acquired, err = locker.TryLock(ctx, "lock:test", time.Minute)
	require.NoError(t, err)
	require.True(t, acquired)
}

func TestNoopLocker_NeverAcquires(t *testing.T) {
	locker := NoopLocker{}

	acquired, err := locker.TryLock(context.Background(), "lock:test", time.Minute)
	require.NoError(t, err)
	require.False(t, acquired)

	require.NoError(t, locker.Unlock(context.Background(), "lock:test"))
}
