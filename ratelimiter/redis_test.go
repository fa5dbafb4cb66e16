package ratelimiter

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/jonboulle/clockwork"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

func TestNewRedisWindow_Validation(t *testing.T) {
	_, rdb := newTestRedis(t)

	_, err := NewRedisWindow(rdb, "p", Config{Window: time.Second})
	require.ErrorIs(t, err, ErrInvalidConfig)

	_, err = NewRedisWindow(nil, "p", Per(time.Second, 1))
	require.ErrorIs(t, err, ErrInvalidConfig)
}

func TestRedisWindow_SharedCeiling(t *testing.T) {
	_, rdb := newTestRedis(t)
	clock := clockwork.NewFakeClock()
	ctx := context.Background()

	a, err := NewRedisWindow(rdb, "test:shared", Per(time.Second, 3), WithClock(clock))
	require.NoError(t, err)
	b, err := NewRedisWindow(rdb, "test:shared", Per(time.Second, 3), WithClock(clock))
	require.NoError(t, err)

	admitted := 0
	for i := 0; i < 4; i++ {
		for _, l := range []*RedisWindow{a, b} {
			ok, err := l.TryAdmit(ctx)
			require.NoError(t, err)
			if ok {
				admitted++
			}
		}
	}
	require.Equal(t, 3, admitted, "two processes sharing a prefix share one ceiling")

	clock.Advance(time.Second)
	ok, err := b.TryAdmit(ctx)
	require.NoError(t, err)
	require.True(t, ok, "next window should have a fresh budget")
}

func TestRedisWindow_AdmitWaitsForBoundary(t *testing.T) {
	_, rdb := newTestRedis(t)
	clock := clockwork.NewFakeClock()

	l, err := NewRedisWindow(rdb, "test:wait", Per(time.Second, 1), WithClock(clock))
	require.NoError(t, err)
	defer l.Close()

	ctx := context.Background()
	require.NoError(t, l.Admit(ctx))

	done := make(chan error, 1)
	go func() { done <- l.Admit(ctx) }()

	blockCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	require.NoError(t, clock.BlockUntilContext(blockCtx, 1))

	clock.Advance(time.Second)
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("caller was not admitted in the next window")
	}
}

func TestRedisWindow_CancelConsumesNothing(t *testing.T) {
	mr, rdb := newTestRedis(t)
	clock := clockwork.NewFakeClock()

	l, err := NewRedisWindow(rdb, "test:cancel", Per(time.Second, 2), WithClock(clock))
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, l.Admit(ctx))
	require.NoError(t, l.Admit(ctx))

	waitCtx, cancel := context.WithCancel(ctx)
	done := make(chan error, 1)
	go func() { done <- l.Admit(waitCtx) }()

	blockCtx, stop := context.WithTimeout(ctx, 2*time.Second)
	defer stop()
	require.NoError(t, clock.BlockUntilContext(blockCtx, 1))
	cancel()

	err = <-done
	require.ErrorIs(t, err, ErrCanceled)
	require.True(t, errors.Is(err, context.Canceled))

	count, err := mr.Get(l.key(l.windowIndex(clock.Now())))
	require.NoError(t, err)
	require.Equal(t, "2", count)
}

func TestRedisWindow_CloseReleasesWaiter(t *testing.T) {
	_, rdb := newTestRedis(t)
	clock := clockwork.NewFakeClock()

	l, err := NewRedisWindow(rdb, "test:close", Per(time.Second, 1), WithClock(clock))
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, l.Admit(ctx))

	done := make(chan error, 1)
	go func() { done <- l.Admit(ctx) }()

	blockCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	require.NoError(t, clock.BlockUntilContext(blockCtx, 1))

	require.NoError(t, l.Close())
	require.ErrorIs(t, <-done, ErrClosed)
	require.ErrorIs(t, l.Admit(ctx), ErrClosed)
}
