package guard_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thenielthevis/capstone-project-sub006/internal/infrastructure/guard"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func setupRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestGuard_CollapsesConcurrentCalls(t *testing.T) {
	g := guard.New(nil, quietLogger())

	var calls atomic.Int32
	release := make(chan struct{})
	started := make(chan struct{})
	fn := func(context.Context) (any, error) {
		if calls.Add(1) == 1 {
			close(started)
		}
		<-release
		return "result", nil
	}

	const callers = 5
	var wg sync.WaitGroup
	var leaders atomic.Int32
	results := make([]any, callers)

	wg.Add(1)
	go func() {
		defer wg.Done()
		v, shared, err := g.Do(context.Background(), "user-1", fn)
		assert.NoError(t, err)
		if !shared {
			leaders.Add(1)
		}
		results[0] = v
	}()
	<-started

	for i := 1; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			v, shared, err := g.Do(context.Background(), "user-1", fn)
			assert.NoError(t, err)
			if !shared {
				leaders.Add(1)
			}
			results[i] = v
		}(i)
	}

	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, int32(1), leaders.Load())
	for _, v := range results {
		assert.Equal(t, "result", v)
	}
}

func TestGuard_DifferentKeysRunIndependently(t *testing.T) {
	g := guard.New(nil, quietLogger())

	var calls atomic.Int32
	fn := func(context.Context) (any, error) {
		calls.Add(1)
		return nil, nil
	}
	_, _, err := g.Do(context.Background(), "a", fn)
	require.NoError(t, err)
	_, shared, err := g.Do(context.Background(), "b", fn)
	require.NoError(t, err)

	assert.False(t, shared)
	assert.Equal(t, int32(2), calls.Load())
}

func TestGuard_CancelledCallerStopsWaitingButWorkFinishes(t *testing.T) {
	g := guard.New(nil, quietLogger())

	done := make(chan error, 1)
	release := make(chan struct{})
	fn := func(ctx context.Context) (any, error) {
		<-release
		done <- ctx.Err()
		return nil, nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	_, _, err := g.Do(ctx, "user-1", fn)
	assert.ErrorIs(t, err, context.Canceled)

	close(release)
	select {
	case fnErr := <-done:
		assert.NoError(t, fnErr)
	case <-time.After(2 * time.Second):
		t.Fatal("computation did not finish")
	}
}

func TestGuard_PropagatesErrors(t *testing.T) {
	g := guard.New(nil, quietLogger())
	boom := errors.New("boom")

	_, _, err := g.Do(context.Background(), "k", func(context.Context) (any, error) { return nil, boom })
	assert.ErrorIs(t, err, boom)
}

func TestGuard_WithRedisLocker(t *testing.T) {
	t.Run("lock is released after the computation", func(t *testing.T) {
		mr, client := setupRedis(t)
		locker := guard.NewRedisLocker(client, guard.RedisLockerConfig{TTL: time.Minute, Wait: time.Second}, quietLogger())
		g := guard.New(locker, quietLogger())

		v, _, err := g.Do(context.Background(), "user-1", func(context.Context) (any, error) {
			assert.True(t, mr.Exists("healthrisk:compute:user-1"))
			return 42, nil
		})
		require.NoError(t, err)
		assert.Equal(t, 42, v)
		assert.False(t, mr.Exists("healthrisk:compute:user-1"))
	})

	t.Run("computes anyway when another instance keeps the lock", func(t *testing.T) {
		mr, client := setupRedis(t)
		require.NoError(t, mr.Set("healthrisk:compute:user-1", "other-instance"))

		locker := guard.NewRedisLocker(client, guard.RedisLockerConfig{
			TTL:          time.Minute,
			Wait:         50 * time.Millisecond,
			PollInterval: 10 * time.Millisecond,
		}, quietLogger())
		g := guard.New(locker, quietLogger())

		v, _, err := g.Do(context.Background(), "user-1", func(context.Context) (any, error) { return "ok", nil })
		require.NoError(t, err)
		assert.Equal(t, "ok", v)

		got, err := mr.Get("healthrisk:compute:user-1")
		require.NoError(t, err)
		assert.Equal(t, "other-instance", got)
	})

	t.Run("computes anyway when redis is down", func(t *testing.T) {
		mr, client := setupRedis(t)
		mr.Close()

		locker := guard.NewRedisLocker(client, guard.RedisLockerConfig{TTL: time.Minute, Wait: time.Second}, quietLogger())
		g := guard.New(locker, quietLogger())

		v, _, err := g.Do(context.Background(), "user-1", func(context.Context) (any, error) { return "ok", nil })
		require.NoError(t, err)
		assert.Equal(t, "ok", v)
	})
}

func TestRedisLocker_Acquire(t *testing.T) {
	t.Run("exclusive until released", func(t *testing.T) {
		mr, client := setupRedis(t)
		locker := guard.NewRedisLocker(client, guard.RedisLockerConfig{
			TTL:          time.Minute,
			Wait:         30 * time.Millisecond,
			PollInterval: 10 * time.Millisecond,
			KeyPrefix:    "test:",
		}, quietLogger())

		release, err := locker.Acquire(context.Background(), "k")
		require.NoError(t, err)
		assert.Equal(t, time.Minute, mr.TTL("test:k"))

		_, err = locker.Acquire(context.Background(), "k")
		assert.ErrorIs(t, err, guard.ErrLockHeld)

		release()
		assert.False(t, mr.Exists("test:k"))

		release2, err := locker.Acquire(context.Background(), "k")
		require.NoError(t, err)
		release2()
	})

	t.Run("waits for the holder to let go", func(t *testing.T) {
		_, client := setupRedis(t)
		locker := guard.NewRedisLocker(client, guard.RedisLockerConfig{
			TTL:          time.Minute,
			Wait:         2 * time.Second,
			PollInterval: 10 * time.Millisecond,
		}, quietLogger())

		release, err := locker.Acquire(context.Background(), "k")
		require.NoError(t, err)
		go func() {
			time.Sleep(50 * time.Millisecond)
			release()
		}()

		release2, err := locker.Acquire(context.Background(), "k")
		require.NoError(t, err)
		release2()
	})

	t.Run("expired lock can be taken", func(t *testing.T) {
		mr, client := setupRedis(t)
		locker := guard.NewRedisLocker(client, guard.RedisLockerConfig{TTL: time.Second, Wait: 0}, quietLogger())

		_, err := locker.Acquire(context.Background(), "k")
		require.NoError(t, err)
		mr.FastForward(2 * time.Second)

		release, err := locker.Acquire(context.Background(), "k")
		require.NoError(t, err)
		release()
	})

	t.Run("release leaves a foreign lock alone", func(t *testing.T) {
		mr, client := setupRedis(t)
		locker := guard.NewRedisLocker(client, guard.RedisLockerConfig{TTL: time.Minute}, quietLogger())

		release, err := locker.Acquire(context.Background(), "k")
		require.NoError(t, err)
		require.NoError(t, mr.Set("healthrisk:compute:k", "someone-else"))

		release()
		got, err := mr.Get("healthrisk:compute:k")
		require.NoError(t, err)
		assert.Equal(t, "someone-else", got)
	})

	t.Run("context cancellation while waiting", func(t *testing.T) {
		mr, client := setupRedis(t)
		require.NoError(t, mr.Set("healthrisk:compute:k", "held"))
		locker := guard.NewRedisLocker(client, guard.RedisLockerConfig{TTL: time.Minute, Wait: time.Minute}, quietLogger())

		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()
		_, err := locker.Acquire(ctx, "k")
		assert.Error(t, err)
	})
}
